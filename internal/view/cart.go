package view

import (
	"github.com/shopspring/decimal"

	"github.com/seatosky/storefront/internal/cart"
	"github.com/seatosky/storefront/internal/format"
)

// EmptyCartMessage is shown in place of line items when the cart is empty.
const EmptyCartMessage = "Your cart is empty."

// CartRow is one rendered cart line. Index addresses the quantity controls.
type CartRow struct {
	Index     int
	ProductID string
	Title     string
	Image     string
	Size      string
	Quantity  int
	UnitPrice string
	LineTotal string
}

// CartSummary carries the formatted totals block.
type CartSummary struct {
	Items    int
	Subtotal string
	Shipping string
	Total    string
}

// CartView is the render model for the cart panel and the header badge.
type CartView struct {
	Open         bool
	Badge        string
	Count        int
	Empty        bool
	EmptyMessage string
	Rows         []CartRow
	Summary      CartSummary
}

// BuildCart derives the cart view from the cart value.
func BuildCart(c cart.Cart, shipping decimal.Decimal) CartView {
	sum := c.Summarize(shipping)
	v := CartView{
		Badge: format.Count("Cart", sum.Items),
		Count: sum.Items,
		Empty: c.Empty(),
		Summary: CartSummary{
			Items:    sum.Items,
			Subtotal: format.Money(sum.Subtotal),
			Shipping: format.Money(sum.Shipping),
			Total:    format.Money(sum.Total),
		},
	}
	if v.Empty {
		v.EmptyMessage = EmptyCartMessage
		return v
	}

	items := c.Items()
	v.Rows = make([]CartRow, 0, len(items))
	for i, item := range items {
		v.Rows = append(v.Rows, CartRow{
			Index:     i,
			ProductID: item.ProductID,
			Title:     item.Title,
			Image:     item.Image,
			Size:      item.Size,
			Quantity:  item.Quantity,
			UnitPrice: format.Money(item.Price),
			LineTotal: format.Money(item.Total()),
		})
	}
	return v
}
