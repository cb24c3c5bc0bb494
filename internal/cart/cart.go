// Package cart implements the shopping cart state machine: an ordered list of
// line items deduplicated by (product, size), its persistence, and derived
// totals.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seatosky/storefront/internal/catalog"
)

// ErrInvalidLineIndex is returned when a line index is outside the cart.
var ErrInvalidLineIndex = errors.New("cart: invalid line index")

// errInvalidLine marks persisted lines that violate the line invariants.
var errInvalidLine = errors.New("cart: invalid line item")

const flatShippingCents = 500

// FlatShipping returns the single shipping charge applied to every cart.
func FlatShipping() decimal.Decimal {
	return decimal.New(flatShippingCents, -2)
}

// Key identifies a line item for deduplication.
type Key struct {
	ProductID string
	Size      string
}

// LineItem is one cart row. Title, price and image are captured when the
// line is created and do not follow later catalog changes.
type LineItem struct {
	ProductID string
	Title     string
	Price     decimal.Decimal
	Image     string
	Size      string
	Quantity  int
}

// Key returns the deduplication key of the line.
func (l LineItem) Key() Key {
	return Key{ProductID: l.ProductID, Size: l.Size}
}

// Total returns unit price times quantity.
func (l LineItem) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type lineWire struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    json.RawMessage `json:"price"`
	Image    string          `json:"image"`
	Size     string          `json:"size"`
	Quantity int             `json:"quantity"`
}

// MarshalJSON writes the persisted layout with price as a JSON number.
func (l LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineWire{
		ID:       l.ProductID,
		Title:    l.Title,
		Price:    json.RawMessage(l.Price.StringFixed(2)),
		Image:    l.Image,
		Size:     l.Size,
		Quantity: l.Quantity,
	})
}

// UnmarshalJSON reads the persisted layout and validates the line.
func (l *LineItem) UnmarshalJSON(data []byte) error {
	var w lineWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var price decimal.Decimal
	if err := price.UnmarshalJSON(w.Price); err != nil {
		return fmt.Errorf("%w: price: %v", errInvalidLine, err)
	}
	if !price.Equal(price.Round(2)) {
		return fmt.Errorf("%w: %s price %s has sub-cent precision", errInvalidLine, w.ID, price)
	}
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("%w: id is required", errInvalidLine)
	}
	if w.Quantity < 1 {
		return fmt.Errorf("%w: %s quantity %d", errInvalidLine, w.ID, w.Quantity)
	}
	*l = LineItem{
		ProductID: w.ID,
		Title:     w.Title,
		Price:     price,
		Image:     w.Image,
		Size:      w.Size,
		Quantity:  w.Quantity,
	}
	return nil
}

// Cart is an ordered sequence of line items. The zero value is an empty cart.
// Mutating methods return a new Cart and leave the receiver untouched.
type Cart struct {
	items []LineItem
}

// New builds a cart from lines, keeping their order.
func New(lines ...LineItem) Cart {
	return Cart{items: append([]LineItem(nil), lines...)}
}

// Items returns a copy of the lines in display order.
func (c Cart) Items() []LineItem {
	return append([]LineItem(nil), c.items...)
}

// Len returns the number of lines.
func (c Cart) Len() int { return len(c.items) }

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool { return len(c.items) == 0 }

// At returns the line at index.
func (c Cart) At(index int) (LineItem, error) {
	if err := c.checkIndex(index); err != nil {
		return LineItem{}, err
	}
	return c.items[index], nil
}

// Find returns the index of the line with key, or -1.
func (c Cart) Find(key Key) int {
	for i, item := range c.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

// Add increments the line for (product, size) or appends a new line with
// quantity 1. The size is not checked against the product's sizes.
func (c Cart) Add(p catalog.Product, size string) Cart {
	next := c.clone()
	if i := next.Find(Key{ProductID: p.ID, Size: size}); i >= 0 {
		next.items[i].Quantity++
		return next
	}
	next.items = append(next.items, LineItem{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.Price,
		Image:     p.PrimaryImage(),
		Size:      size,
		Quantity:  1,
	})
	return next
}

// Remove deletes the line at index regardless of its quantity.
func (c Cart) Remove(index int) (Cart, error) {
	if err := c.checkIndex(index); err != nil {
		return c, err
	}
	next := Cart{items: make([]LineItem, 0, len(c.items)-1)}
	next.items = append(next.items, c.items[:index]...)
	next.items = append(next.items, c.items[index+1:]...)
	return next, nil
}

// Increment adds one to the quantity of the line at index.
func (c Cart) Increment(index int) (Cart, error) {
	if err := c.checkIndex(index); err != nil {
		return c, err
	}
	next := c.clone()
	next.items[index].Quantity++
	return next, nil
}

// Decrement subtracts one from the quantity of the line at index. Quantity
// never drops below 1; use Remove to delete a line.
func (c Cart) Decrement(index int) (Cart, error) {
	if err := c.checkIndex(index); err != nil {
		return c, err
	}
	next := c.clone()
	if next.items[index].Quantity > 1 {
		next.items[index].Quantity--
	}
	return next, nil
}

// ItemCount returns the sum of all line quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// Subtotal returns the sum of unit price times quantity over all lines.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.items {
		sum = sum.Add(item.Total())
	}
	return sum
}

// Summary holds the derived cart totals.
type Summary struct {
	Items    int
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Summarize computes totals with the given flat shipping charge.
func (c Cart) Summarize(shipping decimal.Decimal) Summary {
	subtotal := c.Subtotal()
	return Summary{
		Items:    c.ItemCount(),
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}

// MarshalJSON writes the cart as a JSON array of lines.
func (c Cart) MarshalJSON() ([]byte, error) {
	items := c.items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

// UnmarshalJSON reads a JSON array of lines. A JSON null yields an empty cart.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	c.items = items
	return nil
}

func (c Cart) clone() Cart {
	return Cart{items: append([]LineItem(nil), c.items...)}
}

func (c Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidLineIndex, index, len(c.items))
	}
	return nil
}
