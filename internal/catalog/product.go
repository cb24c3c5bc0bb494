package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidProduct indicates a catalog record is missing a required field.
var ErrInvalidProduct = errors.New("catalog: invalid product")

// Product is an immutable catalog entry. The first image is the default
// display image and the first size is the default selection.
type Product struct {
	ID          string
	Title       string
	Price       decimal.Decimal
	Currency    string
	Description string
	Images      []string
	Sizes       []string
	Type        string
}

// ProductInput carries the raw fields accepted by NewProduct.
type ProductInput struct {
	ID          string
	Title       string
	Price       string
	Currency    string
	Description string
	Images      []string
	Sizes       []string
	Type        string
}

// NewProduct validates the input and returns a normalised Product.
func NewProduct(in ProductInput) (Product, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return Product{}, fmt.Errorf("%w: id is required", ErrInvalidProduct)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Product{}, fmt.Errorf("%w: %s: title is required", ErrInvalidProduct, id)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil {
		return Product{}, fmt.Errorf("%w: %s: price %q: %v", ErrInvalidProduct, id, in.Price, err)
	}
	if price.IsNegative() {
		return Product{}, fmt.Errorf("%w: %s: price must not be negative", ErrInvalidProduct, id)
	}
	if !price.Equal(price.Round(2)) {
		return Product{}, fmt.Errorf("%w: %s: price %s has more than two decimals", ErrInvalidProduct, id, price)
	}

	images := compact(in.Images)
	if len(images) == 0 {
		return Product{}, fmt.Errorf("%w: %s: at least one image is required", ErrInvalidProduct, id)
	}
	sizes := compact(in.Sizes)
	if len(sizes) == 0 {
		return Product{}, fmt.Errorf("%w: %s: at least one size is required", ErrInvalidProduct, id)
	}

	return Product{
		ID:          id,
		Title:       title,
		Price:       price,
		Currency:    strings.ToUpper(strings.TrimSpace(in.Currency)),
		Description: strings.TrimSpace(in.Description),
		Images:      images,
		Sizes:       sizes,
		Type:        strings.ToLower(strings.TrimSpace(in.Type)),
	}, nil
}

// PrimaryImage returns the default display image.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// DefaultSize returns the size selected when the product is first shown.
func (p Product) DefaultSize() string {
	if len(p.Sizes) == 0 {
		return ""
	}
	return p.Sizes[0]
}

// HasSize reports whether size is one of the product's sizes.
func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// HasImage reports whether src is one of the product's images.
func (p Product) HasImage(src string) bool {
	for _, img := range p.Images {
		if img == src {
			return true
		}
	}
	return false
}

func (p Product) clone() Product {
	p.Images = append([]string(nil), p.Images...)
	p.Sizes = append([]string(nil), p.Sizes...)
	return p
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
