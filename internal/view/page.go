// Package view turns catalog, modal and cart state into render models and
// renders them through the embedded templates.
package view

import (
	"strings"

	"github.com/seatosky/storefront/internal/catalog"
	"github.com/seatosky/storefront/internal/format"
	"github.com/seatosky/storefront/internal/modal"
)

// ProductCard is one tile in the catalog grid.
type ProductCard struct {
	ID    string
	Title string
	Price string
	Image string
}

// Section groups product cards by category.
type Section struct {
	Type     string
	Heading  string
	Products []ProductCard
}

// Page is the full document model.
type Page struct {
	Title    string
	Sections []Section
	Modal    modal.View
	Cart     CartView
}

// ScrollLocked reports whether page scrolling is suspended. Either overlay
// holds the lock.
func (p Page) ScrollLocked() bool {
	return p.Modal.Open || p.Cart.Open
}

// Fragments is the out-of-band update set returned to htmx requests.
type Fragments struct {
	Modal modal.View
	Cart  CartView
}

// ScrollLocked reports whether page scrolling is suspended.
func (f Fragments) ScrollLocked() bool {
	return f.Modal.Open || f.Cart.Open
}

var sectionHeadings = map[string]string{
	"print":   "Prints",
	"apparel": "Apparel",
}

// BuildSections groups the catalog by type in first-seen order.
func BuildSections(cat *catalog.Catalog) []Section {
	var sections []Section
	seen := map[string]bool{}
	for _, p := range cat.All() {
		if seen[p.Type] {
			continue
		}
		seen[p.Type] = true
		section := Section{Type: p.Type, Heading: heading(p.Type)}
		for _, item := range cat.ByType(p.Type) {
			section.Products = append(section.Products, ProductCard{
				ID:    item.ID,
				Title: item.Title,
				Price: format.Price(item.Price, item.Currency),
				Image: item.PrimaryImage(),
			})
		}
		sections = append(sections, section)
	}
	return sections
}

func heading(kind string) string {
	if h, ok := sectionHeadings[kind]; ok {
		return h
	}
	if kind == "" {
		return "Shop"
	}
	return strings.ToUpper(kind[:1]) + kind[1:]
}
