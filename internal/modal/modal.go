// Package modal holds the product detail presenter: which product is open,
// which size is selected and which gallery image is shown.
package modal

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/seatosky/storefront/internal/catalog"
	"github.com/seatosky/storefront/internal/format"
)

var (
	// ErrClosed is returned by operations that require an open product.
	ErrClosed = errors.New("modal: no product is open")
	// ErrUnknownSize is returned when the size is not offered by the open product.
	ErrUnknownSize = errors.New("modal: unknown size")
	// ErrUnknownImage is returned when the image does not belong to the open product.
	ErrUnknownImage = errors.New("modal: unknown image")
)

// Lookup resolves products by identifier.
type Lookup interface {
	FindByID(id string) (catalog.Product, error)
}

// Adder receives confirmed selections. *cart.Controller satisfies it.
type Adder interface {
	Add(ctx context.Context, p catalog.Product, size string) error
}

// State is the transient presenter state carried between requests.
// The zero value is Closed.
type State struct {
	ProductID string `json:"p,omitempty"`
	Size      string `json:"s,omitempty"`
	Image     string `json:"i,omitempty"`
}

// Result reports follow-up work for the caller after a confirmed add.
type Result struct {
	OpenCart bool
}

// Presenter is a two-state machine: Closed, or Open with a product and a
// selected size.
type Presenter struct {
	lookup  Lookup
	logger  *zap.Logger
	product *catalog.Product
	size    string
	image   string
}

// New returns a closed presenter backed by lookup.
func New(lookup Lookup, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{lookup: lookup, logger: logger}
}

// IsOpen reports whether a product is open.
func (p *Presenter) IsOpen() bool { return p.product != nil }

// Product returns the open product.
func (p *Presenter) Product() (catalog.Product, bool) {
	if p.product == nil {
		return catalog.Product{}, false
	}
	return *p.product, true
}

// SelectedSize returns the selected size, empty when closed.
func (p *Presenter) SelectedSize() string { return p.size }

// MainImage returns the displayed gallery image, empty when closed.
func (p *Presenter) MainImage() string { return p.image }

// Open shows productID with its default size and image. An unknown product
// leaves the presenter unchanged.
func (p *Presenter) Open(productID string) error {
	product, err := p.lookup.FindByID(productID)
	if err != nil {
		p.logger.Debug("modal open ignored", zap.String("product_id", productID), zap.Error(err))
		return err
	}
	p.product = &product
	p.size = product.DefaultSize()
	p.image = product.PrimaryImage()
	return nil
}

// SelectImage swaps the main gallery image. Size and cart are untouched.
func (p *Presenter) SelectImage(src string) error {
	if p.product == nil {
		return ErrClosed
	}
	if !p.product.HasImage(src) {
		return fmt.Errorf("%w: %q", ErrUnknownImage, src)
	}
	p.image = src
	return nil
}

// SelectSize marks size as the selected option.
func (p *Presenter) SelectSize(size string) error {
	if p.product == nil {
		return ErrClosed
	}
	if !p.product.HasSize(size) {
		return fmt.Errorf("%w: %q for %s", ErrUnknownSize, size, p.product.ID)
	}
	p.size = size
	return nil
}

// Close returns to Closed. Closing a closed presenter does nothing.
func (p *Presenter) Close() {
	p.product = nil
	p.size = ""
	p.image = ""
}

// ConfirmAddToCart adds the open product in the selected size, then closes.
// When the add fails the presenter stays open so the visitor can retry.
func (p *Presenter) ConfirmAddToCart(ctx context.Context, cart Adder) (Result, error) {
	if p.product == nil || p.size == "" {
		return Result{}, ErrClosed
	}
	if err := cart.Add(ctx, *p.product, p.size); err != nil {
		return Result{}, err
	}
	p.Close()
	return Result{OpenCart: true}, nil
}

// State snapshots the presenter for the session.
func (p *Presenter) State() State {
	if p.product == nil {
		return State{}
	}
	return State{ProductID: p.product.ID, Size: p.size, Image: p.image}
}

// Restore rebuilds the presenter from a snapshot. Fields that no longer match
// the catalog fall back to the product defaults; a vanished product closes.
func (p *Presenter) Restore(s State) {
	p.Close()
	if s.ProductID == "" {
		return
	}
	if err := p.Open(s.ProductID); err != nil {
		return
	}
	if s.Size != "" {
		_ = p.SelectSize(s.Size)
	}
	if s.Image != "" {
		_ = p.SelectImage(s.Image)
	}
}

// ImageOption is one gallery thumbnail.
type ImageOption struct {
	Src    string
	Active bool
}

// SizeOption is one size control.
type SizeOption struct {
	Label    string
	Selected bool
}

// View is the render model for the product detail dialog.
type View struct {
	Open        bool
	ProductID   string
	Title       string
	Price       string
	Description template.HTML
	MainImage   string
	Images      []ImageOption
	Sizes       []SizeOption
	Size        string
}

// View returns the render model. A closed presenter yields View{}.
func (p *Presenter) View() View {
	if p.product == nil {
		return View{}
	}
	prod := p.product
	images := make([]ImageOption, 0, len(prod.Images))
	for _, src := range prod.Images {
		images = append(images, ImageOption{Src: src, Active: src == p.image})
	}
	sizes := make([]SizeOption, 0, len(prod.Sizes))
	for _, label := range prod.Sizes {
		sizes = append(sizes, SizeOption{Label: label, Selected: label == p.size})
	}
	return View{
		Open:        true,
		ProductID:   prod.ID,
		Title:       prod.Title,
		Price:       format.Price(prod.Price, prod.Currency),
		Description: prod.DescriptionHTML(),
		MainImage:   p.image,
		Images:      images,
		Sizes:       sizes,
		Size:        p.size,
	}
}
