package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	// ErrProductNotFound is returned when no product matches the identifier.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrDuplicateProduct is returned when two records share an identifier.
	ErrDuplicateProduct = errors.New("catalog: duplicate product id")
)

// Catalog is a read-only, ordered product list with lookup by identifier.
type Catalog struct {
	products []Product
	index    map[string]int
}

type productRecord struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Price       string   `yaml:"price"`
	Currency    string   `yaml:"currency"`
	Description string   `yaml:"description"`
	Images      []string `yaml:"images"`
	Sizes       []string `yaml:"sizes"`
	Type        string   `yaml:"type"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses YAML product records and validates every entry.
func Load(r io.Reader) (*Catalog, error) {
	var records []productRecord
	if err := yaml.NewDecoder(r).Decode(&records); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}

	products := make([]Product, 0, len(records))
	for _, rec := range records {
		p, err := NewProduct(ProductInput(rec))
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return New(products...)
}

// New builds a catalog from already validated products.
func New(products ...Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[string]int, len(products)),
	}
	for _, p := range products {
		if _, exists := c.index[p.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProduct, p.ID)
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p.clone())
	}
	return c, nil
}

// FindByID returns the product with the given identifier.
func (c *Catalog) FindByID(id string) (Product, error) {
	if c == nil {
		return Product{}, ErrProductNotFound
	}
	i, ok := c.index[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %q", ErrProductNotFound, id)
	}
	return c.products[i].clone(), nil
}

// All returns every product in declaration order.
func (c *Catalog) All() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p.clone())
	}
	return out
}

// ByType returns the products tagged with the given category.
func (c *Catalog) ByType(tag string) []Product {
	var out []Product
	for _, p := range c.All() {
		if p.Type == tag {
			out = append(out, p)
		}
	}
	return out
}

// Len reports the number of products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}
