package stock

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// TokenAll selects every product in the catalog.
const TokenAll = "both"

// ErrUnknownToken is returned when a product selector token is not recognized.
var ErrUnknownToken = errors.New("unknown product token")

// Product is a single tracked product page.
type Product struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
	URL  string `json:"url" mapstructure:"url"`
}

// DisplayName returns the human-facing product name, falling back to the ID.
func (p Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// Catalog is the fixed set of products the watcher knows about.
type Catalog struct {
	products []Product
	index    map[string]int
}

// NewCatalog validates products and builds a Catalog preserving their order.
func NewCatalog(products []Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, errors.New("catalog must contain at least one product")
	}
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[string]int, len(products)),
	}
	for _, p := range products {
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if id == "" {
			return nil, errors.New("catalog product id is required")
		}
		if id == TokenAll {
			return nil, fmt.Errorf("catalog product id %q is reserved", id)
		}
		if strings.TrimSpace(p.URL) == "" {
			return nil, fmt.Errorf("catalog product %q: url is required", id)
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("catalog product %q is defined twice", id)
		}
		p.ID = id
		c.index[id] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Products returns a copy of every catalog product in catalog order.
func (c *Catalog) Products() []Product {
	return append([]Product(nil), c.products...)
}

// Lookup returns the product with the given ID.
func (c *Catalog) Lookup(id string) (Product, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Tokens lists the accepted selector tokens: each product ID plus TokenAll.
func (c *Catalog) Tokens() []string {
	tokens := make([]string, 0, len(c.products)+1)
	for _, p := range c.products {
		tokens = append(tokens, p.ID)
	}
	return append(tokens, TokenAll)
}

// Resolve maps a selector token to the products it selects.
func (c *Catalog) Resolve(token string) ([]Product, error) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == TokenAll {
		return c.Products(), nil
	}
	p, ok := c.Lookup(token)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}
	return []Product{p}, nil
}

// Select returns the products named by ids, ordered by catalog order and
// without duplicates.
func (c *Catalog) Select(ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, errors.New("at least one product id is required")
	}
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		i, ok := c.index[strings.ToLower(strings.TrimSpace(id))]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownToken, id)
		}
		seen[i] = struct{}{}
	}
	positions := make([]int, 0, len(seen))
	for i := range seen {
		positions = append(positions, i)
	}
	sort.Ints(positions)
	out := make([]Product, 0, len(positions))
	for _, i := range positions {
		out = append(out, c.products[i])
	}
	return out, nil
}

// IDs returns the IDs of products in order.
func IDs(products []Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}
