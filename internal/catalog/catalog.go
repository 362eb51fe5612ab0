package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"storefront-agent/internal/domain"
)

// Catalog is the immutable, ordered product table loaded at startup.
// Scan order is load order, which keeps matching deterministic.
type Catalog struct {
	products []domain.Product
}

// New validates and wraps a product list. Keywords are normalized here
// once so matching never has to re-normalize catalog data.
func New(products []domain.Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, errors.New("catalog: product list must not be empty")
	}
	seen := make(map[string]struct{}, len(products))
	out := make([]domain.Product, 0, len(products))
	for i, p := range products {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("catalog: product %d has empty name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate product name %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		keywords := make([]string, 0, len(p.Keywords))
		for _, kw := range p.Keywords {
			if norm := Normalize(kw); norm != "" {
				keywords = append(keywords, norm)
			}
		}
		p.Keywords = keywords
		out = append(out, p)
	}
	return &Catalog{products: out}, nil
}

// LoadFile reads a JSON product file (an array of product records).
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(products)
}

// Products returns the catalog contents in load order.
func (c *Catalog) Products() []domain.Product {
	return c.products
}

// Len reports the number of products in the catalog.
func (c *Catalog) Len() int {
	return len(c.products)
}

// MatchKeywords collects, in load order, every product with at least
// one keyword contained in the normalized message. The caller passes
// the message already normalized.
func (c *Catalog) MatchKeywords(normalizedMessage string) []domain.Product {
	if normalizedMessage == "" {
		return nil
	}
	var matched []domain.Product
	for _, p := range c.products {
		for _, kw := range p.Keywords {
			if strings.Contains(normalizedMessage, kw) {
				matched = append(matched, p)
				break
			}
		}
	}
	return matched
}

// FindByName returns the first product whose normalized name is
// contained in the normalized query. Matching direction is
// query-contains-name: a partial query never matches a longer name.
func (c *Catalog) FindByName(query string) (domain.Product, bool) {
	normQuery := Normalize(query)
	for _, p := range c.products {
		if name := Normalize(p.Name); name != "" && strings.Contains(normQuery, name) {
			return p, true
		}
	}
	return domain.Product{}, false
}

// SameCategory collects every product sharing the given product's
// category, excluding the product itself, in load order.
func (c *Catalog) SameCategory(of domain.Product) []domain.Product {
	var out []domain.Product
	for _, p := range c.products {
		if p.Category == of.Category && p.Name != of.Name {
			out = append(out, p)
		}
	}
	return out
}
