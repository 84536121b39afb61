package catalog

import (
	"sort"
	"strings"

	"github.com/terra-clan/compare-engine/internal/models"
)

// Catalog is the immutable product list loaded at startup.
// It is safe for concurrent use because nothing mutates it after New.
type Catalog struct {
	products []*models.Product
	byID     map[int]*models.Product
}

// New builds a catalog preserving the given order
func New(products []*models.Product) *Catalog {
	c := &Catalog{
		products: make([]*models.Product, 0, len(products)),
		byID:     make(map[int]*models.Product, len(products)),
	}
	for _, p := range products {
		if p == nil {
			continue
		}
		if _, dup := c.byID[p.ID]; dup {
			continue
		}
		c.products = append(c.products, p)
		c.byID[p.ID] = p
	}
	return c
}

// Len returns the number of products
func (c *Catalog) Len() int {
	return len(c.products)
}

// All returns the products in catalog order
func (c *Catalog) All() []*models.Product {
	out := make([]*models.Product, len(c.products))
	copy(out, c.products)
	return out
}

// Get returns a product by ID, or nil
func (c *Catalog) Get(id int) *models.Product {
	return c.byID[id]
}

// Filter returns the products matching the type filter in catalog order.
// FilterAll (or empty) returns the whole catalog.
func (c *Catalog) Filter(filter string) []*models.Product {
	out := make([]*models.Product, 0, len(c.products))
	for _, p := range c.products {
		if p.MatchesFilter(filter) {
			out = append(out, p)
		}
	}
	return out
}

// Search filters by type, then by case-insensitive substring on the name
func (c *Catalog) Search(filter, term string) []*models.Product {
	return MatchName(c.Filter(filter), term)
}

// MatchName keeps the products whose name contains term, ignoring case
func MatchName(products []*models.Product, term string) []*models.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return products
	}
	out := make([]*models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), term) {
			out = append(out, p)
		}
	}
	return out
}

// Types returns the distinct product types in order of first appearance
func (c *Catalog) Types() []string {
	seen := make(map[models.ProductType]bool)
	var types []string
	for _, p := range c.products {
		if p.Type == "" || seen[p.Type] {
			continue
		}
		seen[p.Type] = true
		types = append(types, string(p.Type))
	}
	return types
}

// Metrics returns every score name present in the catalog, sorted
func (c *Catalog) Metrics() []string {
	seen := make(map[string]bool)
	for _, p := range c.products {
		for m := range p.Scores {
			seen[m] = true
		}
	}
	metrics := make([]string, 0, len(seen))
	for m := range seen {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)
	return metrics
}

// Regions returns every region with at least one price, sorted
func (c *Catalog) Regions() []string {
	seen := make(map[string]bool)
	for _, p := range c.products {
		for r, prices := range p.RegionalPrices {
			if len(prices) > 0 {
				seen[r] = true
			}
		}
	}
	regions := make([]string, 0, len(seen))
	for r := range seen {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	return regions
}

// HasType reports whether filter is FilterAll or a type present in the catalog
func (c *Catalog) HasType(filter string) bool {
	if filter == "" || filter == models.FilterAll {
		return true
	}
	for _, t := range c.Types() {
		if t == filter {
			return true
		}
	}
	return false
}
