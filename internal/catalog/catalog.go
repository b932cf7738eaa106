// Package catalog serves investment products from a TOML file.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/ndewijer/investment-ledger/internal/apperrors"
	"github.com/ndewijer/investment-ledger/internal/model"
)

// file is the on-disk layout:
//
//	[[product]]
//	id = "silver-120"
//	name = "Silver Plan"
//	price = "500.00"
//	daily_income = "90.00"
//	duration_days = 120
type file struct {
	Products []model.Product `toml:"product"`
}

// Catalog is an in-memory product catalog. It is safe for concurrent use
// and can be reloaded from disk without restarting the engine.
type Catalog struct {
	path string

	mu       sync.RWMutex
	products map[string]model.Product
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// New builds a catalog from products already in memory.
func New(products ...model.Product) (*Catalog, error) {
	m, err := index(products)
	if err != nil {
		return nil, err
	}
	return &Catalog{products: m}, nil
}

// Reload re-reads the catalog file. On error the previous products stay in place.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	var f file
	if _, err := toml.DecodeFile(c.path, &f); err != nil {
		return fmt.Errorf("failed to read product catalog %s: %w", c.path, err)
	}
	m, err := index(f.Products)
	if err != nil {
		return fmt.Errorf("invalid product catalog %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.products = m
	c.mu.Unlock()
	return nil
}

// GetProduct returns the product with the given id, or apperrors.ErrProductNotFound.
func (c *Catalog) GetProduct(_ context.Context, productID string) (model.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return model.Product{}, fmt.Errorf("%w: %s", apperrors.ErrProductNotFound, productID)
	}
	return p, nil
}

// List returns all products sorted by id.
func (c *Catalog) List() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func index(products []model.Product) (map[string]model.Product, error) {
	m := make(map[string]model.Product, len(products))
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product without id")
		}
		if _, dup := m[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if !p.Price.IsPositive() {
			return nil, fmt.Errorf("product %q: price must be positive", p.ID)
		}
		if !p.DailyIncome.IsPositive() {
			return nil, fmt.Errorf("product %q: daily_income must be positive", p.ID)
		}
		if p.DurationDays <= 0 {
			return nil, fmt.Errorf("product %q: duration_days must be positive", p.ID)
		}
		m[p.ID] = p
	}
	return m, nil
}
