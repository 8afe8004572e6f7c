package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure CustomerDirectory implements the interface.
var _ driven.CustomerDirectory = (*CustomerDirectory)(nil)

// CustomerDirectory is an in-memory implementation of driven.CustomerDirectory.
type CustomerDirectory struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
	stores    []domain.Store
}

// NewCustomerDirectory creates a directory holding the given records.
func NewCustomerDirectory(customers []domain.Customer, stores []domain.Store) *CustomerDirectory {
	d := &CustomerDirectory{customers: make(map[string]domain.Customer)}
	for _, c := range customers {
		d.customers[c.Token] = c
	}
	d.stores = append(d.stores, stores...)
	return d
}

// Put adds or replaces a customer.
func (d *CustomerDirectory) Put(c domain.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[c.Token] = c
}

// CustomerByToken returns the customer with the given token.
func (d *CustomerDirectory) CustomerByToken(_ context.Context, token string) (*domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.customers[token]
	if !ok || token == "" {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// NearestStore returns the first store, or the demo store when none are held.
func (d *CustomerDirectory) NearestStore(_ context.Context) (domain.Store, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.stores) == 0 {
		return domain.DefaultStore(), nil
	}
	return d.stores[0], nil
}
