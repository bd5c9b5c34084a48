// Package inventory implements the concurrent stock ledger of the vending
// engine: product registration and atomic single- and multi-item
// consumption.
package inventory

import (
	"sync"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

// stockEntry owns one immutable product plus its mutable quantity. The
// entry mutex guards availableQty only; the product is safe to copy out.
type stockEntry struct {
	mu           sync.Mutex
	product      model.Product
	availableQty int
}

// Manager maps product ids to stock entries. The top-level lock guards the
// map structure; quantity mutation additionally takes the entry lock.
// Lock order is fixed program-wide: top-level first, then entry, never the
// reverse.
type Manager struct {
	mu sync.RWMutex
	m  map[string]*stockEntry
}

// NewManager returns an empty inventory.
func NewManager() *Manager {
	return &Manager{m: make(map[string]*stockEntry)}
}

// AddProduct registers a new product with an initial quantity. It returns
// false if the id is already present, the id is empty, the price is
// negative, or qty is negative.
func (im *Manager) AddProduct(p model.Product, qty int) bool {
	if p.ProductID == "" || p.Price < 0 || qty < 0 {
		return false
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	if _, ok := im.m[p.ProductID]; ok {
		return false
	}
	im.m[p.ProductID] = &stockEntry{product: p, availableQty: qty}
	return true
}

// RemoveProduct deletes a product and its stock. It returns false if the
// id is absent. In-flight transactions still referencing the id are not
// considered; their payment later fails with an unknown product.
func (im *Manager) RemoveProduct(id string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	if _, ok := im.m[id]; !ok {
		return false
	}
	delete(im.m, id)
	return true
}

// Product returns the immutable metadata for id. No entry lock is needed;
// the product never changes after registration.
func (im *Manager) Product(id string) (model.Product, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	e, ok := im.m[id]
	if !ok {
		return model.Product{}, false
	}
	return e.product, true
}

// AvailableQty returns the current quantity for id.
func (im *Manager) AvailableQty(id string) (int, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()
	e, ok := im.m[id]
	if !ok {
		return 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.availableQty, true
}

// TryConsume atomically decrements a single product's quantity. It returns
// false if qty <= 0, the id is absent, or stock is insufficient; quantity
// never goes negative.
func (im *Manager) TryConsume(id string, qty int) bool {
	if qty <= 0 {
		return false
	}
	im.mu.RLock()
	defer im.mu.RUnlock()
	e, ok := im.m[id]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.availableQty < qty {
		return false
	}
	e.availableQty -= qty
	return true
}

// TryConsumeAll consumes every requested quantity or nothing. It validates
// all items first and only then decrements, holding the top-level lock
// exclusively across both phases; single-item paths hold it shared, so no
// consumer can observe or interleave a partially-validated state. Returns
// false, mutating nothing, on an empty request, a non-positive quantity,
// an unknown id, or insufficient stock.
func (im *Manager) TryConsumeAll(items map[string]int) bool {
	if len(items) == 0 {
		return false
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	for id, qty := range items {
		if qty <= 0 {
			return false
		}
		e, ok := im.m[id]
		if !ok {
			return false
		}
		if e.availableQty < qty {
			return false
		}
	}
	for id, qty := range items {
		im.m[id].availableQty -= qty
	}
	return true
}

// Restock increments a product's quantity. It returns false if qty <= 0 or
// the id is absent. Serves both admin replenishment and the compensation
// path after a failed change dispense.
func (im *Manager) Restock(id string, qty int) bool {
	if qty <= 0 {
		return false
	}
	im.mu.RLock()
	defer im.mu.RUnlock()
	e, ok := im.m[id]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.availableQty += qty
	return true
}
