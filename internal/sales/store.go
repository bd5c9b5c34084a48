// Package sales aggregates payment outcomes recorded through the journal.
package sales

import (
	"sync"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

// ProductSales holds per-product aggregates.
type ProductSales struct {
	UnitsSold int `json:"units_sold"`
	Revenue   int `json:"revenue"`
}

// Totals holds machine-wide counters.
type Totals struct {
	Completed       uint64 `json:"payments_completed"`
	Failed          uint64 `json:"payments_failed"`
	Revenue         int    `json:"revenue"`
	ChangeDispensed int    `json:"change_dispensed"`
}

// Store keeps the sales aggregates behind an RWMutex. Journal workers
// write; the metrics and sales endpoints read.
type Store struct {
	mu        sync.RWMutex
	byProduct map[string]ProductSales
	totals    Totals
}

// New returns an empty store.
func New() *Store {
	return &Store{byProduct: make(map[string]ProductSales)}
}

// Record folds one payment outcome into the aggregates. Only completed
// payments contribute units and revenue; failures only bump the counter.
func (s *Store) Record(completed bool, lines []model.Line, total, changeValue int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !completed {
		s.totals.Failed++
		return
	}
	s.totals.Completed++
	s.totals.Revenue += total
	s.totals.ChangeDispensed += changeValue
	for _, l := range lines {
		ps := s.byProduct[l.ProductID]
		ps.UnitsSold += l.Qty
		ps.Revenue += l.UnitPrice * l.Qty
		s.byProduct[l.ProductID] = ps
	}
}

// Product returns the aggregates for one product id.
func (s *Store) Product(id string) (ProductSales, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.byProduct[id]
	return ps, ok
}

// Snapshot returns the machine totals.
func (s *Store) Snapshot() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}
