// Package cash implements the denomination reserve and its greedy
// change-making algorithm.
package cash

import (
	"sync"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

// Reserve holds per-denomination counts. One mutex covers every operation
// for its full duration; change-making is a read-then-conditional-write in
// a single logical step, so there is no reader/writer split.
type Reserve struct {
	mu sync.Mutex
	m  map[model.Denomination]int
}

// NewReserve returns an empty reserve.
func NewReserve() *Reserve {
	return &Reserve{m: make(map[model.Denomination]int)}
}

// plan computes the greedy largest-first breakdown for amount against the
// current counts. Caller holds r.mu. Returns the breakdown and whether the
// amount was reached exactly. Only correct for canonical denomination
// sets; with the fixed 5/10/20/50/100 set that holds.
func (r *Reserve) plan(amount int) (map[model.Denomination]int, bool) {
	breakdown := make(map[model.Denomination]int)
	remaining := amount
	for _, d := range model.Denominations() {
		if remaining <= 0 {
			break
		}
		n := remaining / int(d)
		if held := r.m[d]; n > held {
			n = held
		}
		if n > 0 {
			breakdown[d] = n
			remaining -= n * int(d)
		}
	}
	return breakdown, remaining == 0
}

// CanMakeChange reports whether amount is makeable from the current
// reserve without mutating it. Zero is trivially feasible.
func (r *Reserve) CanMakeChange(amount int) bool {
	if amount < 0 {
		return false
	}
	if amount == 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.plan(amount)
	return ok
}

// DispenseChange removes and returns a breakdown summing exactly to
// amount, or reports infeasible and mutates nothing. amount must be
// positive. The check and the commit share one critical section, so
// concurrent dispenses cannot race past each other.
func (r *Reserve) DispenseChange(amount int) (map[model.Denomination]int, bool) {
	if amount <= 0 {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	breakdown, ok := r.plan(amount)
	if !ok {
		return nil, false
	}
	for d, n := range breakdown {
		r.m[d] -= n
	}
	return breakdown, true
}

// AddCash adds count units of a denomination, inserting the denomination
// if absent. It returns false for count <= 0 or a denomination outside the
// canonical set.
func (r *Reserve) AddCash(d model.Denomination, count int) bool {
	if count <= 0 || !d.Valid() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[d] += count
	return true
}

// CollectAll empties the machine for physical pickup, returning what was
// held.
func (r *Reserve) CollectAll() map[model.Denomination]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	collected := make(map[model.Denomination]int)
	for d, n := range r.m {
		if n > 0 {
			collected[d] = n
		}
		r.m[d] = 0
	}
	return collected
}

// Counts returns a snapshot copy of the reserve.
func (r *Reserve) Counts() map[model.Denomination]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[model.Denomination]int, len(r.m))
	for d, n := range r.m {
		out[d] = n
	}
	return out
}

// TotalValue returns the summed value currently held.
func (r *Reserve) TotalValue() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for d, n := range r.m {
		total += int(d) * n
	}
	return total
}
