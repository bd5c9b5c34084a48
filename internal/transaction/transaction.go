// Package transaction implements the per-interaction purchase record and
// its one-way status state machine.
package transaction

import (
	"errors"
	"sync"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

// Status is the lifecycle state of a purchase transaction.
type Status string

// Transitions: Created → Confirmed → Completed, or Created|Confirmed →
// Failed. Completed and Failed are terminal.
const (
	StatusCreated   Status = "CREATED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	// ErrNotModifiable is returned when items or cash are added to a
	// transaction that already left the CREATED state.
	ErrNotModifiable = errors.New("transaction is no longer modifiable")
	// ErrInvalidQty rejects non-positive quantities and counts.
	ErrInvalidQty = errors.New("quantity must be positive")
	// ErrInvalidDenomination rejects face values outside the canonical set.
	ErrInvalidDenomination = errors.New("unknown denomination")
	// ErrEmptyProductID rejects item adds without a product id.
	ErrEmptyProductID = errors.New("product id is required")
)

// Transaction accumulates requested items and inserted cash for one
// customer interaction. The embedded mutex makes it safe to share across
// HTTP requests; transitions and accumulation are each a single critical
// section.
type Transaction struct {
	mu     sync.Mutex
	status Status
	items  map[string]int
	cash   map[model.Denomination]int
}

// New returns a transaction in the CREATED state.
func New() *Transaction {
	return &Transaction{
		status: StatusCreated,
		items:  make(map[string]int),
		cash:   make(map[model.Denomination]int),
	}
}

// AddItem accumulates qty units of a product. Repeated adds for the same
// id sum. Permitted only while the transaction is CREATED.
func (t *Transaction) AddItem(id string, qty int) error {
	if id == "" {
		return ErrEmptyProductID
	}
	if qty <= 0 {
		return ErrInvalidQty
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusCreated {
		return ErrNotModifiable
	}
	t.items[id] += qty
	return nil
}

// InsertCash accumulates count units of a denomination. Permitted only
// while the transaction is CREATED.
func (t *Transaction) InsertCash(d model.Denomination, count int) error {
	if !d.Valid() {
		return ErrInvalidDenomination
	}
	if count <= 0 {
		return ErrInvalidQty
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusCreated {
		return ErrNotModifiable
	}
	t.cash[d] += count
	return nil
}

// Status returns the current lifecycle state.
func (t *Transaction) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Items returns a copy of the requested product quantities.
func (t *Transaction) Items() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.items))
	for id, qty := range t.items {
		out[id] = qty
	}
	return out
}

// Cash returns a copy of the inserted denomination counts.
func (t *Transaction) Cash() map[model.Denomination]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[model.Denomination]int, len(t.cash))
	for d, n := range t.cash {
		out[d] = n
	}
	return out
}

// InsertedValue returns the summed value of inserted cash.
func (t *Transaction) InsertedValue() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for d, n := range t.cash {
		total += int(d) * n
	}
	return total
}

// MarkConfirmed moves CREATED → CONFIRMED. False, with no state change,
// from any other state.
func (t *Transaction) MarkConfirmed() bool {
	return t.transition(StatusConfirmed, StatusCreated)
}

// MarkCompleted moves CONFIRMED → COMPLETED.
func (t *Transaction) MarkCompleted() bool {
	return t.transition(StatusCompleted, StatusConfirmed)
}

// MarkFailed moves CREATED or CONFIRMED → FAILED.
func (t *Transaction) MarkFailed() bool {
	return t.transition(StatusFailed, StatusCreated, StatusConfirmed)
}

func (t *Transaction) transition(to Status, from ...Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range from {
		if t.status == f {
			t.status = to
			return true
		}
	}
	return false
}
