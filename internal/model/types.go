// Package model defines domain types shared across the vending engine.
package model

// Product is immutable vending product metadata. Price is in the smallest
// currency unit and never negative. Safe to share by copy.
type Product struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
}

// Denomination is a currency face value held by the cash reserve.
type Denomination int

// The canonical denomination set. Greedy largest-first change-making is
// only correct for canonical sets like this one.
const (
	Denom5   Denomination = 5
	Denom10  Denomination = 10
	Denom20  Denomination = 20
	Denom50  Denomination = 50
	Denom100 Denomination = 100
)

var denominations = []Denomination{Denom100, Denom50, Denom20, Denom10, Denom5}

// Denominations returns the canonical set ordered highest face value
// first, the order the change-maker iterates.
func Denominations() []Denomination {
	out := make([]Denomination, len(denominations))
	copy(out, denominations)
	return out
}

// Valid reports whether d is a member of the canonical set.
func (d Denomination) Valid() bool {
	for _, k := range denominations {
		if d == k {
			return true
		}
	}
	return false
}

// Value totals a denomination→count bundle.
func Value(bundle map[Denomination]int) int {
	total := 0
	for d, n := range bundle {
		total += int(d) * n
	}
	return total
}

// Line is one priced item of a payment, recorded in the sales journal.
type Line struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	UnitPrice int    `json:"unit_price"`
}

// PaymentResult reports the outcome of one payment attempt. Returned once
// to the caller, who is responsible for physically dispensing the product
// and the change denominations.
type PaymentResult struct {
	OK     bool                 `json:"ok"`
	Reason string               `json:"reason,omitempty"`
	Total  int                  `json:"total"`
	Paid   int                  `json:"paid"`
	Change map[Denomination]int `json:"change,omitempty"`
	Lines  []Line               `json:"-"`
}

// ChangeValue totals the dispensed change.
func (r PaymentResult) ChangeValue() int { return Value(r.Change) }
