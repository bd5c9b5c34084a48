// Package payment drives a purchase transaction to completion against the
// inventory manager and the cash reserve.
package payment

import (
	"sort"

	"github.com/fairyhunter13/vending-machine-simulator/internal/cash"
	"github.com/fairyhunter13/vending-machine-simulator/internal/inventory"
	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
	"github.com/fairyhunter13/vending-machine-simulator/internal/obs"
	"github.com/fairyhunter13/vending-machine-simulator/internal/transaction"
)

// Failure reasons surfaced in PaymentResult and at the HTTP boundary.
const (
	ReasonEmptyTransaction    = "empty_transaction"
	ReasonUnknownProduct      = "unknown_product"
	ReasonInsufficientPayment = "insufficient_payment"
	ReasonInsufficientStock   = "insufficient_stock"
	ReasonChangeUnavailable   = "change_unavailable"
)

// Method is a payment strategy. Cash is the one concrete implementation;
// further strategies (card, wallet) plug in without touching callers.
type Method interface {
	Name() string
	Pay(txn *transaction.Transaction) model.PaymentResult
}

// Cash settles transactions from physically inserted denominations. It
// owns no lock; each call into a manager is a self-contained critical
// section, and correctness comes from strict step ordering: stock is
// committed before cash is accepted, before change is attempted, so the
// only compensable failure is the change dispense.
type Cash struct {
	inv     *inventory.Manager
	reserve *cash.Reserve
}

// NewCash returns the cash payment method bound to the shared managers.
func NewCash(inv *inventory.Manager, reserve *cash.Reserve) *Cash {
	return &Cash{inv: inv, reserve: reserve}
}

// Name identifies the strategy.
func (c *Cash) Name() string { return "cash" }

// Pay validates and settles the transaction. On a change shortfall after
// stock was consumed, the consumed quantities are restocked; cash already
// accepted into the reserve stays there.
func (c *Cash) Pay(txn *transaction.Transaction) model.PaymentResult {
	items := txn.Items()
	if len(items) == 0 {
		return failed(ReasonEmptyTransaction, 0, 0)
	}

	total := 0
	lines := make([]model.Line, 0, len(items))
	for id, qty := range items {
		p, ok := c.inv.Product(id)
		if !ok {
			return failed(ReasonUnknownProduct, 0, 0)
		}
		total += p.Price * qty
		lines = append(lines, model.Line{ProductID: id, Qty: qty, UnitPrice: p.Price})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	inserted := txn.Cash()
	paid := model.Value(inserted)
	if paid < total {
		return failed(ReasonInsufficientPayment, total, paid)
	}
	changeAmount := paid - total

	if !c.inv.TryConsumeAll(items) {
		return failed(ReasonInsufficientStock, total, paid)
	}

	// Cash is physically in the machine already; acceptance cannot fail.
	for d, n := range inserted {
		c.reserve.AddCash(d, n)
	}

	change := map[model.Denomination]int{}
	if changeAmount > 0 {
		breakdown, ok := c.reserve.DispenseChange(changeAmount)
		if !ok {
			for id, qty := range items {
				c.inv.Restock(id, qty)
			}
			obs.Logger.Warn("change_unavailable",
				"change_amount", changeAmount,
				"total", total,
				"paid", paid,
			)
			return failed(ReasonChangeUnavailable, total, paid)
		}
		change = breakdown
	}

	return model.PaymentResult{
		OK:     true,
		Total:  total,
		Paid:   paid,
		Change: change,
		Lines:  lines,
	}
}

func failed(reason string, total, paid int) model.PaymentResult {
	return model.PaymentResult{Reason: reason, Total: total, Paid: paid}
}
