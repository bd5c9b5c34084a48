// Package vending exposes the machine facade: transaction creation,
// payment processing, and the admin surface over the shared managers.
package vending

import (
	"sync"

	"github.com/google/uuid"

	"github.com/fairyhunter13/vending-machine-simulator/internal/cash"
	"github.com/fairyhunter13/vending-machine-simulator/internal/inventory"
	"github.com/fairyhunter13/vending-machine-simulator/internal/journal"
	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
	"github.com/fairyhunter13/vending-machine-simulator/internal/obs"
	"github.com/fairyhunter13/vending-machine-simulator/internal/payment"
	"github.com/fairyhunter13/vending-machine-simulator/internal/transaction"
)

// ReasonNotPayable is reported when payment is requested for a transaction
// that already reached a terminal state.
const ReasonNotPayable = "not_payable"

// Machine is the long-lived facade constructed once at startup. The
// inventory manager and cash reserve are process-wide singletons reachable
// through it; transactions are registered under a uuid so callers can
// address them across requests.
type Machine struct {
	inv     *inventory.Manager
	reserve *cash.Reserve
	method  payment.Method
	jrnl    *journal.Manager

	mu   sync.Mutex
	txns map[string]*transaction.Transaction
}

// New wires the facade to the shared managers. jrnl may be nil for
// library callers that do not record sales.
func New(inv *inventory.Manager, reserve *cash.Reserve, method payment.Method, jrnl *journal.Manager) *Machine {
	return &Machine{
		inv:     inv,
		reserve: reserve,
		method:  method,
		jrnl:    jrnl,
		txns:    make(map[string]*transaction.Transaction),
	}
}

// CreateTransaction registers a fresh CREATED transaction and returns its
// id together with the transaction itself.
func (m *Machine) CreateTransaction() (string, *transaction.Transaction) {
	id := uuid.NewString()
	txn := transaction.New()
	m.mu.Lock()
	m.txns[id] = txn
	m.mu.Unlock()
	return id, txn
}

// Transaction looks up a registered transaction by id.
func (m *Machine) Transaction(id string) (*transaction.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.txns[id]
	return txn, ok
}

// ProcessPayment settles the identified transaction through the payment
// method. On success the transaction is marked CONFIRMED then COMPLETED;
// on failure FAILED. Either way the attempt is recorded in the sales
// journal and the result returned to the caller, who dispenses the
// product and change physically.
func (m *Machine) ProcessPayment(id string) model.PaymentResult {
	txn, ok := m.Transaction(id)
	if !ok {
		return model.PaymentResult{Reason: ReasonNotPayable}
	}
	// Confirming is the claim: only one caller can win the
	// CREATED→CONFIRMED transition, so a transaction settles at most
	// once, and the items and cash maps are frozen for the duration of
	// settlement.
	if !txn.MarkConfirmed() {
		return model.PaymentResult{Reason: ReasonNotPayable}
	}

	res := m.method.Pay(txn)
	if res.OK {
		txn.MarkCompleted()
	} else {
		txn.MarkFailed()
	}

	m.record(id, res)
	obs.Logger.Info("payment_processed",
		"transaction_id", id,
		"method", m.method.Name(),
		"ok", res.OK,
		"reason", res.Reason,
		"total", res.Total,
		"paid", res.Paid,
		"change_value", res.ChangeValue(),
	)
	return res
}

func (m *Machine) record(id string, res model.PaymentResult) {
	if m.jrnl == nil {
		return
	}
	outcome := journal.OutcomeFailed
	if res.OK {
		outcome = journal.OutcomeCompleted
	}
	m.jrnl.Record(journal.Entry{
		TransactionID: id,
		Outcome:       outcome,
		Reason:        res.Reason,
		Lines:         res.Lines,
		Total:         res.Total,
		Paid:          res.Paid,
		ChangeValue:   res.ChangeValue(),
	})
}

// AddProduct registers a product with an initial quantity.
func (m *Machine) AddProduct(p model.Product, qty int) bool {
	return m.inv.AddProduct(p, qty)
}

// RemoveProduct deletes a product and its stock.
func (m *Machine) RemoveProduct(id string) bool {
	return m.inv.RemoveProduct(id)
}

// GetProduct returns immutable product metadata.
func (m *Machine) GetProduct(id string) (model.Product, bool) {
	return m.inv.Product(id)
}

// AvailableQty returns a product's current stock.
func (m *Machine) AvailableQty(id string) (int, bool) {
	return m.inv.AvailableQty(id)
}

// Restock replenishes a product's stock.
func (m *Machine) Restock(id string, qty int) bool {
	return m.inv.Restock(id, qty)
}

// AddInitialCash seeds the reserve with count units of a denomination.
func (m *Machine) AddInitialCash(d model.Denomination, count int) bool {
	return m.reserve.AddCash(d, count)
}

// CollectAllCash empties the reserve for physical pickup.
func (m *Machine) CollectAllCash() map[model.Denomination]int {
	return m.reserve.CollectAll()
}

// CashCounts returns a snapshot of the reserve.
func (m *Machine) CashCounts() map[model.Denomination]int {
	return m.reserve.Counts()
}

// CanMakeChange probes change feasibility without mutating the reserve.
func (m *Machine) CanMakeChange(amount int) bool {
	return m.reserve.CanMakeChange(amount)
}
