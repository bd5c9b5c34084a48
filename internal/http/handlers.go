package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fairyhunter13/vending-machine-simulator/internal/config"
	"github.com/fairyhunter13/vending-machine-simulator/internal/journal"
	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
	"github.com/fairyhunter13/vending-machine-simulator/internal/obs"
	"github.com/fairyhunter13/vending-machine-simulator/internal/sales"
	"github.com/fairyhunter13/vending-machine-simulator/internal/transaction"
	"github.com/fairyhunter13/vending-machine-simulator/internal/vending"
)

// App carries the shared state behind the HTTP handlers.
type App struct {
	Cfg     config.Config
	Machine *vending.Machine
	Jrnl    *journal.Manager
	Sales   *sales.Store
	closing bool
	started time.Time
}

// NewApp constructs the handler state.
func NewApp(cfg config.Config, m *vending.Machine, jrnl *journal.Manager, st *sales.Store) *App {
	return &App{Cfg: cfg, Machine: m, Jrnl: jrnl, Sales: st, started: time.Now()}
}

// StartShutdown rejects further vending mutations and closes journal
// intake.
func (a *App) StartShutdown() {
	a.closing = true
	a.Jrnl.CloseIntake()
}

func (a *App) shuttingDown() bool {
	return a.closing || a.Jrnl.IsShuttingDown()
}

// decodeJSON enforces the content type and strict field checking shared by
// every mutating route.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type txnAck struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	RequestID     string `json:"request_id"`
}

func (a *App) createTransactionHandler(w http.ResponseWriter, r *http.Request) {
	if a.shuttingDown() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	id, txn := a.Machine.CreateTransaction()
	writeJSON(w, http.StatusCreated, txnAck{
		TransactionID: id,
		Status:        string(txn.Status()),
		RequestID:     RequestIDFromContext(r.Context()),
	})
}

type txnView struct {
	TransactionID string                     `json:"transaction_id"`
	Status        string                     `json:"status"`
	Items         map[string]int             `json:"items"`
	Cash          map[model.Denomination]int `json:"cash"`
	InsertedValue int                        `json:"inserted_value"`
}

func (a *App) getTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	txn, ok := a.Machine.Transaction(id)
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "unknown transaction")
		return
	}
	writeJSON(w, http.StatusOK, txnView{
		TransactionID: id,
		Status:        string(txn.Status()),
		Items:         txn.Items(),
		Cash:          txn.Cash(),
		InsertedValue: txn.InsertedValue(),
	})
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

func (a *App) addItemHandler(w http.ResponseWriter, r *http.Request) {
	txn, ok := a.Machine.Transaction(r.PathValue("id"))
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "unknown transaction")
		return
	}
	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, ok := a.Machine.GetProduct(req.ProductID); !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "unknown product")
		return
	}
	if err := txn.AddItem(req.ProductID, req.Qty); err != nil {
		writeTxnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "added",
		"product_id": req.ProductID,
		"qty":        req.Qty,
		"request_id": RequestIDFromContext(r.Context()),
	})
}

type insertCashRequest struct {
	Denomination int `json:"denomination"`
	Count        int `json:"count"`
}

func (a *App) insertCashHandler(w http.ResponseWriter, r *http.Request) {
	txn, ok := a.Machine.Transaction(r.PathValue("id"))
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "unknown transaction")
		return
	}
	var req insertCashRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := txn.InsertCash(model.Denomination(req.Denomination), req.Count); err != nil {
		writeTxnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "inserted",
		"denomination":   req.Denomination,
		"count":          req.Count,
		"inserted_value": txn.InsertedValue(),
		"request_id":     RequestIDFromContext(r.Context()),
	})
}

// writeTxnError maps accumulation errors to status codes: finalized
// transactions conflict, everything else is a bad argument.
func writeTxnError(w http.ResponseWriter, err error) {
	if errors.Is(err, transaction.ErrNotModifiable) {
		WriteJSONError(w, http.StatusConflict, "transaction_finalized", err.Error())
		return
	}
	WriteJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
}

type paymentResponse struct {
	TransactionID string                     `json:"transaction_id"`
	Status        string                     `json:"status"`
	Reason        string                     `json:"reason,omitempty"`
	Total         int                        `json:"total"`
	Paid          int                        `json:"paid"`
	Change        map[model.Denomination]int `json:"change,omitempty"`
	ChangeValue   int                        `json:"change_value"`
	RequestID     string                     `json:"request_id"`
}

func (a *App) payHandler(w http.ResponseWriter, r *http.Request) {
	if a.shuttingDown() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	id := r.PathValue("id")
	txn, ok := a.Machine.Transaction(id)
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "unknown transaction")
		return
	}
	res := a.Machine.ProcessPayment(id)
	resp := paymentResponse{
		TransactionID: id,
		Status:        string(txn.Status()),
		Reason:        res.Reason,
		Total:         res.Total,
		Paid:          res.Paid,
		Change:        res.Change,
		ChangeValue:   res.ChangeValue(),
		RequestID:     RequestIDFromContext(r.Context()),
	}
	if !res.OK {
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type addProductRequest struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Qty       int    `json:"qty"`
}

func (a *App) addProductHandler(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "product_id is required")
		return
	}
	if req.Price < 0 {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "price must be >= 0")
		return
	}
	if req.Qty < 0 {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "qty must be >= 0")
		return
	}
	p := model.Product{ProductID: req.ProductID, Name: req.Name, Price: req.Price}
	if !a.Machine.AddProduct(p, req.Qty) {
		WriteJSONError(w, http.StatusConflict, "product_exists", "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"product":    p,
		"qty":        req.Qty,
		"request_id": RequestIDFromContext(r.Context()),
	})
}

func (a *App) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	if !a.Machine.RemoveProduct(r.PathValue("id")) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type productView struct {
	model.Product
	AvailableQty int `json:"available_qty"`
}

func (a *App) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, ok := a.Machine.GetProduct(id)
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	qty, _ := a.Machine.AvailableQty(id)
	writeJSON(w, http.StatusOK, productView{Product: p, AvailableQty: qty})
}

type restockRequest struct {
	Qty int `json:"qty"`
}

func (a *App) restockHandler(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Qty <= 0 {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "qty must be > 0")
		return
	}
	id := r.PathValue("id")
	if !a.Machine.Restock(id, req.Qty) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	qty, _ := a.Machine.AvailableQty(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"product_id":    id,
		"available_qty": qty,
	})
}

func (a *App) addCashHandler(w http.ResponseWriter, r *http.Request) {
	var req insertCashRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !a.Machine.AddInitialCash(model.Denomination(req.Denomination), req.Count) {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "denomination must be one of 5/10/20/50/100 and count > 0")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "added",
		"counts": a.Machine.CashCounts(),
	})
}

func (a *App) collectCashHandler(w http.ResponseWriter, r *http.Request) {
	collected := a.Machine.CollectAllCash()
	obs.Logger.Info("cash_collected", "total_value", model.Value(collected))
	writeJSON(w, http.StatusOK, map[string]any{
		"collected":   collected,
		"total_value": model.Value(collected),
	})
}

func (a *App) getCashHandler(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("change"); v != "" {
		amount, err := strconv.Atoi(v)
		if err != nil || amount < 0 {
			WriteJSONError(w, http.StatusBadRequest, "validation_error", "change must be a non-negative integer")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"amount":          amount,
			"can_make_change": a.Machine.CanMakeChange(amount),
		})
		return
	}
	counts := a.Machine.CashCounts()
	writeJSON(w, http.StatusOK, map[string]any{
		"counts":      counts,
		"total_value": model.Value(counts),
	})
}

func (a *App) getSalesHandler(w http.ResponseWriter, r *http.Request) {
	ps, ok := a.Sales.Product(r.PathValue("id"))
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "no sales recorded for product")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	enq, proc, backlog, depth := a.Jrnl.Metrics()
	totals := a.Sales.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"journal_enqueued":   enq,
		"journal_processed":  proc,
		"backlog_size":       backlog,
		"journal_depth":      depth,
		"worker_count":       a.Jrnl.WorkerCount(),
		"payments_completed": totals.Completed,
		"payments_failed":    totals.Failed,
		"revenue":            totals.Revenue,
		"change_dispensed":   totals.ChangeDispensed,
		"uptime_sec":         time.Since(a.started).Seconds(),
	})
}
