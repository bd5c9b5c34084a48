package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fairyhunter13/vending-machine-simulator/internal/cash"
	"github.com/fairyhunter13/vending-machine-simulator/internal/config"
	httpapi "github.com/fairyhunter13/vending-machine-simulator/internal/http"
	"github.com/fairyhunter13/vending-machine-simulator/internal/inventory"
	"github.com/fairyhunter13/vending-machine-simulator/internal/journal"
	"github.com/fairyhunter13/vending-machine-simulator/internal/obs"
	"github.com/fairyhunter13/vending-machine-simulator/internal/payment"
	"github.com/fairyhunter13/vending-machine-simulator/internal/sales"
	"github.com/fairyhunter13/vending-machine-simulator/internal/vending"
)

func newStack(t *testing.T) (http.Handler, *journal.Manager, *sales.Store, func()) {
	t.Helper()
	cfg := config.Load()
	obs.InitLogger()
	inv := inventory.NewManager()
	reserve := cash.NewReserve()
	st := sales.New()
	q := journal.New(128)
	jrnl := journal.NewManager(cfg, q, st)
	ctx, cancel := context.WithCancel(context.Background())
	jrnl.Start(ctx)
	machine := vending.New(inv, reserve, payment.NewCash(inv, reserve), jrnl)
	app := httpapi.NewApp(cfg, machine, jrnl, st)
	return httpapi.NewRouter(app), jrnl, st, func() { cancel(); jrnl.Stop() }
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(http.MethodPost, path, nil)
	} else {
		r = httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func txnID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var ack struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	return ack.TransactionID
}

func TestIntegration_FullPurchaseLifecycle(t *testing.T) {
	h, jrnl, st, cleanup := newStack(t)
	defer cleanup()

	if w := post(t, h, "/products", `{"product_id":"cola","name":"Cola","price":35,"qty":3}`); w.Code != http.StatusCreated {
		t.Fatalf("add product: %d", w.Code)
	}
	if w := post(t, h, "/cash", `{"denomination":5,"count":10}`); w.Code != http.StatusOK {
		t.Fatalf("seed cash: %d", w.Code)
	}

	// purchase with change: 50 in, 35 price, 15 back as 5s (no 10s held)
	w := post(t, h, "/transactions", "")
	id := txnID(t, w)
	if w := post(t, h, "/transactions/"+id+"/items", `{"product_id":"cola","qty":1}`); w.Code != http.StatusOK {
		t.Fatalf("add item: %d (%s)", w.Code, w.Body.String())
	}
	if w := post(t, h, "/transactions/"+id+"/cash", `{"denomination":50,"count":1}`); w.Code != http.StatusOK {
		t.Fatalf("insert cash: %d", w.Code)
	}
	w = post(t, h, "/transactions/"+id+"/payment", "")
	if w.Code != http.StatusOK {
		t.Fatalf("payment: %d (%s)", w.Code, w.Body.String())
	}
	var resp struct {
		Status      string         `json:"status"`
		Change      map[string]int `json:"change"`
		ChangeValue int            `json:"change_value"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode payment: %v", err)
	}
	if resp.Status != "COMPLETED" || resp.ChangeValue != 15 || resp.Change["5"] != 3 {
		t.Fatalf("unexpected payment response: %+v", resp)
	}

	// sell out the remaining two, then a fourth attempt must fail on stock
	for i := 0; i < 2; i++ {
		w := post(t, h, "/transactions", "")
		id := txnID(t, w)
		post(t, h, "/transactions/"+id+"/items", `{"product_id":"cola","qty":1}`)
		post(t, h, "/transactions/"+id+"/cash", `{"denomination":20,"count":2}`)
		if w := post(t, h, "/transactions/"+id+"/payment", ""); w.Code != http.StatusOK {
			t.Fatalf("sellout payment %d: %d (%s)", i, w.Code, w.Body.String())
		}
	}
	w = post(t, h, "/transactions", "")
	id = txnID(t, w)
	post(t, h, "/transactions/"+id+"/items", `{"product_id":"cola","qty":1}`)
	post(t, h, "/transactions/"+id+"/cash", `{"denomination":50,"count":1}`)
	w = post(t, h, "/transactions/"+id+"/payment", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 when sold out, got %d", w.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if ok := jrnl.DrainUntil(ctx); !ok {
		t.Fatalf("drain timeout")
	}
	totals := st.Snapshot()
	if totals.Completed != 3 || totals.Failed != 1 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if totals.Revenue != 105 {
		t.Fatalf("expected revenue 105, got %d", totals.Revenue)
	}
}

func TestIntegration_ConcurrentPurchasesNeverOversell(t *testing.T) {
	h, jrnl, _, cleanup := newStack(t)
	defer cleanup()

	const stock = 10
	if w := post(t, h, "/products", fmt.Sprintf(`{"product_id":"soda","name":"Soda","price":20,"qty":%d}`, stock)); w.Code != http.StatusCreated {
		t.Fatalf("add product: %d", w.Code)
	}

	var wg sync.WaitGroup
	var completed atomic.Int64
	for g := 0; g < 30; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := post(t, h, "/transactions", "")
			var ack struct {
				TransactionID string `json:"transaction_id"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil || ack.TransactionID == "" {
				return
			}
			id := ack.TransactionID
			post(t, h, "/transactions/"+id+"/items", `{"product_id":"soda","qty":1}`)
			post(t, h, "/transactions/"+id+"/cash", `{"denomination":20,"count":1}`)
			if w := post(t, h, "/transactions/"+id+"/payment", ""); w.Code == http.StatusOK {
				completed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := completed.Load(); got != stock {
		t.Fatalf("expected exactly %d completed purchases, got %d", stock, got)
	}

	r := httptest.NewRequest(http.MethodGet, "/products/soda", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	var p struct {
		AvailableQty int `json:"available_qty"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if p.AvailableQty != 0 {
		t.Fatalf("expected sold out, qty %d", p.AvailableQty)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if ok := jrnl.DrainUntil(ctx); !ok {
		t.Fatalf("drain timeout")
	}
}
