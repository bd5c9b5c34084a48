package cash

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

func seed(r *Reserve, counts map[model.Denomination]int) {
	for d, n := range counts {
		r.AddCash(d, n)
	}
}

func TestDispenseChangeMinimalBreakdown(t *testing.T) {
	r := NewReserve()
	seed(r, map[model.Denomination]int{
		model.Denom5: 100, model.Denom10: 100, model.Denom20: 100,
		model.Denom50: 100, model.Denom100: 100,
	})
	got, ok := r.DispenseChange(65)
	if !ok {
		t.Fatalf("expected feasible")
	}
	want := map[model.Denomination]int{model.Denom50: 1, model.Denom10: 1, model.Denom5: 1}
	if len(got) != len(want) {
		t.Fatalf("unexpected breakdown: %v", got)
	}
	for d, n := range want {
		if got[d] != n {
			t.Fatalf("denomination %d: expected %d, got %d", d, n, got[d])
		}
	}
	if r.Counts()[model.Denom50] != 99 {
		t.Fatalf("reserve not debited")
	}
}

func TestDispenseChangeUsesSmallerWhenLargeExhausted(t *testing.T) {
	r := NewReserve()
	seed(r, map[model.Denomination]int{model.Denom20: 1, model.Denom10: 3})
	got, ok := r.DispenseChange(40)
	if !ok {
		t.Fatalf("expected feasible")
	}
	if got[model.Denom20] != 1 || got[model.Denom10] != 2 {
		t.Fatalf("unexpected breakdown: %v", got)
	}
}

func TestDispenseChangeInfeasibleLeavesReserveUntouched(t *testing.T) {
	r := NewReserve()
	seed(r, map[model.Denomination]int{model.Denom10: 1})
	if _, ok := r.DispenseChange(25); ok {
		t.Fatalf("expected infeasible")
	}
	counts := r.Counts()
	if counts[model.Denom10] != 1 {
		t.Fatalf("reserve mutated on infeasible dispense: %v", counts)
	}
	if r.TotalValue() != 10 {
		t.Fatalf("expected total 10, got %d", r.TotalValue())
	}
}

func TestDispenseChangeRejectsNonPositive(t *testing.T) {
	r := NewReserve()
	seed(r, map[model.Denomination]int{model.Denom5: 10})
	if _, ok := r.DispenseChange(0); ok {
		t.Fatalf("accepted amount 0")
	}
	if _, ok := r.DispenseChange(-5); ok {
		t.Fatalf("accepted negative amount")
	}
}

func TestCanMakeChangeIsPure(t *testing.T) {
	r := NewReserve()
	seed(r, map[model.Denomination]int{model.Denom20: 1, model.Denom5: 1})
	if !r.CanMakeChange(25) {
		t.Fatalf("expected feasible")
	}
	if r.CanMakeChange(30) {
		t.Fatalf("expected infeasible")
	}
	if !r.CanMakeChange(0) {
		t.Fatalf("zero must be trivially feasible")
	}
	if r.CanMakeChange(-1) {
		t.Fatalf("negative must be infeasible")
	}
	counts := r.Counts()
	if counts[model.Denom20] != 1 || counts[model.Denom5] != 1 {
		t.Fatalf("feasibility probe mutated reserve: %v", counts)
	}
}

func TestAddCashValidation(t *testing.T) {
	r := NewReserve()
	if r.AddCash(model.Denomination(7), 1) {
		t.Fatalf("accepted unknown denomination")
	}
	if r.AddCash(model.Denom10, 0) {
		t.Fatalf("accepted count 0")
	}
	if r.AddCash(model.Denom10, -2) {
		t.Fatalf("accepted negative count")
	}
	if !r.AddCash(model.Denom10, 3) {
		t.Fatalf("valid add failed")
	}
	if r.Counts()[model.Denom10] != 3 {
		t.Fatalf("count not applied")
	}
}

func TestCollectAll(t *testing.T) {
	r := NewReserve()
	seed(r, map[model.Denomination]int{model.Denom50: 2, model.Denom5: 4})
	collected := r.CollectAll()
	if collected[model.Denom50] != 2 || collected[model.Denom5] != 4 {
		t.Fatalf("unexpected collection: %v", collected)
	}
	if r.TotalValue() != 0 {
		t.Fatalf("reserve not emptied: %d", r.TotalValue())
	}
	if len(r.CollectAll()) != 0 {
		t.Fatalf("second collect returned cash")
	}
}

func TestConcurrentDispenseNeverOverdraws(t *testing.T) {
	r := NewReserve()
	seed(r, map[model.Denomination]int{model.Denom5: 5})

	var wg sync.WaitGroup
	var successes atomic.Int64
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.DispenseChange(5); ok {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := successes.Load(); got != 5 {
		t.Fatalf("expected exactly 5 successful dispenses, got %d", got)
	}
	for d, n := range r.Counts() {
		if n < 0 {
			t.Fatalf("denomination %d went negative: %d", d, n)
		}
	}
	if r.TotalValue() != 0 {
		t.Fatalf("expected empty reserve, total %d", r.TotalValue())
	}
}
