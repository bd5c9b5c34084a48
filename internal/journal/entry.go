package journal

import "github.com/fairyhunter13/vending-machine-simulator/internal/model"

// Outcome values recorded per payment attempt.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Entry is one recorded payment attempt flowing through the journal into
// the sales store.
type Entry struct {
	Sequence      uint64       `json:"sequence"`
	TransactionID string       `json:"transaction_id"`
	Outcome       string       `json:"outcome"`
	Reason        string       `json:"reason,omitempty"`
	Lines         []model.Line `json:"lines,omitempty"`
	Total         int          `json:"total"`
	Paid          int          `json:"paid"`
	ChangeValue   int          `json:"change_value"`
}
