package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus tracks the asynchronous payout tail of a withdrawal.
type TransferStatus string

const (
	TransferPending TransferStatus = "pending" // debited, awaiting dispatch
	TransferSent    TransferStatus = "sent"    // gateway accepted the transfer
	TransferFailed  TransferStatus = "failed"  // attempts exhausted; needs manual reconciliation
)

// Transfer is one queued value transfer created by a withdrawal.  The ledger
// debit is synchronous and authoritative; the transfer itself is best-effort
// and retried by the dispatcher until it is sent or its attempts run out.
type Transfer struct {
	ID        uuid.UUID       `json:"id"         db:"id"`
	AccountID uuid.UUID       `json:"account_id" db:"account_id"`
	Amount    decimal.Decimal `json:"amount"     db:"amount"`
	Status    TransferStatus  `json:"status"     db:"status"`
	Attempts  int             `json:"attempts"   db:"attempts"`
	LastError *string         `json:"last_error" db:"last_error"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// IsPending reports whether the dispatcher should still try this transfer.
func (t *Transfer) IsPending() bool {
	return t.Status == TransferPending
}
