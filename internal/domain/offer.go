package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Offer is a pending, fully-collateralized one-sided bet awaiting a
// counterparty.  IDs come from a process-wide monotonic counter and are never
// reused.  An offer is removed from the book the instant it is accepted or
// cancelled; its escrowed Amount is either converted into a SharePair or
// refunded via the credit ledger — never both, never neither.
type Offer struct {
	ID        uint32          `json:"id"         db:"id"`
	MarketID  uint32          `json:"market_id"  db:"market_id"`
	IsLong    bool            `json:"is_long"    db:"is_long"`
	AccountID uuid.UUID       `json:"account_id" db:"account_id"`
	Amount    decimal.Decimal `json:"amount"     db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Match pairs the offer with an acceptor, who always takes the opposite side.
func (o *Offer) Match(acceptor uuid.UUID, at time.Time) SharePair {
	long, short := o.AccountID, acceptor
	if !o.IsLong {
		long, short = acceptor, o.AccountID
	}
	return SharePair{
		MarketID:  o.MarketID,
		Long:      long,
		Short:     short,
		Amount:    o.Amount,
		CreatedAt: at,
	}
}
