// Package domain defines the core business entities of the matchbook
// settlement engine: markets, matched share pairs, pending offers, and the
// credit ledger types.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Market
// ──────────────────────────────────────────────────────────────────────────────

// Market is one binary proposition owned by its creator.  IDs are assigned
// sequentially at creation (id == creation index) and never change.  IsOpen
// transitions true→false exactly once and never reverses; positions may only
// be appended while the market is open.
type Market struct {
	ID          uint32     `json:"id"          db:"id"`
	IsOpen      bool       `json:"is_open"     db:"is_open"`
	Description string     `json:"description" db:"description"`
	Owner       uuid.UUID  `json:"owner"       db:"owner"`
	CreatedAt   time.Time  `json:"created_at"  db:"created_at"`
	ClosedAt    *time.Time `json:"closed_at"   db:"closed_at"`
}

// CanClose reports whether caller is allowed to close the market.
func (m *Market) CanClose(caller uuid.UUID) bool {
	return m.Owner == caller
}

// ──────────────────────────────────────────────────────────────────────────────
// SharePair
// ──────────────────────────────────────────────────────────────────────────────

// SharePair is a matched long/short position.  Both sides deposited Amount,
// so the pair holds 2 × Amount of escrowed collateral.  Immutable once
// appended to a market.
type SharePair struct {
	MarketID  uint32          `json:"market_id"  db:"market_id"`
	Seq       uint32          `json:"seq"        db:"seq"` // append order within the market
	Long      uuid.UUID       `json:"long"       db:"long_account"`
	Short     uuid.UUID       `json:"short"      db:"short_account"`
	Amount    decimal.Decimal `json:"amount"     db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Collateral returns the total escrow held by this pair (both stakes).
func (p *SharePair) Collateral() decimal.Decimal {
	return p.Amount.Mul(decimal.NewFromInt(2))
}

// Winner returns the account on the resolved side.
func (p *SharePair) Winner(longWins bool) uuid.UUID {
	if longWins {
		return p.Long
	}
	return p.Short
}

// ──────────────────────────────────────────────────────────────────────────────
// MarketView — read-only projection for API responses and listings
// ──────────────────────────────────────────────────────────────────────────────

// MarketView is the external projection of a Market: callers never receive
// the mutable record, only this snapshot plus a position count.
type MarketView struct {
	ID          uint32    `json:"id"`
	IsOpen      bool      `json:"is_open"`
	Description string    `json:"description"`
	Owner       uuid.UUID `json:"owner"`
	Positions   uint32    `json:"positions"`
	CreatedAt   time.Time `json:"created_at"`
}

// View builds the read-only projection with the given position count.
func (m *Market) View(positions uint32) MarketView {
	return MarketView{
		ID:          m.ID,
		IsOpen:      m.IsOpen,
		Description: m.Description,
		Owner:       m.Owner,
		Positions:   positions,
		CreatedAt:   m.CreatedAt,
	}
}
