// Package events defines the structured notifications the settlement engine
// emits on state transitions, and the narrow Emitter interface the core uses
// to announce them.  Events are consumed by external observers only — the
// engine never reads them back.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tags an event so observers can switch on it.
type Kind string

const (
	KindMarketCreated  Kind = "market_created"
	KindOfferCreated   Kind = "offer_created"
	KindOfferAccepted  Kind = "offer_accepted"
	KindOfferCancelled Kind = "offer_cancelled"
	KindMarketClosed   Kind = "market_closed"
	KindCredit         Kind = "credit"
	KindWithdraw       Kind = "withdraw"
)

// Event is implemented by every notification payload.
type Event interface {
	EventKind() Kind
}

// Emitter is the one-way notification port.  Implementations must not block
// the caller: the engine fires events after commit and moves on.
type Emitter interface {
	Emit(ev Event)
}

// ──────────────────────────────────────────────────────────────────────────────
// Payloads
// ──────────────────────────────────────────────────────────────────────────────

type MarketCreated struct {
	MarketID uint32    `json:"market_id"`
	Owner    uuid.UUID `json:"owner"`
}

func (MarketCreated) EventKind() Kind { return KindMarketCreated }

type OfferCreated struct {
	OfferID   uint32          `json:"offer_id"`
	MarketID  uint32          `json:"market_id"`
	IsLong    bool            `json:"is_long"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (OfferCreated) EventKind() Kind { return KindOfferCreated }

type OfferAccepted struct {
	OfferID   uint32    `json:"offer_id"`
	MarketID  uint32    `json:"market_id"`
	AccountID uuid.UUID `json:"account_id"` // the acceptor
}

func (OfferAccepted) EventKind() Kind { return KindOfferAccepted }

type OfferCancelled struct {
	OfferID   uint32    `json:"offer_id"`
	MarketID  uint32    `json:"market_id"`
	AccountID uuid.UUID `json:"account_id"`
}

func (OfferCancelled) EventKind() Kind { return KindOfferCancelled }

type MarketClosed struct {
	MarketID uint32 `json:"market_id"`
	LongWon  bool   `json:"long_won"`
}

func (MarketClosed) EventKind() Kind { return KindMarketClosed }

type Credit struct {
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (Credit) EventKind() Kind { return KindCredit }

type Withdraw struct {
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (Withdraw) EventKind() Kind { return KindWithdraw }

// ──────────────────────────────────────────────────────────────────────────────
// Nop
// ──────────────────────────────────────────────────────────────────────────────

// NopEmitter discards every event.  Useful as a default when no transport is
// wired (e.g. one-shot tools).
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

// Envelope is the wire form observers receive: kind, timestamp, payload.
type Envelope struct {
	Type      Kind      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      Event     `json:"data"`
}

// Wrap builds an Envelope stamped with the current time.
func Wrap(ev Event) Envelope {
	return Envelope{Type: ev.EventKind(), Timestamp: time.Now().UTC(), Data: ev}
}
