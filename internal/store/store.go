// Package store defines the persistence interface for the settlement engine:
// an append-only market table, an append-only-per-market position table, a
// mutable offer table keyed by id, a mutable credit table keyed by account,
// and the pending-transfer queue.  PostgreSQL is the production backend; the
// in-memory implementation backs tests and dev mode.
package store

import (
	"context"
	"time"

	"github.com/evetabi/matchbook/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the persistence interface.  Compound operations run inside
// RunInTx so that a failing precondition mid-call leaves no partial mutation
// visible: the callback receives a transactional view of the same interface,
// and nothing commits unless the callback returns nil.
type Store interface {
	// RunInTx executes fn against a transactional view and commits only when
	// fn returns nil.  Nested calls reuse the enclosing transaction.
	RunInTx(ctx context.Context, fn func(Store) error) error

	// --- Markets (append-only; ids are creation indexes) ---

	CountMarkets(ctx context.Context) (uint32, error)
	InsertMarket(ctx context.Context, m *domain.Market) error
	GetMarket(ctx context.Context, id uint32) (*domain.Market, error)
	ListMarkets(ctx context.Context) ([]domain.Market, error)

	// MarkMarketClosed flips is_open false exactly once; a second call fails
	// with ErrMarketAlreadyClosed.
	MarkMarketClosed(ctx context.Context, id uint32, at time.Time) error

	// --- Positions (append-only per market; Seq assigned on insert) ---

	AppendPosition(ctx context.Context, p *domain.SharePair) error
	ListPositions(ctx context.Context, marketID uint32) ([]domain.SharePair, error)
	CountPositions(ctx context.Context, marketID uint32) (uint32, error)

	// --- Offers (mutable table keyed by a monotonic, never-reused id) ---

	// NextOfferID allocates the next offer id from the monotonic counter.
	NextOfferID(ctx context.Context) (uint32, error)
	InsertOffer(ctx context.Context, o *domain.Offer) error
	GetOffer(ctx context.Context, id uint32) (*domain.Offer, error)

	// DeleteOffer removes the offer; ErrOfferNotFound when absent.  This is
	// the exactly-once consumption primitive: existence check and removal are
	// one operation.
	DeleteOffer(ctx context.Context, id uint32) error
	ListOffersByMarket(ctx context.Context, marketID uint32) ([]domain.Offer, error)

	// --- Credit ledger ---

	// GetCredit returns (amount, true) when an entry exists, (zero, false)
	// otherwise.
	GetCredit(ctx context.Context, account uuid.UUID) (decimal.Decimal, bool, error)
	UpsertCredit(ctx context.Context, account uuid.UUID, total decimal.Decimal) error

	// RemoveCredit deletes and returns the entire entry; ErrNothingToWithdraw
	// when no entry exists.
	RemoveCredit(ctx context.Context, account uuid.UUID) (decimal.Decimal, error)

	// --- Pending transfers (asynchronous payout tail) ---

	InsertTransfer(ctx context.Context, t *domain.Transfer) error
	UpdateTransfer(ctx context.Context, t *domain.Transfer) error
	PendingTransfers(ctx context.Context, limit int) ([]domain.Transfer, error)
	ListTransfersByAccount(ctx context.Context, account uuid.UUID) ([]domain.Transfer, error)

	// --- Aggregates for the conservation report ---

	SumOfferEscrow(ctx context.Context) (decimal.Decimal, error)
	SumOpenCollateral(ctx context.Context) (decimal.Decimal, error) // 2 × amount over open-market positions
	SumCredits(ctx context.Context) (decimal.Decimal, error)
	SumTransfers(ctx context.Context) (decimal.Decimal, error) // all statuses: value that left the ledger
}
