// Package ledger implements the settlement engine core: market lifecycle,
// offer matching, winner payout, and the all-or-nothing credit ledger.  Every
// entry point runs to completion under one mutex and persists its mutations in
// a single store transaction, so a failing precondition mid-call leaves no
// partial state behind.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evetabi/matchbook/internal/domain"
	"github.com/evetabi/matchbook/internal/events"
	"github.com/evetabi/matchbook/internal/store"
)

// Waker nudges the transfer dispatcher after a withdrawal queues a transfer.
type Waker interface {
	Wake()
}

// Ledger is the settlement engine.  All state lives in the store; the struct
// itself only carries collaborators.
type Ledger struct {
	mu      sync.Mutex
	store   store.Store
	emitter events.Emitter
	logger  *slog.Logger
	waker   Waker
}

// New creates a Ledger.  Events go to emitter after each successful commit.
func New(st store.Store, emitter events.Emitter, logger *slog.Logger) *Ledger {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Ledger{
		store:   st,
		emitter: emitter,
		logger:  logger,
	}
}

// SetWaker wires the transfer dispatcher wake-up.  Optional; without it
// transfers still dispatch on the next poll tick.
func (l *Ledger) SetWaker(w Waker) {
	l.waker = w
}

// ──────────────────────────────────────────────────────────────────────────────
// 1. Markets
// ──────────────────────────────────────────────────────────────────────────────

// CreateMarket registers a new binary proposition and returns its id.  IDs are
// creation indexes: the Nth market ever created has id N-1.
func (l *Ledger) CreateMarket(ctx context.Context, owner uuid.UUID, description string) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var id uint32
	err := l.store.RunInTx(ctx, func(tx store.Store) error {
		n, err := tx.CountMarkets(ctx)
		if err != nil {
			return err
		}
		id = n
		return tx.InsertMarket(ctx, &domain.Market{
			ID:          id,
			IsOpen:      true,
			Description: description,
			Owner:       owner,
			CreatedAt:   time.Now().UTC(),
		})
	})
	if err != nil {
		return 0, fmt.Errorf("ledger.CreateMarket: %w", err)
	}

	l.logger.Info("market created", "market_id", id, "owner", owner)
	l.emitter.Emit(events.MarketCreated{MarketID: id, Owner: owner})
	return id, nil
}

// GetMarket returns the read-only view of one market, or (nil, nil) when the
// id is unknown — absence on a read is not an error.
func (l *Ledger) GetMarket(ctx context.Context, id uint32) (*domain.MarketView, error) {
	m, err := l.store.GetMarket(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger.GetMarket: %w", err)
	}
	n, err := l.store.CountPositions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ledger.GetMarket: %w", err)
	}
	view := m.View(n)
	return &view, nil
}

// ListMarkets returns views of every market in creation order.
func (l *Ledger) ListMarkets(ctx context.Context) ([]domain.MarketView, error) {
	markets, err := l.store.ListMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger.ListMarkets: %w", err)
	}
	views := make([]domain.MarketView, 0, len(markets))
	for i := range markets {
		n, err := l.store.CountPositions(ctx, markets[i].ID)
		if err != nil {
			return nil, fmt.Errorf("ledger.ListMarkets: %w", err)
		}
		views = append(views, markets[i].View(n))
	}
	return views, nil
}

// CloseMarket resolves a market in favor of longs or shorts.  Only the owner
// may close, and only once.  Every position pays 2 × stake to its winning
// side via the credit ledger; a single overflow aborts the whole close and the
// market stays open.
func (l *Ledger) CloseMarket(ctx context.Context, caller uuid.UUID, id uint32, longWon bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var credits []domain.CreditEntry
	err := l.store.RunInTx(ctx, func(tx store.Store) error {
		m, err := tx.GetMarket(ctx, id)
		if err != nil {
			return err
		}
		if !m.IsOpen {
			return domain.ErrMarketAlreadyClosed
		}
		if !m.CanClose(caller) {
			return domain.ErrNotOwner
		}
		if err := tx.MarkMarketClosed(ctx, id, time.Now().UTC()); err != nil {
			return err
		}

		positions, err := tx.ListPositions(ctx, id)
		if err != nil {
			return err
		}
		credits, err = domain.SettleCredits(positions, longWon)
		if err != nil {
			return err
		}
		for _, c := range credits {
			if err := l.credit(ctx, tx, c.Account, c.Amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ledger.CloseMarket: %w", err)
	}

	l.logger.Info("market closed", "market_id", id, "long_won", longWon, "payouts", len(credits))
	l.emitter.Emit(events.MarketClosed{MarketID: id, LongWon: longWon})
	for _, c := range credits {
		l.emitter.Emit(events.Credit{AccountID: c.Account, Amount: c.Amount})
	}
	return nil
}

// credit adds amount to the account's running total, bounded by
// MaxLedgerValue.  Must run inside the caller's transaction.
func (l *Ledger) credit(ctx context.Context, tx store.Store, account uuid.UUID, amount decimal.Decimal) error {
	balance, _, err := tx.GetCredit(ctx, account)
	if err != nil {
		return err
	}
	total, err := domain.AddChecked(balance, amount)
	if err != nil {
		return err
	}
	return tx.UpsertCredit(ctx, account, total)
}

// ──────────────────────────────────────────────────────────────────────────────
// 2. Offers
// ──────────────────────────────────────────────────────────────────────────────

// CreateOffer escrows amount on one side of an open market and returns the new
// offer id.  The market must exist and be open; a closed or unknown market
// rejects the offer before any escrow is taken.
func (l *Ledger) CreateOffer(ctx context.Context, account uuid.UUID, marketID uint32, isLong bool, amount decimal.Decimal) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := domain.ValidateAmount(amount); err != nil {
		return 0, fmt.Errorf("ledger.CreateOffer: %w", err)
	}

	var id uint32
	err := l.store.RunInTx(ctx, func(tx store.Store) error {
		m, err := tx.GetMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if !m.IsOpen {
			return domain.ErrMarketClosed
		}
		id, err = tx.NextOfferID(ctx)
		if err != nil {
			return err
		}
		return tx.InsertOffer(ctx, &domain.Offer{
			ID:        id,
			MarketID:  marketID,
			IsLong:    isLong,
			AccountID: account,
			Amount:    amount,
			CreatedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return 0, fmt.Errorf("ledger.CreateOffer: %w", err)
	}

	l.logger.Info("offer created", "offer_id", id, "market_id", marketID, "is_long", isLong, "amount", amount)
	l.emitter.Emit(events.OfferCreated{
		OfferID: id, MarketID: marketID, IsLong: isLong, AccountID: account, Amount: amount,
	})
	return id, nil
}

// AcceptOffer matches the acceptor against an open offer.  The acceptor's
// escrow must equal the offer amount exactly, the acceptor must not be the
// offer's creator, and the market must still be open.  Offer removal and
// position creation commit atomically, so the offer is consumed exactly once.
func (l *Ledger) AcceptOffer(ctx context.Context, acceptor uuid.UUID, offerID uint32, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := domain.ValidateAmount(amount); err != nil {
		return fmt.Errorf("ledger.AcceptOffer: %w", err)
	}

	var marketID uint32
	err := l.store.RunInTx(ctx, func(tx store.Store) error {
		o, err := tx.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if !o.Amount.Equal(amount) {
			return domain.ErrAmountMismatch
		}
		if o.AccountID == acceptor {
			return domain.ErrSelfTrade
		}
		m, err := tx.GetMarket(ctx, o.MarketID)
		if err != nil {
			return err
		}
		if !m.IsOpen {
			return domain.ErrMarketClosed
		}
		if err := tx.DeleteOffer(ctx, offerID); err != nil {
			return err
		}
		marketID = o.MarketID
		pair := o.Match(acceptor, time.Now().UTC())
		return tx.AppendPosition(ctx, &pair)
	})
	if err != nil {
		return fmt.Errorf("ledger.AcceptOffer: %w", err)
	}

	l.logger.Info("offer accepted", "offer_id", offerID, "market_id", marketID, "acceptor", acceptor)
	l.emitter.Emit(events.OfferAccepted{OfferID: offerID, MarketID: marketID, AccountID: acceptor})
	return nil
}

// CancelOffer withdraws a pending offer.  Only the creator may cancel; the
// escrowed amount returns to them through the credit ledger.
func (l *Ledger) CancelOffer(ctx context.Context, caller uuid.UUID, offerID uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		marketID uint32
		refund   decimal.Decimal
	)
	err := l.store.RunInTx(ctx, func(tx store.Store) error {
		o, err := tx.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if o.AccountID != caller {
			return domain.ErrNotOwner
		}
		if err := tx.DeleteOffer(ctx, offerID); err != nil {
			return err
		}
		marketID = o.MarketID
		refund = o.Amount
		return l.credit(ctx, tx, caller, o.Amount)
	})
	if err != nil {
		return fmt.Errorf("ledger.CancelOffer: %w", err)
	}

	l.logger.Info("offer cancelled", "offer_id", offerID, "market_id", marketID, "refund", refund)
	l.emitter.Emit(events.OfferCancelled{OfferID: offerID, MarketID: marketID, AccountID: caller})
	l.emitter.Emit(events.Credit{AccountID: caller, Amount: refund})
	return nil
}

// GetOffers lists a market's pending offers in id order.
func (l *Ledger) GetOffers(ctx context.Context, marketID uint32) ([]domain.Offer, error) {
	offers, err := l.store.ListOffersByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("ledger.GetOffers: %w", err)
	}
	return offers, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// 3. Wallet
// ──────────────────────────────────────────────────────────────────────────────

// GetBalance returns the caller's credited balance; zero when no entry exists.
func (l *Ledger) GetBalance(ctx context.Context, account uuid.UUID) (decimal.Decimal, error) {
	balance, _, err := l.store.GetCredit(ctx, account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger.GetBalance: %w", err)
	}
	return balance, nil
}

// Withdraw removes the caller's entire credit entry and queues one transfer
// for the full amount.  Partial withdrawal is not supported; a caller with no
// entry gets ErrNothingToWithdraw.
func (l *Ledger) Withdraw(ctx context.Context, account uuid.UUID) (*domain.Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var transfer domain.Transfer
	err := l.store.RunInTx(ctx, func(tx store.Store) error {
		amount, err := tx.RemoveCredit(ctx, account)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		transfer = domain.Transfer{
			ID:        uuid.New(),
			AccountID: account,
			Amount:    amount,
			Status:    domain.TransferPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.InsertTransfer(ctx, &transfer)
	})
	if err != nil {
		return nil, fmt.Errorf("ledger.Withdraw: %w", err)
	}

	l.logger.Info("withdrawal queued", "account", account, "amount", transfer.Amount, "transfer_id", transfer.ID)
	l.emitter.Emit(events.Withdraw{AccountID: account, Amount: transfer.Amount})
	if l.waker != nil {
		l.waker.Wake()
	}
	return &transfer, nil
}

// ListTransfers returns the caller's transfers, newest first on Postgres.
func (l *Ledger) ListTransfers(ctx context.Context, account uuid.UUID) ([]domain.Transfer, error) {
	transfers, err := l.store.ListTransfersByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("ledger.ListTransfers: %w", err)
	}
	return transfers, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// 4. Conservation report
// ──────────────────────────────────────────────────────────────────────────────

// ConservationReport is an operational snapshot of where escrowed value sits:
// pending offers, open-market collateral, credited balances, and value already
// queued or paid out through transfers.
type ConservationReport struct {
	OfferEscrow    decimal.Decimal `json:"offer_escrow"`
	OpenCollateral decimal.Decimal `json:"open_collateral"`
	Credits        decimal.Decimal `json:"credits"`
	Transfers      decimal.Decimal `json:"transfers"`
	Total          decimal.Decimal `json:"total"`
}

// Report sums the four buckets in one transaction so the snapshot is
// consistent.
func (l *Ledger) Report(ctx context.Context) (*ConservationReport, error) {
	var r ConservationReport
	err := l.store.RunInTx(ctx, func(tx store.Store) error {
		var err error
		if r.OfferEscrow, err = tx.SumOfferEscrow(ctx); err != nil {
			return err
		}
		if r.OpenCollateral, err = tx.SumOpenCollateral(ctx); err != nil {
			return err
		}
		if r.Credits, err = tx.SumCredits(ctx); err != nil {
			return err
		}
		if r.Transfers, err = tx.SumTransfers(ctx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger.Report: %w", err)
	}
	r.Total = r.OfferEscrow.Add(r.OpenCollateral).Add(r.Credits).Add(r.Transfers)
	return &r, nil
}
