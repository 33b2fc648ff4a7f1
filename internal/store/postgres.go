package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/matchbook/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// PostgresStore implements Store over PostgreSQL via sqlx.  Outside a
// transaction q is the *sqlx.DB; RunInTx swaps in a *sqlx.Tx so every method
// transparently runs against the right executor.
type PostgresStore struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// RunInTx begins a transaction, runs fn against a tx-backed view, and
// commits only when fn returns nil.  A nested call reuses the transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store.RunInTx: begin: %w", err)
	}
	if err := fn(&PostgresStore{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store.RunInTx: commit: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Markets
// ──────────────────────────────────────────────────────────────────────────────

func (s *PostgresStore) CountMarkets(ctx context.Context) (uint32, error) {
	var n uint32
	if err := sqlx.GetContext(ctx, s.q, &n, `SELECT COUNT(*) FROM markets`); err != nil {
		return 0, fmt.Errorf("store.CountMarkets: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) InsertMarket(ctx context.Context, m *domain.Market) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO markets (id, is_open, description, owner, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.IsOpen, m.Description, m.Owner, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("store.InsertMarket: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMarket(ctx context.Context, id uint32) (*domain.Market, error) {
	var m domain.Market
	err := sqlx.GetContext(ctx, s.q, &m, `SELECT * FROM markets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("store.GetMarket: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	var markets []domain.Market
	err := sqlx.SelectContext(ctx, s.q, &markets, `SELECT * FROM markets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store.ListMarkets: %w", err)
	}
	return markets, nil
}

func (s *PostgresStore) MarkMarketClosed(ctx context.Context, id uint32, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE markets SET is_open = false, closed_at = $2
		WHERE id = $1 AND is_open`,
		id, at)
	if err != nil {
		return fmt.Errorf("store.MarkMarketClosed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the id is unknown or the flag already flipped.
		if _, getErr := s.GetMarket(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrMarketAlreadyClosed
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Positions
// ──────────────────────────────────────────────────────────────────────────────

func (s *PostgresStore) AppendPosition(ctx context.Context, p *domain.SharePair) error {
	seq, err := s.CountPositions(ctx, p.MarketID)
	if err != nil {
		return err
	}
	p.Seq = seq
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO positions (market_id, seq, long_account, short_account, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.MarketID, p.Seq, p.Long, p.Short, p.Amount, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("store.AppendPosition: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPositions(ctx context.Context, marketID uint32) ([]domain.SharePair, error) {
	var positions []domain.SharePair
	err := sqlx.SelectContext(ctx, s.q, &positions, `
		SELECT * FROM positions WHERE market_id = $1 ORDER BY seq`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("store.ListPositions: %w", err)
	}
	return positions, nil
}

func (s *PostgresStore) CountPositions(ctx context.Context, marketID uint32) (uint32, error) {
	var n uint32
	err := sqlx.GetContext(ctx, s.q, &n,
		`SELECT COUNT(*) FROM positions WHERE market_id = $1`, marketID)
	if err != nil {
		return 0, fmt.Errorf("store.CountPositions: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Offers
// ──────────────────────────────────────────────────────────────────────────────

func (s *PostgresStore) NextOfferID(ctx context.Context) (uint32, error) {
	var id uint32
	err := sqlx.GetContext(ctx, s.q, &id, `
		UPDATE offer_sequence SET next_id = next_id + 1
		WHERE singleton = true
		RETURNING next_id - 1`)
	if err != nil {
		return 0, fmt.Errorf("store.NextOfferID: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) InsertOffer(ctx context.Context, o *domain.Offer) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO offers (id, market_id, is_long, account_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.MarketID, o.IsLong, o.AccountID, o.Amount, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("store.InsertOffer: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOffer(ctx context.Context, id uint32) (*domain.Offer, error) {
	var o domain.Offer
	err := sqlx.GetContext(ctx, s.q, &o, `SELECT * FROM offers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOfferNotFound
		}
		return nil, fmt.Errorf("store.GetOffer: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) DeleteOffer(ctx context.Context, id uint32) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store.DeleteOffer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrOfferNotFound
	}
	return nil
}

func (s *PostgresStore) ListOffersByMarket(ctx context.Context, marketID uint32) ([]domain.Offer, error) {
	var offers []domain.Offer
	err := sqlx.SelectContext(ctx, s.q, &offers, `
		SELECT * FROM offers WHERE market_id = $1 ORDER BY id`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("store.ListOffersByMarket: %w", err)
	}
	return offers, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Credits
// ──────────────────────────────────────────────────────────────────────────────

func (s *PostgresStore) GetCredit(ctx context.Context, account uuid.UUID) (decimal.Decimal, bool, error) {
	var amt decimal.Decimal
	err := sqlx.GetContext(ctx, s.q, &amt,
		`SELECT amount FROM credits WHERE account_id = $1`, account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("store.GetCredit: %w", err)
	}
	return amt, true, nil
}

func (s *PostgresStore) UpsertCredit(ctx context.Context, account uuid.UUID, total decimal.Decimal) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO credits (account_id, amount, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account_id) DO UPDATE
		SET amount = EXCLUDED.amount, updated_at = now()`,
		account, total)
	if err != nil {
		return fmt.Errorf("store.UpsertCredit: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveCredit(ctx context.Context, account uuid.UUID) (decimal.Decimal, error) {
	var amt decimal.Decimal
	err := sqlx.GetContext(ctx, s.q, &amt,
		`DELETE FROM credits WHERE account_id = $1 RETURNING amount`, account)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrNothingToWithdraw
		}
		return decimal.Zero, fmt.Errorf("store.RemoveCredit: %w", err)
	}
	return amt, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────────────────────────────────

func (s *PostgresStore) InsertTransfer(ctx context.Context, t *domain.Transfer) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transfers (id, account_id, amount, status, attempts, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.AccountID, t.Amount, t.Status, t.Attempts, t.LastError, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store.InsertTransfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTransfer(ctx context.Context, t *domain.Transfer) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE transfers
		SET status = $2, attempts = $3, last_error = $4, updated_at = $5
		WHERE id = $1`,
		t.ID, t.Status, t.Attempts, t.LastError, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store.UpdateTransfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) PendingTransfers(ctx context.Context, limit int) ([]domain.Transfer, error) {
	var transfers []domain.Transfer
	err := sqlx.SelectContext(ctx, s.q, &transfers, `
		SELECT * FROM transfers WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("store.PendingTransfers: %w", err)
	}
	return transfers, nil
}

func (s *PostgresStore) ListTransfersByAccount(ctx context.Context, account uuid.UUID) ([]domain.Transfer, error) {
	var transfers []domain.Transfer
	err := sqlx.SelectContext(ctx, s.q, &transfers, `
		SELECT * FROM transfers WHERE account_id = $1 ORDER BY created_at DESC`,
		account)
	if err != nil {
		return nil, fmt.Errorf("store.ListTransfersByAccount: %w", err)
	}
	return transfers, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Aggregates
// ──────────────────────────────────────────────────────────────────────────────

func (s *PostgresStore) SumOfferEscrow(ctx context.Context) (decimal.Decimal, error) {
	return s.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM offers`)
}

func (s *PostgresStore) SumOpenCollateral(ctx context.Context) (decimal.Decimal, error) {
	return s.sum(ctx, `
		SELECT COALESCE(SUM(p.amount), 0) * 2
		FROM positions p
		JOIN markets m ON m.id = p.market_id
		WHERE m.is_open`)
}

func (s *PostgresStore) SumCredits(ctx context.Context) (decimal.Decimal, error) {
	return s.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM credits`)
}

func (s *PostgresStore) SumTransfers(ctx context.Context) (decimal.Decimal, error) {
	return s.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transfers`)
}

func (s *PostgresStore) sum(ctx context.Context, query string) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, s.q, &total, query); err != nil {
		return decimal.Zero, fmt.Errorf("store.sum: %w", err)
	}
	return total, nil
}
