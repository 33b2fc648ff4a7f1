package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/evetabi/matchbook/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore implements Store with in-memory maps.  Used for tests and
// development.  RunInTx works on a deep copy of the state and swaps it in on
// success, so rollback semantics match the SQL backend.
type MemoryStore struct {
	mu   sync.RWMutex
	st   *memState
	inTx bool
}

type memState struct {
	markets     []domain.Market
	positions   map[uint32][]domain.SharePair
	offers      map[uint32]domain.Offer
	credits     map[uuid.UUID]decimal.Decimal
	transfers   []domain.Transfer
	nextOfferID uint32
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{st: newMemState()}
}

func newMemState() *memState {
	return &memState{
		positions: make(map[uint32][]domain.SharePair),
		offers:    make(map[uint32]domain.Offer),
		credits:   make(map[uuid.UUID]decimal.Decimal),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		markets:     append([]domain.Market(nil), s.markets...),
		positions:   make(map[uint32][]domain.SharePair, len(s.positions)),
		offers:      make(map[uint32]domain.Offer, len(s.offers)),
		credits:     make(map[uuid.UUID]decimal.Decimal, len(s.credits)),
		transfers:   append([]domain.Transfer(nil), s.transfers...),
		nextOfferID: s.nextOfferID,
	}
	for id, ps := range s.positions {
		c.positions[id] = append([]domain.SharePair(nil), ps...)
	}
	for id, o := range s.offers {
		c.offers[id] = o
	}
	for acc, amt := range s.credits {
		c.credits[acc] = amt
	}
	return c
}

// ──────────────────────────────────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────────────────────────────────

// RunInTx clones the state, runs fn against the clone, and swaps it in only
// when fn succeeds.  A nested call reuses the enclosing clone.
func (s *MemoryStore) RunInTx(_ context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{st: s.st.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

func (s *MemoryStore) rlock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// ──────────────────────────────────────────────────────────────────────────────
// Markets
// ──────────────────────────────────────────────────────────────────────────────

func (s *MemoryStore) CountMarkets(context.Context) (uint32, error) {
	defer s.rlock()()
	return uint32(len(s.st.markets)), nil
}

func (s *MemoryStore) InsertMarket(_ context.Context, m *domain.Market) error {
	defer s.lock()()
	s.st.markets = append(s.st.markets, *m)
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id uint32) (*domain.Market, error) {
	defer s.rlock()()
	if int(id) >= len(s.st.markets) {
		return nil, domain.ErrMarketNotFound
	}
	m := s.st.markets[id]
	return &m, nil
}

func (s *MemoryStore) ListMarkets(context.Context) ([]domain.Market, error) {
	defer s.rlock()()
	return append([]domain.Market(nil), s.st.markets...), nil
}

func (s *MemoryStore) MarkMarketClosed(_ context.Context, id uint32, at time.Time) error {
	defer s.lock()()
	if int(id) >= len(s.st.markets) {
		return domain.ErrMarketNotFound
	}
	if !s.st.markets[id].IsOpen {
		return domain.ErrMarketAlreadyClosed
	}
	s.st.markets[id].IsOpen = false
	closedAt := at
	s.st.markets[id].ClosedAt = &closedAt
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Positions
// ──────────────────────────────────────────────────────────────────────────────

func (s *MemoryStore) AppendPosition(_ context.Context, p *domain.SharePair) error {
	defer s.lock()()
	p.Seq = uint32(len(s.st.positions[p.MarketID]))
	s.st.positions[p.MarketID] = append(s.st.positions[p.MarketID], *p)
	return nil
}

func (s *MemoryStore) ListPositions(_ context.Context, marketID uint32) ([]domain.SharePair, error) {
	defer s.rlock()()
	return append([]domain.SharePair(nil), s.st.positions[marketID]...), nil
}

func (s *MemoryStore) CountPositions(_ context.Context, marketID uint32) (uint32, error) {
	defer s.rlock()()
	return uint32(len(s.st.positions[marketID])), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Offers
// ──────────────────────────────────────────────────────────────────────────────

func (s *MemoryStore) NextOfferID(context.Context) (uint32, error) {
	defer s.lock()()
	id := s.st.nextOfferID
	s.st.nextOfferID++
	return id, nil
}

func (s *MemoryStore) InsertOffer(_ context.Context, o *domain.Offer) error {
	defer s.lock()()
	s.st.offers[o.ID] = *o
	return nil
}

func (s *MemoryStore) GetOffer(_ context.Context, id uint32) (*domain.Offer, error) {
	defer s.rlock()()
	o, ok := s.st.offers[id]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	return &o, nil
}

func (s *MemoryStore) DeleteOffer(_ context.Context, id uint32) error {
	defer s.lock()()
	if _, ok := s.st.offers[id]; !ok {
		return domain.ErrOfferNotFound
	}
	delete(s.st.offers, id)
	return nil
}

func (s *MemoryStore) ListOffersByMarket(_ context.Context, marketID uint32) ([]domain.Offer, error) {
	defer s.rlock()()
	var offers []domain.Offer
	for _, o := range s.st.offers {
		if o.MarketID == marketID {
			offers = append(offers, o)
		}
	}
	// Map iteration order is random; callers get id order.
	sort.Slice(offers, func(i, j int) bool { return offers[i].ID < offers[j].ID })
	return offers, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Credits
// ──────────────────────────────────────────────────────────────────────────────

func (s *MemoryStore) GetCredit(_ context.Context, account uuid.UUID) (decimal.Decimal, bool, error) {
	defer s.rlock()()
	amt, ok := s.st.credits[account]
	if !ok {
		return decimal.Zero, false, nil
	}
	return amt, true, nil
}

func (s *MemoryStore) UpsertCredit(_ context.Context, account uuid.UUID, total decimal.Decimal) error {
	defer s.lock()()
	s.st.credits[account] = total
	return nil
}

func (s *MemoryStore) RemoveCredit(_ context.Context, account uuid.UUID) (decimal.Decimal, error) {
	defer s.lock()()
	amt, ok := s.st.credits[account]
	if !ok {
		return decimal.Zero, domain.ErrNothingToWithdraw
	}
	delete(s.st.credits, account)
	return amt, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────────────────────────────────

func (s *MemoryStore) InsertTransfer(_ context.Context, t *domain.Transfer) error {
	defer s.lock()()
	s.st.transfers = append(s.st.transfers, *t)
	return nil
}

func (s *MemoryStore) UpdateTransfer(_ context.Context, t *domain.Transfer) error {
	defer s.lock()()
	for i := range s.st.transfers {
		if s.st.transfers[i].ID == t.ID {
			s.st.transfers[i] = *t
			return nil
		}
	}
	return domain.ErrNothingToWithdraw
}

func (s *MemoryStore) PendingTransfers(_ context.Context, limit int) ([]domain.Transfer, error) {
	defer s.rlock()()
	var due []domain.Transfer
	for _, t := range s.st.transfers {
		if t.IsPending() {
			due = append(due, t)
			if limit > 0 && len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (s *MemoryStore) ListTransfersByAccount(_ context.Context, account uuid.UUID) ([]domain.Transfer, error) {
	defer s.rlock()()
	var out []domain.Transfer
	for _, t := range s.st.transfers {
		if t.AccountID == account {
			out = append(out, t)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Aggregates
// ──────────────────────────────────────────────────────────────────────────────

func (s *MemoryStore) SumOfferEscrow(context.Context) (decimal.Decimal, error) {
	defer s.rlock()()
	sum := decimal.Zero
	for _, o := range s.st.offers {
		sum = sum.Add(o.Amount)
	}
	return sum, nil
}

func (s *MemoryStore) SumOpenCollateral(context.Context) (decimal.Decimal, error) {
	defer s.rlock()()
	sum := decimal.Zero
	for _, m := range s.st.markets {
		if !m.IsOpen {
			continue
		}
		for _, p := range s.st.positions[m.ID] {
			sum = sum.Add(p.Collateral())
		}
	}
	return sum, nil
}

func (s *MemoryStore) SumCredits(context.Context) (decimal.Decimal, error) {
	defer s.rlock()()
	sum := decimal.Zero
	for _, amt := range s.st.credits {
		sum = sum.Add(amt)
	}
	return sum, nil
}

func (s *MemoryStore) SumTransfers(context.Context) (decimal.Decimal, error) {
	defer s.rlock()()
	sum := decimal.Zero
	for _, t := range s.st.transfers {
		sum = sum.Add(t.Amount)
	}
	return sum, nil
}
