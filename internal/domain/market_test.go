package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evetabi/matchbook/internal/domain"
)

func TestOfferMatchSides(t *testing.T) {
	creator := uuid.New()
	acceptor := uuid.New()
	amount := decimal.NewFromInt(25)

	longOffer := domain.Offer{ID: 1, MarketID: 3, IsLong: true, AccountID: creator, Amount: amount}
	pair := longOffer.Match(acceptor, time.Now())
	if pair.Long != creator || pair.Short != acceptor {
		t.Errorf("long offer match: long=%v short=%v, want creator long / acceptor short", pair.Long, pair.Short)
	}
	if pair.MarketID != 3 || !pair.Amount.Equal(amount) {
		t.Errorf("pair carries market=%d amount=%s, want 3 / %s", pair.MarketID, pair.Amount, amount)
	}

	shortOffer := domain.Offer{ID: 2, MarketID: 3, IsLong: false, AccountID: creator, Amount: amount}
	pair = shortOffer.Match(acceptor, time.Now())
	if pair.Long != acceptor || pair.Short != creator {
		t.Errorf("short offer match: long=%v short=%v, want acceptor long / creator short", pair.Long, pair.Short)
	}
}

func TestSharePairWinnerAndCollateral(t *testing.T) {
	long := uuid.New()
	short := uuid.New()
	pair := domain.SharePair{Long: long, Short: short, Amount: decimal.NewFromInt(40)}

	if got := pair.Winner(true); got != long {
		t.Errorf("Winner(true) = %v, want long side", got)
	}
	if got := pair.Winner(false); got != short {
		t.Errorf("Winner(false) = %v, want short side", got)
	}
	if !pair.Collateral().Equal(decimal.NewFromInt(80)) {
		t.Errorf("Collateral() = %s, want 80", pair.Collateral())
	}
}

func TestMarketCanClose(t *testing.T) {
	owner := uuid.New()
	m := domain.Market{ID: 0, IsOpen: true, Owner: owner}

	if !m.CanClose(owner) {
		t.Error("owner should be allowed to close")
	}
	if m.CanClose(uuid.New()) {
		t.Error("non-owner should not be allowed to close")
	}
}

func TestMarketView(t *testing.T) {
	m := domain.Market{ID: 7, IsOpen: true, Description: "Will it rain?", Owner: uuid.New()}
	v := m.View(3)
	if v.ID != 7 || v.Positions != 3 || v.Description != "Will it rain?" {
		t.Errorf("View = %+v, want id 7, positions 3", v)
	}
}
