package domain_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evetabi/matchbook/internal/domain"
)

// TestPayoutDoublesStake validates the core settlement rule: the winner of a
// pair recovers their own stake plus the loser's equal stake.  No I/O — pure
// arithmetic.
func TestPayoutDoublesStake(t *testing.T) {
	for _, stake := range []string{"1", "50", "0.5", "123.456789"} {
		s := decimal.RequireFromString(stake)
		got, err := domain.Payout(s)
		if err != nil {
			t.Fatalf("Payout(%s) error: %v", stake, err)
		}
		want := s.Mul(decimal.NewFromInt(2))
		if !got.Equal(want) {
			t.Errorf("Payout(%s) = %s, want %s", stake, got, want)
		}
	}
}

func TestPayoutOverflow(t *testing.T) {
	// A stake just over half the bound doubles past it.
	stake := domain.MaxLedgerValue.Div(decimal.NewFromInt(2)).Add(decimal.NewFromInt(1))
	_, err := domain.Payout(stake)
	if !errors.Is(err, domain.ErrArithmeticOverflow) {
		t.Errorf("Payout(bound/2+1) error = %v, want ErrArithmeticOverflow", err)
	}
}

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		amount string
		want   error
	}{
		{"100", nil},
		{"0.00000001", nil},
		{"0", domain.ErrInvalidAmount},
		{"-5", domain.ErrInvalidAmount},
	}
	for _, tc := range cases {
		err := domain.ValidateAmount(decimal.RequireFromString(tc.amount))
		if !errors.Is(err, tc.want) {
			t.Errorf("ValidateAmount(%s) = %v, want %v", tc.amount, err, tc.want)
		}
	}
}

func TestAddChecked(t *testing.T) {
	sum, err := domain.AddChecked(decimal.NewFromInt(100), decimal.NewFromInt(60))
	if err != nil {
		t.Fatalf("AddChecked error: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(160)) {
		t.Errorf("AddChecked(100, 60) = %s, want 160", sum)
	}

	_, err = domain.AddChecked(domain.MaxLedgerValue, decimal.NewFromInt(1))
	if !errors.Is(err, domain.ErrArithmeticOverflow) {
		t.Errorf("AddChecked at bound error = %v, want ErrArithmeticOverflow", err)
	}
}

// TestSettleCreditsPerPosition checks that settlement produces one credit per
// position, 2 × stake each, with no netting across positions.
//
//	Scenario: alice is long on two positions (stakes 50 and 30), both resolve
//	long.  She gets two credits, 100 and 60 — a running ledger total of 160.
func TestSettleCreditsPerPosition(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	positions := []domain.SharePair{
		{MarketID: 0, Seq: 0, Long: alice, Short: bob, Amount: decimal.NewFromInt(50)},
		{MarketID: 0, Seq: 1, Long: alice, Short: carol, Amount: decimal.NewFromInt(30)},
	}

	credits, err := domain.SettleCredits(positions, true)
	if err != nil {
		t.Fatalf("SettleCredits error: %v", err)
	}
	if len(credits) != 2 {
		t.Fatalf("len(credits) = %d, want 2 (one per position)", len(credits))
	}
	if credits[0].Account != alice || !credits[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("credits[0] = %v %s, want alice 100", credits[0].Account, credits[0].Amount)
	}
	if credits[1].Account != alice || !credits[1].Amount.Equal(decimal.NewFromInt(60)) {
		t.Errorf("credits[1] = %v %s, want alice 60", credits[1].Account, credits[1].Amount)
	}

	// Shorts win instead: bob and carol each get 2 × stake.
	credits, err = domain.SettleCredits(positions, false)
	if err != nil {
		t.Fatalf("SettleCredits error: %v", err)
	}
	if credits[0].Account != bob || credits[1].Account != carol {
		t.Errorf("short-win accounts = %v, %v; want bob, carol", credits[0].Account, credits[1].Account)
	}
}

func TestSettleCreditsOverflowAborts(t *testing.T) {
	huge := domain.MaxLedgerValue.Div(decimal.NewFromInt(2)).Add(decimal.NewFromInt(1))
	positions := []domain.SharePair{
		{Long: uuid.New(), Short: uuid.New(), Amount: decimal.NewFromInt(10)},
		{Long: uuid.New(), Short: uuid.New(), Amount: huge},
	}
	if _, err := domain.SettleCredits(positions, true); !errors.Is(err, domain.ErrArithmeticOverflow) {
		t.Errorf("SettleCredits with huge stake error = %v, want ErrArithmeticOverflow", err)
	}
}
