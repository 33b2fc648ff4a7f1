package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Settlement arithmetic
// ──────────────────────────────────────────────────────────────────────────────

// MaxLedgerValue bounds every amount the ledger will hold or pay out.  Any
// payout or credit addition that would exceed it fails the whole call with
// ErrArithmeticOverflow — nothing wraps silently.
var MaxLedgerValue = decimal.New(1, 30)

var two = decimal.NewFromInt(2)

// ValidateAmount rejects zero or negative escrow amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(MaxLedgerValue) {
		return ErrArithmeticOverflow
	}
	return nil
}

// Payout computes the winner's payout for one position: the winner recovers
// their own stake plus the loser's equal stake (2 × stake).
func Payout(stake decimal.Decimal) (decimal.Decimal, error) {
	out := stake.Mul(two)
	if out.GreaterThan(MaxLedgerValue) {
		return decimal.Zero, ErrArithmeticOverflow
	}
	return out, nil
}

// AddChecked returns balance + amount, guarding the ledger value bound.
func AddChecked(balance, amount decimal.Decimal) (decimal.Decimal, error) {
	sum := balance.Add(amount)
	if sum.GreaterThan(MaxLedgerValue) {
		return decimal.Zero, ErrArithmeticOverflow
	}
	return sum, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Settlement plan
// ──────────────────────────────────────────────────────────────────────────────

// CreditEntry is one ledger credit produced by settlement.
type CreditEntry struct {
	Account uuid.UUID
	Amount  decimal.Decimal
}

// SettleCredits walks a closed market's positions in append order and
// produces one CreditEntry per position: the winning side of each pair gets
// 2 × its stake.  Entries are NOT netted or deduplicated — an account winning
// several positions receives one credit per position, matching the one-event-
// per-position contract.
func SettleCredits(positions []SharePair, longWins bool) ([]CreditEntry, error) {
	credits := make([]CreditEntry, 0, len(positions))
	for i := range positions {
		payout, err := Payout(positions[i].Amount)
		if err != nil {
			return nil, err
		}
		credits = append(credits, CreditEntry{
			Account: positions[i].Winner(longWins),
			Amount:  payout,
		})
	}
	return credits, nil
}
