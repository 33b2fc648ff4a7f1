package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Market errors
var (
	// ErrMarketNotFound is returned when no market exists for the given id.
	ErrMarketNotFound = errors.New("market not found")

	// ErrMarketAlreadyClosed is returned when close is attempted on a market
	// whose is_open flag has already flipped.
	ErrMarketAlreadyClosed = errors.New("market is already closed")

	// ErrMarketClosed is returned when an offer or position would attach to a
	// market that is no longer open.
	ErrMarketClosed = errors.New("market is closed for new positions")

	// ErrNotOwner is returned when a caller other than the market owner tries
	// to close it, or a non-creator tries to cancel an offer.
	ErrNotOwner = errors.New("caller does not own this resource")
)

// Offer errors
var (
	// ErrOfferNotFound is returned when the offer id is unknown — including
	// the case where someone else already consumed it.
	ErrOfferNotFound = errors.New("offer not found (it may already have been accepted)")

	// ErrInvalidAmount is returned when an escrow amount is zero or negative.
	ErrInvalidAmount = errors.New("escrow amount must be positive")

	// ErrAmountMismatch is returned when the acceptor's escrow does not equal
	// the offer amount exactly.  Partial fills are not supported.
	ErrAmountMismatch = errors.New("escrow amount must equal the offer amount exactly")

	// ErrSelfTrade is returned when an account tries to accept its own offer.
	ErrSelfTrade = errors.New("cannot accept your own offer")
)

// Ledger errors
var (
	// ErrNothingToWithdraw is returned when the caller has no credit entry.
	ErrNothingToWithdraw = errors.New("no credited balance to withdraw")

	// ErrArithmeticOverflow is returned when a payout or credit addition
	// would exceed the ledger value bound.  It aborts the whole call.
	ErrArithmeticOverflow = errors.New("ledger arithmetic overflow")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects the "entity not found" sentinels so IsNotFound
// stays in sync automatically.
var notFoundErrors = []error{
	ErrMarketNotFound,
	ErrOfferNotFound,
	ErrNothingToWithdraw,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors.  Handlers use this to translate to HTTP 404.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict, mapped
// to HTTP 409 by the API layer.
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrMarketAlreadyClosed,
		ErrMarketClosed,
		ErrAmountMismatch,
		ErrSelfTrade,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsInvalidInput returns true for validation failures, mapped to HTTP 400.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}
