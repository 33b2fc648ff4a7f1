package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evetabi/matchbook/internal/api/middleware"
	"github.com/evetabi/matchbook/internal/ledger"
)

// WalletHandler serves credit-ledger and withdrawal endpoints.
type WalletHandler struct {
	ledger *ledger.Ledger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(l *ledger.Ledger) *WalletHandler {
	return &WalletHandler{ledger: l}
}

// ──────────────────────────────────────────────────────────────────────────────
// GET /api/wallet/balance
// ──────────────────────────────────────────────────────────────────────────────

// GetBalance returns the caller's credited balance (zero when nothing is
// credited — a read, not an error).
func (h *WalletHandler) GetBalance(c *gin.Context) {
	account := middleware.GetAccountID(c)
	balance, err := h.ledger.GetBalance(c.Request.Context(), account)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"balance": balance})
}

// ──────────────────────────────────────────────────────────────────────────────
// POST /api/wallet/withdraw
// ──────────────────────────────────────────────────────────────────────────────

// Withdraw removes the caller's entire credited balance and queues a transfer
// for it.  All-or-nothing: there is no partial withdrawal, and a caller with
// no balance gets a 404.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	account := middleware.GetAccountID(c)
	transfer, err := h.ledger.Withdraw(c.Request.Context(), account)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, transfer)
}

// ──────────────────────────────────────────────────────────────────────────────
// GET /api/wallet/transfers
// ──────────────────────────────────────────────────────────────────────────────

// ListTransfers returns the caller's withdrawal transfers with their dispatch
// status.
func (h *WalletHandler) ListTransfers(c *gin.Context) {
	account := middleware.GetAccountID(c)
	transfers, err := h.ledger.ListTransfers(c.Request.Context(), account)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, transfers, len(transfers))
}
