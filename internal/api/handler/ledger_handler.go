package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evetabi/matchbook/internal/ledger"
)

// LedgerHandler serves operator-only ledger inspection endpoints.
type LedgerHandler struct {
	ledger *ledger.Ledger
}

// NewLedgerHandler creates a LedgerHandler.
func NewLedgerHandler(l *ledger.Ledger) *LedgerHandler {
	return &LedgerHandler{ledger: l}
}

// Report returns the conservation snapshot: where every escrowed unit of
// value currently sits.
func (h *LedgerHandler) Report(c *gin.Context) {
	report, err := h.ledger.Report(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, report)
}
