// Package handler contains the gin HTTP handlers for the public API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/evetabi/matchbook/internal/api/middleware"
	"github.com/evetabi/matchbook/internal/ledger"
)

// MarketHandler serves market lifecycle endpoints.
type MarketHandler struct {
	ledger *ledger.Ledger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(l *ledger.Ledger) *MarketHandler {
	return &MarketHandler{ledger: l}
}

// parseMarketID reads the :id path parameter as a uint32.
func parseMarketID(c *gin.Context) (uint32, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_id", "market id must be a non-negative integer")
		return 0, false
	}
	return uint32(id), true
}

// ──────────────────────────────────────────────────────────────────────────────
// POST /api/markets
// ──────────────────────────────────────────────────────────────────────────────

type createMarketRequest struct {
	Description string `json:"description" binding:"required,max=500"`
}

// Create registers a new market owned by the caller.
func (h *MarketHandler) Create(c *gin.Context) {
	var req createMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	owner := middleware.GetAccountID(c)
	id, err := h.ledger.CreateMarket(c.Request.Context(), owner, req.Description)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"market_id": id})
}

// ──────────────────────────────────────────────────────────────────────────────
// GET /api/markets
// ──────────────────────────────────────────────────────────────────────────────

// List returns every market in creation order.
func (h *MarketHandler) List(c *gin.Context) {
	views, err := h.ledger.ListMarkets(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, views, len(views))
}

// ──────────────────────────────────────────────────────────────────────────────
// GET /api/markets/:id
// ──────────────────────────────────────────────────────────────────────────────

// GetByID returns one market view.  Unknown ids are a plain 404: reads never
// mutate and carry no precondition.
func (h *MarketHandler) GetByID(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	view, err := h.ledger.GetMarket(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if view == nil {
		respondError(c, http.StatusNotFound, "not_found", "market not found")
		return
	}
	respondSuccess(c, http.StatusOK, view)
}

// ──────────────────────────────────────────────────────────────────────────────
// POST /api/markets/:id/close
// ──────────────────────────────────────────────────────────────────────────────

type closeMarketRequest struct {
	LongWon *bool `json:"long_won" binding:"required"`
}

// Close resolves the market.  Owner only; payouts land on the credit ledger.
func (h *MarketHandler) Close(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	var req closeMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	caller := middleware.GetAccountID(c)
	if err := h.ledger.CloseMarket(c.Request.Context(), caller, id, *req.LongWon); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"market_id": id, "long_won": *req.LongWon})
}
