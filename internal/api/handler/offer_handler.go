package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/evetabi/matchbook/internal/api/middleware"
	"github.com/evetabi/matchbook/internal/ledger"
)

// OfferHandler serves offer book endpoints.
type OfferHandler struct {
	ledger *ledger.Ledger
}

// NewOfferHandler creates an OfferHandler.
func NewOfferHandler(l *ledger.Ledger) *OfferHandler {
	return &OfferHandler{ledger: l}
}

func parseOfferID(c *gin.Context) (uint32, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_id", "offer id must be a non-negative integer")
		return 0, false
	}
	return uint32(id), true
}

// ──────────────────────────────────────────────────────────────────────────────
// POST /api/offers
// ──────────────────────────────────────────────────────────────────────────────

type createOfferRequest struct {
	MarketID *uint32         `json:"market_id" binding:"required"`
	IsLong   *bool           `json:"is_long"   binding:"required"`
	Amount   decimal.Decimal `json:"amount"    binding:"required"`
}

// Create escrows the caller's amount on one side of a market.
func (h *OfferHandler) Create(c *gin.Context) {
	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	account := middleware.GetAccountID(c)
	id, err := h.ledger.CreateOffer(c.Request.Context(), account, *req.MarketID, *req.IsLong, req.Amount)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"offer_id": id})
}

// ──────────────────────────────────────────────────────────────────────────────
// POST /api/offers/:id/accept
// ──────────────────────────────────────────────────────────────────────────────

type acceptOfferRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// Accept matches the caller against the offer.  The amount must equal the
// offer amount exactly; it is re-stated here so a stale client cannot be
// matched at terms it never saw.
func (h *OfferHandler) Accept(c *gin.Context) {
	id, ok := parseOfferID(c)
	if !ok {
		return
	}
	var req acceptOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	account := middleware.GetAccountID(c)
	if err := h.ledger.AcceptOffer(c.Request.Context(), account, id, req.Amount); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"offer_id": id})
}

// ──────────────────────────────────────────────────────────────────────────────
// DELETE /api/offers/:id
// ──────────────────────────────────────────────────────────────────────────────

// Cancel withdraws the caller's own pending offer; the escrow comes back as
// ledger credit.
func (h *OfferHandler) Cancel(c *gin.Context) {
	id, ok := parseOfferID(c)
	if !ok {
		return
	}

	account := middleware.GetAccountID(c)
	if err := h.ledger.CancelOffer(c.Request.Context(), account, id); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"offer_id": id})
}

// ──────────────────────────────────────────────────────────────────────────────
// GET /api/markets/:id/offers
// ──────────────────────────────────────────────────────────────────────────────

// ListByMarket returns a market's pending offers in id order.
func (h *OfferHandler) ListByMarket(c *gin.Context) {
	id, ok := parseMarketID(c)
	if !ok {
		return
	}
	offers, err := h.ledger.GetOffers(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondList(c, offers, len(offers))
}
