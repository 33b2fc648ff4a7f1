package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evetabi/matchbook/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
		},
	})
}

// respondDomainError translates a ledger error into the right HTTP status
// using the domain predicates.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", rootMessage(err))
	case errors.Is(err, domain.ErrNotOwner):
		respondError(c, http.StatusForbidden, "not_owner", rootMessage(err))
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", rootMessage(err))
	case domain.IsInvalidInput(err):
		respondError(c, http.StatusBadRequest, "invalid_input", rootMessage(err))
	case errors.Is(err, domain.ErrArithmeticOverflow):
		respondError(c, http.StatusUnprocessableEntity, "overflow", rootMessage(err))
	default:
		respondError(c, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// rootMessage unwraps to the sentinel so clients see the stable message, not
// the internal call-path prefix.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
