package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/evetabi/matchbook/internal/domain"
)

// CtxAccountID is the gin context key holding the authenticated account UUID.
const CtxAccountID = "accountID"

// ──────────────────────────────────────────────────────────────────────────────
// JWTMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// JWTMiddleware validates the Bearer token in the Authorization header.
// Tokens are minted by the host platform and verified here against the shared
// HMAC secret; the subject claim carries the account UUID.  On success the
// account id is stored in the gin context.
func JWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrUnauthorized.Error(),
			})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrUnauthorized.Error(),
			})
			return
		}

		sub, err := tok.Claims.GetSubject()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrUnauthorized.Error(),
			})
			return
		}
		accountID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrUnauthorized.Error(),
			})
			return
		}

		c.Set(CtxAccountID, accountID)
		c.Next()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// AdminMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// AdminMiddleware allows only configured operator accounts to access the
// route.  Must be placed after JWTMiddleware in the chain.
func AdminMiddleware(adminAccounts []string) gin.HandlerFunc {
	allowed := make(map[uuid.UUID]bool, len(adminAccounts))
	for _, s := range adminAccounts {
		if id, err := uuid.Parse(s); err == nil {
			allowed[id] = true
		}
	}
	return func(c *gin.Context) {
		if !allowed[GetAccountID(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": domain.ErrForbidden.Error(),
			})
			return
		}
		c.Next()
	}
}

// GetAccountID retrieves the authenticated account's UUID from the gin
// context.  Returns uuid.Nil if the middleware was not applied.
func GetAccountID(c *gin.Context) uuid.UUID {
	v, exists := c.Get(CtxAccountID)
	if !exists {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}
