// Package api builds the HTTP surface of the settlement engine.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evetabi/matchbook/internal/api/handler"
	"github.com/evetabi/matchbook/internal/api/middleware"
	"github.com/evetabi/matchbook/internal/config"
	"github.com/evetabi/matchbook/internal/ledger"
	"github.com/evetabi/matchbook/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	Ledger *ledger.Ledger
	Hub    *ws.Hub
	Cfg    *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	marketH := handler.NewMarketHandler(deps.Ledger)
	offerH := handler.NewOfferHandler(deps.Ledger)
	walletH := handler.NewWalletHandler(deps.Ledger)
	ledgerH := handler.NewLedgerHandler(deps.Ledger)

	jwtMW := middleware.JWTMiddleware([]byte(deps.Cfg.JWT.Secret))
	tradeRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP on mutating endpoints

	api := r.Group("/api")
	{
		// ── Markets (reads public, writes authenticated) ─────────────────────
		markets := api.Group("/markets")
		{
			markets.GET("", marketH.List)
			markets.GET("/:id", marketH.GetByID)
			markets.GET("/:id/offers", offerH.ListByMarket)

			markets.POST("", jwtMW, tradeRL, marketH.Create)
			markets.POST("/:id/close", jwtMW, tradeRL, marketH.Close)
		}

		// ── Offers ───────────────────────────────────────────────────────────
		offers := api.Group("/offers")
		offers.Use(jwtMW, tradeRL)
		{
			offers.POST("", offerH.Create)
			offers.POST("/:id/accept", offerH.Accept)
			offers.DELETE("/:id", offerH.Cancel)
		}

		// ── Wallet ───────────────────────────────────────────────────────────
		wallet := api.Group("/wallet")
		wallet.Use(jwtMW)
		{
			wallet.GET("/balance", walletH.GetBalance)
			wallet.POST("/withdraw", walletH.Withdraw)
			wallet.GET("/transfers", walletH.ListTransfers)
		}

		// ── Operator ─────────────────────────────────────────────────────────
		ops := api.Group("/ledger")
		ops.Use(jwtMW, middleware.AdminMiddleware(deps.Cfg.Server.AdminAccounts))
		{
			ops.GET("/report", ledgerH.Report)
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only configured ones.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
