package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway is the outbound payment port.  A nil error means the gateway
// accepted the transfer; anything else and the dispatcher retries.
type Gateway interface {
	Transfer(ctx context.Context, account uuid.UUID, amount decimal.Decimal) error
}

// HTTPGateway posts transfers to an external payout endpoint as JSON.
type HTTPGateway struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPGateway creates an HTTPGateway for the given endpoint.
func NewHTTPGateway(url, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type transferRequest struct {
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (g *HTTPGateway) Transfer(ctx context.Context, account uuid.UUID, amount decimal.Decimal) error {
	body, err := json.Marshal(transferRequest{AccountID: account, Amount: amount})
	if err != nil {
		return fmt.Errorf("transfer.HTTPGateway: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transfer.HTTPGateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("transfer.HTTPGateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("transfer.HTTPGateway: gateway returned %d", resp.StatusCode)
	}
	return nil
}

// LogGateway accepts every transfer and only logs it.  Dev-mode stand-in when
// no real gateway is configured.
type LogGateway struct {
	Logger *slog.Logger
}

func (g LogGateway) Transfer(_ context.Context, account uuid.UUID, amount decimal.Decimal) error {
	g.Logger.Info("transfer (log-only gateway)", "account", account, "amount", amount)
	return nil
}
