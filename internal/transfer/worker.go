// Package transfer dispatches queued withdrawal transfers to an external
// payment gateway.  The ledger debit is already committed by the time a
// transfer exists; this worker only moves it pending → sent (or, after the
// retry budget, pending → failed for manual reconciliation).
package transfer

import (
	"context"
	"log/slog"
	"time"

	"github.com/evetabi/matchbook/internal/domain"
	"github.com/evetabi/matchbook/internal/store"
)

// Dispatcher polls the pending-transfer queue and pushes each entry through
// the gateway.  It wakes early when the ledger kicks it after a withdrawal.
type Dispatcher struct {
	store       store.Store
	gateway     Gateway
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int
	batchSize   int
	kick        chan struct{}
}

// NewDispatcher creates a Dispatcher.  interval is the poll period;
// maxAttempts bounds retries per transfer.
func NewDispatcher(st store.Store, gw Gateway, logger *slog.Logger, interval time.Duration, maxAttempts int) *Dispatcher {
	return &Dispatcher{
		store:       st,
		gateway:     gw,
		logger:      logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		batchSize:   50,
		kick:        make(chan struct{}, 1),
	}
}

// Wake nudges the dispatcher to drain the queue now instead of waiting for
// the next tick.  Never blocks.
func (d *Dispatcher) Wake() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run drains the queue on every tick or wake-up until ctx is cancelled.
// Intended to run as a goroutine from main.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("transfer dispatcher started", "interval", d.interval, "max_attempts", d.maxAttempts)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("transfer dispatcher stopped")
			return
		case <-ticker.C:
			d.drain(ctx)
		case <-d.kick:
			d.drain(ctx)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("transfer dispatcher panic", "panic", r)
		}
	}()

	for {
		pending, err := d.store.PendingTransfers(ctx, d.batchSize)
		if err != nil {
			d.logger.Error("load pending transfers", "error", err)
			return
		}
		if len(pending) == 0 {
			return
		}
		for i := range pending {
			if ctx.Err() != nil {
				return
			}
			d.dispatch(ctx, &pending[i])
		}
		if len(pending) < d.batchSize {
			return
		}
	}
}

// dispatch tries one transfer through the gateway and records the outcome.
func (d *Dispatcher) dispatch(ctx context.Context, t *domain.Transfer) {
	err := d.gateway.Transfer(ctx, t.AccountID, t.Amount)
	t.Attempts++
	t.UpdatedAt = time.Now().UTC()

	switch {
	case err == nil:
		t.Status = domain.TransferSent
		t.LastError = nil
		d.logger.Info("transfer sent", "transfer_id", t.ID, "account", t.AccountID, "amount", t.Amount)
	case t.Attempts >= d.maxAttempts:
		t.Status = domain.TransferFailed
		msg := err.Error()
		t.LastError = &msg
		d.logger.Error("transfer failed permanently", "transfer_id", t.ID, "attempts", t.Attempts, "error", err)
	default:
		msg := err.Error()
		t.LastError = &msg
		d.logger.Warn("transfer attempt failed", "transfer_id", t.ID, "attempt", t.Attempts, "error", err)
	}

	if err := d.store.UpdateTransfer(ctx, t); err != nil {
		d.logger.Error("record transfer outcome", "transfer_id", t.ID, "error", err)
	}
}
