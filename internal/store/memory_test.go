package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evetabi/matchbook/internal/domain"
	"github.com/evetabi/matchbook/internal/store"
)

func TestMemoryStoreTxRollback(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := st.RunInTx(ctx, func(tx store.Store) error {
		if err := tx.InsertMarket(ctx, &domain.Market{ID: 0, IsOpen: true, Owner: uuid.New()}); err != nil {
			return err
		}
		if _, err := tx.NextOfferID(ctx); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("RunInTx error = %v, want sentinel", err)
	}

	// Nothing from the failed transaction is visible.
	if n, _ := st.CountMarkets(ctx); n != 0 {
		t.Errorf("markets after rollback = %d, want 0", n)
	}
	if id, _ := st.NextOfferID(ctx); id != 0 {
		t.Errorf("offer counter after rollback = %d, want 0 (allocation rolled back)", id)
	}
}

func TestMemoryStoreTxCommit(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	err := st.RunInTx(ctx, func(tx store.Store) error {
		return tx.InsertMarket(ctx, &domain.Market{ID: 0, IsOpen: true, Owner: uuid.New()})
	})
	if err != nil {
		t.Fatalf("RunInTx error: %v", err)
	}
	if n, _ := st.CountMarkets(ctx); n != 1 {
		t.Errorf("markets after commit = %d, want 1", n)
	}
}

func TestMemoryStoreNestedTxReusesEnclosing(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	err := st.RunInTx(ctx, func(tx store.Store) error {
		return tx.RunInTx(ctx, func(inner store.Store) error {
			return inner.InsertMarket(ctx, &domain.Market{ID: 0, IsOpen: true, Owner: uuid.New()})
		})
	})
	if err != nil {
		t.Fatalf("nested RunInTx error: %v", err)
	}
	if n, _ := st.CountMarkets(ctx); n != 1 {
		t.Errorf("markets after nested commit = %d, want 1", n)
	}
}

func TestDeleteOfferExactlyOnce(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	o := &domain.Offer{ID: 0, MarketID: 0, AccountID: uuid.New(), Amount: decimal.NewFromInt(10)}
	if err := st.InsertOffer(ctx, o); err != nil {
		t.Fatalf("InsertOffer error: %v", err)
	}

	if err := st.DeleteOffer(ctx, 0); err != nil {
		t.Fatalf("first DeleteOffer error: %v", err)
	}
	if err := st.DeleteOffer(ctx, 0); !errors.Is(err, domain.ErrOfferNotFound) {
		t.Errorf("second DeleteOffer error = %v, want ErrOfferNotFound", err)
	}
}

func TestMarkMarketClosedOnce(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	_ = st.InsertMarket(ctx, &domain.Market{ID: 0, IsOpen: true, Owner: uuid.New()})

	if err := st.MarkMarketClosed(ctx, 0, time.Now()); err != nil {
		t.Fatalf("first close error: %v", err)
	}
	if err := st.MarkMarketClosed(ctx, 0, time.Now()); !errors.Is(err, domain.ErrMarketAlreadyClosed) {
		t.Errorf("second close error = %v, want ErrMarketAlreadyClosed", err)
	}
	if err := st.MarkMarketClosed(ctx, 9, time.Now()); !errors.Is(err, domain.ErrMarketNotFound) {
		t.Errorf("close unknown error = %v, want ErrMarketNotFound", err)
	}
}

func TestRemoveCreditAllOrNothing(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	acc := uuid.New()

	if _, err := st.RemoveCredit(ctx, acc); !errors.Is(err, domain.ErrNothingToWithdraw) {
		t.Errorf("remove missing credit error = %v, want ErrNothingToWithdraw", err)
	}

	_ = st.UpsertCredit(ctx, acc, decimal.NewFromInt(160))
	amt, err := st.RemoveCredit(ctx, acc)
	if err != nil {
		t.Fatalf("RemoveCredit error: %v", err)
	}
	if !amt.Equal(decimal.NewFromInt(160)) {
		t.Errorf("removed amount = %s, want 160", amt)
	}
	if _, ok, _ := st.GetCredit(ctx, acc); ok {
		t.Error("credit entry should be gone after removal")
	}
}

func TestAppendPositionAssignsSeq(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	for want := uint32(0); want < 3; want++ {
		p := &domain.SharePair{MarketID: 7, Long: uuid.New(), Short: uuid.New(), Amount: decimal.NewFromInt(1)}
		if err := st.AppendPosition(ctx, p); err != nil {
			t.Fatalf("AppendPosition error: %v", err)
		}
		if p.Seq != want {
			t.Errorf("seq = %d, want %d", p.Seq, want)
		}
	}

	positions, _ := st.ListPositions(ctx, 7)
	if len(positions) != 3 {
		t.Errorf("len(positions) = %d, want 3", len(positions))
	}
}
