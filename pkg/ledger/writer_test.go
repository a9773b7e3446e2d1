package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

type recordingStore struct {
	entries []common.LedgerEntry
	err     error
}

func (s *recordingStore) ApplyEntry(_ context.Context, entry common.LedgerEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestWriter_AppendChainsBalance(t *testing.T) {
	store := &recordingStore{}
	router := bus.NewRouter(16)
	writer := NewWriter(store, router)
	ctx := context.Background()

	first, err := writer.Append(ctx, Entry{
		AccountID: "acc-1",
		EntryType: common.LedgerEntryDeposit,
		Amount:    fixed.FromInt(1000, 0),
		Balance:   fixed.Zero,
	})
	require.NoError(t, err)
	require.True(t, first.BalanceAfter.Eq(fixed.FromInt(1000, 0)))
	assert.NotEqual(t, uuid.UUID{}, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := writer.Append(ctx, Entry{
		AccountID: "acc-1",
		EntryType: common.LedgerEntryTradeClose,
		Amount:    fixed.FromInt(-250, 0),
		Balance:   first.BalanceAfter,
	})
	require.NoError(t, err)
	require.True(t, second.BalanceAfter.Eq(fixed.FromInt(750, 0)))

	require.Len(t, store.entries, 2)
	require.True(t, store.entries[1].BalanceAfter.Eq(
		store.entries[0].BalanceAfter.Add(store.entries[1].Amount)))
}

func TestWriter_AppendCarriesMetadata(t *testing.T) {
	store := &recordingStore{}
	writer := NewWriter(store, bus.NewRouter(16))

	entry, err := writer.Append(context.Background(), Entry{
		AccountID:     "acc-1",
		EntryType:     common.LedgerEntryTradeClose,
		Amount:        fixed.FromInt(100, 0),
		Balance:       fixed.FromInt(10000, 0),
		ReferenceID:   "pos-1",
		ReferenceType: "position",
		Description:   "close EURUSD",
		Metadata: common.LedgerMetadata{
			Symbol:      "EURUSD",
			Side:        common.OrderSideBuy,
			RealizedPnl: fixed.FromInt(100, 0),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "pos-1", entry.ReferenceID)
	assert.Equal(t, "position", entry.ReferenceType)
	assert.Equal(t, "EURUSD", entry.Metadata.Symbol)
}

func TestWriter_AppendStoreFailure(t *testing.T) {
	storeErr := errors.New("connection reset")
	store := &recordingStore{err: storeErr}
	writer := NewWriter(store, bus.NewRouter(16))

	_, err := writer.Append(context.Background(), Entry{
		AccountID: "acc-1",
		EntryType: common.LedgerEntryDeposit,
		Amount:    fixed.FromInt(1, 0),
	})
	require.ErrorIs(t, err, storeErr)
	assert.Empty(t, store.entries)
}

func TestWriter_AppendPostsLedgerEvent(t *testing.T) {
	store := &recordingStore{}
	router := bus.NewRouter(16)
	writer := NewWriter(store, router)

	received := make(chan common.LedgerEntry, 1)
	router.OnLedgerEntry = func(_ context.Context, entry common.LedgerEntry) {
		received <- entry
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := router.Exec(ctx)

	_, err := writer.Append(ctx, Entry{
		AccountID: "acc-1",
		EntryType: common.LedgerEntryDeposit,
		Amount:    fixed.FromInt(42, 0),
	})
	require.NoError(t, err)

	select {
	case entry := <-received:
		assert.Equal(t, "acc-1", entry.AccountID)
		require.True(t, entry.Amount.Eq(fixed.FromInt(42, 0)))
	case err := <-errCh:
		t.Fatalf("router stopped: %v", err)
	case <-time.After(time.Second):
		t.Fatal("ledger event not dispatched")
	}
}
