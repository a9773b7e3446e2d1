package exchange

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/catalog"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/data/memory"
	"github.com/meridianfx/meridian/pkg/ledger"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

const testAccountID = "acc-1"

type stubQuotes struct {
	mu    sync.Mutex
	ticks map[string]common.Tick
}

func newStubQuotes() *stubQuotes {
	return &stubQuotes{ticks: make(map[string]common.Tick)}
}

func (s *stubQuotes) set(symbol string, bid, ask float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks[symbol] = common.Tick{
		Symbol:    symbol,
		Bid:       fixed.FromFloat64(bid),
		Ask:       fixed.FromFloat64(ask),
		Mid:       fixed.FromFloat64((bid + ask) / 2),
		TimeStamp: time.Now(),
	}
}

func (s *stubQuotes) Tick(symbol string) (common.Tick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tick, ok := s.ticks[symbol]
	if !ok {
		return common.Tick{}, ErrPriceUnavailable
	}
	return tick, nil
}

type fixture struct {
	router   *bus.Router
	store    *memory.Store
	quotes   *stubQuotes
	accounts *AccountBook
	book     *PositionBook
	executor *Executor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	instruments, err := catalog.New([]common.Instrument{
		{
			Symbol:         "EURUSD",
			AssetClass:     common.AssetClassFx,
			PricePrecision: 5,
			MinLot:         fixed.FromFloat64(0.01),
			LotStep:        fixed.FromFloat64(0.01),
			ContractSize:   fixed.FromInt(100000, 0),
			Leverage:       fixed.FromInt(100, 0),
			IsActive:       true,
		},
		{
			Symbol:           "XAUUSD",
			AssetClass:       common.AssetClassMetals,
			PricePrecision:   2,
			MinLot:           fixed.FromFloat64(0.01),
			LotStep:          fixed.FromFloat64(0.01),
			ContractSize:     fixed.FromInt(100, 0),
			Leverage:         fixed.FromInt(20, 0),
			CommissionPerLot: fixed.FromInt(7, 0),
			IsActive:         true,
		},
		{
			Symbol:         "USDJPY",
			AssetClass:     common.AssetClassFx,
			PricePrecision: 3,
			MinLot:         fixed.FromFloat64(0.01),
			LotStep:        fixed.FromFloat64(0.01),
			ContractSize:   fixed.FromInt(100000, 0),
			Leverage:       fixed.FromInt(100, 0),
			IsActive:       false,
		},
	})
	require.NoError(t, err)

	router := bus.NewRouter(4096)
	store := memory.NewStore()
	quotes := newStubQuotes()
	ledgerWriter := ledger.NewWriter(store, router)
	accounts := NewAccountBook(store, ledgerWriter)
	book := NewPositionBook(router, instruments, quotes, accounts, store, store, ledgerWriter)
	executor := NewExecutor(router, instruments, quotes, accounts, book, store)

	_, err = accounts.Open(context.Background(), testAccountID, fixed.FromInt(10000, 0), nil)
	require.NoError(t, err)

	return &fixture{
		router:   router,
		store:    store,
		quotes:   quotes,
		accounts: accounts,
		book:     book,
		executor: executor,
	}
}

func requireEq(t *testing.T, want, got fixed.Point) {
	t.Helper()
	require.True(t, want.Eq(got), "want %s, got %s", want, got)
}
