package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/meridianfx/meridian/pkg/common"
)

type candleKey struct {
	symbol    string
	timeframe common.Timeframe
	openTime  int64
}

// Store is the in-memory backend used when no database is configured
// and by tests. It implements every write-side interface the engine
// consumes and enforces the ledger chain invariant on append.
type Store struct {
	mu        sync.RWMutex
	accounts  map[string]common.Account
	orders    map[common.OrderID]common.Order
	positions map[common.PositionID]common.Position
	trades    []common.Trade
	ledgers   map[string][]common.LedgerEntry
	candles   map[candleKey]common.Candle
}

func NewStore() *Store {
	return &Store{
		accounts:  make(map[string]common.Account),
		orders:    make(map[common.OrderID]common.Order),
		positions: make(map[common.PositionID]common.Position),
		ledgers:   make(map[string][]common.LedgerEntry),
		candles:   make(map[candleKey]common.Candle),
	}
}

func (s *Store) UpsertAccount(_ context.Context, account common.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	return nil
}

func (s *Store) Account(_ context.Context, id string) (common.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return common.Account{}, fmt.Errorf("account %s does not exist", id)
	}
	return account, nil
}

func (s *Store) UpsertOrder(_ context.Context, order common.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
	return nil
}

func (s *Store) Order(_ context.Context, id common.OrderID) (common.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return common.Order{}, fmt.Errorf("order %s does not exist", id)
	}
	return order, nil
}

// Orders returns the account's order history, newest first.
func (s *Store) Orders(_ context.Context, accountID string) ([]common.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]common.Order, 0, 8)
	for _, order := range s.orders {
		if order.AccountID == accountID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (s *Store) UpsertPosition(_ context.Context, position common.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[position.ID] = position
	return nil
}

func (s *Store) Positions(_ context.Context, accountID string, openOnly bool) ([]common.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make([]common.Position, 0, 8)
	for _, position := range s.positions {
		if position.AccountID != accountID {
			continue
		}
		if openOnly && !position.IsOpen() {
			continue
		}
		positions = append(positions, position)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].OpenedAt.Before(positions[j].OpenedAt) })
	return positions, nil
}

func (s *Store) InsertTrade(_ context.Context, trade common.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trade)
	return nil
}

func (s *Store) Trades(_ context.Context, accountID string) ([]common.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := make([]common.Trade, 0, 8)
	for _, trade := range s.trades {
		if trade.AccountID == accountID {
			trades = append(trades, trade)
		}
	}
	return trades, nil
}

// ApplyEntry appends the ledger entry and moves the account balance to
// BalanceAfter. A break in the balance chain is rejected.
func (s *Store) ApplyEntry(_ context.Context, entry common.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.ledgers[entry.AccountID]
	if n := len(chain); n > 0 {
		expected := chain[n-1].BalanceAfter.Add(entry.Amount)
		if !entry.BalanceAfter.Eq(expected) {
			return fmt.Errorf("ledger chain broken for account %s: balance after %s, expected %s",
				entry.AccountID, entry.BalanceAfter, expected)
		}
	}
	s.ledgers[entry.AccountID] = append(chain, entry)

	account, ok := s.accounts[entry.AccountID]
	if ok {
		account.Balance = entry.BalanceAfter
		s.accounts[entry.AccountID] = account
	}
	return nil
}

// LedgerEntries returns the account's ledger in append order.
func (s *Store) LedgerEntries(_ context.Context, accountID string) ([]common.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.ledgers[accountID]
	entries := make([]common.LedgerEntry, len(chain))
	copy(entries, chain)
	return entries, nil
}

// UpsertCandle keeps the first write per (symbol, timeframe, open time),
// a replayed flush of the same bucket is a no-op.
func (s *Store) UpsertCandle(_ context.Context, candle common.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := candleKey{symbol: candle.Symbol, timeframe: candle.Timeframe, openTime: candle.OpenTime.UnixNano()}
	if _, ok := s.candles[key]; ok {
		return nil
	}
	s.candles[key] = candle
	return nil
}

// Candles returns the stored candles of one (symbol, timeframe) with
// open time in [from, to), ordered by open time.
func (s *Store) Candles(_ context.Context, symbol string, timeframe common.Timeframe, from, to time.Time) ([]common.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candles := make([]common.Candle, 0, 16)
	for key, candle := range s.candles {
		if key.symbol != symbol || key.timeframe != timeframe {
			continue
		}
		if candle.OpenTime.Before(from) || !candle.OpenTime.Before(to) {
			continue
		}
		candles = append(candles, candle)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].OpenTime.Before(candles[j].OpenTime) })
	return candles, nil
}
