package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/catalog"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/ledger"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

const bookComponentName = "exchange.book"

var daysPerYear = fixed.FromInt(365, 0)

type positionKey struct {
	accountID string
	symbol    string
	side      common.OrderSide
}

// Fill describes one execution to be applied to the book.
type Fill struct {
	OrderID    common.OrderID
	Instrument common.Instrument
	Side       common.OrderSide
	Quantity   fixed.Point
	Price      fixed.Point
	TakeProfit fixed.Point
	StopLoss   fixed.Point
	At         time.Time
}

// PositionBook nets fills into at most one open position per
// (account, symbol, side), reprices open positions against incoming
// ticks and realizes PnL on close. Balance mutations go through the
// ledger writer so the chain invariant holds.
type PositionBook struct {
	router      *bus.Router
	instruments *catalog.Catalog
	quotes      QuoteProvider
	accounts    *AccountBook
	positions   PositionStore
	trades      TradeStore
	ledger      *ledger.Writer

	mu      sync.Mutex
	byID    map[common.PositionID]*common.Position
	open    map[positionKey]*common.Position
	swapDay map[common.PositionID]time.Time
}

func NewPositionBook(router *bus.Router, instruments *catalog.Catalog, quotes QuoteProvider, accounts *AccountBook, positions PositionStore, trades TradeStore, ledgerWriter *ledger.Writer) *PositionBook {
	return &PositionBook{
		router:      router,
		instruments: instruments,
		quotes:      quotes,
		accounts:    accounts,
		positions:   positions,
		trades:      trades,
		ledger:      ledgerWriter,
		byID:        make(map[common.PositionID]*common.Position),
		open:        make(map[positionKey]*common.Position),
		swapDay:     make(map[common.PositionID]time.Time),
	}
}

// ApplyFill increases (or creates) the open position on the fill's
// (symbol, side) with a quantity-weighted average entry price. The
// caller must hold the account lock via AccountBook.Update. Nothing is
// committed in memory until every storage write has succeeded.
func (pb *PositionBook) ApplyFill(ctx context.Context, account *common.Account, fill Fill) (common.Position, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	key := positionKey{accountID: account.ID, symbol: fill.Instrument.Symbol, side: fill.Side}

	var position common.Position
	if existing, ok := pb.open[key]; ok {
		position = *existing
		total := position.Quantity.Add(fill.Quantity)
		notional := position.AvgEntryPrice.Mul(position.Quantity).Add(fill.Price.Mul(fill.Quantity))
		position.AvgEntryPrice = notional.Div(total)
		position.Quantity = total
	} else {
		position = common.Position{
			ID:            uuid.Must(uuid.NewV7()),
			AccountID:     account.ID,
			Symbol:        fill.Instrument.Symbol,
			Side:          fill.Side,
			Status:        common.PositionStatusOpen,
			Quantity:      fill.Quantity,
			AvgEntryPrice: fill.Price,
			TakeProfit:    fill.TakeProfit,
			StopLoss:      fill.StopLoss,
			OpenedAt:      fill.At,
		}
	}
	position.CurrentPrice = fill.Price
	position.UnrealizedPnl = unrealizedPnl(position, fill.Price, fill.Instrument.ContractSize)

	if err := pb.positions.UpsertPosition(ctx, position); err != nil {
		return common.Position{}, fmt.Errorf("unable to persist position %s: %w", position.ID, err)
	}
	trade := common.Trade{
		ID:         uuid.Must(uuid.NewV7()),
		AccountID:  account.ID,
		Symbol:     fill.Instrument.Symbol,
		PositionID: position.ID,
		OrderID:    fill.OrderID,
		Side:       fill.Side,
		Kind:       common.TradeKindOpen,
		Quantity:   fill.Quantity,
		Price:      fill.Price,
		ExecutedAt: fill.At,
	}
	if err := pb.trades.InsertTrade(ctx, trade); err != nil {
		return common.Position{}, fmt.Errorf("unable to persist trade %s: %w", trade.ID, err)
	}

	// Zero balance delta on open, the fill only moves money on close.
	entry, err := pb.ledger.Append(ctx, ledger.Entry{
		AccountID:     account.ID,
		EntryType:     common.LedgerEntryTradeOpen,
		Amount:        fixed.Zero,
		Balance:       account.Balance,
		ReferenceID:   position.ID.String(),
		ReferenceType: "position",
		Metadata: common.LedgerMetadata{
			Symbol:     fill.Instrument.Symbol,
			Side:       fill.Side,
			Quantity:   fill.Quantity,
			Price:      fill.Price,
			PositionID: position.ID.String(),
		},
	})
	if err != nil {
		return common.Position{}, err
	}
	account.Balance = entry.BalanceAfter

	if fill.Instrument.CommissionPerLot.IsPositive() {
		commission := fill.Instrument.CommissionPerLot.Mul(fill.Quantity)
		entry, err = pb.ledger.Append(ctx, ledger.Entry{
			AccountID:     account.ID,
			EntryType:     common.LedgerEntryCommission,
			Amount:        commission.Neg(),
			Balance:       account.Balance,
			ReferenceID:   position.ID.String(),
			ReferenceType: "position",
			Metadata: common.LedgerMetadata{
				Symbol:     fill.Instrument.Symbol,
				Side:       fill.Side,
				Quantity:   fill.Quantity,
				PositionID: position.ID.String(),
			},
		})
		if err != nil {
			return common.Position{}, err
		}
		account.Balance = entry.BalanceAfter
	}

	pb.commit(position)
	if _, ok := pb.swapDay[position.ID]; !ok {
		pb.swapDay[position.ID] = fill.At
	}
	pb.postUpdate(position)
	return position, nil
}

// Close realizes PnL at the current closable price, bid for a long and
// ask for a short. A zero quantity closes the whole position.
func (pb *PositionBook) Close(ctx context.Context, accountID string, positionID common.PositionID, quantity fixed.Point) (common.Position, error) {
	var closed common.Position
	err := pb.accounts.Update(ctx, accountID, func(ctx context.Context, account *common.Account) error {
		position, err := pb.Position(accountID, positionID)
		if err != nil {
			return err
		}
		tick, err := pb.quotes.Tick(position.Symbol)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrPriceUnavailable, position.Symbol)
		}
		closed, _, err = pb.CloseLocked(ctx, account, positionID, quantity, closePrice(position.Side, tick), common.LedgerEntryTradeClose)
		return err
	})
	return closed, err
}

// CloseLocked is the close path for callers that already hold the
// account lock, such as the risk engine's stop-out loop. entryType is
// trade_close for a voluntary close and liquidation for a forced one.
// Returns the updated position and the realized PnL of the closed part.
func (pb *PositionBook) CloseLocked(ctx context.Context, account *common.Account, positionID common.PositionID, quantity, price fixed.Point, entryType common.LedgerEntryType) (common.Position, fixed.Point, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	existing, ok := pb.byID[positionID]
	if !ok || existing.AccountID != account.ID {
		return common.Position{}, fixed.Zero, fmt.Errorf("%w: position %s", ErrNotFound, positionID)
	}
	if !existing.IsOpen() {
		return common.Position{}, fixed.Zero, fmt.Errorf("%w: position %s is already closed", ErrValidation, positionID)
	}

	position := *existing
	if quantity.IsZero() {
		quantity = position.Quantity
	}
	if quantity.IsNegative() || quantity.Gt(position.Quantity) {
		return common.Position{}, fixed.Zero, fmt.Errorf("%w: close quantity %s exceeds position quantity %s", ErrInsufficientState, quantity, position.Quantity)
	}

	instrument, ok := pb.instruments.Get(position.Symbol)
	if !ok {
		return common.Position{}, fixed.Zero, fmt.Errorf("%w: instrument %s", ErrNotFound, position.Symbol)
	}

	realized := unrealizedPnl(position, price, instrument.ContractSize).Div(position.Quantity).Mul(quantity)
	now := time.Now()

	position.Quantity = position.Quantity.Sub(quantity)
	position.RealizedPnl = position.RealizedPnl.Add(realized)
	position.CurrentPrice = price
	kind := common.TradeKindPartialClose
	fullClose := position.Quantity.IsZero()
	if fullClose {
		kind = common.TradeKindClose
		position.Status = common.PositionStatusClosed
		position.UnrealizedPnl = fixed.Zero
		position.ClosedAt = now
	} else {
		position.UnrealizedPnl = unrealizedPnl(position, price, instrument.ContractSize)
	}

	if err := pb.positions.UpsertPosition(ctx, position); err != nil {
		return common.Position{}, fixed.Zero, fmt.Errorf("unable to persist position %s: %w", position.ID, err)
	}
	trade := common.Trade{
		ID:          uuid.Must(uuid.NewV7()),
		AccountID:   account.ID,
		Symbol:      position.Symbol,
		PositionID:  position.ID,
		Side:        position.Side,
		Kind:        kind,
		Quantity:    quantity,
		Price:       price,
		RealizedPnl: realized,
		ExecutedAt:  now,
	}
	if err := pb.trades.InsertTrade(ctx, trade); err != nil {
		return common.Position{}, fixed.Zero, fmt.Errorf("unable to persist trade %s: %w", trade.ID, err)
	}

	entry, err := pb.ledger.Append(ctx, ledger.Entry{
		AccountID:     account.ID,
		EntryType:     entryType,
		Amount:        realized,
		Balance:       account.Balance,
		ReferenceID:   position.ID.String(),
		ReferenceType: "position",
		Metadata: common.LedgerMetadata{
			Symbol:      position.Symbol,
			Side:        position.Side,
			Quantity:    quantity,
			Price:       price,
			EntryPrice:  position.AvgEntryPrice,
			RealizedPnl: realized,
			PositionID:  position.ID.String(),
		},
	})
	if err != nil {
		return common.Position{}, fixed.Zero, err
	}
	account.Balance = entry.BalanceAfter

	if fullClose && !position.SwapAccrued.IsZero() {
		entry, err = pb.ledger.Append(ctx, ledger.Entry{
			AccountID:     account.ID,
			EntryType:     common.LedgerEntrySwap,
			Amount:        position.SwapAccrued,
			Balance:       account.Balance,
			ReferenceID:   position.ID.String(),
			ReferenceType: "position",
		})
		if err != nil {
			return common.Position{}, fixed.Zero, err
		}
		account.Balance = entry.BalanceAfter
	}

	pb.commit(position)
	if fullClose {
		delete(pb.swapDay, position.ID)
	}
	pb.postUpdate(position)
	return position, realized, nil
}

// OnTick reprices open positions of the tick's symbol and accrues swap
// once per elapsed day. In-memory only, durable state catches up on the
// next fill or close.
func (pb *PositionBook) OnTick(_ context.Context, tick common.Tick) {
	instrument, ok := pb.instruments.Get(tick.Symbol)
	if !ok {
		return
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()

	for _, position := range pb.open {
		if position.Symbol != tick.Symbol {
			continue
		}
		pb.accrueSwap(position, instrument, tick.TimeStamp)
		position.CurrentPrice = closePrice(position.Side, tick)
		position.UnrealizedPnl = unrealizedPnl(*position, position.CurrentPrice, instrument.ContractSize)
		pb.postUpdate(*position)
	}
}

func (pb *PositionBook) accrueSwap(position *common.Position, instrument common.Instrument, now time.Time) {
	since, ok := pb.swapDay[position.ID]
	if !ok {
		pb.swapDay[position.ID] = now
		return
	}
	days := int(now.Sub(since).Hours()) / 24
	if days <= 0 {
		return
	}

	rate := instrument.SwapLongRate
	if position.Side == common.OrderSideSell {
		rate = instrument.SwapShortRate
	}
	if !rate.IsZero() {
		swap := position.Notional(instrument.ContractSize).Mul(rate).MulInt(days).Div(daysPerYear)
		position.SwapAccrued = position.SwapAccrued.Add(swap)
	}
	pb.swapDay[position.ID] = since.Add(time.Duration(days) * 24 * time.Hour)
}

func (pb *PositionBook) Position(accountID string, positionID common.PositionID) (common.Position, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	position, ok := pb.byID[positionID]
	if !ok || position.AccountID != accountID {
		return common.Position{}, fmt.Errorf("%w: position %s", ErrNotFound, positionID)
	}
	return *position, nil
}

// OpenPositions returns copies of the account's open positions, sorted
// by open time so the stop-out order is deterministic across equal PnL.
func (pb *PositionBook) OpenPositions(accountID string) []common.Position {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	positions := make([]common.Position, 0, 4)
	for _, position := range pb.open {
		if position.AccountID == accountID {
			positions = append(positions, *position)
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].OpenedAt.Before(positions[j].OpenedAt)
	})
	return positions
}

func (pb *PositionBook) commit(position common.Position) {
	stored := position
	pb.byID[position.ID] = &stored
	key := positionKey{accountID: position.AccountID, symbol: position.Symbol, side: position.Side}
	if position.IsOpen() {
		pb.open[key] = &stored
	} else {
		delete(pb.open, key)
	}
}

func (pb *PositionBook) postUpdate(position common.Position) {
	if err := pb.router.Post(bus.PositionUpdateEvent, position); err != nil {
		slog.Warn("unable to post position update",
			"component", bookComponentName, "position_id", position.ID, "error", err)
	}
}

// unrealizedPnl is (mark - entry) x qty x contract size for a long and
// the negation for a short.
func unrealizedPnl(position common.Position, mark, contractSize fixed.Point) fixed.Point {
	diff := mark.Sub(position.AvgEntryPrice)
	if position.Side == common.OrderSideSell {
		diff = position.AvgEntryPrice.Sub(mark)
	}
	return diff.Mul(position.Quantity).Mul(contractSize)
}

func closePrice(side common.OrderSide, tick common.Tick) fixed.Point {
	if side == common.OrderSideBuy {
		return tick.Bid
	}
	return tick.Ask
}
