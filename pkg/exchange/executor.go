package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/catalog"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

const executorComponentName = "exchange.executor"

// OrderRequest is what the command surface submits. Quantity is snapped
// to the instrument's lot step before validation.
type OrderRequest struct {
	AccountID   string             `json:"account_id"`
	Symbol      string             `json:"symbol"`
	Side        common.OrderSide   `json:"side"`
	Type        common.OrderType   `json:"type"`
	Quantity    fixed.Point        `json:"quantity"`
	LimitPrice  fixed.Point        `json:"limit_price,omitempty"`
	StopPrice   fixed.Point        `json:"stop_price,omitempty"`
	TimeInForce common.TimeInForce `json:"time_in_force,omitempty"`
	ExpiresAt   time.Time          `json:"expires_at,omitempty"`
	TakeProfit  fixed.Point        `json:"take_profit,omitempty"`
	StopLoss    fixed.Point        `json:"stop_loss,omitempty"`
}

// Executor validates orders, fills market orders immediately against the
// current tick and parks limit/stop orders for SweepPending. Fills flow
// through the position book under the account lock.
type Executor struct {
	router      *bus.Router
	instruments *catalog.Catalog
	quotes      QuoteProvider
	accounts    *AccountBook
	book        *PositionBook
	orders      OrderStore

	mu      sync.Mutex
	pending map[common.OrderID]*common.Order
}

func NewExecutor(router *bus.Router, instruments *catalog.Catalog, quotes QuoteProvider, accounts *AccountBook, book *PositionBook, orders OrderStore) *Executor {
	return &Executor{
		router:      router,
		instruments: instruments,
		quotes:      quotes,
		accounts:    accounts,
		book:        book,
		orders:      orders,
		pending:     make(map[common.OrderID]*common.Order),
	}
}

func (e *Executor) Submit(ctx context.Context, request OrderRequest) (common.Order, error) {
	instrument, ok := e.instruments.Get(request.Symbol)
	if !ok || !instrument.IsActive {
		return common.Order{}, fmt.Errorf("%w: instrument %s is not tradable", ErrValidation, request.Symbol)
	}
	if _, err := e.accounts.Account(request.AccountID); err != nil {
		return common.Order{}, err
	}
	if request.Side != common.OrderSideBuy && request.Side != common.OrderSideSell {
		return common.Order{}, fmt.Errorf("%w: unknown order side %q", ErrValidation, request.Side)
	}

	quantity := snapToLotStep(request.Quantity, instrument.LotStep)
	if !quantity.IsPositive() || quantity.Lt(instrument.MinLot) {
		return common.Order{}, fmt.Errorf("%w: quantity %s is below minimum lot %s", ErrValidation, request.Quantity, instrument.MinLot)
	}

	switch request.Type {
	case common.OrderTypeMarket:
	case common.OrderTypeLimit:
		if !request.LimitPrice.IsPositive() {
			return common.Order{}, fmt.Errorf("%w: limit order requires a positive limit price", ErrValidation)
		}
	case common.OrderTypeStop:
		if !request.StopPrice.IsPositive() {
			return common.Order{}, fmt.Errorf("%w: stop order requires a positive stop price", ErrValidation)
		}
	default:
		return common.Order{}, fmt.Errorf("%w: unknown order type %q", ErrValidation, request.Type)
	}

	tick, err := e.quotes.Tick(instrument.Symbol)
	if err != nil {
		return common.Order{}, fmt.Errorf("%w: %s", ErrPriceUnavailable, instrument.Symbol)
	}

	timeInForce := request.TimeInForce
	if timeInForce == "" {
		timeInForce = common.TimeInForceGoodTillCancel
	}
	order := common.Order{
		ID:          uuid.Must(uuid.NewV7()),
		AccountID:   request.AccountID,
		Symbol:      instrument.Symbol,
		Side:        request.Side,
		Type:        request.Type,
		Status:      common.OrderStatusPending,
		Quantity:    quantity,
		LimitPrice:  request.LimitPrice,
		StopPrice:   request.StopPrice,
		TimeInForce: timeInForce,
		ExpiresAt:   request.ExpiresAt,
		TakeProfit:  request.TakeProfit,
		StopLoss:    request.StopLoss,
		CreatedAt:   time.Now(),
	}

	if order.Type == common.OrderTypeMarket {
		return e.fill(ctx, order, instrument, fillPrice(order.Side, tick), order.Quantity)
	}

	if price, crossed := crossingPrice(order, tick); crossed {
		return e.fill(ctx, order, instrument, price, order.Quantity)
	}
	if timeInForce == common.TimeInForceImmediateOrCancel {
		order.Status = common.OrderStatusCanceled
		if err := e.orders.UpsertOrder(ctx, order); err != nil {
			return common.Order{}, fmt.Errorf("unable to persist order %s: %w", order.ID, err)
		}
		e.postUpdate(order)
		return order, nil
	}

	order.Status = common.OrderStatusOpen
	if err := e.orders.UpsertOrder(ctx, order); err != nil {
		return common.Order{}, fmt.Errorf("unable to persist order %s: %w", order.ID, err)
	}
	e.mu.Lock()
	parked := order
	e.pending[order.ID] = &parked
	e.mu.Unlock()
	e.postUpdate(order)
	return order, nil
}

// Cancel withdraws a parked limit/stop order. Orders that already
// reached a terminal state cannot be canceled.
func (e *Executor) Cancel(ctx context.Context, accountID string, orderID common.OrderID) (common.Order, error) {
	e.mu.Lock()
	parked, ok := e.pending[orderID]
	if !ok || parked.AccountID != accountID {
		e.mu.Unlock()
		return common.Order{}, fmt.Errorf("%w: open order %s", ErrNotFound, orderID)
	}
	order := *parked
	delete(e.pending, orderID)
	e.mu.Unlock()

	order.Status = common.OrderStatusCanceled
	if err := e.orders.UpsertOrder(ctx, order); err != nil {
		return common.Order{}, fmt.Errorf("unable to persist order %s: %w", order.ID, err)
	}
	e.postUpdate(order)
	return order, nil
}

// SweepPending evaluates parked orders against current ticks, expiring
// GTD orders past their deadline and filling those whose crossing
// condition holds. One bad order never halts the sweep.
func (e *Executor) SweepPending(ctx context.Context) {
	e.mu.Lock()
	parked := make([]common.Order, 0, len(e.pending))
	for _, order := range e.pending {
		parked = append(parked, *order)
	}
	e.mu.Unlock()

	now := time.Now()
	for _, order := range parked {
		if order.TimeInForce == common.TimeInForceGoodTillDate && !order.ExpiresAt.IsZero() && now.After(order.ExpiresAt) {
			e.expire(ctx, order)
			continue
		}

		tick, err := e.quotes.Tick(order.Symbol)
		if err != nil {
			continue
		}
		price, crossed := crossingPrice(order, tick)
		if !crossed {
			continue
		}
		if _, err := e.fill(ctx, order, mustInstrument(e.instruments, order.Symbol), price, order.Remaining()); err != nil {
			slog.Warn("unable to fill parked order",
				"component", executorComponentName, "order_id", order.ID, "error", err)
		}
	}
}

// PendingOrders returns copies of the parked limit/stop orders.
func (e *Executor) PendingOrders() []common.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	orders := make([]common.Order, 0, len(e.pending))
	for _, order := range e.pending {
		orders = append(orders, *order)
	}
	return orders
}

// fill applies one execution: order bookkeeping first, then the
// position apply under the account lock. When the position apply fails
// the previous order snapshot is written back so the order does not
// stay marked filled without a matching position.
func (e *Executor) fill(ctx context.Context, order common.Order, instrument common.Instrument, price, quantity fixed.Point) (common.Order, error) {
	before := order
	now := time.Now()

	filledNotional := order.AvgFillPrice.Mul(order.FilledQuantity).Add(price.Mul(quantity))
	order.FilledQuantity = order.FilledQuantity.Add(quantity)
	order.AvgFillPrice = filledNotional.Div(order.FilledQuantity)
	if order.FilledQuantity.Gte(order.Quantity) {
		order.Status = common.OrderStatusFilled
		order.FilledAt = now
	} else {
		order.Status = common.OrderStatusPartiallyFilled
	}

	if err := e.orders.UpsertOrder(ctx, order); err != nil {
		return common.Order{}, fmt.Errorf("unable to persist order %s: %w", order.ID, err)
	}

	err := e.accounts.Update(ctx, order.AccountID, func(ctx context.Context, account *common.Account) error {
		_, err := e.book.ApplyFill(ctx, account, Fill{
			OrderID:    order.ID,
			Instrument: instrument,
			Side:       order.Side,
			Quantity:   quantity,
			Price:      price,
			TakeProfit: order.TakeProfit,
			StopLoss:   order.StopLoss,
			At:         now,
		})
		return err
	})
	if err != nil {
		if revertErr := e.orders.UpsertOrder(ctx, before); revertErr != nil {
			slog.Error("unable to revert order after failed fill",
				"component", executorComponentName, "order_id", order.ID, "error", revertErr)
		}
		return common.Order{}, err
	}

	e.mu.Lock()
	if order.Status.IsTerminal() {
		delete(e.pending, order.ID)
	} else {
		parked := order
		e.pending[order.ID] = &parked
	}
	e.mu.Unlock()

	e.postUpdate(order)
	return order, nil
}

func (e *Executor) expire(ctx context.Context, order common.Order) {
	e.mu.Lock()
	delete(e.pending, order.ID)
	e.mu.Unlock()

	order.Status = common.OrderStatusExpired
	if err := e.orders.UpsertOrder(ctx, order); err != nil {
		slog.Warn("unable to persist expired order",
			"component", executorComponentName, "order_id", order.ID, "error", err)
	}
	e.postUpdate(order)
}

func (e *Executor) postUpdate(order common.Order) {
	if err := e.router.Post(bus.OrderUpdateEvent, order); err != nil {
		slog.Warn("unable to post order update",
			"component", executorComponentName, "order_id", order.ID, "error", err)
	}
}

// crossingPrice reports whether a parked order triggers on the tick.
// Limit orders fill at their limit price, stop orders at the market.
func crossingPrice(order common.Order, tick common.Tick) (fixed.Point, bool) {
	switch order.Type {
	case common.OrderTypeLimit:
		if order.Side == common.OrderSideBuy && tick.Ask.Lte(order.LimitPrice) {
			return order.LimitPrice, true
		}
		if order.Side == common.OrderSideSell && tick.Bid.Gte(order.LimitPrice) {
			return order.LimitPrice, true
		}
	case common.OrderTypeStop:
		if order.Side == common.OrderSideBuy && tick.Ask.Gte(order.StopPrice) {
			return tick.Ask, true
		}
		if order.Side == common.OrderSideSell && tick.Bid.Lte(order.StopPrice) {
			return tick.Bid, true
		}
	}
	return fixed.Zero, false
}

func fillPrice(side common.OrderSide, tick common.Tick) fixed.Point {
	if side == common.OrderSideBuy {
		return tick.Ask
	}
	return tick.Bid
}

func snapToLotStep(quantity, lotStep fixed.Point) fixed.Point {
	if !lotStep.IsPositive() {
		return quantity
	}
	steps := quantity.Div(lotStep).RoundHalfUp(0)
	return steps.Mul(lotStep)
}

func mustInstrument(instruments *catalog.Catalog, symbol string) common.Instrument {
	instrument, _ := instruments.Get(symbol)
	return instrument
}
