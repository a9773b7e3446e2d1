package risk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/catalog"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/exchange"
	"github.com/meridianfx/meridian/pkg/utility"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

const engineComponentName = "risk.engine"

// Solvency thresholds in percent of margin level.
var (
	marginCallLevel = fixed.Hundred
	stopOutLevel    = fixed.Fifty
)

var defaultLeverage = fixed.FromInt(100, 0)

// Engine computes account solvency metrics, drives the account state
// machine and force-closes positions when the margin level falls below
// the stop-out threshold.
type Engine struct {
	router      *bus.Router
	instruments *catalog.Catalog
	quotes      exchange.QuoteProvider
	accounts    *exchange.AccountBook
	book        *exchange.PositionBook
}

func NewEngine(router *bus.Router, instruments *catalog.Catalog, quotes exchange.QuoteProvider, accounts *exchange.AccountBook, book *exchange.PositionBook) *Engine {
	return &Engine{
		router:      router,
		instruments: instruments,
		quotes:      quotes,
		accounts:    accounts,
		book:        book,
	}
}

// Metrics is the read-only solvency snapshot for one account.
func (e *Engine) Metrics(ctx context.Context, accountID string) (common.AccountMetrics, error) {
	account, err := e.accounts.Account(accountID)
	if err != nil {
		return common.AccountMetrics{}, err
	}
	return e.compute(account), nil
}

// Evaluate recomputes metrics under the account lock and applies state
// transitions: margin level below 100% raises a margin call, below 50%
// triggers the stop-out loop. The resulting snapshot is posted as a
// metrics event.
func (e *Engine) Evaluate(ctx context.Context, accountID string) (common.AccountMetrics, error) {
	var metrics common.AccountMetrics
	err := e.accounts.Update(ctx, accountID, func(ctx context.Context, account *common.Account) error {
		metrics = e.compute(*account)

		if metrics.UsedMargin.IsPositive() && metrics.MarginLevel.Lt(stopOutLevel) {
			account.State = common.AccountStateLiquidation
			metrics = e.stopOut(ctx, account)
		}

		switch {
		case !metrics.UsedMargin.IsPositive():
			account.State = common.AccountStateActive
		case metrics.MarginLevel.Lt(stopOutLevel):
			// A forced close failed or had no quote; stay flagged until
			// the next sweep finishes the job.
			account.State = common.AccountStateLiquidation
		case metrics.MarginLevel.Lt(marginCallLevel):
			if account.State == common.AccountStateActive {
				slog.Warn("margin call",
					"component", engineComponentName,
					"account_id", account.ID,
					"margin_level", metrics.MarginLevel)
			}
			account.State = common.AccountStateMarginCall
		default:
			account.State = common.AccountStateActive
		}
		metrics.State = account.State
		return nil
	})
	if err != nil {
		return common.AccountMetrics{}, err
	}

	if err := e.router.Post(bus.MetricsEvent, metrics); err != nil {
		slog.Warn("unable to post metrics event",
			"component", engineComponentName, "account_id", accountID, "error", err)
	}
	return metrics, nil
}

// SweepAll evaluates every account, isolating failures so one broken
// account cannot halt the batch.
func (e *Engine) SweepAll(ctx context.Context) {
	for _, account := range e.accounts.Accounts() {
		if _, err := e.Evaluate(ctx, account.ID); err != nil {
			slog.Error("risk evaluation failed",
				"component", engineComponentName, "account_id", account.ID, "error", err)
		}
	}
}

// Run periodically sweeps all accounts until the context is canceled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.SweepAll(ctx)
		}
	}
}

// OnOrderUpdate re-evaluates the account after a fill so a breach is
// caught without waiting for the next periodic sweep.
func (e *Engine) OnOrderUpdate(ctx context.Context, order common.Order) {
	if order.Status != common.OrderStatusFilled && order.Status != common.OrderStatusPartiallyFilled {
		return
	}
	if _, err := e.Evaluate(ctx, order.AccountID); err != nil {
		slog.Error("risk evaluation after fill failed",
			"component", engineComponentName, "account_id", order.AccountID, "error", err)
	}
}

// stopOut force-closes open positions worst unrealized PnL first,
// recomputing after each close, until the margin level recovers above
// the stop-out threshold or nothing is left to close. Each forced close
// books a liquidation ledger entry with the realized loss.
//
// A close that fails is left open for the next sweep rather than
// surfaced: its predecessors already persisted ledger entries, so the
// working copy with their balance must still commit or the in-memory
// balance diverges from the chain.
func (e *Engine) stopOut(ctx context.Context, account *common.Account) common.AccountMetrics {
	metrics := e.compute(*account)

	for metrics.UsedMargin.IsPositive() && metrics.MarginLevel.Lt(stopOutLevel) {
		worst, ok := e.worstPosition(account.ID)
		if !ok {
			break
		}
		tick, err := e.quotes.Tick(worst.Symbol)
		if err != nil {
			slog.Error("forced close has no quote",
				"component", engineComponentName,
				"account_id", account.ID,
				"symbol", worst.Symbol,
				"error", fmt.Errorf("%w: %s", exchange.ErrPriceUnavailable, worst.Symbol))
			break
		}
		price := tick.Bid
		if worst.Side == common.OrderSideSell {
			price = tick.Ask
		}

		closed, realized, err := e.book.CloseLocked(ctx, account, worst.ID, fixed.Zero, price, common.LedgerEntryLiquidation)
		if err != nil {
			slog.Error("forced close failed",
				"component", engineComponentName,
				"account_id", account.ID,
				"position_id", worst.ID,
				"symbol", worst.Symbol,
				"error", err)
			break
		}
		slog.Warn("position liquidated",
			"component", engineComponentName,
			"account_id", account.ID,
			"position_id", closed.ID,
			"symbol", closed.Symbol,
			"realized_pnl", realized)

		metrics = e.compute(*account)
	}
	return metrics
}

// worstPosition reprices every candidate at the current quote before
// ordering. The PnL cached in the book is only as fresh as the last tick
// dispatch and the sweep runs concurrently with it, so ordering by the
// cache could liquidate the wrong position.
func (e *Engine) worstPosition(accountID string) (common.Position, bool) {
	var worst common.Position
	var worstPnl fixed.Point
	found := false

	for _, position := range e.book.OpenPositions(accountID) {
		instrument, ok := e.instruments.Get(position.Symbol)
		if !ok {
			continue
		}
		pnl := pnlAt(position, e.markPrice(position), instrument.ContractSize)
		if !found || pnl.Lt(worstPnl) {
			worst = position
			worstPnl = pnl
			found = true
		}
	}
	return worst, found
}

// markPrice is the closable side of the latest quote, falling back to the
// position's last reprice when the board has no tick for the symbol.
func (e *Engine) markPrice(position common.Position) fixed.Point {
	mark := position.CurrentPrice
	if tick, err := e.quotes.Tick(position.Symbol); err == nil {
		mark = tick.Bid
		if position.Side == common.OrderSideSell {
			mark = tick.Ask
		}
	}
	return mark
}

func pnlAt(position common.Position, mark, contractSize fixed.Point) fixed.Point {
	diff := mark.Sub(position.AvgEntryPrice)
	if position.Side == common.OrderSideSell {
		diff = position.AvgEntryPrice.Sub(mark)
	}
	return diff.Mul(position.Quantity).Mul(contractSize)
}

// compute derives the solvency snapshot from the balance and the open
// positions repriced at the latest ticks. Margin level is zero by
// convention when no margin is in use.
func (e *Engine) compute(account common.Account) common.AccountMetrics {
	metrics := common.AccountMetrics{
		AccountID: account.ID,
		State:     account.State,
		Balance:   account.Balance,
		Equity:    account.Balance,

		Source:      engineComponentName,
		ExecutionID: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.Now(),
	}

	for _, position := range e.book.OpenPositions(account.ID) {
		instrument, ok := e.instruments.Get(position.Symbol)
		if !ok {
			continue
		}

		mark := e.markPrice(position)
		unrealized := pnlAt(position, mark, instrument.ContractSize)
		notional := mark.Mul(position.Quantity).Mul(instrument.ContractSize)
		metrics.UsedMargin = metrics.UsedMargin.Add(positionMargin(notional, instrument, account))
		metrics.UnrealizedPnl = metrics.UnrealizedPnl.Add(unrealized)
		metrics.OpenPositions++
	}

	metrics.Equity = account.Balance.Add(metrics.UnrealizedPnl)
	metrics.FreeMargin = metrics.Equity.Sub(metrics.UsedMargin)
	if metrics.UsedMargin.IsPositive() {
		metrics.MarginLevel = metrics.Equity.Div(metrics.UsedMargin).Mul(fixed.Hundred)
	}

	drawdown := account.StartingBalance.Sub(metrics.Equity)
	if drawdown.IsPositive() && account.StartingBalance.IsPositive() {
		metrics.Drawdown = drawdown
		metrics.DrawdownPercent = drawdown.Div(account.StartingBalance).Mul(fixed.Hundred)
	}
	return metrics
}

// positionMargin resolves the margin requirement: an explicit margin
// rate wins, then instrument leverage, then the account's per-class
// leverage profile, then the 1:100 default.
func positionMargin(notional fixed.Point, instrument common.Instrument, account common.Account) fixed.Point {
	if instrument.MarginRate.IsPositive() {
		return notional.Mul(instrument.MarginRate)
	}
	leverage := instrument.Leverage
	if !leverage.IsPositive() {
		leverage = account.LeverageProfile[instrument.AssetClass]
	}
	if !leverage.IsPositive() {
		leverage = defaultLeverage
	}
	return notional.Div(leverage)
}
