package common

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

type LedgerEntryID = uuid.UUID

type LedgerEntryType string

const (
	LedgerEntryDeposit     LedgerEntryType = "deposit"
	LedgerEntryWithdrawal  LedgerEntryType = "withdrawal"
	LedgerEntryTradeOpen   LedgerEntryType = "trade_open"
	LedgerEntryTradeClose  LedgerEntryType = "trade_close"
	LedgerEntryCommission  LedgerEntryType = "commission"
	LedgerEntrySwap        LedgerEntryType = "swap"
	LedgerEntryAdjustment  LedgerEntryType = "adjustment"
	LedgerEntryLiquidation LedgerEntryType = "liquidation"
)

// LedgerMetadata is the execution snapshot attached to trade entries.
type LedgerMetadata struct {
	Symbol      string      `json:"symbol,omitempty"`
	Side        OrderSide   `json:"side,omitempty"`
	Quantity    fixed.Point `json:"quantity,omitempty"`
	Price       fixed.Point `json:"price,omitempty"`
	EntryPrice  fixed.Point `json:"entry_price,omitempty"`
	RealizedPnl fixed.Point `json:"realized_pnl,omitempty"`
	PositionID  string      `json:"position_id,omitempty"`
}

// LedgerEntry is one append-only accounting record. For every account the
// BalanceAfter of entry n equals BalanceAfter of entry n-1 plus Amount n;
// entries are never edited or deleted.
type LedgerEntry struct {
	ID            LedgerEntryID   `json:"id" db:"id"`
	AccountID     string          `json:"account_id" db:"account_id"`
	EntryType     LedgerEntryType `json:"entry_type" db:"entry_type"`
	Amount        fixed.Point     `json:"amount" db:"amount"`
	BalanceAfter  fixed.Point     `json:"balance_after" db:"balance_after"`
	ReferenceID   string          `json:"reference_id,omitempty" db:"reference_id"`
	ReferenceType string          `json:"reference_type,omitempty" db:"reference_type"`
	Description   string          `json:"description,omitempty" db:"description"`
	Metadata      LedgerMetadata  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
