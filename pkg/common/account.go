package common

import (
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

type AccountState string

const (
	AccountStateActive      AccountState = "active"
	AccountStateMarginCall  AccountState = "margin_call"
	AccountStateLiquidation AccountState = "liquidation"
)

// Account holds the balance and solvency state of one trading account.
// Balance is mutated only through ledger-backed operations.
type Account struct {
	ID              string                     `json:"id" db:"id"`
	Balance         fixed.Point                `json:"balance" db:"balance"`
	StartingBalance fixed.Point                `json:"starting_balance" db:"starting_balance"`
	State           AccountState               `json:"state" db:"state"`
	LeverageProfile map[AssetClass]fixed.Point `json:"leverage_profile,omitempty"`
}
