package exchange

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/ledger"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

// AccountBook is the registry of trading accounts and the owner of the
// per-account serialization lock. Every operation that touches an
// account's balance, state or position set runs inside Update so two
// concurrent closes cannot double-credit the balance.
type AccountBook struct {
	store  AccountStore
	ledger *ledger.Writer

	mu      sync.RWMutex
	entries map[string]*accountEntry
}

type accountEntry struct {
	mu      sync.Mutex
	account common.Account
}

func NewAccountBook(store AccountStore, ledgerWriter *ledger.Writer) *AccountBook {
	return &AccountBook{
		store:   store,
		ledger:  ledgerWriter,
		entries: make(map[string]*accountEntry),
	}
}

// Open registers a new account. A non-zero starting balance is recorded
// as an initial deposit so the ledger chain starts at the balance.
func (b *AccountBook) Open(ctx context.Context, id string, startingBalance fixed.Point, leverageProfile map[common.AssetClass]fixed.Point) (common.Account, error) {
	if id == "" {
		return common.Account{}, fmt.Errorf("%w: account id is empty", ErrValidation)
	}
	if startingBalance.IsNegative() {
		return common.Account{}, fmt.Errorf("%w: starting balance %s is negative", ErrValidation, startingBalance)
	}

	account := common.Account{
		ID:              id,
		Balance:         fixed.Zero,
		StartingBalance: startingBalance,
		State:           common.AccountStateActive,
		LeverageProfile: leverageProfile,
	}

	b.mu.Lock()
	if _, ok := b.entries[id]; ok {
		b.mu.Unlock()
		return common.Account{}, fmt.Errorf("%w: account %s already exists", ErrValidation, id)
	}
	entry := &accountEntry{account: account}
	b.entries[id] = entry
	b.mu.Unlock()

	if err := b.store.UpsertAccount(ctx, account); err != nil {
		return common.Account{}, fmt.Errorf("unable to persist account %s: %w", id, err)
	}

	if startingBalance.IsPositive() {
		if _, err := b.Deposit(ctx, id, startingBalance, "initial deposit"); err != nil {
			return common.Account{}, err
		}
	}
	return b.Account(id)
}

func (b *AccountBook) Account(id string) (common.Account, error) {
	entry, err := b.entry(id)
	if err != nil {
		return common.Account{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.account, nil
}

func (b *AccountBook) Accounts() []common.Account {
	b.mu.RLock()
	accounts := make([]common.Account, 0, len(b.entries))
	for _, entry := range b.entries {
		entry.mu.Lock()
		accounts = append(accounts, entry.account)
		entry.mu.Unlock()
	}
	b.mu.RUnlock()

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts
}

// Update runs fn with the account lock held, on a working copy. The copy
// is persisted and committed only when fn succeeds, so a failed
// operation leaves no partial mutation behind.
func (b *AccountBook) Update(ctx context.Context, id string, fn func(ctx context.Context, account *common.Account) error) error {
	entry, err := b.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	account := entry.account
	if err := fn(ctx, &account); err != nil {
		return err
	}
	if err := b.store.UpsertAccount(ctx, account); err != nil {
		return fmt.Errorf("unable to persist account %s: %w", id, err)
	}
	entry.account = account
	return nil
}

func (b *AccountBook) Deposit(ctx context.Context, id string, amount fixed.Point, description string) (common.LedgerEntry, error) {
	if !amount.IsPositive() {
		return common.LedgerEntry{}, fmt.Errorf("%w: deposit amount %s must be positive", ErrValidation, amount)
	}
	return b.bookkeep(ctx, id, common.LedgerEntryDeposit, amount, description)
}

func (b *AccountBook) Withdraw(ctx context.Context, id string, amount fixed.Point, description string) (common.LedgerEntry, error) {
	if !amount.IsPositive() {
		return common.LedgerEntry{}, fmt.Errorf("%w: withdrawal amount %s must be positive", ErrValidation, amount)
	}

	var entry common.LedgerEntry
	err := b.Update(ctx, id, func(ctx context.Context, account *common.Account) error {
		if amount.Gt(account.Balance) {
			return fmt.Errorf("%w: withdrawal %s exceeds balance %s", ErrValidation, amount, account.Balance)
		}
		var err error
		entry, err = b.ledger.Append(ctx, ledger.Entry{
			AccountID:   id,
			EntryType:   common.LedgerEntryWithdrawal,
			Amount:      amount.Neg(),
			Balance:     account.Balance,
			Description: description,
		})
		if err != nil {
			return err
		}
		account.Balance = entry.BalanceAfter
		return nil
	})
	return entry, err
}

// Adjust credits or debits the account outside of trading, for example a
// manual correction. The sign of amount is taken as-is.
func (b *AccountBook) Adjust(ctx context.Context, id string, amount fixed.Point, description string) (common.LedgerEntry, error) {
	if amount.IsZero() {
		return common.LedgerEntry{}, fmt.Errorf("%w: adjustment amount is zero", ErrValidation)
	}
	return b.bookkeep(ctx, id, common.LedgerEntryAdjustment, amount, description)
}

func (b *AccountBook) bookkeep(ctx context.Context, id string, entryType common.LedgerEntryType, amount fixed.Point, description string) (common.LedgerEntry, error) {
	var entry common.LedgerEntry
	err := b.Update(ctx, id, func(ctx context.Context, account *common.Account) error {
		var err error
		entry, err = b.ledger.Append(ctx, ledger.Entry{
			AccountID:   id,
			EntryType:   entryType,
			Amount:      amount,
			Balance:     account.Balance,
			Description: description,
		})
		if err != nil {
			return err
		}
		account.Balance = entry.BalanceAfter
		return nil
	})
	return entry, err
}

func (b *AccountBook) entry(id string) (*accountEntry, error) {
	b.mu.RLock()
	entry, ok := b.entries[id]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: account %s", ErrNotFound, id)
	}
	return entry, nil
}
