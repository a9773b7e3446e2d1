package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

const writerComponentName = "ledger.writer"

// Store persists one ledger entry and moves the account balance to
// entry.BalanceAfter in the same transaction. Entries are append-only;
// implementations must never update or delete prior rows.
type Store interface {
	ApplyEntry(ctx context.Context, entry common.LedgerEntry) error
}

// Writer is the only path through which account balances change. Every
// append links the chain: BalanceAfter = previous BalanceAfter + Amount.
type Writer struct {
	store  Store
	router *bus.Router
}

func NewWriter(store Store, router *bus.Router) *Writer {
	return &Writer{store: store, router: router}
}

// Entry describes one append. Balance is the account balance before the
// mutation; the caller must hold the account's serialization lock so no
// concurrent append can interleave.
type Entry struct {
	AccountID     string
	EntryType     common.LedgerEntryType
	Amount        fixed.Point
	Balance       fixed.Point
	ReferenceID   string
	ReferenceType string
	Description   string
	Metadata      common.LedgerMetadata
}

func (w *Writer) Append(ctx context.Context, e Entry) (common.LedgerEntry, error) {
	entry := common.LedgerEntry{
		ID:            uuid.Must(uuid.NewV7()),
		AccountID:     e.AccountID,
		EntryType:     e.EntryType,
		Amount:        e.Amount,
		BalanceAfter:  e.Balance.Add(e.Amount),
		ReferenceID:   e.ReferenceID,
		ReferenceType: e.ReferenceType,
		Description:   e.Description,
		Metadata:      e.Metadata,
		CreatedAt:     time.Now(),
	}

	if err := w.store.ApplyEntry(ctx, entry); err != nil {
		return common.LedgerEntry{}, fmt.Errorf("unable to append ledger entry for account %s: %w", e.AccountID, err)
	}

	if err := w.router.Post(bus.LedgerEvent, entry); err != nil {
		slog.Warn("unable to post ledger event",
			"component", writerComponentName, "account_id", e.AccountID, "error", err)
	}

	return entry, nil
}
