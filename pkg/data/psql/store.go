package psql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/meridianfx/meridian/pkg/common"
)

func Connect(ctx context.Context, host, port, user, pass, db string) (*sqlx.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, pass, db)
	conn, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// Store is the PostgreSQL accounting backend: accounts, orders,
// positions, trades and the ledger. Candle history lives in DuckDB.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("unable to migrate schema: %w", err)
	}
	return nil
}

func (s *Store) UpsertAccount(ctx context.Context, account common.Account) error {
	profile, err := json.Marshal(account.LeverageProfile)
	if err != nil {
		return fmt.Errorf("unable to encode leverage profile: %w", err)
	}

	query := `
	INSERT INTO accounts (id, balance, starting_balance, state, leverage_profile)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		balance = EXCLUDED.balance,
		starting_balance = EXCLUDED.starting_balance,
		state = EXCLUDED.state,
		leverage_profile = EXCLUDED.leverage_profile;
	`
	_, err = s.db.ExecContext(ctx, query,
		account.ID, account.Balance, account.StartingBalance, string(account.State), profile)
	return err
}

func (s *Store) Account(ctx context.Context, id string) (common.Account, error) {
	query := `SELECT id, balance, starting_balance, state, leverage_profile FROM accounts WHERE id = $1`

	var account common.Account
	var profile []byte
	row := s.db.QueryRowxContext(ctx, query, id)
	if err := row.Scan(&account.ID, &account.Balance, &account.StartingBalance, &account.State, &profile); err != nil {
		return common.Account{}, err
	}
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &account.LeverageProfile); err != nil {
			return common.Account{}, fmt.Errorf("unable to decode leverage profile: %w", err)
		}
	}
	return account, nil
}

func (s *Store) Accounts(ctx context.Context) ([]common.Account, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT id, balance, starting_balance, state, leverage_profile FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var accounts []common.Account
	for rows.Next() {
		var account common.Account
		var profile []byte
		if err := rows.Scan(&account.ID, &account.Balance, &account.StartingBalance, &account.State, &profile); err != nil {
			return nil, err
		}
		if len(profile) > 0 {
			if err := json.Unmarshal(profile, &account.LeverageProfile); err != nil {
				return nil, fmt.Errorf("unable to decode leverage profile: %w", err)
			}
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *Store) UpsertOrder(ctx context.Context, order common.Order) error {
	query := `
	INSERT INTO orders (
		id, account_id, symbol, side, order_type, status, quantity,
		limit_price, stop_price, time_in_force, expires_at,
		filled_quantity, avg_fill_price, take_profit, stop_loss,
		created_at, filled_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		filled_quantity = EXCLUDED.filled_quantity,
		avg_fill_price = EXCLUDED.avg_fill_price,
		filled_at = EXCLUDED.filled_at;
	`
	_, err := s.db.ExecContext(ctx, query,
		order.ID, order.AccountID, order.Symbol, string(order.Side), string(order.Type),
		string(order.Status), order.Quantity, order.LimitPrice, order.StopPrice,
		string(order.TimeInForce), order.ExpiresAt, order.FilledQuantity,
		order.AvgFillPrice, order.TakeProfit, order.StopLoss, order.CreatedAt, order.FilledAt)
	return err
}

func (s *Store) Orders(ctx context.Context, accountID string) ([]common.Order, error) {
	query := `
	SELECT id, account_id, symbol, side, order_type, status, quantity,
	       limit_price, stop_price, time_in_force, expires_at,
	       filled_quantity, avg_fill_price, take_profit, stop_loss,
	       created_at, filled_at
	FROM orders WHERE account_id = $1 ORDER BY created_at DESC;
	`
	var orders []common.Order
	if err := s.db.SelectContext(ctx, &orders, query, accountID); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) UpsertPosition(ctx context.Context, position common.Position) error {
	query := `
	INSERT INTO positions (
		id, account_id, symbol, side, status, quantity, avg_entry_price,
		current_price, unrealized_pnl, realized_pnl, swap_accrued,
		take_profit, stop_loss, trailing_stop, opened_at, closed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		quantity = EXCLUDED.quantity,
		avg_entry_price = EXCLUDED.avg_entry_price,
		current_price = EXCLUDED.current_price,
		unrealized_pnl = EXCLUDED.unrealized_pnl,
		realized_pnl = EXCLUDED.realized_pnl,
		swap_accrued = EXCLUDED.swap_accrued,
		take_profit = EXCLUDED.take_profit,
		stop_loss = EXCLUDED.stop_loss,
		trailing_stop = EXCLUDED.trailing_stop,
		closed_at = EXCLUDED.closed_at;
	`
	_, err := s.db.ExecContext(ctx, query,
		position.ID, position.AccountID, position.Symbol, string(position.Side),
		string(position.Status), position.Quantity, position.AvgEntryPrice,
		position.CurrentPrice, position.UnrealizedPnl, position.RealizedPnl,
		position.SwapAccrued, position.TakeProfit, position.StopLoss,
		position.TrailingStop, position.OpenedAt, position.ClosedAt)
	return err
}

func (s *Store) Positions(ctx context.Context, accountID string, openOnly bool) ([]common.Position, error) {
	query := `
	SELECT id, account_id, symbol, side, status, quantity, avg_entry_price,
	       current_price, unrealized_pnl, realized_pnl, swap_accrued,
	       take_profit, stop_loss, trailing_stop, opened_at, closed_at
	FROM positions WHERE account_id = $1
	`
	if openOnly {
		query += ` AND status = 'open'`
	}
	query += ` ORDER BY opened_at;`

	var positions []common.Position
	if err := s.db.SelectContext(ctx, &positions, query, accountID); err != nil {
		return nil, err
	}
	return positions, nil
}

func (s *Store) InsertTrade(ctx context.Context, trade common.Trade) error {
	query := `
	INSERT INTO trades (
		id, account_id, symbol, position_id, order_id, side, kind,
		quantity, price, realized_pnl, executed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO NOTHING;
	`
	_, err := s.db.ExecContext(ctx, query,
		trade.ID, trade.AccountID, trade.Symbol, trade.PositionID, trade.OrderID,
		string(trade.Side), string(trade.Kind), trade.Quantity, trade.Price,
		trade.RealizedPnl, trade.ExecutedAt)
	return err
}

func (s *Store) Trades(ctx context.Context, accountID string) ([]common.Trade, error) {
	query := `
	SELECT id, account_id, symbol, position_id, order_id, side, kind,
	       quantity, price, realized_pnl, executed_at
	FROM trades WHERE account_id = $1 ORDER BY executed_at;
	`
	var trades []common.Trade
	if err := s.db.SelectContext(ctx, &trades, query, accountID); err != nil {
		return nil, err
	}
	return trades, nil
}

// ApplyEntry appends the ledger entry and moves the account balance in
// one transaction, the pairing the chain invariant requires.
func (s *Store) ApplyEntry(ctx context.Context, entry common.LedgerEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("unable to encode ledger metadata: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO ledger_entries (
		id, account_id, entry_type, amount, balance_after,
		reference_id, reference_type, description, metadata, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO NOTHING;
	`
	if _, err := tx.ExecContext(ctx, query,
		entry.ID, entry.AccountID, string(entry.EntryType), entry.Amount,
		entry.BalanceAfter, entry.ReferenceID, entry.ReferenceType,
		entry.Description, metadata, entry.CreatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1 WHERE id = $2`,
		entry.BalanceAfter, entry.AccountID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) LedgerEntries(ctx context.Context, accountID string) ([]common.LedgerEntry, error) {
	query := `
	SELECT id, account_id, entry_type, amount, balance_after,
	       reference_id, reference_type, description, metadata, created_at
	FROM ledger_entries WHERE account_id = $1 ORDER BY created_at, id;
	`
	rows, err := s.db.QueryxContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []common.LedgerEntry
	for rows.Next() {
		var entry common.LedgerEntry
		var metadata []byte
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.EntryType, &entry.Amount,
			&entry.BalanceAfter, &entry.ReferenceID, &entry.ReferenceType,
			&entry.Description, &metadata, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unable to decode ledger metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
