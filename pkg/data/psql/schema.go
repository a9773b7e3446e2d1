package psql

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id               TEXT PRIMARY KEY,
	balance          NUMERIC NOT NULL,
	starting_balance NUMERIC NOT NULL,
	state            TEXT NOT NULL,
	leverage_profile JSONB
);

CREATE TABLE IF NOT EXISTS orders (
	id              UUID PRIMARY KEY,
	account_id      TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	side            TEXT NOT NULL,
	order_type      TEXT NOT NULL,
	status          TEXT NOT NULL,
	quantity        NUMERIC NOT NULL,
	limit_price     NUMERIC NOT NULL,
	stop_price      NUMERIC NOT NULL,
	time_in_force   TEXT NOT NULL,
	expires_at      TIMESTAMPTZ NOT NULL,
	filled_quantity NUMERIC NOT NULL,
	avg_fill_price  NUMERIC NOT NULL,
	take_profit     NUMERIC NOT NULL,
	stop_loss       NUMERIC NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	filled_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_account_idx ON orders (account_id, created_at);

CREATE TABLE IF NOT EXISTS positions (
	id              UUID PRIMARY KEY,
	account_id      TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	side            TEXT NOT NULL,
	status          TEXT NOT NULL,
	quantity        NUMERIC NOT NULL,
	avg_entry_price NUMERIC NOT NULL,
	current_price   NUMERIC NOT NULL,
	unrealized_pnl  NUMERIC NOT NULL,
	realized_pnl    NUMERIC NOT NULL,
	swap_accrued    NUMERIC NOT NULL,
	take_profit     NUMERIC NOT NULL,
	stop_loss       NUMERIC NOT NULL,
	trailing_stop   NUMERIC NOT NULL,
	opened_at       TIMESTAMPTZ NOT NULL,
	closed_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS positions_account_idx ON positions (account_id, status);

CREATE TABLE IF NOT EXISTS trades (
	id           UUID PRIMARY KEY,
	account_id   TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	position_id  UUID NOT NULL,
	order_id     UUID NOT NULL,
	side         TEXT NOT NULL,
	kind         TEXT NOT NULL,
	quantity     NUMERIC NOT NULL,
	price        NUMERIC NOT NULL,
	realized_pnl NUMERIC NOT NULL,
	executed_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_account_idx ON trades (account_id, executed_at);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id             UUID PRIMARY KEY,
	account_id     TEXT NOT NULL,
	entry_type     TEXT NOT NULL,
	amount         NUMERIC NOT NULL,
	balance_after  NUMERIC NOT NULL,
	reference_id   TEXT NOT NULL DEFAULT '',
	reference_type TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	metadata       JSONB,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ledger_account_idx ON ledger_entries (account_id, created_at);
`
