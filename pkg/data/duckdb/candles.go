package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/meridianfx/meridian/pkg/common"
	"github.com/meridianfx/meridian/pkg/utility/fixed"
)

const candleSchema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol    VARCHAR NOT NULL,
	timeframe VARCHAR NOT NULL,
	open_time TIMESTAMP NOT NULL,
	close_time TIMESTAMP NOT NULL,
	open   DOUBLE NOT NULL,
	high   DOUBLE NOT NULL,
	low    DOUBLE NOT NULL,
	close  DOUBLE NOT NULL,
	volume DOUBLE NOT NULL,
	PRIMARY KEY (symbol, timeframe, open_time)
);
`

// CandleStore keeps candle history in an embedded DuckDB file, away
// from the PostgreSQL accounting tables.
type CandleStore struct {
	dataSourceName string
	db             *sql.DB
}

func NewCandleStore(dataSourceName string) *CandleStore {
	return &CandleStore{dataSourceName: dataSourceName}
}

func (s *CandleStore) Connect(ctx context.Context) error {
	db, err := sql.Open("duckdb", s.dataSourceName)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	if _, err := db.ExecContext(ctx, candleSchema); err != nil {
		_ = db.Close()
		return fmt.Errorf("unable to create candle table: %w", err)
	}
	s.db = db
	return nil
}

func (s *CandleStore) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// UpsertCandle is a no-op when the (symbol, timeframe, open time) key
// already exists, replayed flushes never rewrite history.
func (s *CandleStore) UpsertCandle(ctx context.Context, candle common.Candle) error {
	query := `
	INSERT INTO candles (symbol, timeframe, open_time, close_time, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING;
	`
	open, _ := candle.Open.Float64()
	high, _ := candle.High.Float64()
	low, _ := candle.Low.Float64()
	closePrice, _ := candle.Close.Float64()
	volume, _ := candle.Volume.Float64()

	_, err := s.db.ExecContext(ctx, query,
		candle.Symbol, string(candle.Timeframe), candle.OpenTime.UTC(), candle.CloseTime.UTC(),
		open, high, low, closePrice, volume)
	if err != nil {
		return fmt.Errorf("unable to insert candle: %w", err)
	}
	return nil
}

// Candles returns one (symbol, timeframe) series with open time in
// [from, to), ordered by open time.
func (s *CandleStore) Candles(ctx context.Context, symbol string, timeframe common.Timeframe, from, to time.Time) ([]common.Candle, error) {
	query := `
	SELECT open_time, close_time, open, high, low, close, volume
	FROM candles
	WHERE symbol = ? AND timeframe = ? AND open_time >= ? AND open_time < ?
	ORDER BY open_time;
	`
	rows, err := s.db.QueryContext(ctx, query, symbol, string(timeframe), from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("error preparing query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candles []common.Candle
	for rows.Next() {
		var open, high, low, closePrice, volume float64
		candle := common.Candle{Symbol: symbol, Timeframe: timeframe}
		if err := rows.Scan(&candle.OpenTime, &candle.CloseTime, &open, &high, &low, &closePrice, &volume); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		candle.Open = fixed.FromFloat64(open)
		candle.High = fixed.FromFloat64(high)
		candle.Low = fixed.FromFloat64(low)
		candle.Close = fixed.FromFloat64(closePrice)
		candle.Volume = fixed.FromFloat64(volume)
		candles = append(candles, candle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning rows: %w", err)
	}
	return candles, nil
}
