package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Cikle/Alpatrader/internal/models"
)

// SQLiteStore implements AuditStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed audit store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Effective signals observed per cycle
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		source TEXT NOT NULL,
		direction TEXT NOT NULL,
		effective_direction TEXT NOT NULL,
		magnitude REAL NOT NULL,
		confidence REAL NOT NULL,
		actor TEXT,
		role TEXT,
		signal_time DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Per-ticker decisions produced by the aggregator
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		tier TEXT NOT NULL,
		direction TEXT NOT NULL,
		confidence REAL NOT NULL,
		size_multiplier REAL NOT NULL,
		description TEXT,
		contributing TEXT, -- JSON
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Orders submitted to the broker
	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		side TEXT NOT NULL,
		asset_class TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		option_symbol TEXT,
		tag TEXT,
		order_id TEXT,
		accepted INTEGER NOT NULL,
		status TEXT,
		reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Exit triggers and the resulting close orders
	CREATE TABLE IF NOT EXISTS exits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle INTEGER NOT NULL,
		ticker TEXT NOT NULL,
		exit_reason TEXT NOT NULL,
		detail TEXT,
		quantity INTEGER NOT NULL,
		order_id TEXT,
		accepted INTEGER NOT NULL,
		status TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Trailing-stop high-water marks, restored on startup
	CREATE TABLE IF NOT EXISTS high_water_marks (
		ticker TEXT PRIMARY KEY,
		pl_percent REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_signals_cycle ON signals(cycle);
	CREATE INDEX IF NOT EXISTS idx_signals_ticker ON signals(ticker);
	CREATE INDEX IF NOT EXISTS idx_decisions_cycle ON decisions(cycle);
	CREATE INDEX IF NOT EXISTS idx_orders_ticker ON orders(ticker);
	CREATE INDEX IF NOT EXISTS idx_exits_ticker ON exits(ticker);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSignals records the cycle's effective signals in one transaction.
func (s *SQLiteStore) SaveSignals(ctx context.Context, cycle int64, signals []models.EffectiveSignal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (cycle, ticker, source, direction, effective_direction,
			magnitude, confidence, actor, role, signal_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing signal insert: %w", err)
	}
	defer stmt.Close()

	for _, sig := range signals {
		_, err := stmt.ExecContext(ctx, cycle, sig.Ticker, string(sig.Source),
			string(sig.Direction), string(sig.Effective), sig.Magnitude,
			sig.Confidence, sig.Actor, sig.Role, sig.Timestamp)
		if err != nil {
			return fmt.Errorf("inserting signal for %s: %w", sig.Ticker, err)
		}
	}
	return tx.Commit()
}

// SaveDecision records one aggregated decision.
func (s *SQLiteStore) SaveDecision(ctx context.Context, cycle int64, d models.Decision) error {
	contributing, err := json.Marshal(d.Contributing)
	if err != nil {
		return fmt.Errorf("encoding contributing signals: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (cycle, ticker, tier, direction, confidence,
			size_multiplier, description, contributing)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cycle, d.Ticker, string(d.Tier), string(d.Direction), d.Confidence,
		d.SizeMultiplier, d.Description, string(contributing))
	if err != nil {
		return fmt.Errorf("inserting decision for %s: %w", d.Ticker, err)
	}
	return nil
}

// SaveOrder records an order submission and its result.
func (s *SQLiteStore) SaveOrder(ctx context.Context, cycle int64, order models.Order, result models.OrderResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (cycle, ticker, side, asset_class, quantity,
			option_symbol, tag, order_id, accepted, status, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cycle, order.Ticker, string(order.Side), string(order.Class), order.Quantity,
		order.OptionSymbol, order.Tag, result.OrderID, boolToInt(result.Accepted),
		result.Status, result.Reason)
	if err != nil {
		return fmt.Errorf("inserting order for %s: %w", order.Ticker, err)
	}
	return nil
}

// SaveExit records an exit trigger and the resulting close order.
func (s *SQLiteStore) SaveExit(ctx context.Context, cycle int64, trigger models.ExitTrigger, result models.OrderResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exits (cycle, ticker, exit_reason, detail, quantity,
			order_id, accepted, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cycle, trigger.Ticker, string(trigger.Reason), trigger.Detail,
		trigger.Quantity, result.OrderID, boolToInt(result.Accepted), result.Status)
	if err != nil {
		return fmt.Errorf("inserting exit for %s: %w", trigger.Ticker, err)
	}
	return nil
}

// LoadHighWaterMarks returns all persisted trailing-stop marks.
func (s *SQLiteStore) LoadHighWaterMarks(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticker, pl_percent FROM high_water_marks`)
	if err != nil {
		return nil, fmt.Errorf("querying high water marks: %w", err)
	}
	defer rows.Close()

	marks := make(map[string]float64)
	for rows.Next() {
		var ticker string
		var pl float64
		if err := rows.Scan(&ticker, &pl); err != nil {
			return nil, fmt.Errorf("scanning high water mark: %w", err)
		}
		marks[ticker] = pl
	}
	return marks, rows.Err()
}

// SaveHighWaterMark upserts one ticker's mark.
func (s *SQLiteStore) SaveHighWaterMark(ctx context.Context, ticker string, plPercent float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO high_water_marks (ticker, pl_percent, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(ticker) DO UPDATE SET
			pl_percent = excluded.pl_percent,
			updated_at = CURRENT_TIMESTAMP`,
		ticker, plPercent)
	if err != nil {
		return fmt.Errorf("saving high water mark for %s: %w", ticker, err)
	}
	return nil
}

// DeleteHighWaterMark removes a ticker's mark after its position closes.
func (s *SQLiteStore) DeleteHighWaterMark(ctx context.Context, ticker string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM high_water_marks WHERE ticker = ?`, ticker)
	if err != nil {
		return fmt.Errorf("deleting high water mark for %s: %w", ticker, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
