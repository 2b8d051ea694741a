package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/enoch4gor/btc-dca-backtester/internal/model"
)

// SQLiteRecorder persists runs to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets `history` read while `watch` writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger(), now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS simulation_runs (
			id               TEXT PRIMARY KEY,
			recorded_at      INTEGER NOT NULL,
			name             TEXT NOT NULL,
			source           TEXT,
			is_fallback      INTEGER NOT NULL DEFAULT 0,
			start_date       TEXT NOT NULL,
			end_date         TEXT NOT NULL,
			config_json      TEXT NOT NULL,
			total_invested   REAL,
			final_value      REAL,
			total_return     REAL,
			pct_return       REAL,
			trades           INTEGER,
			rebalances       INTEGER,
			duration_days    INTEGER,
			final_price      REAL,
			final_cash       REAL,
			final_quantity   REAL,
			avg_entry_price  REAL,
			fear_greed       INTEGER,
			is_liquidated    INTEGER NOT NULL DEFAULT 0,
			liquidation_date TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_recorded ON simulation_runs(recorded_at)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			run_id          TEXT NOT NULL REFERENCES simulation_runs(id),
			date            TEXT NOT NULL,
			price           REAL,
			cash            REAL,
			asset_amount    REAL,
			asset_value     REAL,
			portfolio_value REAL,
			total_invested  REAL,
			return_rate     REAL,
			avg_entry_price REAL,
			liq_price       REAL,
			is_liquidated   INTEGER NOT NULL DEFAULT 0,
			action          TEXT NOT NULL,
			action_amount   REAL,
			ma200           REAL,
			ma350           REAL,
			fear_greed      INTEGER,
			PRIMARY KEY (run_id, date)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun writes the run and its full ledger in one transaction.
func (r *SQLiteRecorder) RecordRun(run *RunRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}

	id := uuid.NewString()
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	s := run.Result.Stats
	_, err = tx.Exec(`INSERT INTO simulation_runs
		(id, recorded_at, name, source, is_fallback, start_date, end_date, config_json,
		 total_invested, final_value, total_return, pct_return, trades, rebalances, duration_days,
		 final_price, final_cash, final_quantity, avg_entry_price, fear_greed,
		 is_liquidated, liquidation_date)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, r.now().Unix(), run.Name, run.Source, run.IsFallback,
		run.Config.StartDate.String(), run.Config.EndDate.String(), string(cfgJSON),
		s.TotalInvested, s.FinalPortfolioValue, s.TotalReturn, s.PercentageReturn,
		s.TradesCount, s.RebalanceCount, s.DurationDays,
		s.FinalAssetPrice, s.FinalCashBalance, s.FinalAssetAmount, s.AverageEntryPrice,
		nullInt(s.CurrentFearGreed), s.IsLiquidated, nullDay(s.LiquidationDate),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO ledger_entries
		(run_id, date, price, cash, asset_amount, asset_value, portfolio_value, total_invested,
		 return_rate, avg_entry_price, liq_price, is_liquidated, action, action_amount,
		 ma200, ma350, fear_greed)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return "", fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range run.Result.Timeline {
		if _, err := stmt.Exec(id, rec.Date.String(), rec.Price, rec.CashBalance, rec.AssetAmount,
			rec.AssetValue, rec.PortfolioValue, rec.TotalInvested, rec.ReturnRate,
			nullFloat(rec.AverageEntryPrice), nullFloat(rec.LiquidationPrice), rec.IsLiquidated,
			string(rec.Action), rec.ActionAmount,
			nullFloat(rec.MA200), nullFloat(rec.MA350), nullInt(rec.FearGreedValue),
		); err != nil {
			return "", fmt.Errorf("insert ledger %s: %w", rec.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Str("run_id", id).Str("strategy", run.Name).Int("days", len(run.Result.Timeline)).Msg("run recorded")
	return id, nil
}

// RecentRuns returns the latest runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, recorded_at, name, source, is_fallback, start_date, end_date,
		total_invested, final_value, total_return, pct_return, trades, rebalances, duration_days,
		final_price, final_cash, final_quantity, avg_entry_price, fear_greed,
		is_liquidated, liquidation_date
		FROM simulation_runs ORDER BY recorded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var (
			row             RunRow
			recordedAt      int64
			start, end      string
			fearGreed       sql.NullInt64
			liquidationDate sql.NullString
		)
		s := &row.Stats
		if err := rows.Scan(&row.ID, &recordedAt, &row.Name, &row.Source, &row.IsFallback, &start, &end,
			&s.TotalInvested, &s.FinalPortfolioValue, &s.TotalReturn, &s.PercentageReturn,
			&s.TradesCount, &s.RebalanceCount, &s.DurationDays,
			&s.FinalAssetPrice, &s.FinalCashBalance, &s.FinalAssetAmount, &s.AverageEntryPrice, &fearGreed,
			&s.IsLiquidated, &liquidationDate,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		row.RecordedAt = time.Unix(recordedAt, 0)
		if row.StartDate, err = model.ParseDay(start); err != nil {
			return nil, err
		}
		if row.EndDate, err = model.ParseDay(end); err != nil {
			return nil, err
		}
		s.FinalAssetValue = s.FinalAssetAmount * s.FinalAssetPrice
		s.CurrentFearGreed = intPtr(fearGreed)
		if s.LiquidationDate, err = dayPtr(liquidationDate); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Timeline loads the stored ledger of one run in date order.
func (r *SQLiteRecorder) Timeline(runID string) ([]model.LedgerRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT date, price, cash, asset_amount, asset_value, portfolio_value,
		total_invested, return_rate, avg_entry_price, liq_price, is_liquidated, action, action_amount,
		ma200, ma350, fear_greed
		FROM ledger_entries WHERE run_id = ? ORDER BY date`, runID)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerRecord
	for rows.Next() {
		var (
			rec                              model.LedgerRecord
			date, action                     string
			avgEntry, liqPrice, ma200, ma350 sql.NullFloat64
			fearGreed                        sql.NullInt64
		)
		if err := rows.Scan(&date, &rec.Price, &rec.CashBalance, &rec.AssetAmount, &rec.AssetValue,
			&rec.PortfolioValue, &rec.TotalInvested, &rec.ReturnRate, &avgEntry, &liqPrice,
			&rec.IsLiquidated, &action, &rec.ActionAmount, &ma200, &ma350, &fearGreed,
		); err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		if rec.Date, err = model.ParseDay(date); err != nil {
			return nil, err
		}
		rec.Action = model.Action(action)
		rec.IsTradeDay = rec.Action != model.ActionNone
		rec.AverageEntryPrice = floatPtr(avgEntry)
		rec.LiquidationPrice = floatPtr(liqPrice)
		rec.MA200 = floatPtr(ma200)
		rec.MA350 = floatPtr(ma350)
		rec.FearGreedValue = intPtr(fearGreed)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullDay(d *model.Day) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func dayPtr(v sql.NullString) (*model.Day, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := model.ParseDay(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
