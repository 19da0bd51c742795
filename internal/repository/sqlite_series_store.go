package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	applogger "MarketLens/pkg/logger"
)

// SQLiteSeriesStore keeps companies, series and summaries in a single SQLite
// file. Dates are stored as YYYY-MM-DD text.
type SQLiteSeriesStore struct {
	db *sql.DB
	l  *applogger.Logger
}

// NewSQLiteSeriesStore opens (or creates) the database at path. Writes are
// serialized through one connection.
func NewSQLiteSeriesStore(path string, l *applogger.Logger) (*SQLiteSeriesStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &SQLiteSeriesStore{db: db, l: l.With("sqlite_store")}, nil
}

func (s *SQLiteSeriesStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			symbol   TEXT PRIMARY KEY,
			name     TEXT NOT NULL DEFAULT '',
			exchange TEXT NOT NULL DEFAULT '',
			sector   TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS stock_data (
			symbol           TEXT NOT NULL,
			date             TEXT NOT NULL,
			open             REAL NOT NULL,
			high             REAL NOT NULL,
			low              REAL NOT NULL,
			close            REAL NOT NULL,
			volume           INTEGER NOT NULL,
			daily_return     REAL,
			moving_avg_7     REAL,
			volatility_score REAL,
			sentiment_index  REAL,
			PRIMARY KEY (symbol, date)
		)`,
		`CREATE TABLE IF NOT EXISTS stock_summary (
			symbol        TEXT PRIMARY KEY,
			week_52_high  REAL,
			week_52_low   REAL,
			avg_close     REAL,
			current_price REAL,
			updated_at    TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSeriesStore) ListCompanies(ctx context.Context, skip, limit int) ([]models.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, name, exchange, sector FROM companies ORDER BY symbol LIMIT ? OFFSET ?`,
		limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	out := make([]models.Company, 0, min(limit, 64))
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.Symbol, &c.Name, &c.Exchange, &c.Sector); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteSeriesStore) GetCompany(ctx context.Context, symbol string) (*models.Company, error) {
	var c models.Company
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, name, exchange, sector FROM companies WHERE symbol = ?`, symbol).
		Scan(&c.Symbol, &c.Name, &c.Exchange, &c.Sector)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", symbol, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

func (s *SQLiteSeriesStore) UpsertCompany(ctx context.Context, c models.Company) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (symbol, name, exchange, sector) VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name, exchange = excluded.exchange, sector = excluded.sector`,
		c.Symbol, c.Name, c.Exchange, c.Sector)
	if err != nil {
		return fmt.Errorf("upsert company: %w", err)
	}
	return nil
}

func (s *SQLiteSeriesStore) GetSeries(ctx context.Context, symbol string, since time.Time) ([]models.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume,
		       daily_return, moving_avg_7, volatility_score, sentiment_index
		FROM stock_data
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC`,
		symbol, since.UTC().Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		p, err := scanSQLitePoint(rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLitePoint(r scanner, symbol *string) (models.PricePoint, error) {
	var (
		p                  models.PricePoint
		date               string
		ret, ma, vol, sent sql.NullFloat64
	)
	dest := []any{&date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &ret, &ma, &vol, &sent}
	if symbol != nil {
		dest = append([]any{symbol}, dest...)
	}
	if err := r.Scan(dest...); err != nil {
		return p, fmt.Errorf("scan point: %w", err)
	}
	d, err := parseDate(date)
	if err != nil {
		return p, fmt.Errorf("parse date %q: %w", date, err)
	}
	p.Date = d
	p.DailyReturn = fromNull(ret)
	p.MovingAvg7 = fromNull(ma)
	p.VolatilityScore = fromNull(vol)
	p.SentimentIndex = fromNull(sent)
	return p, nil
}

// UpsertSeries writes every point in one transaction; an existing
// (symbol, date) row is replaced.
func (s *SQLiteSeriesStore) UpsertSeries(ctx context.Context, symbol string, points []models.PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_data (symbol, date, open, high, low, close, volume,
			daily_return, moving_avg_7, volatility_score, sentiment_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume,
			daily_return = excluded.daily_return, moving_avg_7 = excluded.moving_avg_7,
			volatility_score = excluded.volatility_score, sentiment_index = excluded.sentiment_index`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, symbol, p.Date.UTC().Format(dateLayout),
			p.Open, p.High, p.Low, p.Close, p.Volume,
			nullable(p.DailyReturn), nullable(p.MovingAvg7),
			nullable(p.VolatilityScore), nullable(p.SentimentIndex)); err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", symbol, p.Date.Format(dateLayout), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.l.Debug("series upserted",
		applogger.Symbol(symbol),
		applogger.Int("rows", len(points)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return len(points), nil
}

func (s *SQLiteSeriesStore) GetSummary(ctx context.Context, symbol string) (*models.SeriesSummary, error) {
	var (
		sum                  models.SeriesSummary
		hi, lo, avg, current sql.NullFloat64
		updated              string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, week_52_high, week_52_low, avg_close, current_price, updated_at
		FROM stock_summary WHERE symbol = ?`, symbol).
		Scan(&sum.Symbol, &hi, &lo, &avg, &current, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("summary %s: %w", symbol, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	sum.Week52High = fromNull(hi)
	sum.Week52Low = fromNull(lo)
	sum.AvgClose = fromNull(avg)
	sum.CurrentPrice = fromNull(current)
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		sum.UpdatedAt = t
	}
	return &sum, nil
}

func (s *SQLiteSeriesStore) UpsertSummary(ctx context.Context, sum models.SeriesSummary) error {
	updated := sum.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_summary (symbol, week_52_high, week_52_low, avg_close, current_price, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			week_52_high = excluded.week_52_high, week_52_low = excluded.week_52_low,
			avg_close = excluded.avg_close, current_price = excluded.current_price,
			updated_at = excluded.updated_at`,
		sum.Symbol, nullable(sum.Week52High), nullable(sum.Week52Low),
		nullable(sum.AvgClose), nullable(sum.CurrentPrice),
		updated.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (s *SQLiteSeriesStore) LatestPoints(ctx context.Context) ([]models.SymbolPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.symbol, d.date, d.open, d.high, d.low, d.close, d.volume,
		       d.daily_return, d.moving_avg_7, d.volatility_score, d.sentiment_index
		FROM stock_data d
		JOIN (SELECT symbol, MAX(date) AS date FROM stock_data GROUP BY symbol) m
		  ON d.symbol = m.symbol AND d.date = m.date
		ORDER BY d.symbol`)
	if err != nil {
		return nil, fmt.Errorf("latest points: %w", err)
	}
	defer rows.Close()

	var out []models.SymbolPoint
	for rows.Next() {
		var sp models.SymbolPoint
		p, err := scanSQLitePoint(rows, &sp.Symbol)
		if err != nil {
			return nil, err
		}
		sp.PricePoint = p
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *SQLiteSeriesStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteSeriesStore) Close() error { return s.db.Close() }

var _ domrepo.SeriesStore = (*SQLiteSeriesStore)(nil)
