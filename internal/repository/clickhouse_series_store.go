package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketLens/internal/domain/models"
	domrepo "MarketLens/internal/domain/repository"
	pkgch "MarketLens/pkg/clickhouse"
	applogger "MarketLens/pkg/logger"
)

// insertChunk bounds the rows sent in one multi-row INSERT.
const insertChunk = 2000

// CHSeriesStore implements SeriesStore on ReplacingMergeTree tables. Every
// write carries a version so reads with FINAL see the newest row per key.
type CHSeriesStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHSeriesStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHSeriesStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSeriesStore{ch: ch, db: ch.DB(), database: database, l: l.With("clickhouse_store")}
}

func (s *CHSeriesStore) table(name string) string { return s.database + "." + name }

func (s *CHSeriesStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			symbol String, name String, exchange String, sector String, version UInt64
		) ENGINE = ReplacingMergeTree(version) ORDER BY symbol`, s.table("companies")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			symbol String, date Date,
			open Float64, high Float64, low Float64, close Float64, volume Int64,
			daily_return Nullable(Float64), moving_avg_7 Nullable(Float64),
			volatility_score Nullable(Float64), sentiment_index Nullable(Float64),
			version UInt64
		) ENGINE = ReplacingMergeTree(version) PARTITION BY toYYYYMM(date) ORDER BY (symbol, date)`, s.table("stock_data")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			symbol String,
			week_52_high Nullable(Float64), week_52_low Nullable(Float64),
			avg_close Nullable(Float64), current_price Nullable(Float64),
			updated_at DateTime64(3)
		) ENGINE = ReplacingMergeTree(updated_at) ORDER BY symbol`, s.table("stock_summary")),
	})
}

func (s *CHSeriesStore) ListCompanies(ctx context.Context, skip, limit int) ([]models.Company, error) {
	q := fmt.Sprintf(`SELECT symbol, name, exchange, sector FROM %s FINAL ORDER BY symbol LIMIT ? OFFSET ?`,
		s.table("companies"))
	rows, err := s.db.QueryContext(ctx, q, limit, skip)
	if err != nil {
		s.l.Error("clickhouse list_companies query error", applogger.Error(err))
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

func (s *CHSeriesStore) GetCompany(ctx context.Context, symbol string) (*models.Company, error) {
	q := fmt.Sprintf(`SELECT symbol, name, exchange, sector FROM %s FINAL WHERE symbol = ?`, s.table("companies"))
	var c models.Company
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&c.Symbol, &c.Name, &c.Exchange, &c.Sector)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", symbol, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

func (s *CHSeriesStore) UpsertCompany(ctx context.Context, c models.Company) error {
	q := fmt.Sprintf(`INSERT INTO %s (symbol, name, exchange, sector, version) VALUES (?, ?, ?, ?, ?)`,
		s.table("companies"))
	if _, err := s.db.ExecContext(ctx, q, c.Symbol, c.Name, c.Exchange, c.Sector, version()); err != nil {
		return fmt.Errorf("upsert company: %w", err)
	}
	return nil
}

const chPointColumns = `date, open, high, low, close, volume,
	daily_return, moving_avg_7, volatility_score, sentiment_index`

func (s *CHSeriesStore) GetSeries(ctx context.Context, symbol string, since time.Time) ([]models.PricePoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`SELECT %s FROM %s FINAL WHERE symbol = ? AND date >= ? ORDER BY date ASC`,
		chPointColumns, s.table("stock_data"))
	rows, err := s.db.QueryContext(ctx, q, symbol, since.UTC().Format(dateLayout))
	if err != nil {
		s.l.Error("clickhouse get_series query error", applogger.Symbol(symbol), applogger.Error(err))
		return nil, fmt.Errorf("get series: %w", err)
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		p, err := scanCHPoint(rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse get_series ok",
		applogger.Symbol(symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func scanCHPoint(r scanner, symbol *string) (models.PricePoint, error) {
	var (
		p                  models.PricePoint
		ret, ma, vol, sent sql.NullFloat64
	)
	dest := []any{&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &ret, &ma, &vol, &sent}
	if symbol != nil {
		dest = append([]any{symbol}, dest...)
	}
	if err := r.Scan(dest...); err != nil {
		return p, fmt.Errorf("scan point: %w", err)
	}
	p.Date = p.Date.UTC()
	p.DailyReturn = fromNull(ret)
	p.MovingAvg7 = fromNull(ma)
	p.VolatilityScore = fromNull(vol)
	p.SentimentIndex = fromNull(sent)
	return p, nil
}

// UpsertSeries inserts the points in multi-row chunks. Older versions of the
// same (symbol, date) collapse on merge and are hidden by FINAL until then.
func (s *CHSeriesStore) UpsertSeries(ctx context.Context, symbol string, points []models.PricePoint) (int, error) {
	start := time.Now()
	ver := version()
	written := 0
	for lo := 0; lo < len(points); lo += insertChunk {
		hi := min(lo+insertChunk, len(points))

		values := make([]string, 0, hi-lo)
		args := make([]any, 0, (hi-lo)*12)
		for _, p := range points[lo:hi] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, p.Date.UTC().Format(dateLayout),
				p.Open, p.High, p.Low, p.Close, p.Volume,
				nullable(p.DailyReturn), nullable(p.MovingAvg7),
				nullable(p.VolatilityScore), nullable(p.SentimentIndex), ver)
		}
		q := fmt.Sprintf(`INSERT INTO %s (symbol, %s, version) VALUES %s`,
			s.table("stock_data"), chPointColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse upsert_series error", applogger.Symbol(symbol), applogger.Error(err))
			return written, fmt.Errorf("upsert series: %w", err)
		}
		written += hi - lo
	}
	s.l.Debug("clickhouse upsert_series ok",
		applogger.Symbol(symbol),
		applogger.Int("rows", written),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return written, nil
}

func (s *CHSeriesStore) GetSummary(ctx context.Context, symbol string) (*models.SeriesSummary, error) {
	q := fmt.Sprintf(`SELECT symbol, week_52_high, week_52_low, avg_close, current_price, updated_at
		FROM %s FINAL WHERE symbol = ?`, s.table("stock_summary"))
	var (
		sum                  models.SeriesSummary
		hi, lo, avg, current sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&sum.Symbol, &hi, &lo, &avg, &current, &sum.UpdatedAt)
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
	return &sum, nil
}

func (s *CHSeriesStore) UpsertSummary(ctx context.Context, sum models.SeriesSummary) error {
	updated := sum.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	q := fmt.Sprintf(`INSERT INTO %s (symbol, week_52_high, week_52_low, avg_close, current_price, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`, s.table("stock_summary"))
	_, err := s.db.ExecContext(ctx, q, sum.Symbol,
		nullable(sum.Week52High), nullable(sum.Week52Low),
		nullable(sum.AvgClose), nullable(sum.CurrentPrice), updated.UTC())
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

func (s *CHSeriesStore) LatestPoints(ctx context.Context) ([]models.SymbolPoint, error) {
	t := s.table("stock_data")
	q := fmt.Sprintf(`SELECT symbol, %s FROM %s FINAL
		WHERE (symbol, date) IN (SELECT symbol, max(date) FROM %s FINAL GROUP BY symbol)
		ORDER BY symbol`, chPointColumns, t, t)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		s.l.Error("clickhouse latest_points query error", applogger.Error(err))
		return nil, fmt.Errorf("latest points: %w", err)
	}
	defer rows.Close()

	var out []models.SymbolPoint
	for rows.Next() {
		var sp models.SymbolPoint
		p, err := scanCHPoint(rows, &sp.Symbol)
		if err != nil {
			return nil, err
		}
		sp.PricePoint = p
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *CHSeriesStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

func (s *CHSeriesStore) Close() error { return s.ch.Close() }

func version() uint64 { return uint64(time.Now().UnixNano()) }

var _ domrepo.SeriesStore = (*CHSeriesStore)(nil)
