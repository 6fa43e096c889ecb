package s0_data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis-edge/internal/contracts"
)

// Repository reads and writes market data in Postgres
// ⭐ SSOT: market 스키마 접근은 여기서만
type Repository struct {
	db *pgxpool.Pool
}

var (
	_ SeriesSource             = (*Repository)(nil)
	_ contracts.SnapshotWriter = (*Repository)(nil)
)

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Pool returns the underlying database pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.db
}

// PriceSeries returns the most recent lookback bars, oldest first.
// lookback <= 0 returns every stored bar.
func (r *Repository) PriceSeries(ctx context.Context, symbol string, res contracts.Resolution, lookback int) (*contracts.PriceSeries, error) {
	symbol = strings.ToUpper(symbol)

	var limit interface{}
	if lookback > 0 {
		limit = lookback
	}

	query := `
		SELECT ts, open, high, low, close, volume FROM (
			SELECT ts, open, high, low, close, volume
			FROM market.price_bars
			WHERE symbol = $1 AND resolution = $2
			ORDER BY ts DESC
			LIMIT $3
		) recent
		ORDER BY ts ASC
	`

	rows, err := r.db.Query(ctx, query, symbol, string(res), limit)
	if err != nil {
		return nil, fmt.Errorf("query bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	series := &contracts.PriceSeries{Symbol: symbol, Resolution: res}
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		series.Bars = append(series.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(series.Bars) == 0 {
		return nil, contracts.UpstreamDataGap("postgres", fmt.Sprintf("no %s bars for %s", res, symbol))
	}
	return series, nil
}

// OptionsChain returns the chain stored for symbol on date
func (r *Repository) OptionsChain(ctx context.Context, symbol string, date time.Time) (*contracts.OptionsChainSnapshot, error) {
	symbol = strings.ToUpper(symbol)
	day := contracts.SessionDate(date)

	query := `
		SELECT contract_id, option_type, strike, expiration, last, bid, ask,
		       volume, open_interest, implied_vol, delta, gamma, theta, vega, rho
		FROM market.option_contracts
		WHERE symbol = $1 AND snapshot_date = $2
		ORDER BY expiration, strike, contract_id
	`

	rows, err := r.db.Query(ctx, query, symbol, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query options for %s: %w", symbol, err)
	}
	defer rows.Close()

	chain := &contracts.OptionsChainSnapshot{Symbol: symbol, Date: day}
	for rows.Next() {
		var (
			c   contracts.OptionContract
			typ string
			exp time.Time
		)
		if err := rows.Scan(
			&c.ContractID, &typ, &c.Strike, &exp, &c.Last, &c.Bid, &c.Ask,
			&c.Volume, &c.OpenInterest, &c.ImpliedVolatility,
			&c.Greeks.Delta, &c.Greeks.Gamma, &c.Greeks.Theta, &c.Greeks.Vega, &c.Greeks.Rho,
		); err != nil {
			return nil, fmt.Errorf("scan option contract: %w", err)
		}
		c.Type = contracts.OptionType(typ)
		// DATE 컬럼은 UTC 자정으로 읽히므로 거래소 기준 날짜로 되돌린다
		c.Expiration = time.Date(exp.Year(), exp.Month(), exp.Day(), 0, 0, 0, 0, contracts.ExchangeLocation())
		chain.Contracts = append(chain.Contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(chain.Contracts) == 0 {
		return nil, contracts.UpstreamDataGap("postgres", fmt.Sprintf("no options for %s on %s", symbol, day.Format("2006-01-02")))
	}
	return chain, nil
}

// OptionVolumeBaseline averages daily call/put volume over the previous sessions stored
func (r *Repository) OptionVolumeBaseline(ctx context.Context, symbol string, date time.Time, sessions int) (*contracts.OptionVolumeBaseline, error) {
	if sessions <= 0 {
		return nil, contracts.InvalidParameter("sessions", "must be positive")
	}
	symbol = strings.ToUpper(symbol)

	query := `
		SELECT COALESCE(AVG(calls), 0), COALESCE(AVG(puts), 0), COUNT(*)
		FROM (
			SELECT snapshot_date,
			       COALESCE(SUM(volume) FILTER (WHERE option_type = 'call'), 0) AS calls,
			       COALESCE(SUM(volume) FILTER (WHERE option_type = 'put'), 0)  AS puts
			FROM market.option_contracts
			WHERE symbol = $1 AND snapshot_date < $2
			GROUP BY snapshot_date
			ORDER BY snapshot_date DESC
			LIMIT $3
		) daily
	`

	var b contracts.OptionVolumeBaseline
	err := r.db.QueryRow(ctx, query, symbol, contracts.SessionDate(date).Format("2006-01-02"), sessions).
		Scan(&b.CallAverage, &b.PutAverage, &b.Sessions)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && b.Sessions == 0) {
		return nil, contracts.UpstreamDataGap("postgres", "no prior option sessions for "+symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("query baseline for %s: %w", symbol, err)
	}
	return &b, nil
}

// SaveBars upserts a price series
func (r *Repository) SaveBars(ctx context.Context, series *contracts.PriceSeries) error {
	if series.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO market.price_bars (symbol, resolution, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, resolution, ts) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	symbol := strings.ToUpper(series.Symbol)
	batch := &pgx.Batch{}
	for _, b := range series.Bars {
		batch.Queue(query, symbol, string(series.Resolution), b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save bars for %s: %w", symbol, err)
	}
	return nil
}

// SaveChain replaces the stored chain for the snapshot's symbol and date
func (r *Repository) SaveChain(ctx context.Context, chain *contracts.OptionsChainSnapshot) error {
	if chain == nil {
		return nil
	}
	symbol := strings.ToUpper(chain.Symbol)
	day := contracts.SessionDate(chain.Date).Format("2006-01-02")

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM market.option_contracts WHERE symbol = $1 AND snapshot_date = $2`,
		symbol, day,
	); err != nil {
		return fmt.Errorf("clear chain for %s: %w", symbol, err)
	}

	query := `
		INSERT INTO market.option_contracts (
			symbol, snapshot_date, contract_id, option_type, strike, expiration,
			last, bid, ask, volume, open_interest, implied_vol,
			delta, gamma, theta, vega, rho
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	for _, c := range chain.Contracts {
		_, err := tx.Exec(ctx, query,
			symbol, day, c.ContractID, string(c.Type), c.Strike, c.Expiration.Format("2006-01-02"),
			c.Last, c.Bid, c.Ask, c.Volume, c.OpenInterest, c.ImpliedVolatility,
			c.Greeks.Delta, c.Greeks.Gamma, c.Greeks.Theta, c.Greeks.Vega, c.Greeks.Rho,
		)
		if err != nil {
			return fmt.Errorf("insert contract %s: %w", c.ContractID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// WriteSeries implements contracts.SnapshotWriter
func (r *Repository) WriteSeries(ctx context.Context, series *contracts.PriceSeries) error {
	return r.SaveBars(ctx, series)
}

// WriteChain implements contracts.SnapshotWriter
func (r *Repository) WriteChain(ctx context.Context, chain *contracts.OptionsChainSnapshot) error {
	return r.SaveChain(ctx, chain)
}
