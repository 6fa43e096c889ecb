package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/wonny/aegis-edge/internal/brain"
	"github.com/wonny/aegis-edge/internal/contracts"
	"github.com/wonny/aegis-edge/internal/external/alphavantage"
	"github.com/wonny/aegis-edge/internal/s0_data"
	"github.com/wonny/aegis-edge/internal/s0_data/snapshot"
	"github.com/wonny/aegis-edge/internal/strategyconfig"
	"github.com/wonny/aegis-edge/pkg/config"
	"github.com/wonny/aegis-edge/pkg/database"
	"github.com/wonny/aegis-edge/pkg/httputil"
	"github.com/wonny/aegis-edge/pkg/logger"
	"github.com/wonny/aegis-edge/pkg/redis"
)

// cachePrefix namespaces every redis key this binary writes
const cachePrefix = "aegis-edge"

// app holds the wiring every command shares
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	strategy   *strategyconfig.Config
	configHash string

	provider contracts.MarketDataProvider
	// snapshotAsOf is the manifest instant of a file source, zero otherwise
	snapshotAsOf time.Time

	db      *database.DB
	rdb     *redis.Client
	closers []func()
}

// loadApp reads env + strategy config and opens the configured data source
func loadApp() (*app, error) {
	// flags win over the environment; config.Load validates the result
	if snapshotDir != "" {
		os.Setenv("DATA_SOURCE", config.DataSourceFile)
		os.Setenv("DATA_DIR", snapshotDir)
	} else if dataSource != "" {
		os.Setenv("DATA_SOURCE", dataSource)
	}
	if verbose {
		os.Setenv("LOG_LEVEL", "debug")
	}

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load strategy
	path := strategyFile
	if path == "" {
		path = cfg.StrategyConfig
	}
	strategy, _, err := strategyconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}

	a := &app{cfg: cfg, log: log, strategy: strategy, configHash: hash}

	// 4. Open data source
	if err := a.openProvider(); err != nil {
		a.Close()
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"source":      cfg.DataSource,
		"strategy_id": strategy.Meta.StrategyID,
		"config_hash": hash[:12],
	}).Debug("App initialized")
	return a, nil
}

func (a *app) openProvider() error {
	aux := a.strategy.AuxSymbols()

	switch a.cfg.DataSource {
	case config.DataSourceFile:
		store, err := snapshot.Open(a.cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		m, err := store.ReadManifest()
		switch {
		case err == nil:
			a.snapshotAsOf = m.AsOf
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("read manifest: %w", err)
		}
		a.provider = s0_data.NewProvider(store, aux)

	case config.DataSourcePostgres:
		db, err := a.connectDB()
		if err != nil {
			return err
		}
		rdb, err := a.connectRedis()
		if err != nil {
			return err
		}
		repo := s0_data.NewRepository(db.Pool)
		a.provider = s0_data.NewCachedProvider(repo, redis.NewCache(rdb, cachePrefix), aux)

	case config.DataSourceAlphaVantage:
		rdb, err := a.connectRedis()
		if err != nil {
			return err
		}
		rpm := a.cfg.AlphaVantage.RequestsPerMinute
		httpClient := httputil.New(a.log, a.cfg.AlphaVantage.Timeout).
			WithLimiter(rpm).
			WithRateLimiter(redis.NewRateLimiter(rdb, cachePrefix), redis.AlphaVantageRateLimit(rpm))
		client := alphavantage.NewClient(httpClient, a.cfg.AlphaVantage, a.log)
		src := s0_data.NewAlphaVantageSource(client, a.log)
		a.provider = s0_data.NewCachedProvider(src, redis.NewCache(rdb, cachePrefix), aux)

	default:
		return fmt.Errorf("unknown data source %q", a.cfg.DataSource)
	}
	return nil
}

// connectDB connects once and registers the pool for Close
func (a *app) connectDB() (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.New(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	return db, nil
}

// connectRedis connects once; a disabled REDIS_ENABLED gives a pass-through client
func (a *app) connectRedis() (*redis.Client, error) {
	if a.rdb != nil {
		return a.rdb, nil
	}
	rdb, err := redis.New(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	return rdb, nil
}

// Close releases connections in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) gatherer() *brain.Gatherer {
	return brain.NewGatherer(a.provider, a.strategy.GatherOptions(), a.log)
}

// asOf resolves --as-of; a snapshot source defaults to its manifest instant
func (a *app) asOf(flag string) (time.Time, error) {
	fallback := time.Now()
	if !a.snapshotAsOf.IsZero() {
		fallback = a.snapshotAsOf
	}
	return contracts.ParseAsOf(flag, fallback)
}
