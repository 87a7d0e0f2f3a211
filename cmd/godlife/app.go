package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rlaalswo86-stack/godlifedaily/internal/cache"
	"github.com/rlaalswo86-stack/godlifedaily/internal/collector"
	"github.com/rlaalswo86-stack/godlifedaily/internal/config"
	"github.com/rlaalswo86-stack/godlifedaily/internal/fx"
	"github.com/rlaalswo86-stack/godlifedaily/internal/metrics"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
	"github.com/rlaalswo86-stack/godlifedaily/internal/notifier"
	"github.com/rlaalswo86-stack/godlifedaily/internal/recorder"
	"github.com/rlaalswo86-stack/godlifedaily/internal/scheduler"
	"github.com/rlaalswo86-stack/godlifedaily/internal/screener"
	"github.com/rlaalswo86-stack/godlifedaily/internal/universe"
)

// app holds every wired component.
type app struct {
	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	health   *metrics.HealthStatus

	redis    *cache.RedisStore
	fetcher  *collector.CachedFetcher
	analyzer *collector.Analyzer
	universe *universe.Provider
	screener *screener.Screener
	fx       *fx.Monitor
	sqlite   *recorder.SQLiteRecorder
	recorder recorder.Recorder
	notifier *notifier.TelegramNotifier
	sched    *scheduler.Scheduler
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry(), health: metrics.NewHealthStatus()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewMetrics(a.registry)

	// Cache store: Redis when configured, else in-process.
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Cache.RedisAddr != "" {
		rs, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddr,
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
		if err != nil {
			log.Printf("[WARN] redis unavailable, using memory cache: %v", err)
		} else {
			a.redis = rs
			store = rs
		}
	}

	// Market data.
	httpClient := collector.NewHTTPClient(cfg.Proxy, 15*time.Second)
	yahoo := collector.NewYahooFetcher(cfg.Proxy)
	var raw collector.Fetcher
	switch cfg.DataSource.Bars {
	case "alpaca":
		alpaca := collector.NewAlpacaFetcher(cfg.DataSource.AlpacaKey, cfg.DataSource.AlpacaSecret,
			cfg.DataSource.AlpacaURL, cfg.DataSource.AlpacaFeed,
			collector.NewHTTPClient(cfg.Proxy, cfg.Screener.CallTimeout))
		raw = collector.Combine(alpaca, yahoo)
	case "mock":
		raw = &collector.MockFetcher{Price: 100}
	default:
		raw = yahoo
	}
	log.Printf("[INFO] data source: %s", raw.Name())

	a.fetcher = collector.NewCachedFetcher(raw, store, cfg.Cache.BarsTTL, cfg.Cache.FundamentalsTTL)
	a.fetcher.OnLookup(a.metrics.ObserveCache)
	a.analyzer = collector.NewAnalyzer(a.fetcher)

	a.universe = universe.NewProvider(universe.DefaultSources(httpClient)...)
	a.universe.Cache = cache.New[model.Universe](store, cfg.Cache.UniverseTTL)
	a.universe.Cache.OnLookup = a.metrics.ObserveCache

	a.screener = screener.New(a.fetcher, screener.Config{
		Period:        model.Period(cfg.Screener.Period),
		RSIWindow:     cfg.Screener.RSIWindow,
		Workers:       cfg.Screener.Workers,
		RatePerSecond: cfg.Screener.RatePerSecond,
		CallTimeout:   cfg.Screener.CallTimeout,
	}, screener.WithObserver(a.metrics))

	fxCache := cache.New[model.FXQuote](store, cfg.Cache.FXTTL)
	fxCache.OnLookup = a.metrics.ObserveCache
	a.fx = fx.NewMonitor(fxCache, fx.NewNaverSource(httpClient), &fx.YahooSource{Bars: yahoo})
	a.fx.OnQuote(a.metrics.ObserveQuote)

	// History.
	recs := recorder.Multi{}
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, scan history disabled: %v", err)
		} else {
			a.sqlite = sr
			recs = append(recs, sr)
		}
	}
	if cfg.Database.ParquetDir != "" {
		pr, err := recorder.NewParquetRecorder(cfg.Database.ParquetDir)
		if err != nil {
			log.Printf("[WARN] init parquet recorder failed: %v", err)
		} else {
			recs = append(recs, pr)
		}
	}
	if len(recs) == 0 {
		a.recorder = recorder.NewNoopRecorder()
	} else {
		a.recorder = recs
	}

	// Notifications.
	var sender scheduler.Sender
	if cfg.NotifyEnabled() {
		a.notifier = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		a.notifier.OnSend = a.metrics.ObserveNotification
		sender = a.notifier
	} else {
		log.Println("[WARN] telegram not configured, reports go to the log")
	}

	a.sched = scheduler.NewScheduler(ctx, a.universe, a.screener, a.analyzer, a.fx, sender, a.recorder)
	a.sched.Health = a.health
	a.sched.Criteria = cfg.Screener.Criteria
	return a, nil
}

// history returns the scan history reader, if any recorder keeps one.
func (a *app) history() recorder.History {
	if a.sqlite == nil {
		return nil
	}
	return a.sqlite
}

func (a *app) redisClient() *goredis.Client {
	if a.redis == nil {
		return nil
	}
	return a.redis.Client()
}

func (a *app) sqliteDB() *sql.DB {
	if a.sqlite == nil {
		return nil
	}
	return a.sqlite.DB()
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Printf("[ERROR] close recorder: %v", err)
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
