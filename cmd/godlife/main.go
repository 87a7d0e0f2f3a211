package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rlaalswo86-stack/godlifedaily/internal/config"
	"github.com/rlaalswo86-stack/godlifedaily/internal/fx"
	"github.com/rlaalswo86-stack/godlifedaily/internal/httpapi"
	"github.com/rlaalswo86-stack/godlifedaily/internal/metrics"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
	"github.com/rlaalswo86-stack/godlifedaily/internal/notifier"
	"github.com/rlaalswo86-stack/godlifedaily/internal/screener"
)

const usage = `usage: godlife <command> [flags]

commands:
  serve                    run scheduler, Telegram bot and HTTP API (default)
  scan                     run one screener pass and print the report
  stock SYMBOL [-period]   analyze one symbol
  fx                       print current exchange rates
  convert AMOUNT DIR       convert between KRW and THB (DIR: krw-thb | thb-krw)
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] load .env: %v", err)
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		err = serve(cfg)
	case "scan":
		err = runOnce(cfg, scanOnce)
	case "stock":
		err = stockCmd(cfg, args)
	case "fx":
		err = runOnce(cfg, func(ctx context.Context, a *app) (string, error) {
			quotes, errs := a.fx.Quotes(ctx, fx.DefaultCodes)
			return notifier.FormatFXReport(quotes, errs), nil
		})
	case "convert":
		err = convertCmd(cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("[FATAL] %s: %v", cmd, err)
	}
}

func serve(cfg *config.Config) error {
	log.Println("[INFO] GodLife Daily starting...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sched.RegisterAll(cfg.Schedule.ScanCron, cfg.Schedule.FXCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	a.sched.Start()
	defer a.sched.Stop()

	if a.notifier != nil {
		go a.notifier.StartPolling(ctx, a.sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Println("[INFO] RUN_ON_START enabled, executing scan now")
		go a.sched.RunScanNow()
	}

	api := httpapi.NewServer(httpapi.Deps{
		Analyzer: a.analyzer,
		Universe: a.universe,
		Scanner:  a.sched,
		FX:       a.fx,
		History:  a.history(),
		Metrics:  a.metrics,
		Criteria: cfg.Screener.Criteria,
	})
	api.Start(cfg.Server.HTTPAddr)

	var ms *metrics.Server
	if cfg.Server.MetricsAddr != "" {
		if a.redis != nil {
			a.health.RedisConfigured = true
		}
		if a.sqlite != nil {
			a.health.SQLiteConfigured = true
		}
		a.health.StartLivenessChecker(ctx, a.redisClient(), a.sqliteDB(), 30*time.Second)
		ms = metrics.NewServer(cfg.Server.MetricsAddr, a.registry, a.health)
		ms.Start()
	}

	log.Println("[INFO] GodLife Daily is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	api.Stop(shutdownCtx)
	if ms != nil {
		ms.Stop(shutdownCtx)
	}
	log.Println("[INFO] GodLife Daily stopped")
	return nil
}

// runOnce wires the app, runs fn until done or interrupted and prints its
// output.
func runOnce(cfg *config.Config, fn func(ctx context.Context, a *app) (string, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := fn(ctx, a)
	if out != "" {
		fmt.Println(out)
	}
	return err
}

func scanOnce(ctx context.Context, a *app) (string, error) {
	start := time.Now()
	res, err := a.sched.Scan(ctx, a.cfg.Screener.Criteria, func(p screener.Progress) {
		if p.Index%50 == 0 || p.Index == p.Total {
			log.Printf("[INFO] scan progress %d/%d (%s)", p.Index, p.Total, time.Since(start).Round(time.Second))
		}
	})
	if res == nil {
		return "", err
	}
	return notifier.FormatScanReport(res), err
}

func stockCmd(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stock", flag.ExitOnError)
	period := fs.String("period", cfg.Screener.Period, "lookback period (1mo, 3mo, 6mo, 1y, 5y)")
	// Allow the symbol before or after the flags.
	var symbol string
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		symbol, args = args[0], args[1:]
	}
	fs.Parse(args)
	if symbol == "" {
		symbol = fs.Arg(0)
	}
	if symbol == "" {
		return errors.New("missing SYMBOL")
	}

	return runOnce(cfg, func(ctx context.Context, a *app) (string, error) {
		an, err := a.analyzer.Analyze(ctx, symbol, model.Period(*period))
		if err != nil {
			return "", err
		}
		return notifier.FormatAnalysis(an), nil
	})
}

func convertCmd(cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: convert AMOUNT krw-thb|thb-krw")
	}
	dir, err := fx.ParseDirection(args[1])
	if err != nil {
		return err
	}

	return runOnce(cfg, func(ctx context.Context, a *app) (string, error) {
		var rate float64
		if q, err := a.fx.Quote(ctx, fx.CodeTHBKRW); err != nil {
			log.Printf("[WARN] THB quote: %v", err)
		} else {
			rate = q.Rate
		}
		c, err := fx.Convert(dir, args[0], rate)
		if err != nil {
			return "", err
		}
		return notifier.FormatConversion(c), nil
	})
}
