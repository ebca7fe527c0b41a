package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"market-alert-engine/config"
	"market-alert-engine/internal/alert"
	"market-alert-engine/internal/composite"
	"market-alert-engine/internal/keyedlock"
	"market-alert-engine/internal/logger"
	"market-alert-engine/internal/marketdata"
	"market-alert-engine/internal/markethours"
	"market-alert-engine/internal/metrics"
	"market-alert-engine/internal/model"
	"market-alert-engine/internal/notification"
	"market-alert-engine/internal/scheduler"
	"market-alert-engine/internal/snapcache"
	redisstore "market-alert-engine/internal/store/redis"
	sqlitestore "market-alert-engine/internal/store/sqlite"
	"market-alert-engine/internal/strength"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[alertengine] starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[alertengine] config: %v", err)
	}
	logger.Init("alertengine", parseLogLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[alertengine] shutdown signal received")
		cancel()
	}()

	prom := metrics.New()
	go metrics.Serve(ctx, cfg.MetricsAddr)

	// ---- Market data ----
	var provider marketdata.Provider
	var liveClient *marketdata.Client
	if cfg.DryRun {
		log.Println("[alertengine] *** DRY RUN: in-memory market data, no Redis ***")
		provider = marketdata.NewSimProvider()
	} else {
		liveClient = marketdata.NewClient(marketdata.ClientConfig{
			BaseURL:    cfg.BrokerBaseURL,
			StreamURL:  cfg.BrokerStreamURL,
			APIKey:     cfg.BrokerAPIKey,
			AccountID:  cfg.BrokerAccountID,
			Password:   cfg.BrokerPassword,
			TOTPSecret: cfg.BrokerTOTPSecret,
		})
		if err := liveClient.Login(ctx); err != nil {
			log.Fatalf("[alertengine] broker login: %v", err)
		}
		provider = liveClient
	}

	// ---- Stores ----
	store, err := sqlitestore.New(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[alertengine] sqlite: %v", err)
	}
	defer store.Close()

	holder := sqlitestore.NewHolder(store, cfg.ConfigRefreshInterval, prom)
	if err := holder.Refresh(ctx); err != nil {
		log.Fatalf("[alertengine] initial config load: %v", err)
	}
	log.Printf("[alertengine] loaded %d alert config(s)", len(holder.Snapshot()))
	log.Printf("[alertengine] %s", markethours.StatusString(time.Now()))

	var redisWriter *redisstore.Writer
	if !cfg.DryRun {
		redisWriter, err = redisstore.New(redisstore.WriterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("[alertengine] redis: %v", err)
		}
		defer redisWriter.Close()
	}

	// ---- Shared state ----
	locks := keyedlock.New()
	cellCache := snapcache.New[composite.Cell](snapcache.DefaultCapacity, locks)
	strengthCache := snapcache.New[strength.Snapshot](snapcache.DefaultCapacity, locks)
	tickCache := snapcache.New[model.Tick](snapcache.DefaultCapacity, locks)

	scorer := composite.NewScorer(provider, cellCache, snapcache.DefaultCapacity)
	board := strength.NewBoard(provider, strengthCache, strength.DefaultLookback)

	// ---- Delivery ----
	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if redisWriter != nil {
		notifiers = append(notifiers, notification.NotifierFunc(redisWriter.AppendTrigger))
	}
	dispatcher := notification.NewDispatcher(cfg.DispatchQueueSize, prom, notifiers...)
	go dispatcher.Run(ctx)

	// ---- Evaluator ----
	evaluator := alert.New(provider, scorer, strengthCache, locks, dispatcher, alert.Options{
		RearmMargin: cfg.RearmMargin,
		Cooldown:    cfg.Cooldown,
		Metrics:     prom,
	})

	// ---- Quote stream for live tick reads ----
	if liveClient != nil {
		symbols := streamSymbols(holder)
		go func() {
			if err := liveClient.RunStream(ctx, symbols); err != nil && ctx.Err() == nil {
				log.Printf("[alertengine] quote stream stopped: %v", err)
			}
		}()
	}

	// snapshotPrices folds the latest quotes into the shared cache and
	// mirrors them to Redis for dashboard reads.
	snapshotPrices := func(ctx context.Context) error {
		for _, sym := range streamSymbols(holder) {
			tick, err := provider.GetLatestTick(ctx, sym)
			if err != nil {
				continue
			}
			tickCache.Update(keyedlock.NSPrice+sym, tick.TS, tick)
			if redisWriter != nil {
				redisWriter.WriteTick(ctx, tick)
			}
		}
		return nil
	}

	strengthTFs := parseTimeframes(cfg.StrengthTimeframes)

	sched := scheduler.New(
		scheduler.Job{
			Name:      "evaluate",
			Interval:  cfg.EvalInterval,
			Immediate: true,
			Handler: func(ctx context.Context) error {
				if !cfg.DryRun && !markethours.IsMarketOpen(time.Now()) {
					return nil
				}
				evaluator.EvaluateAll(ctx, holder.Snapshot())
				evaluator.Sync(holder.ActiveIDs())
				_ = snapshotPrices(ctx)
				prom.CacheKeys.Set(float64(cellCache.Keys() + strengthCache.Keys() + tickCache.Keys()))
				prom.LockKeys.Set(float64(locks.Len()))
				return nil
			},
		},
		scheduler.Job{
			Name:      "strength",
			Interval:  cfg.StrengthInterval,
			Immediate: true,
			Handler: func(ctx context.Context) error {
				for _, tf := range strengthTFs {
					snap, err := board.Compute(ctx, tf)
					if err != nil {
						log.Printf("[alertengine] strength %s: %v", tf, err)
						continue
					}
					prom.StrengthRefreshes.Inc()
					if redisWriter != nil {
						redisWriter.WriteStrength(ctx, tf, snap)
					}
				}
				return nil
			},
		},
		scheduler.Job{
			Name:     "config-refresh",
			Interval: cfg.ConfigRefreshInterval,
			Handler:  holder.Refresh,
		},
		scheduler.Job{
			Name:     "publish-scores",
			Interval: cfg.StrengthInterval,
			Handler: func(ctx context.Context) error {
				if redisWriter == nil {
					return nil
				}
				for _, ac := range holder.Snapshot() {
					if ac.Kind != model.KindCompositeThreshold || ac.Composite == nil {
						continue
					}
					for _, sym := range ac.Symbols {
						score, err := scorer.Score(ctx, sym, ac.Composite.Style)
						if err != nil {
							continue
						}
						redisWriter.WriteScore(ctx, score)
					}
				}
				return nil
			},
		},
	)

	sched.Run(ctx)
	log.Printf("[alertengine] stopped, %d undelivered trigger(s)", dispatcher.Pending())
}

// streamSymbols collects every symbol the config snapshot references,
// plus the major pairs the strength board needs.
func streamSymbols(holder *sqlitestore.Holder) []string {
	seen := make(map[string]bool, len(strength.MajorPairs))
	for _, pair := range strength.MajorPairs {
		seen[pair] = true
	}
	for _, cfg := range holder.Snapshot() {
		for _, sym := range cfg.Symbols {
			seen[sym] = true
		}
		if cfg.Mismatch != nil {
			seen[cfg.Mismatch.SymbolA] = true
			seen[cfg.Mismatch.SymbolB] = true
		}
	}
	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	return symbols
}

func parseTimeframes(raw []string) []model.Timeframe {
	tfs := make([]model.Timeframe, 0, len(raw))
	for _, s := range raw {
		tf := model.Timeframe(strings.ToUpper(strings.TrimSpace(s)))
		if !tf.Valid() {
			log.Printf("[alertengine] skipping unknown timeframe %q", s)
			continue
		}
		tfs = append(tfs, tf)
	}
	if len(tfs) == 0 {
		tfs = append(tfs, model.TFH1)
	}
	return tfs
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
