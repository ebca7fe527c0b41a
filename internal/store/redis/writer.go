// Package redis persists trigger events and the latest engine snapshots
// to Redis so dashboards and downstream consumers can follow the engine
// without touching its hot path.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"market-alert-engine/internal/composite"
	"market-alert-engine/internal/model"
	"market-alert-engine/internal/strength"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Trigger stream trimming: roughly a week of busy alerting.
	triggerStreamMaxLen = 50000
	triggerStream       = "alerts:triggers"
	triggerPubSub       = "pub:alerts:trigger"

	defaultLatestTTL = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer writes trigger events, composite scores, and strength boards.
type Writer struct {
	client *goredis.Client
}

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// AppendTrigger writes a fired trigger: XADD to the capped stream, SET
// of the alert's latest trigger, PUBLISH for live subscribers. One
// pipeline, one roundtrip.
func (w *Writer) AppendTrigger(ctx context.Context, ev model.TriggerEvent) error {
	jsonData := string(ev.JSON())

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: triggerStream,
		MaxLen: triggerStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, "alerts:latest:"+ev.AlertID, jsonData, 0)
	pipe.Publish(ctx, triggerPubSub, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis trigger pipeline for %s: %w", ev.AlertID, err)
	}
	return nil
}

// WriteScore stores the latest composite score for a symbol/style and
// publishes it for dashboard subscribers.
func (w *Writer) WriteScore(ctx context.Context, score *composite.Score) {
	data, err := json.Marshal(score)
	if err != nil {
		log.Printf("[redis] score marshal for %s: %v", score.Symbol, err)
		return
	}
	jsonData := string(data)
	latestKey := "score:latest:" + score.Symbol + ":" + string(score.Style)

	pipe := w.client.Pipeline()
	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, "pub:score:"+score.Symbol, jsonData)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] score pipeline for %s: %v", score.Symbol, err)
	}
}

// WriteTick stores the latest quote for a symbol, with the midpoint
// precomputed for dashboard reads.
func (w *Writer) WriteTick(ctx context.Context, tick model.Tick) {
	data, err := json.Marshal(struct {
		model.Tick
		Mid float64 `json:"mid"`
	}{tick, tick.Mid()})
	if err != nil {
		log.Printf("[redis] tick marshal for %s: %v", tick.Symbol, err)
		return
	}
	if err := w.client.Set(ctx, "price:latest:"+tick.Symbol, string(data), defaultLatestTTL).Err(); err != nil {
		log.Printf("[redis] tick set for %s: %v", tick.Symbol, err)
	}
}

// WriteStrength stores the latest strength board for a timeframe.
func (w *Writer) WriteStrength(ctx context.Context, tf model.Timeframe, snap *strength.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("[redis] strength marshal for %s: %v", tf, err)
		return
	}
	jsonData := string(data)

	pipe := w.client.Pipeline()
	pipe.Set(ctx, "strength:latest:"+string(tf), jsonData, defaultLatestTTL)
	pipe.Publish(ctx, "pub:strength:"+string(tf), jsonData)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] strength pipeline for %s: %v", tf, err)
	}
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
