package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"market-alert-engine/internal/model"
)

// ClientConfig configures the live provider client.
type ClientConfig struct {
	BaseURL    string // REST root, e.g. "https://api.example-feed.com"
	StreamURL  string // websocket quote stream
	APIKey     string
	AccountID  string
	Password   string
	TOTPSecret string // session login requires a fresh TOTP code

	Timeout time.Duration // per-request; default 7s
}

// Client is the live market-data provider: REST candles plus a websocket
// quote stream feeding an in-memory latest-tick table. A fresh session is
// established with a TOTP code; on 401 the next call re-logs in.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client

	mu      sync.RWMutex
	session string
	ticks   map[string]model.Tick
}

// NewClient creates a client. Call Login before the first request, or let
// the first request trigger it.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 7 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		ticks:      make(map[string]model.Tick),
	}
}

type sessionResponse struct {
	Token string `json:"token"`
}

// Login generates a TOTP code and opens a session.
func (c *Client) Login(ctx context.Context) error {
	code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("marketdata: totp generation: %w", err)
	}

	body, _ := json.Marshal(map[string]string{
		"account_id": c.cfg.AccountID,
		"password":   c.cfg.Password,
		"totp":       code,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/session", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("marketdata: login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("marketdata: login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("marketdata: login status %d", resp.StatusCode)
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return fmt.Errorf("marketdata: login decode: %w", err)
	}

	c.mu.Lock()
	c.session = sr.Token
	c.mu.Unlock()
	log.Printf("[marketdata] session established for %s", c.cfg.AccountID)
	return nil
}

func (c *Client) sessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

type candlePayload struct {
	TS     int64   `json:"ts"` // epoch ms, bucket start
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	Closed bool    `json:"closed"`
}

var errUnauthorized = errors.New("marketdata: session rejected")

// GetBars fetches up to count recent candles, oldest to newest. A 401
// triggers exactly one re-login and retry; a second 401 is surfaced.
func (c *Client) GetBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	bars, err := c.getBars(ctx, symbol, tf, count)
	if !errors.Is(err, errUnauthorized) {
		return bars, err
	}
	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	return c.getBars(ctx, symbol, tf, count)
}

func (c *Client) getBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	url := fmt.Sprintf("%s/v1/candles?symbol=%s&timeframe=%s&count=%d", c.cfg.BaseURL, symbol, tf, count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("marketdata: candles request: %w", err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.sessionToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("marketdata: candles: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, errUnauthorized
	case http.StatusNotFound:
		return nil, ErrNoData
	default:
		return nil, fmt.Errorf("marketdata: candles status %d", resp.StatusCode)
	}

	var payload []candlePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("marketdata: candles decode: %w", err)
	}
	if len(payload) == 0 {
		return nil, ErrNoData
	}

	bars := make([]model.Bar, len(payload))
	for i, p := range payload {
		bars[i] = model.Bar{
			Symbol:    symbol,
			Timeframe: tf,
			TS:        time.UnixMilli(p.TS).UTC(),
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
			Volume:    p.Volume,
			Closed:    p.Closed,
		}
	}
	return bars, nil
}

// GetLatestTick serves from the websocket-fed tick table first and falls
// back to a REST quote when the stream has nothing for the symbol.
func (c *Client) GetLatestTick(ctx context.Context, symbol string) (model.Tick, error) {
	c.mu.RLock()
	t, ok := c.ticks[symbol]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}
	return c.fetchQuote(ctx, symbol)
}

type quotePayload struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
	TS  int64   `json:"ts"`
}

func (c *Client) fetchQuote(ctx context.Context, symbol string) (model.Tick, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/quote?symbol="+symbol, nil)
	if err != nil {
		return model.Tick{}, fmt.Errorf("marketdata: quote request: %w", err)
	}
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.sessionToken())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Tick{}, fmt.Errorf("marketdata: quote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return model.Tick{}, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		return model.Tick{}, fmt.Errorf("marketdata: quote status %d", resp.StatusCode)
	}

	var q quotePayload
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return model.Tick{}, fmt.Errorf("marketdata: quote decode: %w", err)
	}
	return model.Tick{Symbol: symbol, Bid: q.Bid, Ask: q.Ask, TS: time.UnixMilli(q.TS).UTC()}, nil
}

type streamTick struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	TS     int64   `json:"ts"`
}

// RunStream connects the quote websocket, subscribes to symbols and keeps
// the latest-tick table fresh. It reconnects with exponential backoff
// until ctx is cancelled. The error return is only non-nil when the very
// first connect fails — the owning loop treats that as fatal and retries
// with its own backoff.
func (c *Client) RunStream(ctx context.Context, symbols []string) error {
	backoff := time.Second
	connectedOnce := false

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.StreamURL, http.Header{
			"X-API-Key":     {c.cfg.APIKey},
			"Authorization": {"Bearer " + c.sessionToken()},
		})
		if err != nil {
			if !connectedOnce {
				return fmt.Errorf("marketdata: initial stream connect: %w", err)
			}
			log.Printf("[marketdata] stream reconnect failed: %v (retry in %v)", err, backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		connectedOnce = true
		backoff = time.Second
		log.Printf("[marketdata] stream connected, subscribing %d symbols", len(symbols))

		sub, _ := json.Marshal(map[string]any{"action": "subscribe", "symbols": symbols})
		if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
			conn.Close()
			continue
		}

		c.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[marketdata] stream read: %v", err)
			}
			return
		}
		var st streamTick
		if json.Unmarshal(data, &st) != nil || st.Symbol == "" {
			continue
		}
		c.mu.Lock()
		c.ticks[st.Symbol] = model.Tick{
			Symbol: st.Symbol,
			Bid:    st.Bid,
			Ask:    st.Ask,
			TS:     time.UnixMilli(st.TS).UTC(),
		}
		c.mu.Unlock()
	}
}
