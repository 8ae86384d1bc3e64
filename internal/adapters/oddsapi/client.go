// Package oddsapi implementa ports.FeedProvider sobre The Odds API v4.
package oddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

const (
	defaultBaseURL = "https://api.the-odds-api.com"
	defaultRegions = "us"

	// Cada request consume cuota (regions × markets); 1 req/s con ráfaga de
	// un fetch por deporte es suficiente para intervalos de 30-60s.
	requestsPerSec = 1
	requestBurst   = 4

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Config agrupa los parámetros del cliente.
type Config struct {
	BaseURL    string
	APIKey     string
	Regions    string
	Markets    []string
	Bookmakers []string // claves del proveedor; vacío = todos los de la región
	Timeout    time.Duration
}

// Client es el HTTP client de The Odds API con rate limiting y retries.
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	regions    string
	markets    string
	bookmakers string
	limiter    *rate.Limiter
}

// NewClient crea un Client. Sin BaseURL usa el endpoint de producción.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Regions == "" {
		cfg.Regions = defaultRegions
	}
	if len(cfg.Markets) == 0 {
		cfg.Markets = []string{"h2h", "spreads", "totals"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		regions:    cfg.Regions,
		markets:    strings.Join(cfg.Markets, ","),
		bookmakers: strings.Join(cfg.Bookmakers, ","),
		limiter:    rate.NewLimiter(requestsPerSec, requestBurst),
	}
}

// FetchEvents devuelve los eventos con cotizaciones del deporte. Los fallos se
// clasifican en domain.ErrFeedTimeout o domain.ErrFeedUnavailable.
func (c *Client) FetchEvents(ctx context.Context, sportKey string) ([]domain.FeedEvent, error) {
	var raw []eventDTO
	if err := c.get(ctx, c.oddsURL(sportKey), &raw); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("oddsapi.FetchEvents: %s: %w: %w", sportKey, domain.ErrFeedTimeout, err)
		}
		return nil, fmt.Errorf("oddsapi.FetchEvents: %s: %w: %w", sportKey, domain.ErrFeedUnavailable, err)
	}
	return mapEvents(raw), nil
}

func (c *Client) oddsURL(sportKey string) string {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("regions", c.regions)
	q.Set("markets", c.markets)
	q.Set("oddsFormat", "decimal")
	q.Set("dateFormat", "iso")
	if c.bookmakers != "" {
		q.Set("bookmakers", c.bookmakers)
	}
	return fmt.Sprintf("%s/v4/sports/%s/odds/?%s", c.baseURL, url.PathEscape(sportKey), q.Encode())
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
// 429 y 5xx se reintentan; el resto de 4xx no.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries || ctx.Err() != nil {
				return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by odds API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		defer resp.Body.Close()
		if remaining := resp.Header.Get("x-requests-remaining"); remaining != "" {
			slog.Debug("odds API quota", "remaining", remaining, "used", resp.Header.Get("x-requests-used"))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
