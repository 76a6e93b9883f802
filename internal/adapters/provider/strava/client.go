package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/ports"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://www.strava.com/api/v3"
	defaultTokenURL = "https://www.strava.com/oauth/token"
	defaultTimeout  = 15 * time.Second

	// Bounded retry for the activity listing on 429 and transient
	// failures. Token operations are never retried; the caller decides.
	maxFetchAttempts = 3
	retryBaseDelay   = 500 * time.Millisecond

	maxResponseBody = 1 << 20
)

type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
	Timeout      time.Duration
}

type httpResult struct {
	status int
	body   []byte
}

// Client talks to the strava OAuth and REST endpoints. Outbound calls go
// through a client-side rate limiter (strava enforces per-app quotas) and
// a circuit breaker so a provider outage fails fast instead of tying up
// worker goroutines.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[httpResult]
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	settings := gobreaker.Settings{
		Name:    "strava",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[httpResult](settings),
		limiter: rate.NewLimiter(rate.Every(time.Second), 4),
		logger:  logger,
	}
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*ports.TokenGrant, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)

	grant, err := c.postToken(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExchangeFailed, err)
	}
	return grant, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*ports.TokenGrant, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	grant, err := c.postToken(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
	}
	return grant, nil
}

func (c *Client) ListActivities(ctx context.Context, accessToken string, after int64) ([]ports.RawActivity, error) {
	endpoint := c.cfg.BaseURL + "/athlete/activities?after=" + strconv.FormatInt(after, 10)

	var res httpResult
	var err error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if reqErr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, reqErr)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		res, err = c.do(ctx, req)
		if !retryable(res, err) {
			break
		}
		if attempt == maxFetchAttempts {
			break
		}

		delay := retryBaseDelay << (attempt - 1)
		c.logger.Warn("retrying activity fetch",
			zap.Int("attempt", attempt),
			zap.Int("status", res.status),
			zap.Duration("delay", delay),
			zap.Error(err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, ctx.Err())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	if res.status == http.StatusUnauthorized || res.status == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %w: status %d: %s",
			domain.ErrFetchFailed, domain.ErrInsufficientScope, res.status, snippet(res.body))
	}
	if res.status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s",
			domain.ErrFetchFailed, res.status, snippet(res.body))
	}

	var activities []ports.RawActivity
	if err := json.Unmarshal(res.body, &activities); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrFetchFailed, err)
	}
	return activities, nil
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*ports.TokenGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.status != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", res.status, snippet(res.body))
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresAt    int64  `json:"expires_at"`
		Athlete      *struct {
			ID        int64  `json:"id"`
			FirstName string `json:"firstname"`
			LastName  string `json:"lastname"`
			Sex       string `json:"sex"`
		} `json:"athlete"`
	}
	if err := json.Unmarshal(res.body, &payload); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	grant := &ports.TokenGrant{
		AccessToken:     payload.AccessToken,
		RefreshToken:    payload.RefreshToken,
		TokenExpiration: payload.ExpiresAt,
	}
	if payload.Athlete != nil {
		grant.Athlete = &ports.Athlete{
			ID:        payload.Athlete.ID,
			FirstName: payload.Athlete.FirstName,
			LastName:  payload.Athlete.LastName,
			Gender:    payload.Athlete.Sex,
		}
	}
	return grant, nil
}

// do runs one request through the limiter and the breaker. Server-side
// errors count as breaker failures; 4xx responses do not.
func (c *Client) do(ctx context.Context, req *http.Request) (httpResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return httpResult{}, err
	}

	return c.breaker.Execute(func() (httpResult, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return httpResult{}, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return httpResult{}, err
		}

		res := httpResult{status: resp.StatusCode, body: body}
		if resp.StatusCode >= http.StatusInternalServerError {
			return res, fmt.Errorf("provider error: status %d", resp.StatusCode)
		}
		return res, nil
	})
}

func retryable(res httpResult, err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if err != nil {
		return true
	}
	return res.status == http.StatusTooManyRequests
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
