package kis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	drepo "StockPull/internal/domain/repository"
	xhttp "StockPull/pkg/http"
	"StockPull/pkg/logger"
	"StockPull/pkg/util"

	"golang.org/x/sync/singleflight"
)

const (
	tokenPath = "/oauth2/tokenP"

	// tokenSafetyMargin is subtracted from the advertised lifetime, and a
	// cached token is only handed out while at least this much remains.
	tokenSafetyMargin = 60 * time.Second
	fallbackTokenTTL  = 23 * time.Hour
	tokenAttempts     = 2
)

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	AppSecret string `json:"appsecret"`
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   json.RawMessage `json:"expires_in"`
}

// TokenManager owns the process-wide access token. Concurrent callers that
// find no usable token share a single refresh.
type TokenManager struct {
	baseURL   string
	appKey    string
	appSecret string
	backoff   time.Duration
	timeout   time.Duration

	http    *xhttp.Client
	pacer   *pacer
	log     *logger.Logger
	metrics drepo.Metrics
	now     func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	group singleflight.Group
}

var _ drepo.TokenSource = (*TokenManager)(nil)

func NewTokenManager(cfg Config, httpClient *xhttp.Client, log *logger.Logger, metrics drepo.Metrics) *TokenManager {
	return &TokenManager{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		backoff:   cfg.TokenRetryBackoff,
		timeout:   cfg.RequestTimeout,
		http:      httpClient,
		pacer:     newPacer(cfg),
		log:       log,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Token returns a bearer token with at least a minute of validity left,
// refreshing it when needed.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if m.appKey == "" || m.appSecret == "" {
		return "", ErrNotConfigured
	}
	if tok, ok := m.cached(); ok {
		return tok, nil
	}

	// The refresh outlives any single caller's cancellation since other
	// callers may be waiting on it.
	ch := m.group.DoChan("token", func() (interface{}, error) {
		if tok, ok := m.cached(); ok {
			return tok, nil
		}
		return m.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrAuthFailure, ctx.Err())
	}
}

// Invalidate drops the cached token if it is still the rejected one, so a
// token refreshed by another caller survives stale rejections.
func (m *TokenManager) Invalidate(rejected string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rejected == "" || m.token != rejected {
		return
	}
	m.token = ""
	m.expiresAt = time.Time{}
}

func (m *TokenManager) cached() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" || m.expiresAt.Sub(m.now()) < tokenSafetyMargin {
		return "", false
	}
	return m.token, true
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= tokenAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(m.backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", ErrAuthFailure, ctx.Err())
			}
		}

		tok, ttl, err := m.requestToken(ctx)
		if err == nil {
			m.mu.Lock()
			m.token = tok
			m.expiresAt = m.now().Add(ttl - tokenSafetyMargin)
			m.mu.Unlock()

			m.metrics.RecordTokenRefresh("ok")
			m.log.Info("access token refreshed", logger.Duration("ttl_ms", ttl), logger.Int("attempt", attempt))
			return tok, nil
		}

		lastErr = err
		m.metrics.RecordTokenRefresh("error")
		m.log.Warn("access token refresh failed", logger.Int("attempt", attempt), logger.Error(err))
	}

	m.log.Error("access token unavailable", logger.Error(lastErr))
	return "", fmt.Errorf("%w: %w", ErrAuthFailure, lastErr)
}

func (m *TokenManager) requestToken(ctx context.Context) (string, time.Duration, error) {
	if err := m.pacer.wait(ctx); err != nil {
		return "", 0, err
	}

	rctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var resp tokenResponse
	err := m.http.SendAndParse(rctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     m.baseURL + tokenPath,
		Headers: map[string]string{"content-type": "application/json"},
		Body: tokenRequest{
			GrantType: "client_credentials",
			AppKey:    m.appKey,
			AppSecret: m.appSecret,
		},
	}, &resp)
	if err != nil {
		m.metrics.RecordUpstreamCall("token", "error")
		return "", 0, err
	}
	if resp.AccessToken == "" {
		m.metrics.RecordUpstreamCall("token", "error")
		return "", 0, fmt.Errorf("token response without access_token")
	}
	m.metrics.RecordUpstreamCall("token", "ok")
	return resp.AccessToken, tokenTTL(resp.ExpiresIn), nil
}

// tokenTTL reads expires_in as seconds, number or numeric string. Anything
// missing or non-positive falls back to 23 hours.
func tokenTTL(raw json.RawMessage) time.Duration {
	secs, ok := util.ParseFloat(strings.Trim(string(raw), `"`))
	if !ok || secs <= 0 {
		return fallbackTokenTTL
	}
	return time.Duration(secs * float64(time.Second))
}
