package kis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	drepo "StockPull/internal/domain/repository"
	xhttp "StockPull/pkg/http"
	"StockPull/pkg/logger"

	"golang.org/x/time/rate"
)

// msgExpiredToken is the upstream message code for an expired token. It can
// arrive with HTTP 200 or 500, so it is checked separately from 401.
const msgExpiredToken = "EGW00123"

// Config holds connection settings for the quote service.
type Config struct {
	BaseURL           string
	AppKey            string
	AppSecret         string
	RequestTimeout    time.Duration
	PaceDelay         time.Duration
	RateLimit         float64 // requests per second; 0 disables the limiter
	TokenRetryBackoff time.Duration
	BarLookbackDays   int
}

// envelope carries the status fields common to every data response.
type envelope struct {
	RtCd  string `json:"rt_cd"`
	MsgCd string `json:"msg_cd"`
	Msg1  string `json:"msg1"`
}

func (e *envelope) status() *envelope { return e }

type response interface {
	status() *envelope
}

// Client is the authenticated transport to the quote service. It implements
// repository.MarketData.
type Client struct {
	cfg     Config
	baseURL string
	http    *xhttp.Client
	tokens  drepo.TokenSource
	pacer   *pacer
	log     *logger.Logger
	metrics drepo.Metrics
	now     func() time.Time
}

var _ drepo.MarketData = (*Client)(nil)

// New builds a client with its own TokenManager. Token and data requests
// share one pacer.
func New(cfg Config, log *logger.Logger, metrics drepo.Metrics) *Client {
	log = log.Named("kis")
	hc := xhttp.NewClient(xhttp.WithTimeout(cfg.RequestTimeout))
	tm := NewTokenManager(cfg, hc, log, metrics)
	return newClient(cfg, hc, tm, tm.pacer, log, metrics)
}

// NewWithTokens builds a client around an existing token source.
func NewWithTokens(cfg Config, hc *xhttp.Client, tokens drepo.TokenSource, log *logger.Logger, metrics drepo.Metrics) *Client {
	return newClient(cfg, hc, tokens, newPacer(cfg), log, metrics)
}

func newClient(cfg Config, hc *xhttp.Client, tokens drepo.TokenSource, p *pacer, log *logger.Logger, metrics drepo.Metrics) *Client {
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		tokens:  tokens,
		pacer:   p,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
}

// Configured reports whether both app key and app secret are set.
func (c *Client) Configured() bool {
	return c.cfg.AppKey != "" && c.cfg.AppSecret != ""
}

// get performs one authenticated GET. A rejected token is invalidated and the
// request retried exactly once with a fresh token.
func (c *Client) get(ctx context.Context, endpoint, path, trID string, params map[string]string, dest response) error {
	rejected, err := c.getOnce(ctx, endpoint, path, trID, params, dest)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	c.log.Debug("token rejected, retrying", logger.String("endpoint", endpoint))
	c.tokens.Invalidate(rejected)
	_, err = c.getOnce(ctx, endpoint, path, trID, params, dest)
	if errors.Is(err, ErrUnauthorized) {
		return fmt.Errorf("%w: %w", ErrUpstreamRequest, err)
	}
	return err
}

// getOnce returns the token it sent so a rejection can invalidate exactly
// that token.
func (c *Client) getOnce(ctx context.Context, endpoint, path, trID string, params map[string]string, dest response) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	if err := c.pacer.wait(ctx); err != nil {
		return token, fmt.Errorf("%w: %s: %w", ErrUpstreamRequest, endpoint, err)
	}

	rctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	start := c.now()
	err = c.http.SendAndParse(rctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: params,
		Headers: map[string]string{
			"content-type":  "application/json; charset=utf-8",
			"authorization": "Bearer " + token,
			"appkey":        c.cfg.AppKey,
			"appsecret":     c.cfg.AppSecret,
			"tr_id":         trID,
			"custtype":      "P",
		},
	}, dest)
	c.metrics.RecordLatency("upstream_"+endpoint, c.now().Sub(start).Seconds())

	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && (se.Code == http.StatusUnauthorized || strings.Contains(se.Body, msgExpiredToken)) {
			c.metrics.RecordUpstreamCall(endpoint, "unauthorized")
			return token, fmt.Errorf("%w: %s: status %d", ErrUnauthorized, endpoint, se.Code)
		}
		result := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			result = "timeout"
		}
		c.metrics.RecordUpstreamCall(endpoint, result)
		return token, fmt.Errorf("%w: %s: %w", ErrUpstreamRequest, endpoint, err)
	}

	st := dest.status()
	if st.MsgCd == msgExpiredToken {
		c.metrics.RecordUpstreamCall(endpoint, "unauthorized")
		return token, fmt.Errorf("%w: %s: %s", ErrUnauthorized, endpoint, st.Msg1)
	}
	if st.RtCd != "0" {
		c.metrics.RecordUpstreamCall(endpoint, "rejected")
		return token, fmt.Errorf("%w: %s: rt_cd=%q msg_cd=%q %s", ErrUpstreamRequest, endpoint, st.RtCd, st.MsgCd, st.Msg1)
	}
	c.metrics.RecordUpstreamCall(endpoint, "ok")
	return token, nil
}

// pacer spaces out every upstream call: a fixed delay before each request,
// then the process-wide limiter.
type pacer struct {
	delay   time.Duration
	limiter *rate.Limiter
}

func newPacer(cfg Config) *pacer {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &pacer{delay: cfg.PaceDelay, limiter: rate.NewLimiter(limit, 1)}
}

func (p *pacer) wait(ctx context.Context) error {
	if p.delay > 0 {
		t := time.NewTimer(p.delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return p.limiter.Wait(ctx)
}
