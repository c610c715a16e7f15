package kis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"StockPull/internal/domain/models"
	"StockPull/internal/repository"
	"StockPull/internal/usecase"
	"StockPull/pkg/cache"
	xhttp "StockPull/pkg/http"
	"StockPull/pkg/logger"
	"StockPull/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct {
	srv *httptest.Server

	tokenCalls atomic.Int32
	dataCalls  atomic.Int32

	tokenDelay   time.Duration
	tokenFails   int32 // first N token calls fail with 500
	expiresIn    interface{}
	unauthorized int32 // first N data calls answer 401
	intercept    func(w http.ResponseWriter, r *http.Request) bool

	mu   sync.Mutex
	data map[string]interface{} // path -> response body
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	f := &fakeUpstream{expiresIn: 86400, data: map[string]interface{}{}}
	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		n := f.tokenCalls.Add(1)
		if f.tokenDelay > 0 {
			time.Sleep(f.tokenDelay)
		}
		if n <= f.tokenFails {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var req tokenRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "client_credentials", req.GrantType)
		writeJSON(w, map[string]interface{}{
			"access_token": "tok",
			"token_type":   "Bearer",
			"expires_in":   f.expiresIn,
		})
	})
	mux.HandleFunc("/uapi/", func(w http.ResponseWriter, r *http.Request) {
		n := f.dataCalls.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("authorization"))
		assert.Equal(t, "P", r.Header.Get("custtype"))
		assert.NotEmpty(t, r.Header.Get("tr_id"))
		if n <= f.unauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.intercept != nil && f.intercept(w, r) {
			return
		}
		f.mu.Lock()
		body, ok := f.data[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, body)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeUpstream) set(path string, body interface{}) {
	f.mu.Lock()
	f.data[path] = body
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		AppKey:            "key",
		AppSecret:         "secret",
		RequestTimeout:    2 * time.Second,
		TokenRetryBackoff: time.Millisecond,
		BarLookbackDays:   100,
	}
}

func newHTTP() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(2 * time.Second))
}

func newTestClient(f *fakeUpstream) *Client {
	return New(testConfig(f.srv.URL), logger.NewNop(), metrics.Noop{})
}

func TestTokenSingleFlight(t *testing.T) {
	f := newFakeUpstream(t)
	f.tokenDelay = 50 * time.Millisecond
	c := newTestClient(f)

	const callers = 20
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = c.tokens.Token(context.Background())
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.tokenCalls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok", tokens[i])
	}
}

func TestTokenReusedUntilMarginThenRefreshed(t *testing.T) {
	f := newFakeUpstream(t)
	f.expiresIn = 3600

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	m := NewTokenManager(testConfig(f.srv.URL), newHTTP(), logger.NewNop(), metrics.Noop{})
	m.now = func() time.Time { return now }

	ctx := context.Background()
	_, err := m.Token(ctx)
	require.NoError(t, err)
	_, err = m.Token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.tokenCalls.Load())

	// expiry is 3600s-60s after issue; under 60s left at +3500s
	now = now.Add(3480 * time.Second)
	_, err = m.Token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.tokenCalls.Load())

	now = now.Add(20 * time.Second)
	_, err = m.Token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.tokenCalls.Load())
}

func TestTokenRetriesOnce(t *testing.T) {
	f := newFakeUpstream(t)
	f.tokenFails = 1
	c := newTestClient(f)

	tok, err := c.tokens.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.EqualValues(t, 2, f.tokenCalls.Load())
}

func TestTokenFailureNotCached(t *testing.T) {
	f := newFakeUpstream(t)
	f.tokenFails = 100
	c := newTestClient(f)

	_, err := c.tokens.Token(context.Background())
	require.ErrorIs(t, err, ErrAuthFailure)
	assert.EqualValues(t, 2, f.tokenCalls.Load())

	_, err = c.tokens.Token(context.Background())
	require.ErrorIs(t, err, ErrAuthFailure)
	assert.EqualValues(t, 4, f.tokenCalls.Load())
}

func TestTokenTTL(t *testing.T) {
	assert.Equal(t, fallbackTokenTTL, tokenTTL(nil))
	assert.Equal(t, fallbackTokenTTL, tokenTTL(json.RawMessage(`0`)))
	assert.Equal(t, fallbackTokenTTL, tokenTTL(json.RawMessage(`"soon"`)))
	assert.Equal(t, 24*time.Hour, tokenTTL(json.RawMessage(`86400`)))
	assert.Equal(t, time.Hour, tokenTTL(json.RawMessage(`"3600"`)))
}

func TestDomesticSpot(t *testing.T) {
	f := newFakeUpstream(t)
	f.set(domesticPricePath, map[string]interface{}{
		"rt_cd": "0",
		"output": map[string]string{
			"stck_prpr": "71500",
			"prdy_ctrt": "-1.24",
			"acml_vol":  "12345678",
		},
	})
	c := newTestClient(f)

	q, err := c.DomesticSpot(context.Background(), "005930")
	require.NoError(t, err)
	require.True(t, q.HasPrice())
	assert.Equal(t, 71500.0, *q.Price)
	assert.Equal(t, -1.24, *q.ChangePct)
	assert.EqualValues(t, 12345678, *q.Volume)
}

func TestNonSuccessRtCd(t *testing.T) {
	f := newFakeUpstream(t)
	f.set(domesticPricePath, map[string]interface{}{"rt_cd": "1", "msg_cd": "OPSQ0002", "msg1": "no such code"})
	c := newTestClient(f)

	_, err := c.DomesticSpot(context.Background(), "999999")
	require.ErrorIs(t, err, ErrUpstreamRequest)
}

func TestUnauthorizedRetriedOnce(t *testing.T) {
	f := newFakeUpstream(t)
	f.unauthorized = 1
	f.set(domesticPricePath, map[string]interface{}{"rt_cd": "0", "output": map[string]string{"stck_prpr": "100"}})
	c := newTestClient(f)

	q, err := c.DomesticSpot(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, 100.0, *q.Price)
	assert.EqualValues(t, 2, f.dataCalls.Load())
	assert.EqualValues(t, 2, f.tokenCalls.Load())
}

func TestUnauthorizedTwiceSurfaces(t *testing.T) {
	f := newFakeUpstream(t)
	f.unauthorized = 100
	c := newTestClient(f)

	_, err := c.DomesticSpot(context.Background(), "005930")
	require.ErrorIs(t, err, ErrUpstreamRequest)
	assert.EqualValues(t, 2, f.dataCalls.Load())
}

func TestExpiredTokenMessageTreatedAsUnauthorized(t *testing.T) {
	f := newFakeUpstream(t)
	var calls atomic.Int32
	f.intercept = func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path == domesticPricePath && calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			writeJSON(w, map[string]string{"rt_cd": "1", "msg_cd": msgExpiredToken})
			return true
		}
		return false
	}
	f.set(domesticPricePath, map[string]interface{}{"rt_cd": "0", "output": map[string]string{"stck_prpr": "5"}})
	c := newTestClient(f)

	q, err := c.DomesticSpot(context.Background(), "000660")
	require.NoError(t, err)
	assert.Equal(t, 5.0, *q.Price)
	assert.EqualValues(t, 2, f.tokenCalls.Load())
}

func TestDomesticFundamentalsAndBars(t *testing.T) {
	f := newFakeUpstream(t)
	f.set(domesticRatioPath, map[string]interface{}{
		"rt_cd": "0",
		"output": []map[string]string{
			{"stac_yymm": "202312", "roe_val": "4.15", "eps": "2131.00", "bps": ""},
			{"stac_yymm": "202212", "roe_val": "17.07", "eps": "8057.00", "bps": "50817.00"},
		},
	})
	f.set(domesticChartPath, map[string]interface{}{
		"rt_cd": "0",
		"output2": []map[string]string{
			{"stck_bsop_date": "20240229", "stck_oprc": "73000", "stck_hgpr": "73500", "stck_lwpr": "72000", "stck_clpr": "73400", "acml_vol": "1000"},
			{"stck_bsop_date": "20240228", "stck_oprc": "72000", "stck_hgpr": "73000", "stck_lwpr": "71800", "stck_clpr": "72900", "acml_vol": "900"},
			{"stck_bsop_date": "", "stck_clpr": "1"},
		},
	})
	c := newTestClient(f)

	fund, err := c.DomesticFundamentals(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, 4.15, *fund.ROE)
	assert.Equal(t, 2131.0, *fund.EPS)
	assert.Nil(t, fund.BPS)

	bars, err := c.DomesticDailyBars(context.Background(), "005930")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "20240229", bars[0].Date)
	assert.Equal(t, 73400.0, bars[0].Close)
	assert.EqualValues(t, 900, bars[1].Volume)
}

func TestForeignSpotBlankPrice(t *testing.T) {
	f := newFakeUpstream(t)
	f.set(foreignPricePath, map[string]interface{}{"rt_cd": "0", "output": map[string]string{"last": "", "rate": "", "tvol": ""}})
	c := newTestClient(f)

	q, err := c.ForeignSpot(context.Background(), "NAS", "IBM")
	require.NoError(t, err)
	assert.False(t, q.HasPrice())
	assert.Equal(t, "NAS", q.Exchange)
}

func TestNotConfiguredMakesNoCalls(t *testing.T) {
	f := newFakeUpstream(t)
	cfg := testConfig(f.srv.URL)
	cfg.AppSecret = ""
	c := New(cfg, logger.NewNop(), metrics.Noop{})

	assert.False(t, c.Configured())
	_, err := c.DomesticSpot(context.Background(), "005930")
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.EqualValues(t, 0, f.tokenCalls.Load())
	assert.EqualValues(t, 0, f.dataCalls.Load())
}

func TestInvalidateOnlyDropsRejectedToken(t *testing.T) {
	f := newFakeUpstream(t)
	m := NewTokenManager(testConfig(f.srv.URL), newHTTP(), logger.NewNop(), metrics.Noop{})
	ctx := context.Background()

	_, err := m.Token(ctx)
	require.NoError(t, err)

	// a rejection of an older token leaves the current one alone
	m.Invalidate("stale")
	m.Invalidate("")
	tok, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.EqualValues(t, 1, f.tokenCalls.Load())

	m.Invalidate("tok")
	_, err = m.Token(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.tokenCalls.Load())
}

func TestPaceDelayBeforeEveryCall(t *testing.T) {
	f := newFakeUpstream(t)
	f.set(domesticPricePath, map[string]interface{}{"rt_cd": "0", "output": map[string]string{"stck_prpr": "100"}})
	cfg := testConfig(f.srv.URL)
	cfg.PaceDelay = 40 * time.Millisecond
	c := New(cfg, logger.NewNop(), metrics.Noop{})
	ctx := context.Background()

	// token request and data request are both paced
	start := time.Now()
	_, err := c.DomesticSpot(ctx, "005930")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)

	start = time.Now()
	_, err = c.DomesticSpot(ctx, "005930")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.EqualValues(t, 1, f.tokenCalls.Load())
	assert.EqualValues(t, 2, f.dataCalls.Load())
}

func TestTokenAndDataShareLimiter(t *testing.T) {
	f := newFakeUpstream(t)
	f.set(domesticPricePath, map[string]interface{}{"rt_cd": "0", "output": map[string]string{"stck_prpr": "100"}})
	cfg := testConfig(f.srv.URL)
	cfg.RateLimit = 10
	c := New(cfg, logger.NewNop(), metrics.Noop{})

	// the token request spends the single burst slot
	start := time.Now()
	_, err := c.DomesticSpot(context.Background(), "005930")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRequestTimeoutSurfacesOnQuote(t *testing.T) {
	f := newFakeUpstream(t)
	f.intercept = func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path != domesticPricePath {
			return false
		}
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		return true
	}
	cfg := testConfig(f.srv.URL)
	cfg.RequestTimeout = 50 * time.Millisecond
	hc := xhttp.NewClient(xhttp.WithTimeout(5 * time.Second))
	c := NewWithTokens(cfg, hc, NewTokenManager(cfg, hc, logger.NewNop(), metrics.Noop{}), logger.NewNop(), metrics.Noop{})

	_, err := c.DomesticSpot(context.Background(), "005930")
	require.ErrorIs(t, err, ErrUpstreamRequest)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	fetcher := usecase.NewQuoteFetcher(
		usecase.FetcherConfig{QuoteTTL: time.Minute, FundamentalsTTL: time.Hour},
		c,
		repository.NewStaticUniverse(nil, nil, nil, nil),
		cache.NewMemory[models.Quote](),
		cache.NewMemory[models.Fundamentals](),
		logger.NewNop(),
		metrics.Noop{},
	)
	q := fetcher.Fetch(context.Background(), "005930")
	assert.Nil(t, q.Price)
	assert.Contains(t, q.Note, "deadline exceeded")
}
