package models

// DailyBar is one trading day. Date is YYYYMMDD so it sorts lexicographically.
type DailyBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Fundamentals are domestic-only ratios. Nil means unknown, not zero.
type Fundamentals struct {
	ROE *float64 `json:"roe,omitempty"`
	EPS *float64 `json:"eps,omitempty"`
	BPS *float64 `json:"bps,omitempty"`
}

// TechnicalSnapshot is derived from a bar sequence. When fewer than 60 bars
// are available only MarketScore is set (degraded default of 50).
type TechnicalSnapshot struct {
	MA20        *float64 `json:"ma20,omitempty"`
	MA60        *float64 `json:"ma60,omitempty"`
	RSI14       *float64 `json:"rsi14,omitempty"`
	VolumeRatio *float64 `json:"volumeRatio,omitempty"`
	ATRPercent  *float64 `json:"atrPct,omitempty"`
	MarketScore int      `json:"marketScore"`
}

// Quote is the per-ticker enrichment result. Failures are carried in Note
// instead of an error.
type Quote struct {
	Ticker       string             `json:"ticker"`
	Price        *float64           `json:"price,omitempty"`
	ChangePct    *float64           `json:"changePct,omitempty"`
	Volume       *int64             `json:"volume,omitempty"`
	Fundamentals *Fundamentals      `json:"fundamentals,omitempty"`
	Technical    *TechnicalSnapshot `json:"technical,omitempty"`
	Note         string             `json:"note,omitempty"`
}

// WithTicker returns a copy of q keyed to ticker.
func (q Quote) WithTicker(ticker string) Quote {
	q.Ticker = ticker
	return q
}

// SpotQuote is a spot price as returned by the upstream service. Fields the
// upstream left blank or unparseable are nil.
type SpotQuote struct {
	Price     *float64
	ChangePct *float64
	Volume    *int64
	Exchange  string
}

// HasPrice reports whether the quote carries a positive price.
func (s SpotQuote) HasPrice() bool {
	return s.Price != nil && *s.Price > 0
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
