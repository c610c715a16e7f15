// Package indicators computes technical indicators and the composite market
// score from ascending daily bars. All functions are pure.
package indicators

import (
	"math"
	"sort"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"StockPull/internal/domain/models"
)

const (
	// MinBarsForScore is the full MA60 window.
	MinBarsForScore = 60
	// MinBarsForSnapshot is the smallest window that yields any snapshot.
	MinBarsForSnapshot = 20
	// DegradedScore is reported when 20-59 bars are available.
	DegradedScore = 50

	rsiPeriod = 14
	atrPeriod = 14
)

// PrepareBars sorts bars ascending by date, drops duplicate dates and
// discards rows with a non-positive close.
func PrepareBars(bars []models.DailyBar) []models.DailyBar {
	out := make([]models.DailyBar, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 && b.Date != "" {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	dedup := make([]models.DailyBar, 0, len(out))
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date == b.Date {
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// Closes extracts closing prices.
func Closes(bars []models.DailyBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// MA is the arithmetic mean of the last n closes.
func MA(bars []models.DailyBar, n int) (float64, bool) {
	if n <= 0 || len(bars) < n {
		return 0, false
	}
	closes := Closes(bars[len(bars)-n:])
	if n == 1 {
		return closes[0], true
	}
	sma := talib.Sma(closes, n)
	return sma[len(sma)-1], true
}

// RSI14 sums gains and losses over the last 14 day-over-day changes and
// averages each over 14 (no Wilder smoothing).
func RSI14(closes []float64) (float64, bool) {
	if len(closes) < rsiPeriod+1 {
		return 0, false
	}
	window := closes[len(closes)-rsiPeriod-1:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / rsiPeriod
	avgLoss := losses / rsiPeriod
	if avgLoss == 0 {
		return 100, true
	}
	return 100 - 100/(1+avgGain/avgLoss), true
}

// VolumeRatio is mean(last 3 volumes) / mean(last 20 volumes).
func VolumeRatio(bars []models.DailyBar) (float64, bool) {
	if len(bars) < 20 {
		return 0, false
	}
	vols := make([]float64, 20)
	for i, b := range bars[len(bars)-20:] {
		vols[i] = float64(b.Volume)
	}
	long := stat.Mean(vols, nil)
	if long <= 0 {
		return 0, false
	}
	return stat.Mean(vols[17:], nil) / long, true
}

// ATRPercent is the mean 14-day true range divided by the last close.
// The first bar in the window uses its own close as the previous close.
func ATRPercent(bars []models.DailyBar) (float64, bool) {
	if len(bars) < atrPeriod+1 {
		return 0, false
	}
	window := bars[len(bars)-atrPeriod:]
	trs := make([]float64, len(window))
	for i, b := range window {
		prevClose := b.Close
		if i > 0 {
			prevClose = window[i-1].Close
		}
		trs[i] = math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}
	last := window[len(window)-1].Close
	if last <= 0 {
		return 0, false
	}
	return stat.Mean(trs, nil) / last, true
}

// Components are the sub-scores behind a composite score.
type Components struct {
	Trend      float64
	Momentum   float64
	Volume     float64
	RSIPenalty float64
	VolPenalty float64
}

// Raw is the unscaled composite.
func (c Components) Raw() float64 {
	return c.Trend + c.Momentum + c.Volume + c.RSIPenalty + c.VolPenalty
}

// Score computes the sub-scores for bars. Terms whose inputs are
// undefined contribute zero.
func Score(bars []models.DailyBar) Components {
	var c Components
	closes := Closes(bars)
	n := len(closes)

	ma20, ok20 := MA(bars, 20)
	ma60, ok60 := MA(bars, 60)
	if ok20 && n > 0 {
		if closes[n-1] > ma20 {
			c.Trend += 5
		} else {
			c.Trend -= 5
		}
	}
	if ok20 && ok60 {
		if ma20 > ma60 {
			c.Trend += 5
		} else {
			c.Trend -= 5
		}
	}

	if n >= 11 && closes[n-11] > 0 {
		ret := (closes[n-1] - closes[n-11]) / closes[n-11]
		c.Momentum = clamp(ret*50, -20, 20)
	}

	if vr, ok := VolumeRatio(bars); ok {
		switch {
		case vr > 2.0:
			c.Volume = 10
		case vr > 1.5:
			c.Volume = 6
		case vr < 0.5:
			c.Volume = -6
		}
	}

	if rsi, ok := RSI14(closes); ok {
		switch {
		case rsi > 75:
			c.RSIPenalty = -7
		case rsi < 25:
			c.RSIPenalty = -6
		}
	}

	if atr, ok := ATRPercent(bars); ok {
		switch {
		case atr > 0.10:
			c.VolPenalty = -7
		case atr > 0.07:
			c.VolPenalty = -4
		}
	}
	return c
}

// ScaleScore maps a raw composite onto [0,100], rounding half up.
func ScaleScore(raw float64) int {
	scaled := math.Floor(((raw+30)/60)*100 + 0.5)
	return int(clamp(scaled, 0, 100))
}

// CompositeScore is defined only for at least 60 bars.
func CompositeScore(bars []models.DailyBar) (int, bool) {
	if len(bars) < MinBarsForScore {
		return 0, false
	}
	return ScaleScore(Score(bars).Raw()), true
}

// Snapshot builds the technical snapshot for prepared bars: nil below 20
// bars, the degraded default for 20-59 bars, the full snapshot otherwise.
func Snapshot(bars []models.DailyBar) *models.TechnicalSnapshot {
	switch {
	case len(bars) < MinBarsForSnapshot:
		return nil
	case len(bars) < MinBarsForScore:
		return &models.TechnicalSnapshot{MarketScore: DegradedScore}
	}

	score, _ := CompositeScore(bars)
	snap := &models.TechnicalSnapshot{MarketScore: score}
	if v, ok := MA(bars, 20); ok {
		snap.MA20 = models.Float64(v)
	}
	if v, ok := MA(bars, 60); ok {
		snap.MA60 = models.Float64(v)
	}
	if v, ok := RSI14(Closes(bars)); ok {
		snap.RSI14 = models.Float64(v)
	}
	if v, ok := VolumeRatio(bars); ok {
		snap.VolumeRatio = models.Float64(v)
	}
	if v, ok := ATRPercent(bars); ok {
		snap.ATRPercent = models.Float64(v)
	}
	return snap
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
