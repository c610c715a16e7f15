package indicators

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPull/internal/domain/models"
)

func generateBars(closes []float64, volume int64) []models.DailyBar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.DailyBar, len(closes))
	for i, c := range closes {
		bars[i] = models.DailyBar{
			Date:   base.AddDate(0, 0, i).Format("20060102"),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: volume,
		}
	}
	return bars
}

func linearCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestMA(t *testing.T) {
	bars := generateBars([]float64{10, 20, 30}, 1)

	v, ok := MA(bars, 3)
	require.True(t, ok)
	assert.InDelta(t, 20.0, v, 1e-9)

	v, ok = MA(bars, 2)
	require.True(t, ok)
	assert.InDelta(t, 25.0, v, 1e-9)

	_, ok = MA(bars, 5)
	assert.False(t, ok)
}

func TestRSI14(t *testing.T) {
	tests := []struct {
		name    string
		closes  []float64
		want    float64
		defined bool
	}{
		{name: "insufficient", closes: linearCloses(14, 100, 1), defined: false},
		{name: "all gains", closes: linearCloses(15, 100, 1), want: 100, defined: true},
		{name: "flat", closes: linearCloses(30, 100, 0), want: 100, defined: true},
		{name: "all losses", closes: linearCloses(15, 100, -1), want: 0, defined: true},
		{name: "two to one", closes: alternating(15, 100, 2, -1), want: 100 - 100.0/3, defined: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RSI14(tt.closes)
			assert.Equal(t, tt.defined, ok)
			if tt.defined {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func alternating(n int, start, up, down float64) []float64 {
	out := make([]float64, n)
	out[0] = start
	for i := 1; i < n; i++ {
		if i%2 == 1 {
			out[i] = out[i-1] + up
		} else {
			out[i] = out[i-1] + down
		}
	}
	return out
}

func TestRSIOnlyLooksAtLast14Changes(t *testing.T) {
	closes := append(linearCloses(10, 200, -5), linearCloses(15, 100, 1)...)
	got, ok := RSI14(closes)
	require.True(t, ok)
	assert.Equal(t, 100.0, got)
}

func TestVolumeRatio(t *testing.T) {
	bars := generateBars(linearCloses(20, 100, 0), 100)
	for i := 17; i < 20; i++ {
		bars[i].Volume = 400
	}
	got, ok := VolumeRatio(bars)
	require.True(t, ok)
	assert.InDelta(t, 400.0/145.0, got, 1e-9)

	_, ok = VolumeRatio(bars[:19])
	assert.False(t, ok)
}

func TestATRPercent(t *testing.T) {
	bars := generateBars(linearCloses(15, 100, 0), 1)
	got, ok := ATRPercent(bars)
	require.True(t, ok)
	assert.InDelta(t, 0.02, got, 1e-12)

	_, ok = ATRPercent(bars[:14])
	assert.False(t, ok)
}

func TestCompositeScoreUptrend(t *testing.T) {
	bars := generateBars(linearCloses(60, 100, 1), 1000)

	c := Score(bars)
	assert.Equal(t, 10.0, c.Trend)
	assert.InDelta(t, 10.0/149.0*50, c.Momentum, 1e-9)
	assert.Equal(t, 0.0, c.Volume)
	assert.Equal(t, -7.0, c.RSIPenalty)
	assert.Equal(t, 0.0, c.VolPenalty)

	score, ok := CompositeScore(bars)
	require.True(t, ok)
	assert.Equal(t, 61, score)
	assert.Greater(t, score, 50)
}

func TestCompositeScoreDowntrend(t *testing.T) {
	bars := generateBars(linearCloses(60, 200, -2), 1000)

	c := Score(bars)
	assert.Equal(t, -10.0, c.Trend)
	assert.Equal(t, -6.0, c.RSIPenalty)

	score, ok := CompositeScore(bars)
	require.True(t, ok)
	assert.Equal(t, 7, score)
}

func TestCompositeScoreVolumeSpike(t *testing.T) {
	bars := generateBars(linearCloses(60, 100, 0), 100)
	for i := 57; i < 60; i++ {
		bars[i].Volume = 1000
	}
	c := Score(bars)
	assert.Equal(t, -10.0, c.Trend)
	assert.Equal(t, 10.0, c.Volume)

	score, ok := CompositeScore(bars)
	require.True(t, ok)
	assert.Equal(t, 38, score)
}

func TestCompositeScoreMomentumClamp(t *testing.T) {
	closes := linearCloses(60, 100, 0)
	for i := 50; i < 60; i++ {
		closes[i] = 300
	}
	c := Score(generateBars(closes, 10))
	assert.Equal(t, 20.0, c.Momentum)
}

func TestCompositeScoreUndefinedBelow60(t *testing.T) {
	_, ok := CompositeScore(generateBars(linearCloses(59, 100, 1), 1))
	assert.False(t, ok)
}

func TestCompositeScoreBoundedAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 200; n++ {
		size := 60 + rng.Intn(60)
		closes := make([]float64, size)
		price := 10 + rng.Float64()*1000
		for i := range closes {
			price *= 1 + (rng.Float64()-0.5)*0.4
			if price < 0.01 {
				price = 0.01
			}
			closes[i] = price
		}
		bars := generateBars(closes, 0)
		for i := range bars {
			bars[i].Volume = rng.Int63n(1_000_000)
			bars[i].Low = bars[i].Close * (1 - rng.Float64()*0.2)
			bars[i].High = bars[i].Close * (1 + rng.Float64()*0.2)
		}

		first, ok := CompositeScore(bars)
		require.True(t, ok)
		second, _ := CompositeScore(bars)
		assert.Equal(t, first, second)
		assert.GreaterOrEqual(t, first, 0)
		assert.LessOrEqual(t, first, 100)
	}
}

func TestScaleScore(t *testing.T) {
	assert.Equal(t, 0, ScaleScore(-100))
	assert.Equal(t, 100, ScaleScore(100))
	assert.Equal(t, 50, ScaleScore(0))
	// 62.5 rounds up
	assert.Equal(t, 63, ScaleScore(7.5))
}

func TestSnapshot(t *testing.T) {
	assert.Nil(t, Snapshot(generateBars(linearCloses(19, 100, 1), 1)))

	degraded := Snapshot(generateBars(linearCloses(30, 100, 1), 1))
	require.NotNil(t, degraded)
	assert.Equal(t, DegradedScore, degraded.MarketScore)
	assert.Nil(t, degraded.MA20)
	assert.Nil(t, degraded.RSI14)

	full := Snapshot(generateBars(linearCloses(60, 100, 1), 1000))
	require.NotNil(t, full)
	assert.Equal(t, 61, full.MarketScore)
	require.NotNil(t, full.MA20)
	require.NotNil(t, full.MA60)
	assert.InDelta(t, 149.5, *full.MA20, 1e-9)
	assert.InDelta(t, 129.5, *full.MA60, 1e-9)
	require.NotNil(t, full.RSI14)
	require.NotNil(t, full.VolumeRatio)
	require.NotNil(t, full.ATRPercent)
	assert.InDelta(t, 1.0, *full.VolumeRatio, 1e-12)
}

func TestPrepareBars(t *testing.T) {
	bars := []models.DailyBar{
		{Date: "20240103", Close: 3},
		{Date: "20240101", Close: 1},
		{Date: "20240102", Close: 0},
		{Date: "20240101", Close: 9},
		{Date: "20240104", Close: -1},
		{Date: "", Close: 5},
	}
	got := PrepareBars(bars)
	require.Len(t, got, 2)
	assert.Equal(t, "20240101", got[0].Date)
	assert.Equal(t, 1.0, got[0].Close)
	assert.Equal(t, "20240103", got[1].Date)
}
