package kis

import (
	"context"
	"fmt"

	"StockPull/internal/domain/models"
	"StockPull/pkg/util"
)

const (
	domesticPricePath  = "/uapi/domestic-stock/v1/quotations/inquire-price"
	domesticRatioPath  = "/uapi/domestic-stock/v1/finance/financial-ratio"
	domesticChartPath  = "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice"
	trDomesticPrice    = "FHKST01010100"
	trDomesticRatio    = "FHKST66430300"
	trDomesticChart    = "FHKST03010100"
	domesticMarketCode = "J"
)

type domesticPriceResponse struct {
	envelope
	Output struct {
		Price      string `json:"stck_prpr"`
		ChangeRate string `json:"prdy_ctrt"`
		Volume     string `json:"acml_vol"`
	} `json:"output"`
}

type financialRatioResponse struct {
	envelope
	Output []struct {
		Period string `json:"stac_yymm"`
		ROE    string `json:"roe_val"`
		EPS    string `json:"eps"`
		BPS    string `json:"bps"`
	} `json:"output"`
}

type dailyChartResponse struct {
	envelope
	Output2 []struct {
		Date   string `json:"stck_bsop_date"`
		Open   string `json:"stck_oprc"`
		High   string `json:"stck_hgpr"`
		Low    string `json:"stck_lwpr"`
		Close  string `json:"stck_clpr"`
		Volume string `json:"acml_vol"`
	} `json:"output2"`
}

// DomesticSpot fetches the current price, change rate and accumulated volume
// for a six-digit domestic code.
func (c *Client) DomesticSpot(ctx context.Context, code string) (models.SpotQuote, error) {
	var resp domesticPriceResponse
	err := c.get(ctx, "domestic_spot", domesticPricePath, trDomesticPrice, map[string]string{
		"FID_COND_MRKT_DIV_CODE": domesticMarketCode,
		"FID_INPUT_ISCD":         code,
	}, &resp)
	if err != nil {
		return models.SpotQuote{}, err
	}

	out := models.SpotQuote{
		Price:     util.ParseFloatPtr(resp.Output.Price),
		ChangePct: util.ParseFloatPtr(resp.Output.ChangeRate),
	}
	if v, ok := util.ParseFloat(resp.Output.Volume); ok {
		vol := int64(v)
		out.Volume = &vol
	}
	return out, nil
}

// DomesticFundamentals returns ROE, EPS and BPS from the most recent period
// reported.
func (c *Client) DomesticFundamentals(ctx context.Context, code string) (*models.Fundamentals, error) {
	var resp financialRatioResponse
	err := c.get(ctx, "domestic_fundamentals", domesticRatioPath, trDomesticRatio, map[string]string{
		"FID_DIV_CLS_CODE":       "0",
		"fid_cond_mrkt_div_code": domesticMarketCode,
		"fid_input_iscd":         code,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Output) == 0 {
		return nil, fmt.Errorf("%w: domestic_fundamentals: no periods for %s", ErrUpstreamRequest, code)
	}

	row := resp.Output[0]
	return &models.Fundamentals{
		ROE: util.ParseFloatPtr(row.ROE),
		EPS: util.ParseFloatPtr(row.EPS),
		BPS: util.ParseFloatPtr(row.BPS),
	}, nil
}

// DomesticDailyBars fetches daily bars over the configured lookback window.
// Rows come back newest first and are returned as parsed, unsorted.
func (c *Client) DomesticDailyBars(ctx context.Context, code string) ([]models.DailyBar, error) {
	from, to := util.LookbackRange(c.now(), c.cfg.BarLookbackDays)

	var resp dailyChartResponse
	err := c.get(ctx, "domestic_bars", domesticChartPath, trDomesticChart, map[string]string{
		"FID_COND_MRKT_DIV_CODE": domesticMarketCode,
		"FID_INPUT_ISCD":         code,
		"FID_INPUT_DATE_1":       from,
		"FID_INPUT_DATE_2":       to,
		"FID_PERIOD_DIV_CODE":    "D",
		"FID_ORG_ADJ_PRC":        "0",
	}, &resp)
	if err != nil {
		return nil, err
	}

	bars := make([]models.DailyBar, 0, len(resp.Output2))
	for _, row := range resp.Output2 {
		if row.Date == "" {
			continue
		}
		bar := models.DailyBar{Date: row.Date}
		bar.Open, _ = util.ParseFloat(row.Open)
		bar.High, _ = util.ParseFloat(row.High)
		bar.Low, _ = util.ParseFloat(row.Low)
		bar.Close, _ = util.ParseFloat(row.Close)
		bar.Volume = util.ParseInt64Default(row.Volume, 0)
		bars = append(bars, bar)
	}
	return bars, nil
}
