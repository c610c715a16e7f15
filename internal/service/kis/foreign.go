package kis

import (
	"context"

	"StockPull/internal/domain/models"
	"StockPull/pkg/util"
)

const (
	foreignPricePath = "/uapi/overseas-price/v1/quotations/price"
	trForeignPrice   = "HHDFS00000300"
)

// ForeignExchanges is the order in which exchanges are tried for a foreign
// ticker with no known exchange.
var ForeignExchanges = []string{"NAS", "NYS", "AMS"}

type foreignPriceResponse struct {
	envelope
	Output struct {
		Last   string `json:"last"`
		Rate   string `json:"rate"`
		Volume string `json:"tvol"`
	} `json:"output"`
}

// ForeignSpot fetches the last price for symbol on one exchange. A wrong
// exchange is not an error upstream: the call succeeds with a blank price,
// which the caller sees as a quote without HasPrice.
func (c *Client) ForeignSpot(ctx context.Context, exchange, symbol string) (models.SpotQuote, error) {
	var resp foreignPriceResponse
	err := c.get(ctx, "foreign_spot", foreignPricePath, trForeignPrice, map[string]string{
		"AUTH": "",
		"EXCD": exchange,
		"SYMB": symbol,
	}, &resp)
	if err != nil {
		return models.SpotQuote{Exchange: exchange}, err
	}

	out := models.SpotQuote{
		Price:     util.ParseFloatPtr(resp.Output.Last),
		ChangePct: util.ParseFloatPtr(resp.Output.Rate),
		Exchange:  exchange,
	}
	if v, ok := util.ParseFloat(resp.Output.Volume); ok {
		vol := int64(v)
		out.Volume = &vol
	}
	return out, nil
}
