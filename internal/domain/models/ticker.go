package models

import "strings"

// Market is the market scope a ticker belongs to.
type Market string

const (
	MarketDomestic Market = "DOMESTIC"
	MarketForeign  Market = "FOREIGN"
	MarketUnknown  Market = "UNKNOWN"
)

// ParseMarket maps a raw market tag to a Market, defaulting to MarketUnknown.
func ParseMarket(s string) Market {
	switch Market(strings.ToUpper(strings.TrimSpace(s))) {
	case MarketDomestic:
		return MarketDomestic
	case MarketForeign:
		return MarketForeign
	default:
		return MarketUnknown
	}
}

// Ticker is a normalized, market-qualified symbol. Original keeps the
// caller's spelling so results can be keyed back to it.
type Ticker struct {
	Original string
	Symbol   string
	Market   Market
}

// NormalizeTicker uppercases the symbol and zero-pads all-digit symbols of
// up to six digits. Domestic symbols are exactly 6 digits; foreign symbols
// are 1-10 uppercase alphanumerics or '.'; anything else is MarketUnknown.
func NormalizeTicker(raw string) Ticker {
	s := strings.ToUpper(strings.TrimSpace(raw))
	t := Ticker{Original: raw, Symbol: s, Market: MarketUnknown}
	if s == "" {
		return t
	}
	if isDigits(s) {
		if len(s) <= 6 {
			t.Symbol = strings.Repeat("0", 6-len(s)) + s
			t.Market = MarketDomestic
		}
		return t
	}
	if len(s) <= 10 && isForeignSymbol(s) {
		t.Market = MarketForeign
	}
	return t
}

// IsDomesticSymbol reports whether s is exactly six ASCII digits.
func IsDomesticSymbol(s string) bool {
	return len(s) == 6 && isDigits(s)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func isForeignSymbol(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.':
		default:
			return false
		}
	}
	return true
}
