package usecase

import (
	"strings"

	"StockPull/internal/domain/models"
	drepo "StockPull/internal/domain/repository"
)

// DefaultMaxCandidates caps a verified candidate list.
const DefaultMaxCandidates = 12

// Verifier checks candidate tickers against the reference universe and
// repairs domestic tickers by company name when possible.
type Verifier struct {
	universe drepo.Universe
	max      int
}

func NewVerifier(universe drepo.Universe, maxCandidates int) *Verifier {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	return &Verifier{universe: universe, max: maxCandidates}
}

// Verify returns the candidates in their original order with Verified set,
// truncated to the configured maximum. The input slice is not modified.
func (v *Verifier) Verify(candidates []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, 0, min(len(candidates), v.max))
	for _, c := range candidates {
		if len(out) == v.max {
			break
		}
		out = append(out, v.verifyOne(c))
	}
	return out
}

func (v *Verifier) verifyOne(c models.Candidate) models.Candidate {
	c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))

	switch c.Market {
	case models.MarketDomestic:
		c.Verified = c.Ticker != "" && v.universe.HasDomestic(c.Ticker)
	case models.MarketForeign:
		c.Verified = c.Ticker != "" && v.universe.HasForeign(c.Ticker)
	default:
		c.Verified = false
	}
	if c.Verified || c.Market != models.MarketDomestic {
		return c
	}

	if resolved, ok := v.universe.ResolveDomesticName(models.NormalizeName(c.Name)); ok {
		c.Ticker = resolved
		c.Market = models.MarketDomestic
		c.Verified = true
	}
	return c
}
