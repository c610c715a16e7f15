package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Candidate is an equity proposed by the model. It is mutated once by the
// verifier and is read-only afterwards.
type Candidate struct {
	Ticker      string  `json:"ticker"`
	Name        string  `json:"name"`
	Market      Market  `json:"market"`
	Rationale   string  `json:"rationale"`
	Stage       string  `json:"stage,omitempty"`
	StageReason string  `json:"stageReason,omitempty"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Verified    bool    `json:"verified"`
}

// RawCandidate is the loosely typed candidate emitted by the model integration.
type RawCandidate struct {
	Ticker      string          `json:"ticker"`
	Name        string          `json:"name"`
	Market      string          `json:"market"`
	Rationale   string          `json:"rationale"`
	Stage       string          `json:"stage,omitempty"`
	StageReason string          `json:"reason,omitempty"`
	Score       json.RawMessage `json:"score,omitempty"`
	Confidence  json.RawMessage `json:"confidence,omitempty"`
}

// CandidateFromRaw coerces model output into an unverified Candidate.
// Score falls back to 0 and is clamped to [0,100]; confidence falls back
// to 0.5 and is clamped to [0,1].
func CandidateFromRaw(r RawCandidate) Candidate {
	score, ok := coerceNumber(r.Score)
	if !ok {
		score = 0
	}
	conf, ok := coerceNumber(r.Confidence)
	if !ok {
		conf = 0.5
	}
	return Candidate{
		Ticker:      strings.TrimSpace(r.Ticker),
		Name:        strings.TrimSpace(r.Name),
		Market:      ParseMarket(r.Market),
		Rationale:   r.Rationale,
		Stage:       r.Stage,
		StageReason: r.StageReason,
		Score:       clamp(score, 0, 100),
		Confidence:  clamp(conf, 0, 1),
	}
}

// CandidatesFromRaw converts a slice of raw candidates preserving order.
func CandidatesFromRaw(raw []RawCandidate) []Candidate {
	out := make([]Candidate, 0, len(raw))
	for _, r := range raw {
		out = append(out, CandidateFromRaw(r))
	}
	return out
}

func coerceNumber(b json.RawMessage) (float64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		return f, isFinite(f)
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return f, isFinite(f)
	}
	return 0, false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
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

// NormalizeName folds a company display name into the lookup form used by
// the domestic name map: uppercased, with whitespace, parentheses,
// brackets, periods, hyphens and the middle dot removed.
func NormalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		switch r {
		case '(', ')', '[', ']', '.', '-', '\u00b7':
			return -1
		}
		return r
	}, strings.ToUpper(name))
}
