package models

import "time"

// CandidateBatch is the message produced by the model integration for one headline.
type CandidateBatch struct {
	RequestID  string         `json:"requestId"`
	Headline   string         `json:"headline"`
	Candidates []RawCandidate `json:"candidates"`
}

// EnrichedCandidate pairs a verified candidate with its market data.
type EnrichedCandidate struct {
	Candidate
	Quote *Quote `json:"quote,omitempty"`
}

// EnrichmentResult is published once a batch has been verified and enriched.
type EnrichmentResult struct {
	ID          string              `json:"id"`
	RequestID   string              `json:"requestId,omitempty"`
	Headline    string              `json:"headline,omitempty"`
	Candidates  []EnrichedCandidate `json:"candidates"`
	GeneratedAt time.Time           `json:"generatedAt"`
}
