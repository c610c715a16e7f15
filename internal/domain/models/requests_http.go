package models

// Request bodies for the HTTP API.

type QuotesRequest struct {
	Tickers []string `json:"tickers" validate:"required,min=1,max=50,dive,max=16"`
}

type VerifyRequest struct {
	Candidates []RawCandidate `json:"candidates" validate:"required,min=1,max=100"`
}

type EnrichRequest struct {
	RequestID  string         `json:"requestId" validate:"max=128"`
	Headline   string         `json:"headline" validate:"max=1024"`
	Candidates []RawCandidate `json:"candidates" validate:"required,min=1,max=100"`
}

// Batch converts the request into the batch consumed by the enricher.
func (r *EnrichRequest) Batch() *CandidateBatch {
	return &CandidateBatch{
		RequestID:  r.RequestID,
		Headline:   r.Headline,
		Candidates: r.Candidates,
	}
}
