package kis

import "errors"

var (
	// ErrAuthFailure means no usable access token could be obtained.
	ErrAuthFailure = errors.New("kis: authentication failed")
	// ErrUpstreamRequest covers non-success responses, transport errors and
	// timeouts from data endpoints.
	ErrUpstreamRequest = errors.New("kis: upstream request failed")
	// ErrUnauthorized is returned when the upstream rejects a token.
	ErrUnauthorized = errors.New("kis: token rejected")
	// ErrNotConfigured is returned when app key or secret is missing.
	ErrNotConfigured = errors.New("kis: credentials not configured")
)
