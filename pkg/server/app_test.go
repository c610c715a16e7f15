package server

import (
	"context"
	"testing"
	"time"

	xhttp "StockPull/pkg/http"
	applogger "StockPull/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunContextShutsDownAndReleases(t *testing.T) {
	srv := xhttp.NewServer(applogger.NewNop(), nil,
		xhttp.WithHost("127.0.0.1"),
		xhttp.WithPort(0),
		xhttp.WithMetricsPath(""),
		xhttp.WithTimeouts(time.Second, time.Second, time.Second),
	)
	released := 0
	app := New(applogger.NewNop(), srv, nil, nil, func() { released++ })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.RunContext(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, 1, released)

	// a second shutdown must not release twice
	app.release()
	assert.Equal(t, 1, released)
}
