package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/noah-isme/swimcoach/pkg/gateway"
)

// newTestGateway points a real gateway at handler with retries that do not sleep.
func newTestGateway(t *testing.T, handler http.HandlerFunc) *gateway.Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return gateway.New(gateway.Config{
		BaseURL:            srv.URL,
		MaxAttempts:        3,
		Delay:              time.Millisecond,
		RetryUnsafeWithKey: true,
		Wait:               func(context.Context, time.Duration) error { return nil },
	}, srv.Client(), gateway.StaticToken("tok"))
}
