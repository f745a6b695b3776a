package repository

import (
	"context"
	"net/url"

	"github.com/google/uuid"

	appErrors "github.com/noah-isme/swimcoach/pkg/errors"
	"github.com/noah-isme/swimcoach/pkg/gateway"
)

// Sender issues backend calls. *gateway.Gateway satisfies it.
type Sender interface {
	Send(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

func escape(id string) string {
	return url.PathEscape(id)
}

// newIdempotencyKey returns a fresh key for create calls so the gateway may retry them safely.
func newIdempotencyKey() string {
	return uuid.NewString()
}

// decodeFailure converts a normalization error into the unknown-server kind.
func decodeFailure(resp *gateway.Response, err error, message string) error {
	e := appErrors.Wrap(err, appErrors.ErrUnknownServer.Code, appErrors.ErrUnknownServer.Status, message)
	if resp != nil {
		e.UpstreamStatus = resp.Status
		body := string(resp.Body)
		if len(body) > 2048 {
			body = body[:2048]
		}
		e.UpstreamBody = body
	}
	return e
}
