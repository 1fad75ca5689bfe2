package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter forwards internal errors to sentry. The zero value and a Reporter
// built without a DSN drop everything.
type Reporter struct {
	enabled bool
}

func NewReporter(dsn, release string) (*Reporter, error) {
	if dsn == "" {
		return &Reporter{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: release,
	}); err != nil {
		return nil, fmt.Errorf("initializing sentry: %w", err)
	}
	return &Reporter{enabled: true}, nil
}

func (r *Reporter) ReportError(ctx context.Context, err error, tags map[string]string) {
	if r == nil || !r.enabled || err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

func (r *Reporter) Flush(timeout time.Duration) {
	if r == nil || !r.enabled {
		return
	}
	sentry.Flush(timeout)
}
