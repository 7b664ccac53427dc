package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitErrorReporting configures Sentry. An empty DSN leaves reporting disabled,
// in which case CaptureException and CapturePanic are no-ops.
func InitErrorReporting(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
	if err != nil {
		return fmt.Errorf("failed to init sentry: %w", err)
	}
	return nil
}

// FlushErrorReporting waits for buffered events to be sent.
func FlushErrorReporting(timeout time.Duration) {
	sentry.Flush(timeout)
}

// CaptureException reports an error tagged with the component it came from.
func CaptureException(err error, component string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		sentry.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic value.
func CapturePanic(recovered interface{}, component string) {
	CaptureException(fmt.Errorf("panic: %v", recovered), component)
}
