package observability

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/spec-kit/study-share/internal/config"
)

// InitSentry configures error reporting. It returns false when no DSN is set;
// sentry calls are no-ops in that case.
func InitSentry(cfg config.SentryConfig, app config.AppConfig) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: app.Env,
		Release:     app.Name + "@" + app.Version,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// FlushSentry waits for buffered events.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports err with tags. Safe without InitSentry.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
	})
	hub.CaptureException(err)
}
