package logger

import (
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Log is the global logger instance
var Log *slog.Logger

// Options controls how Init builds the global logger.
type Options struct {
	// Component is attached to every record ("server", "worker", "filesctl")
	Component string
	// Level is the minimum level for stdout
	Level slog.Level
	// JSON switches stdout to JSON output (production)
	JSON bool
	// SentryDSN enables error forwarding to Sentry when set
	SentryDSN   string
	Environment string
}

// Init initializes the global logger.
// Development: Text format. Production: JSON format.
// Optionally sends errors to Sentry for error tracking.
func Init(opts Options) *slog.Logger {
	var handlers []slog.Handler

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		handlers = append(handlers, slog.NewJSONHandler(os.Stdout, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, handlerOpts))
	}

	// Optional Sentry handler (sends errors only)
	if opts.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         opts.SentryDSN,
			Environment: opts.Environment,
		})
		if err == nil {
			handlers = append(handlers, slogsentry.Option{
				Level: slog.LevelError,
			}.NewSentryHandler())
		}
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = slogmulti.Fanout(handlers...)
	} else {
		handler = handlers[0]
	}

	Log = slog.New(handler)
	if opts.Component != "" {
		Log = Log.With("component", opts.Component)
	}
	slog.SetDefault(Log)
	return Log
}

// Flush waits for buffered Sentry events before the process exits.
func Flush() {
	sentry.Flush(2 * time.Second)
}
