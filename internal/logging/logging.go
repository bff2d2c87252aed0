package logging

import (
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/lmittmann/tint"
)

type Options struct {
	Format    string
	Level     slog.Level
	AddSource bool
	App       string
	Commit    string
}

// New returns a JSON logger when format is "json" and a tinted text logger
// otherwise, tagged with the build attributes.
func New(w io.Writer, opts Options) *slog.Logger {
	//nolint: exhaustruct // optional config
	logOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	}

	var logHandler slog.Handler
	switch opts.Format {
	case "json":
		logHandler = slog.NewJSONHandler(w, logOpts)
	default:
		//nolint:exhaustruct // optional config
		logHandler = tint.NewHandler(w, &tint.Options{
			AddSource:  opts.AddSource,
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
		})
	}

	return slog.New(logHandler).With(
		slog.String("app", opts.App),
		slog.String("commit_hash", opts.Commit),
		slog.String("goversion", runtime.Version()),
	)
}
