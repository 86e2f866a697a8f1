package cli

import (
	"log/slog"

	"github.com/iand/pontium/hlog"
)

type logOptions struct {
	verbose bool
	debug   bool
	feeds   []int64
}

func (o logOptions) level() slog.Level {
	switch {
	case o.debug:
		return slog.LevelDebug
	case o.verbose:
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

// setupLogging installs the process-wide handler. Feeds listed in o.feeds
// always log at debug level.
func setupLogging(o logOptions) {
	h := new(hlog.Handler)
	h = h.WithLevel(o.level())
	for _, id := range o.feeds {
		h = h.WithAttrLevel(slog.Int64("feed", id), slog.LevelDebug)
	}
	slog.SetDefault(slog.New(h))
}
