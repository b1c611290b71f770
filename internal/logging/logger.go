package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"

	"coachfit/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the process logger. When cfg.File is set, records go to stdout
// and to a size-capped rotating file; the returned closer releases the file.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	out := io.Writer(os.Stdout)
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		maxSize := int64(cfg.MaxSizeMB) << 20
		if maxSize <= 0 {
			maxSize = 10 << 20
		}
		fw, err := NewRotatingFileWriter(cfg.File, maxSize, cfg.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stdout, fw)
		closer = fw
	}

	return slog.New(NewHandler(out, cfg)), closer, nil
}

// NewHandler returns a JSON handler for format "json" and a tint text
// handler otherwise. Colour is only used when writing to a bare stdout.
func NewHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	level := ParseLevel(cfg.Level)
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(w, &tint.Options{
		Level:   level,
		NoColor: w != os.Stdout,
	})
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
