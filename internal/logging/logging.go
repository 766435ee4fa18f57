package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// Config controls logger construction.
type Config struct {
	Level        string
	Format       string // json or text
	File         string // optional; rotated copy of the output
	RotationTime time.Duration
	MaxAge       time.Duration
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Setup builds a logger writing to stdout and, when cfg.File is set, to a
// time-rotated file. The returned closer releases the file.
func Setup(cfg Config) (*slog.Logger, io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		rl, err := newRotatingFile(cfg)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stdout, rl)
		closer = rl
	}

	return New(out, cfg), closer, nil
}

// New builds a logger writing to w.
func New(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func newRotatingFile(cfg Config) (*rotatelogs.RotateLogs, error) {
	rotation := cfg.RotationTime
	if rotation <= 0 {
		rotation = 24 * time.Hour
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	abs, err := filepath.Abs(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("resolve log file: %w", err)
	}
	rl, err := rotatelogs.New(
		abs+".%Y%m%d%H%M",
		rotatelogs.WithLinkName(abs),
		rotatelogs.WithRotationTime(rotation),
		rotatelogs.WithMaxAge(maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return rl, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Err returns an error attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Secret logs only a short prefix of a sensitive value.
func Secret(key, value string) slog.Attr {
	r := "***"
	if len(value) > 6 {
		r = value[:6] + "***"
	}
	if value == "" {
		r = "?"
	}
	return slog.String(key, r)
}

// Module tags log lines with the emitting component.
func Module(name string) slog.Attr {
	return slog.String("mod", name)
}
