package logging

import (
	"io"
	"log/slog"
	"os"
)

// SetupJSON sets slog's default logger to use JSON output at the given level.
func SetupJSON(level slog.Level) {
	slog.SetDefault(NewJSON(os.Stdout, level))
}

// NewJSON builds a JSON logger writing to w. Debug level adds source locations.
func NewJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: level <= slog.LevelDebug,
		}),
	)
}
