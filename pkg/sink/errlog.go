package sink

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// ErrorLog writes one slog text line per non-fatal failure. Lines go straight
// to the underlying writer so a crash loses at most the line being written.
type ErrorLog struct {
	h slog.Handler
}

// NewErrorLog tags every line with run=<runID>.
func NewErrorLog(w io.Writer, runID string) *ErrorLog {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &ErrorLog{h: h.WithAttrs([]slog.Attr{slog.String("run", runID)})}
}

// WriteError appends msg. Unlike slog.Logger methods it reports write failures.
func (l *ErrorLog) WriteError(msg string) error {
	return l.h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, msg, 0))
}
