package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

func levelName(level slog.Level) string {
	if level <= traceLevel {
		return "TRACE"
	}
	return level.String()
}

// newJSONHandler writes JSON lines with RFC3339 timestamps in the given timezone
func newJSONHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, a.Value.Time().In(tz).Format(time.RFC3339))
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					return slog.String(slog.LevelKey, levelName(lvl))
				}
			}
			return a
		},
	})
}

// textHandler renders "[02.01.2006 15:04:05] LEVEL [module] message key=value"
type textHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	tz    *time.Location
	attrs []slog.Attr
}

func newTextHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	return &textHandler{mu: &sync.Mutex{}, w: w, level: level, tz: tz}
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	var module string
	var rest []slog.Attr

	collect := func(a slog.Attr) bool {
		if a.Key == "module" {
			module = a.Value.String()
			return true
		}
		rest = append(rest, a)
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	fmt.Fprintf(&buf, "[%s] %-5s ", r.Time.In(h.tz).Format("02.01.2006 15:04:05"), levelName(r.Level))
	if module != "" {
		fmt.Fprintf(&buf, "[%s] ", module)
	}
	buf.WriteString(r.Message)
	for _, a := range rest {
		buf.WriteByte(' ')
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(quoteIfNeeded(a.Value.String()))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &textHandler{mu: h.mu, w: h.w, level: h.level, tz: h.tz, attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)}
}

// WithGroup is not used by this package; groups are flattened
func (h *textHandler) WithGroup(_ string) slog.Handler {
	return h
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// fanoutHandler sends every record to all handlers that accept its level
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
