// Package slogutil builds the slog loggers used by compdb.
package slogutil

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// timeLayout keeps stderr lines short; the JSON file handler records full
// timestamps.
const timeLayout = "15:04:05.000"

// LineHandler writes one human-readable line per record:
//
//	15:04:05.000 WARN message key=value group.key="quoted value"
//
// Attributes added through WithAttrs are rendered once and reused for every
// record. Built-in keys go through HandlerOptions.ReplaceAttr, so returning
// an empty attr for slog.TimeKey drops the timestamp.
type LineHandler struct {
	opts   slog.HandlerOptions
	prefix string // group path for attrs added after the last WithGroup, "a.b."
	preset string // pre-rendered attrs, each with a leading space
	mu     *sync.Mutex
	w      io.Writer
}

// NewLineHandler returns a LineHandler writing to w. A nil opts logs at info.
func NewLineHandler(w io.Writer, opts *slog.HandlerOptions) *LineHandler {
	h := &LineHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	return h
}

func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		h.writeBuiltin(&b, slog.Time(slog.TimeKey, r.Time))
	}
	h.writeBuiltin(&b, slog.Any(slog.LevelKey, r.Level))
	h.writeBuiltin(&b, slog.String(slog.MessageKey, r.Message))

	b.WriteString(h.preset)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	line := strings.TrimPrefix(b.String(), " ")
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line)
	return err
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.preset)
	for _, a := range attrs {
		h.writeAttr(&b, h.prefix, a)
	}
	h2 := *h
	h2.preset = b.String()
	return &h2
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// writeBuiltin renders the time, level and message fields. They are written
// bare, without their keys.
func (h *LineHandler) writeBuiltin(b *strings.Builder, a slog.Attr) {
	if h.opts.ReplaceAttr != nil {
		a = h.opts.ReplaceAttr(nil, a)
	}
	if a.Equal(slog.Attr{}) {
		return
	}
	b.WriteByte(' ')
	v := a.Value.Resolve()
	switch {
	case a.Key == slog.MessageKey:
		b.WriteString(v.String())
	case v.Kind() == slog.KindTime:
		b.WriteString(v.Time().Format(timeLayout))
	case v.Kind() == slog.KindAny:
		if level, ok := v.Any().(slog.Level); ok {
			b.WriteString(level.String())
			return
		}
		b.WriteString(renderValue(v))
	default:
		b.WriteString(renderValue(v))
	}
}

// writeAttr renders a as key=value. Group values are flattened into dotted
// keys and empty attrs are dropped.
func (h *LineHandler) writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(groupsOf(prefix), a)
		a.Value = a.Value.Resolve()
	}
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, inner, ga)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(renderValue(a.Value))
}

func groupsOf(prefix string) []string {
	if prefix == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(prefix, "."), ".")
}

// renderValue formats v, quoting it when it would not read back as a single
// token.
func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = v.String()
		}
	default:
		s = v.String()
	}
	if needsQuoting(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' || r == 0x7f {
			return true
		}
	}
	return false
}
