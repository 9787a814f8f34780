// Package logx provides a log/slog handler that writes one JSON object per
// record, with error records optionally routed to their own writer and
// secret attributes masked.
package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"
)

const redacted = "[REDACTED]"

type field struct {
	key string
	val any
}

type jsonhandler struct {
	Out    io.Writer
	Err    io.Writer
	Option *slog.HandlerOptions
	redact map[string]struct{}
	mu     *sync.Mutex
	fields []field
	groups []string
}

var _ slog.Handler = &jsonhandler{}

type Option func(*jsonhandler)

// WithErrorWriter sends records at slog.LevelError and above to w.
func WithErrorWriter(w io.Writer) Option {
	return func(h *jsonhandler) {
		h.Err = w
	}
}

func WithLevel(level slog.Leveler) Option {
	return func(h *jsonhandler) {
		h.Option.Level = level
	}
}

func WithAddSource(add bool) Option {
	return func(h *jsonhandler) {
		h.Option.AddSource = add
	}
}

func WithReplaceAttr(fn func(groups []string, a slog.Attr) slog.Attr) Option {
	return func(h *jsonhandler) {
		h.Option.ReplaceAttr = fn
	}
}

// WithRedact masks the values of attributes with the given keys, at any
// group depth.
func WithRedact(keys ...string) Option {
	return func(h *jsonhandler) {
		for _, k := range keys {
			h.redact[k] = struct{}{}
		}
	}
}

// New returns a JSON slog.Handler writing to o, or discarding when o is nil.
func New(o io.Writer, opts ...Option) slog.Handler {
	if o == nil {
		o = io.Discard
	}
	var s jsonhandler
	s.Option = &slog.HandlerOptions{}
	s.Out = o
	s.redact = map[string]struct{}{}
	s.mu = &sync.Mutex{}
	for _, v := range opts {
		v(&s)
	}
	if s.Err == nil {
		s.Err = s.Out
	}
	return &s
}

// NewLogger wraps New in a *slog.Logger.
func NewLogger(o io.Writer, opts ...Option) *slog.Logger {
	return slog.New(New(o, opts...))
}

var discard = slog.New(New(io.Discard, WithLevel(slog.Level(127))))

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return discard
}

// ParseLevel accepts the names printed by slog.Level, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logx: %w", err)
	}
	return l, nil
}

func (s *jsonhandler) clone() *jsonhandler {
	return &jsonhandler{
		Out:    s.Out,
		Err:    s.Err,
		Option: s.Option,
		redact: s.redact,
		mu:     s.mu,
		fields: s.fields[:len(s.fields):len(s.fields)],
		groups: s.groups[:len(s.groups):len(s.groups)],
	}
}

func (s *jsonhandler) Enabled(ctx context.Context, l slog.Level) bool {
	lvl := slog.LevelInfo
	if s.Option.Level != nil {
		lvl = s.Option.Level.Level()
	}
	return l >= lvl
}

func (s *jsonhandler) Handle(ctx context.Context, r slog.Record) error {
	if !s.Enabled(ctx, r.Level) {
		return nil
	}
	var msg = map[string]any{
		slog.MessageKey: r.Message,
		slog.LevelKey:   r.Level.String(),
	}
	if !r.Time.IsZero() {
		msg[slog.TimeKey] = r.Time.Format(time.RFC3339Nano)
	}
	if s.Option.AddSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		msg[slog.SourceKey] = fmt.Sprintf("%s:%d", f.File, f.Line)
	}

	for _, f := range s.fields {
		msg[f.key] = f.val
	}
	var fields []field
	r.Attrs(func(a slog.Attr) bool {
		fields = s.appendAttr(fields, s.groups, a)
		return true
	})
	for _, f := range fields {
		msg[f.key] = f.val
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return err
	}

	w := s.Out
	if r.Level >= slog.LevelError {
		w = s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := w.Write(buf.Bytes())
	return err
}

// appendAttr flattens a into dotted keys below groups.
func (s *jsonhandler) appendAttr(dst []field, groups []string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() != slog.KindGroup && s.Option.ReplaceAttr != nil {
		a = s.Option.ReplaceAttr(groups, a)
		a.Value = a.Value.Resolve()
	}
	if a.Key == "" && a.Value.Kind() == slog.KindAny && a.Value.Any() == nil {
		return dst
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		if len(attrs) == 0 {
			return dst
		}
		sub := groups
		if a.Key != "" {
			sub = append(groups[:len(groups):len(groups)], a.Key)
		}
		for _, ga := range attrs {
			dst = s.appendAttr(dst, sub, ga)
		}
		return dst
	}

	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + a.Key
	}
	if _, ok := s.redact[a.Key]; ok {
		return append(dst, field{key: key, val: redacted})
	}
	return append(dst, field{key: key, val: jsonValue(a.Value)})
}

func jsonValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		if b, ok := v.Any().([]byte); ok {
			return fmt.Sprintf("%x", b)
		}
	}
	return v.Any()
}

func (s *jsonhandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	a := s.clone()
	for _, v := range attrs {
		a.fields = a.appendAttr(a.fields, a.groups, v)
	}
	return a
}

func (s *jsonhandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	a := s.clone()
	a.groups = append(a.groups, name)
	return a
}
