package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelDisabled Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

const (
	errorKey      = "error"
	redactedValue = "[REDACTED]"
)

// DefaultRedactedKeys are field names whose values are credentials and never reach the output.
var DefaultRedactedKeys = []string{"accessToken", "refreshToken", "password", "otp", "authorization"}

type (
	Logger interface {
		With(fields Fields) Logger
		WithField(name string, value any) Logger
		WithError(err error) Logger
		WithContext(ctx context.Context, fields Fields) context.Context
		Log(ctx context.Context, lvl Level, msg string)
		Debug(ctx context.Context, msg string)
		Info(ctx context.Context, msg string)
		Warn(ctx context.Context, msg string)
		Error(ctx context.Context, msg string)
	}

	Option func(*options)

	Fields map[string]any
	Level  int

	options struct {
		out      io.Writer
		redacted map[string]struct{}
	}

	contextFieldsKey struct{}
)

var slogLevels = [...]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

var levelNames = map[string]Level{
	"disabled": LevelDisabled,
	"debug":    LevelDebug,
	"info":     LevelInfo,
	"warn":     LevelWarn,
	"error":    LevelError,
}

type logger struct {
	impl *slog.Logger
}

// New writes JSON lines at or above level, LevelDisabled returns a logger that drops everything.
func New(level Level, opts ...Option) Logger {
	if level == LevelDisabled {
		return stub{}
	}

	o := options{out: os.Stderr, redacted: make(map[string]struct{})}
	WithRedactedKeys(DefaultRedactedKeys...)(&o)
	for _, opt := range opts {
		opt(&o)
	}

	handler := slog.NewJSONHandler(o.out, &slog.HandlerOptions{
		Level: slogLevels[level],
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if _, ok := o.redacted[strings.ToLower(attr.Key)]; ok {
				return slog.String(attr.Key, redactedValue)
			}
			return attr
		},
	})

	return logger{slog.New(handler)}
}

func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithRedactedKeys masks the values of the named fields, names are matched case-insensitively.
func WithRedactedKeys(keys ...string) Option {
	return func(o *options) {
		for _, key := range keys {
			o.redacted[strings.ToLower(key)] = struct{}{}
		}
	}
}

func ParseLevel(s string) (Level, error) {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}

	return level, nil
}

func (l logger) With(fields Fields) Logger {
	if len(fields) == 0 {
		return l
	}

	return logger{l.impl.With(fields.attrs()...)}
}

func (l logger) WithField(name string, value any) Logger {
	return logger{l.impl.With(name, value)}
}

func (l logger) WithError(err error) Logger {
	if err == nil {
		return l
	}

	return logger{l.impl.With(errorKey, err.Error())}
}

// WithContext stores fields in ctx, every entry logged with that ctx carries them.
func (l logger) WithContext(ctx context.Context, fields Fields) context.Context {
	if len(fields) == 0 {
		return ctx
	}

	inherited := contextAttrs(ctx)
	attrs := make([]any, 0, len(inherited)+2*len(fields))
	attrs = append(attrs, inherited...)
	attrs = append(attrs, fields.attrs()...)

	return context.WithValue(ctx, contextFieldsKey{}, attrs)
}

func (l logger) Debug(ctx context.Context, msg string) { l.Log(ctx, LevelDebug, msg) }
func (l logger) Info(ctx context.Context, msg string)  { l.Log(ctx, LevelInfo, msg) }
func (l logger) Warn(ctx context.Context, msg string)  { l.Log(ctx, LevelWarn, msg) }
func (l logger) Error(ctx context.Context, msg string) { l.Log(ctx, LevelError, msg) }

func (l logger) Log(ctx context.Context, level Level, msg string) {
	if level <= LevelDisabled || int(level) >= len(slogLevels) {
		return
	}

	impl := l.impl
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		impl = impl.With(attrs...)
	}
	impl.Log(ctx, slogLevels[level], msg)
}

func contextAttrs(ctx context.Context) []any {
	attrs, _ := ctx.Value(contextFieldsKey{}).([]any)
	return attrs
}

func (f Fields) attrs() []any {
	attrs := make([]any, 0, 2*len(f))
	for key, value := range f {
		attrs = append(attrs, key, value)
	}

	return attrs
}
