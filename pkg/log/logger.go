package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	lberrors "github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const (
	// ErrAttrKey is the field an error passed to Logger.Error is written under.
	ErrAttrKey = "error"
	// StacktraceAttrKey is the field holding the cockroachdb stack of that error.
	StacktraceAttrKey = "stacktrace"
)

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelInfo)
)

// SetupLogger configures the process logger: JSON lines on w at the given
// level, with Cloud Logging compatible field names.
func SetupLogger(loglevel string, w io.Writer) error {
	level, err := ToLogLevel(loglevel)
	if err != nil {
		return err
	}

	zerolog.LevelFieldName = "severity"
	zerolog.MessageFieldName = "message"
	zerolog.ErrorFieldName = ErrAttrKey
	zerolog.ErrorStackFieldName = StacktraceAttrKey
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if st := extractStacktrace(err); st != "" {
			return st
		}
		return nil
	}

	SetProvider(NewZerologProvider(w, level))

	lberrors.SetZerologWarnFunc(func(warning error) {
		GetLoggerWithName("warnings").Warn(warning.Error(), "warning", warning)
	})
	return nil
}

// ToLogLevel parses "debug", "info", "warn" or "error".
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, lberrors.NewValidationError("log-level", "must be one of debug, info, warn, error", level)
	}
}

// SetProvider replaces the process logger provider and returns a function
// restoring the previous one.
func SetProvider(p LoggerProvider) (restore func()) {
	providerMu.Lock()
	prev := provider
	provider = p
	providerMu.Unlock()
	return func() {
		providerMu.Lock()
		provider = prev
		providerMu.Unlock()
	}
}

// GetLogger returns the process logger.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns the process logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// ZerologProvider implements LoggerProvider on top of zerolog.
type ZerologProvider struct {
	mu   sync.Mutex
	base zerolog.Logger
}

// NewZerologProvider creates a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	base := zerolog.New(w).With().Timestamp().Logger().Level(toZerologLevel(level))
	return &ZerologProvider{base: base}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &zerologLogger{zl: p.base}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.base.Level(toZerologLevel(level))
}

type zerologLogger struct {
	zl zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	emit(l.zl.Debug(), msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	emit(l.zl.Info(), msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	emit(l.zl.Warn(), msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	ev := l.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Stack().Err(err)
			fields = fields[1:]
		}
	}
	emit(ev, msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{zl: l.zl.With().Fields(normalize(fields)).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	zl := toZerologLevel(level)
	return zl >= l.zl.GetLevel() && zl >= zerolog.GlobalLevel()
}

// emit writes fields and the message. A nil event means the level is disabled.
func emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	ev.Fields(normalize(fields)).Msg(msg)
}

// normalize turns non-string keys into strings so zerolog does not drop them.
func normalize(fields []any) []any {
	out := make([]any, 0, len(fields))
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		out = append(out, key, fields[i+1])
	}
	return out
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// extractStacktrace renders the error with the stack recorded by
// cockroachdb/errors, or "" for errors created without one.
func extractStacktrace(err error) string {
	if _, _, _, ok := errors.GetOneLineSource(err); !ok {
		return ""
	}
	return fmt.Sprintf("%+v", err)
}
