package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatLogfmt  = "logfmt"
)

// ErrUnknownFormat is returned for a format other than console, json or logfmt.
var ErrUnknownFormat = errors.New("unknown log format")

// Config selects the sink and the encoding of a Logger.
type Config struct {
	// Format is one of console, json or logfmt. Empty means console.
	Format string
	// Writer receives encoded records. Nil means os.Stdout.
	Writer io.Writer
	// Verbose enables debug records.
	Verbose bool
}

// Logger keeps the printf style surface of the miner on top of zap.
type Logger struct {
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

// New creates a console logger writing to stdout.
func New() *Logger {
	l, _ := NewWithConfig(Config{})
	return l
}

// NewWriter creates a console logger that writes to the provided writer.
func NewWriter(w io.Writer) *Logger {
	l, _ := NewWithConfig(Config{Writer: w})
	return l
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return wrap(zap.NewNop())
}

// NewWithConfig builds a logger from c.
func NewWithConfig(c Config) (*Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.NameKey = "name"

	var encoder zapcore.Encoder
	switch strings.ToLower(c.Format) {
	case "", FormatConsole:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case FormatLogfmt:
		encoder = zaplogfmt.NewEncoder(encoderConfig)
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", c.Format)
	}

	level := zapcore.InfoLevel
	if c.Verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(encoder, writeSyncer(c.Writer), zap.NewAtomicLevelAt(level))
	return wrap(zap.New(core).Named("miner")), nil
}

func wrap(z *zap.Logger) *Logger {
	return &Logger{base: z, sugar: z.Sugar()}
}

func writeSyncer(w io.Writer) zapcore.WriteSyncer {
	switch t := w.(type) {
	case nil:
		return zapcore.Lock(os.Stdout)
	case *os.File:
		return zapcore.Lock(t)
	case zapcore.WriteSyncer:
		return t
	default:
		return zapcore.Lock(zapcore.AddSync(w))
	}
}

// Printf logs an info record.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Println logs an info record built like fmt.Println.
func (l *Logger) Println(args ...interface{}) {
	l.sugar.Info(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// Debugf logs a record that is only written in verbose mode.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Errorf logs an error record.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Infow logs a message with structured key/value pairs.
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	s := l.sugar.With(keysAndValues...)
	return &Logger{base: s.Desugar(), sugar: s}
}

// Sync flushes buffered records.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
