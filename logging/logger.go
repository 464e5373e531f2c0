// Package logging provides the structured logger used across the
// validation core. It wraps log/slog with constructors and attribute
// helpers for ledger-specific fields.
//
// Logging is observational only: no consensus-relevant code path may
// branch on logger state.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger is a structured logger wrapping slog.Logger with convenience
// methods for common logging patterns.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the given handler.
func New(handler slog.Handler) *Logger {
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a new Logger with text output format.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	return New(slog.NewTextHandler(w, opts))
}

// NewJSONLogger creates a new Logger with JSON output format.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	return New(slog.NewJSONHandler(w, opts))
}

// NewDevelopmentLogger creates a logger suitable for development.
// Uses text format with debug level output to stderr.
func NewDevelopmentLogger() *Logger {
	return NewTextLogger(os.Stderr, slog.LevelDebug)
}

// NewProductionLogger creates a logger suitable for production.
// Uses JSON format with info level output to stdout.
func NewProductionLogger() *Logger {
	return NewJSONLogger(os.Stdout, slog.LevelInfo)
}

// NewNopLogger creates a logger that discards all output.
func NewNopLogger() *Logger {
	return New(nopHandler{})
}

// With returns a new Logger with the given attributes added to every log entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// WithComponent returns a new Logger with a component attribute.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithContract returns a new Logger with a contract address attribute.
func (l *Logger) WithContract(addr string) *Logger {
	return l.With(Contract(addr))
}

// Common attribute constructors for ledger-specific fields.

// Component creates a component attribute for identifying the source module.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Height creates a block height attribute.
func Height(h int64) slog.Attr {
	return slog.Int64("height", h)
}

// Hash creates a hash attribute (hex-encoded).
func Hash(h []byte) slog.Attr {
	return slog.String("hash", bytesToHex(h))
}

// TxHash creates a transaction hash attribute (hex-encoded).
func TxHash(h []byte) slog.Attr {
	return slog.String("tx_hash", bytesToHex(h))
}

// BlockHash creates a block hash attribute (hex-encoded).
func BlockHash(h []byte) slog.Attr {
	return slog.String("block_hash", bytesToHex(h))
}

// Address creates an entity address attribute (hex-encoded).
func Address(addr []byte) slog.Attr {
	return slog.String("address", bytesToHex(addr))
}

// Contract creates a contract address attribute.
func Contract(addr string) slog.Attr {
	return slog.String("contract", addr)
}

// Method creates a contract method attribute.
func Method(name string) slog.Attr {
	return slog.String("method", name)
}

// TxKind creates a transaction kind attribute.
func TxKind(kind string) slog.Attr {
	return slog.String("tx_kind", kind)
}

// Duration creates a duration attribute in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64("duration_ms", float64(d.Nanoseconds())/1e6)
}

// Count creates a count attribute.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Size creates a size attribute in bytes.
func Size(n int) slog.Attr {
	return slog.Int("size_bytes", n)
}

// Version creates a version attribute.
func Version(v int64) slog.Attr {
	return slog.Int64("version", v)
}

// ChainID creates a chain ID attribute.
func ChainID(id string) slog.Attr {
	return slog.String("chain_id", id)
}

// Error creates an error attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Reason creates a reason attribute.
func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}

// State creates a graph state attribute.
func State(s string) slog.Attr {
	return slog.String("state", s)
}

// Index creates an index attribute.
func Index(n int) slog.Attr {
	return slog.Int("index", n)
}

// bytesToHex converts bytes to hex string.
func bytesToHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	const hexDigits = "0123456789abcdef"
	hex := make([]byte, len(b)*2)
	for i, v := range b {
		hex[i*2] = hexDigits[v>>4]
		hex[i*2+1] = hexDigits[v&0x0f]
	}
	return string(hex)
}

// nopHandler is a slog.Handler that discards all logs.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
