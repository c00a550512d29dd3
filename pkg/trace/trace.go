// Package trace provides the observational trace sink used by the engine.
//
// The engine emits ordered trace records at protocol milestones. Callers
// choose where the records go by injecting a Sink: a bounded in-memory
// collection, a line-oriented writer, a zap logger, or nothing at all.
// Sinks are observational only; a sink must never influence protocol
// behavior and the engine never checks a sink for errors.
package trace

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level classifies a trace record.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelDebug Level = "debug"
)

// Record is a single trace event.
type Record struct {
	Time    time.Time
	Level   Level
	Message string
}

// Sink receives trace records in emission order.
type Sink interface {
	Append(Record)
}

// Nop discards all records. It is the default sink.
type Nop struct{}

// Append implements Sink.
func (Nop) Append(Record) {}

// Buffer accumulates records in memory.
type Buffer struct {
	mu      sync.Mutex
	records []Record
}

// NewBuffer returns an empty in-memory sink.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append implements Sink.
func (b *Buffer) Append(r Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, r)
}

// Records returns a snapshot of the accumulated records.
func (b *Buffer) Records() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, len(b.records))
	copy(out, b.records)
	return out
}

// Reset discards all accumulated records.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = nil
}

// Writer streams each record as a formatted line to an io.Writer.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a sink that writes one line per record to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Append implements Sink. Write errors are ignored.
func (s *Writer) Append(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s [%s] %s\n", r.Time.Format(time.RFC3339Nano), r.Level, r.Message)
}

// Zap forwards records to a zap logger.
type Zap struct {
	logger *zap.Logger
}

// NewZap returns a sink backed by the given zap logger.
func NewZap(logger *zap.Logger) *Zap {
	return &Zap{logger: logger.Named("wirehttp")}
}

// Append implements Sink.
func (s *Zap) Append(r Record) {
	switch r.Level {
	case LevelWarn:
		s.logger.Warn(r.Message, zap.Time("at", r.Time))
	case LevelDebug:
		s.logger.Debug(r.Message, zap.Time("at", r.Time))
	default:
		s.logger.Info(r.Message, zap.Time("at", r.Time))
	}
}

// Emit appends a record with the current time to sink. A nil sink is a no-op.
func Emit(sink Sink, level Level, format string, args ...any) {
	if sink == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	sink.Append(Record{Time: time.Now(), Level: level, Message: msg})
}
