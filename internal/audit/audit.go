// Package audit writes one append-only record per request for compliance
// traceability. Records are append-only: once written they are never
// rewritten or deleted by the service.
package audit

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Record captures the outcome and metadata of one request. No audio or
// transcript content is ever written, only sizes and classifications.
type Record struct {
	RequestID   string
	Principal   string // authenticated principal, or "unauthenticated"
	SizeBytes   int64  // inbound file size
	Outcome     string // "success" or an error classification
	AudioRMS    float64
	ReceivedAt  time.Time
	CompletedAt time.Time
}

// Log appends records to a local file as JSON lines through a single
// writer goroutine, so concurrent requests never interleave partial
// writes.
type Log struct {
	ch     chan Record
	done   chan struct{}
	f      *os.File
	writer zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// Open opens (creating if needed) the append-only audit log at path.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	l := &Log{
		ch:     make(chan Record, 64),
		done:   make(chan struct{}),
		f:      f,
		writer: zerolog.New(f),
	}
	go l.run()
	return l, nil
}

func (l *Log) run() {
	defer close(l.done)
	for r := range l.ch {
		l.writer.Log().
			Str("request_id", r.RequestID).
			Str("principal", r.Principal).
			Int64("size_bytes", r.SizeBytes).
			Str("outcome", r.Outcome).
			Float64("audio_rms", r.AudioRMS).
			Time("received_at", r.ReceivedAt).
			Time("completed_at", r.CompletedAt).
			Send()
	}
}

// Append queues one finalized record. It blocks rather than drops when the
// writer falls behind: every request must leave exactly one record.
func (l *Log) Append(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.ch <- r
}

// Close drains pending records and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()

	<-l.done
	return l.f.Close()
}
