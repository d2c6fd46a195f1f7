package logging

import (
	"encoding/json"
	"errors"
	"expvar"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrNotConfigured is returned by Emit before PUT /metrics has supplied a
// destination.
var ErrNotConfigured = errors.New("metrics destination not configured")

// Emitter serializes metrics records to a FIFO writer. A record that
// cannot be delivered because the consumer is not draining the pipe is
// dropped and counted, never retried.
type Emitter struct {
	mu     sync.Mutex
	dest   *Writer
	missed expvar.Int
}

// NewEmitter returns an Emitter with no destination configured.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// SetDestination replaces the emitter's destination writer. The previous
// writer, if any, is closed.
func (e *Emitter) SetDestination(w *Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dest != nil {
		e.dest.Close()
	}
	e.dest = w
}

// Emit marshals record as a single JSON line and writes it out. Backpressure
// from an undrained pipe increments the missed counter and is reported to
// the caller.
func (e *Emitter) Emit(record any) error {
	e.mu.Lock()
	dest := e.dest
	e.mu.Unlock()

	if dest == nil {
		return ErrNotConfigured
	}

	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	_, err = dest.Write(line)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			e.missed.Add(1)
		}
		return err
	}

	return dest.Flush()
}

// Missed returns the number of records dropped due to backpressure.
func (e *Emitter) Missed() int64 {
	return e.missed.Value()
}

// MissedVar exposes the missed counter for expvar publication.
func (e *Emitter) MissedVar() expvar.Var {
	return &e.missed
}
