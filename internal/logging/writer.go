// Package logging provides the monitor's diagnostic output path: a
// non-blocking writer over a pre-existing named pipe, and the metrics
// emitter that flushes records through it.
package logging

import (
	"bufio"
	"bytes"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Writer sends diagnostic lines to a named pipe without ever blocking the
// caller. The pipe is opened for both reading and writing so that opening
// does not wait for a reader to appear, and in non-blocking mode so that a
// full kernel pipe buffer fails the write with EAGAIN instead of stalling
// the VM's execution path. The caller is expected to count such failures,
// not retry them.
type Writer struct {
	mu   sync.Mutex
	dest *pipeFile
	buf  *bufio.Writer
}

// pipeFile wraps a raw file descriptor. The descriptor is written through
// the raw write syscall on purpose: wrapping a non-blocking descriptor in
// an os.File would hand it to the runtime poller, which waits for
// writability instead of surfacing EAGAIN.
type pipeFile struct {
	fd   int
	path string
}

func (f *pipeFile) Write(p []byte) (int, error) {
	n, err := unix.Write(f.fd, p)
	if n < 0 {
		n = 0
	}
	if err != nil {
		return n, &os.PathError{Op: "write", Path: f.path, Err: err}
	}
	return n, nil
}

// NewWriter opens the destination at path for reading and writing in
// non-blocking mode and wraps it in a line-buffered handle. The
// destination must already exist.
func NewWriter(path string) (*Writer, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}

	dest := &pipeFile{fd: fd, path: path}

	return &Writer{
		dest: dest,
		buf:  bufio.NewWriter(dest),
	}, nil
}

// Write buffers p and flushes through to the pipe whenever p completes a
// line. It returns the number of bytes accepted. A would-block failure is
// returned to the caller; the affected line may be lost, but the writer
// stays usable for the next call.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.buf.Write(p)
	if err != nil {
		w.reset()
		return 0, err
	}

	if bytes.IndexByte(p, '\n') >= 0 {
		err = w.buf.Flush()
		if err != nil {
			w.reset()
			return 0, err
		}
	}

	return len(p), nil
}

// Flush writes any buffered data through to the pipe.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.buf.Flush()
	if err != nil {
		w.reset()
	}
	return err
}

// reset discards buffered state after a failed write or flush. bufio holds
// on to its first error and would otherwise return it forever; dropping
// one garbled line is preferable to disabling diagnostic output for the
// rest of the process lifetime. Callers must hold w.mu.
func (w *Writer) reset() {
	w.buf.Reset(w.dest)
}

// Close releases the underlying descriptor.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return unix.Close(w.dest.fd)
}
