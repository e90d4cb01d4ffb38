// Package logging keeps per-run copies of replayed event streams on disk.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const (
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
	EventsFilename     = "events.jsonl"
)

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex // guards stopped and the queue
	stopped bool
	errMu   sync.Mutex
	err     error // first failed write
}

var _ io.WriteCloser = (*AsyncFile)(nil)

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}
	return newAsyncFile(file), nil
}

func newAsyncFile(file *os.File) *AsyncFile {
	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100), // Buffer channel to reduce blocking
	}

	af.wg.Add(1)
	go af.processQueue()

	return af
}

// Write queues data to be written asynchronously. Errors of earlier writes are
// reported here and by Close.
func (af *AsyncFile) Write(data []byte) (int, error) {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return 0, errors.New("async file is closed")
	}
	if err := af.writeErr(); err != nil {
		return 0, err
	}

	// Make a copy of the data, the caller may reuse its buffer
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	af.queue <- dataCopy
	return len(data), nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil {
			// mu may be held by a Write blocked on the full queue
			af.errMu.Lock()
			if af.err == nil {
				af.err = fmt.Errorf("failed to write %s: %w", af.file.Name(), err)
			}
			af.errMu.Unlock()
		}
	}
}

func (af *AsyncFile) writeErr() error {
	af.errMu.Lock()
	defer af.errMu.Unlock()
	return af.err
}

// Close flushes pending writes and closes the file.
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if af.stopped {
		af.mu.Unlock()
		return nil
	}
	af.stopped = true
	close(af.queue)
	af.mu.Unlock()

	// Wait for all writes to complete
	af.wg.Wait()
	return errors.Join(af.writeErr(), af.file.Close())
}

// RunArchive stores the raw events of one run under <baseDir>/testrun-<runID>.
type RunArchive struct {
	dir    string
	events *AsyncFile
}

// NewRunArchive creates the run directory and its events file.
func NewRunArchive(baseDir string, runID string) (*RunArchive, error) {
	if runID == "" {
		return nil, errors.New("runID is required")
	}
	dir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	events, err := NewAsyncFile(filepath.Join(dir, EventsFilename))
	if err != nil {
		return nil, err
	}
	return &RunArchive{dir: dir, events: events}, nil
}

// Dir is the run directory.
func (a *RunArchive) Dir() string {
	return a.dir
}

// EventsPath is the path of the archived event stream.
func (a *RunArchive) EventsPath() string {
	return filepath.Join(a.dir, EventsFilename)
}

// Tee returns a reader that archives everything read from r.
func (a *RunArchive) Tee(r io.Reader) io.Reader {
	return io.TeeReader(r, a.events)
}

// Close flushes the archived events.
func (a *RunArchive) Close() error {
	return a.events.Close()
}
