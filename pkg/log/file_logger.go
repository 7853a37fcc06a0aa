package log

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends events to an .mlog capture.
//
// Events are buffered; Flush and Close write them out. A failed write stops
// the capture and is reported by Flush and Close, never by Log.
// FileLogger is safe for concurrent use.
type FileLogger struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	buf    *bufio.Writer
	enc    *cbor.Encoder
	count  int
	err    error
	closed bool
}

// NewFileLogger opens path for appending, creating it with mode 0644 when it
// does not exist.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &FileLogger{
		path: path,
		file: f,
		buf:  buf,
		enc:  NewEncoder(buf),
	}, nil
}

// Log buffers an event. It is ignored after Close or a write failure.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.err != nil {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.err = fmt.Errorf("log: write %s: %w", l.path, err)
		return
	}
	l.count++
}

// Count returns the number of events accepted so far.
func (l *FileLogger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Flush writes buffered events to the file.
func (l *FileLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flush()
}

func (l *FileLogger) flush() error {
	if l.err != nil || l.closed {
		return l.err
	}
	if err := l.buf.Flush(); err != nil {
		l.err = fmt.Errorf("log: write %s: %w", l.path, err)
	}
	return l.err
}

// Close flushes and closes the file and returns the first write failure.
// Further calls return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	err := l.flush()
	l.closed = true
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	return err
}

var _ Logger = (*FileLogger)(nil)
