package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pflex-robotics/tcs-go/pkg/log"
)

// Framing constants.
const (
	// DefaultMaxLineSize is the default maximum line size including the
	// terminator (4 KB).
	DefaultMaxLineSize = 4096

	// readChunkSize is the number of bytes requested per underlying read.
	readChunkSize = 512
)

// Framing errors.
var (
	// ErrLineTooLong indicates more than the maximum line size arrived
	// without a terminator.
	ErrLineTooLong = errors.New("line too long")

	// ErrLineTruncated indicates the stream ended in the middle of a line.
	ErrLineTruncated = errors.New("line truncated")

	// ErrLineEmpty indicates an attempt to write an empty line.
	ErrLineEmpty = errors.New("line is empty")
)

// LineWriter writes newline-terminated lines to an underlying writer.
type LineWriter struct {
	w           io.Writer
	maxLineSize int
	mu          sync.Mutex

	// Logging support (optional)
	logger log.Logger
	connID string
	role   log.Role
}

// NewLineWriter creates a new line writer.
func NewLineWriter(w io.Writer) *LineWriter {
	return NewLineWriterWithMaxSize(w, DefaultMaxLineSize)
}

// NewLineWriterWithMaxSize creates a line writer with a custom max size.
func NewLineWriterWithMaxSize(w io.Writer, maxSize int) *LineWriter {
	if maxSize <= 0 {
		maxSize = DefaultMaxLineSize
	}
	return &LineWriter{
		w:           w,
		maxLineSize: maxSize,
	}
}

// SetLogger configures logging for this writer.
// Pass nil to disable logging.
func (lw *LineWriter) SetLogger(logger log.Logger, connID string, role log.Role) {
	lw.logger = logger
	lw.connID = connID
	lw.role = role
}

// WriteLine writes a complete line. The caller supplies the terminator.
// Short writes are retried until the whole line is written.
// Thread-safe: can be called from multiple goroutines.
func (lw *LineWriter) WriteLine(line string) error {
	if len(line) == 0 {
		return ErrLineEmpty
	}
	if len(line) > lw.maxLineSize {
		return fmt.Errorf("%w: %d > %d", ErrLineTooLong, len(line), lw.maxLineSize)
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()

	buf := []byte(line)
	for len(buf) > 0 {
		n, err := lw.w.Write(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		buf = buf[n:]
	}

	if lw.logger != nil {
		lw.logger.Log(makeLineEvent(lw.connID, lw.role, line, log.DirectionOut))
	}

	return nil
}

// LineReader reads newline-terminated lines from an underlying reader,
// accumulating bytes across reads until the terminator is observed.
type LineReader struct {
	r           io.Reader
	maxLineSize int
	buf         []byte
	chunk       [readChunkSize]byte

	// Logging support (optional)
	logger log.Logger
	connID string
	role   log.Role
}

// NewLineReader creates a new line reader.
func NewLineReader(r io.Reader) *LineReader {
	return NewLineReaderWithMaxSize(r, DefaultMaxLineSize)
}

// NewLineReaderWithMaxSize creates a line reader with a custom max size.
func NewLineReaderWithMaxSize(r io.Reader, maxSize int) *LineReader {
	if maxSize <= 0 {
		maxSize = DefaultMaxLineSize
	}
	return &LineReader{
		r:           r,
		maxLineSize: maxSize,
	}
}

// SetLogger configures logging for this reader.
// Pass nil to disable logging.
func (lr *LineReader) SetLogger(logger log.Logger, connID string, role log.Role) {
	lr.logger = logger
	lr.connID = connID
	lr.role = role
}

// ReadLine reads one line, including its terminator.
//
// Bytes that arrive before an error (for example a read deadline) are kept
// and the next call continues the same line. io.EOF is returned only when
// the stream ends on a line boundary.
func (lr *LineReader) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(lr.buf, '\n'); i >= 0 {
			line := string(lr.buf[:i+1])
			lr.buf = append(lr.buf[:0], lr.buf[i+1:]...)
			if len(line) > lr.maxLineSize {
				return "", fmt.Errorf("%w: %d > %d", ErrLineTooLong, len(line), lr.maxLineSize)
			}
			if lr.logger != nil {
				lr.logger.Log(makeLineEvent(lr.connID, lr.role, line, log.DirectionIn))
			}
			return line, nil
		}

		if len(lr.buf) >= lr.maxLineSize {
			lr.buf = lr.buf[:0]
			return "", fmt.Errorf("%w: no terminator within %d bytes", ErrLineTooLong, lr.maxLineSize)
		}

		n, err := lr.r.Read(lr.chunk[:])
		if n > 0 {
			lr.buf = append(lr.buf, lr.chunk[:n]...)
		}
		if err != nil {
			if bytes.IndexByte(lr.buf, '\n') >= 0 {
				continue
			}
			if errors.Is(err, io.EOF) {
				if len(lr.buf) > 0 {
					lr.buf = lr.buf[:0]
					return "", ErrLineTruncated
				}
				return "", io.EOF
			}
			return "", err
		}
	}
}

// Buffered returns the number of bytes held for an incomplete line.
func (lr *LineReader) Buffered() int {
	return len(lr.buf)
}

// Reset discards any partially received line.
func (lr *LineReader) Reset() {
	lr.buf = lr.buf[:0]
}

// SetMaxLineSize updates the maximum line size.
func (lr *LineReader) SetMaxLineSize(size int) {
	lr.maxLineSize = size
}

// makeLineEvent creates a log event for a raw line.
func makeLineEvent(connID string, role log.Role, line string, direction log.Direction) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		LocalRole:    role,
		Line:         log.NewLineEvent(line),
	}
}

// Framer combines line reading and writing.
type Framer struct {
	*LineReader
	*LineWriter
}

// NewFramer creates a new framer for bidirectional communication.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxLineSize)
}

// NewFramerWithMaxSize creates a framer with a custom max line size.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize int) *Framer {
	return &Framer{
		LineReader: NewLineReaderWithMaxSize(rw, maxSize),
		LineWriter: NewLineWriterWithMaxSize(rw, maxSize),
	}
}

// SetLogger configures logging for both reader and writer.
// Pass nil to disable logging.
func (f *Framer) SetLogger(logger log.Logger, connID string, role log.Role) {
	f.LineReader.SetLogger(logger, connID, role)
	f.LineWriter.SetLogger(logger, connID, role)
}
