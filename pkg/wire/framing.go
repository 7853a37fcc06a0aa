package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mgio/mgio-go/pkg/log"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxFrameSize is the default maximum frame payload (64 MiB).
	DefaultMaxFrameSize = 64 << 20
)

// Framing errors.
var (
	// ErrFrameTooLarge indicates a frame exceeding the maximum size.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrFrameEmpty indicates a zero-length frame.
	ErrFrameEmpty = errors.New("frame is empty")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrMalformedRecord indicates a frame whose payload is not a valid record.
	ErrMalformedRecord = errors.New("malformed record")
)

// FrameWriter writes length-prefixed frames to an underlying writer.
type FrameWriter struct {
	w            io.Writer
	maxFrameSize uint32
	offset       int64
	frames       int

	events log.Scope
}

// NewFrameWriter creates a frame writer with the default max size.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return NewFrameWriterWithMaxSize(w, DefaultMaxFrameSize)
}

// NewFrameWriterWithMaxSize creates a frame writer with a custom max size.
func NewFrameWriterWithMaxSize(w io.Writer, maxSize uint32) *FrameWriter {
	return &FrameWriter{
		w:            w,
		maxFrameSize: maxSize,
	}
}

// SetEvents configures event capture for this writer.
func (fw *FrameWriter) SetEvents(scope log.Scope) {
	fw.events = scope
}

// WriteFrame writes a length-prefixed frame.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrFrameEmpty
	}
	if uint64(len(data)) > uint64(fw.maxFrameSize) {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(data), fw.maxFrameSize)
	}

	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(data)))

	if _, err := fw.w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}
	if _, err := fw.w.Write(data); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}

	fw.events.Frame(data, fw.offset, LengthPrefixSize)
	fw.offset += int64(FrameSize(len(data)))
	fw.frames++
	return nil
}

// Offset returns the number of bytes written so far.
func (fw *FrameWriter) Offset() int64 {
	return fw.offset
}

// Frames returns the number of frames written so far.
func (fw *FrameWriter) Frames() int {
	return fw.frames
}

// FrameReader reads length-prefixed frames from an underlying reader.
type FrameReader struct {
	r            io.Reader
	maxFrameSize uint32
	lengthBuf    [LengthPrefixSize]byte
	offset       int64

	events log.Scope
}

// NewFrameReader creates a frame reader with the default max size.
func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderWithMaxSize(r, DefaultMaxFrameSize)
}

// NewFrameReaderWithMaxSize creates a frame reader with a custom max size.
func NewFrameReaderWithMaxSize(r io.Reader, maxSize uint32) *FrameReader {
	return &FrameReader{
		r:            r,
		maxFrameSize: maxSize,
	}
}

// SetEvents configures event capture for this reader.
func (fr *FrameReader) SetEvents(scope log.Scope) {
	fr.events = scope
}

// ReadFrame reads a length-prefixed frame and returns its payload.
// It returns io.EOF only when the stream ends exactly between frames.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	start := fr.offset
	if _, err := io.ReadFull(fr.r, fr.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(fr.lengthBuf[:])
	if length == 0 {
		return nil, ErrFrameEmpty
	}
	if length > fr.maxFrameSize {
		return nil, fmt.Errorf("%w: %d > %d at offset %d", ErrFrameTooLarge, length, fr.maxFrameSize, start)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	fr.offset += int64(FrameSize(int(length)))
	fr.events.Frame(payload, start, LengthPrefixSize)
	return payload, nil
}

// Offset returns the number of bytes consumed so far.
func (fr *FrameReader) Offset() int64 {
	return fr.offset
}

// SetMaxFrameSize updates the maximum frame size.
func (fr *FrameReader) SetMaxFrameSize(size uint32) {
	fr.maxFrameSize = size
}

// FrameSize returns the total frame size including the length prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}
