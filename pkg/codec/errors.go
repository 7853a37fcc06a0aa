package codec

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mgio/mgio-go/pkg/mesh"
	"github.com/mgio/mgio-go/pkg/wire"
)

// Codec errors.
var (
	// ErrIO indicates the underlying reader or writer failed, or the stream
	// ended early.
	ErrIO = errors.New("stream i/o failure")

	// ErrCorruptData indicates a structurally invalid stream.
	ErrCorruptData = errors.New("corrupt stream data")

	// ErrDanglingNodeReference indicates an absent slot that could not be
	// resolved through its shared entity.
	ErrDanglingNodeReference = errors.New("dangling node reference")

	// ErrBoundary indicates boundary points without a usable serializer.
	ErrBoundary = errors.New("boundary point serialization failed")
)

// Error describes a failed encode or decode.
type Error struct {
	// Op is "encode" or "decode".
	Op string

	// Section is the stream section being processed.
	Section wire.Section

	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("codec: %s %s: %v", e.Op, e.Section, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps framing, record and mesh errors onto the codec sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrIO), errors.Is(err, ErrCorruptData),
		errors.Is(err, ErrDanglingNodeReference), errors.Is(err, ErrBoundary),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case err == io.EOF, errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, wire.ErrFrameTruncated):
		return fmt.Errorf("%w: stream ended early", ErrIO)
	case errors.Is(err, wire.ErrMalformedRecord), errors.Is(err, wire.ErrFrameEmpty),
		errors.Is(err, wire.ErrFrameTooLarge):
		return fmt.Errorf("%w: %w", ErrCorruptData, err)
	case errors.Is(err, mesh.ErrDuplicateGID), errors.Is(err, mesh.ErrEntityConflict),
		errors.Is(err, mesh.ErrOrphanConflict), errors.Is(err, mesh.ErrInvalid),
		errors.Is(err, mesh.ErrInvalidHandle), errors.Is(err, mesh.ErrMissingNode),
		errors.Is(err, mesh.ErrAlreadyRefined):
		return fmt.Errorf("%w: %w", ErrCorruptData, err)
	default:
		return err
	}
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCorruptData}, args...)...)
}
