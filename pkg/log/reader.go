package log

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrTruncated is returned when a capture ends inside an event, as it does
// after a crash of the writing process.
var ErrTruncated = errors.New("log: capture ends inside an event")

// Filter specifies criteria for filtering events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// SessionID filters by exact session match.
	SessionID string

	// Rank filters by partition.
	Rank *int

	// Direction filters by data direction.
	Direction *Direction

	// Layer filters by layer.
	Layer *Layer

	// Category filters by event category.
	Category *Category

	// Categories keeps events of any of the listed categories.
	Categories []Category

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

func (f *Filter) matches(event Event) bool {
	switch {
	case f.SessionID != "" && event.SessionID != f.SessionID:
		return false
	case f.Rank != nil && event.Rank != *f.Rank:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case len(f.Categories) > 0 && !slices.Contains(f.Categories, event.Category):
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	return true
}

// Reader streams events from an .mlog capture.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
	decoded int
}

// NewReader creates a Reader that reads all events of the capture at path.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader creates a Reader that returns the events matching
// filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(bufio.NewReader(f)),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at the end of the
// capture. A capture cut inside an event yields ErrTruncated.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.decoder.Decode(&event)
		switch {
		case err == io.EOF:
			return Event{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Event{}, fmt.Errorf("%w after %d events", ErrTruncated, r.decoded)
		case err != nil:
			return Event{}, fmt.Errorf("log: event %d: %w", r.decoded, err)
		}
		r.decoded++
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Decoded returns the number of events read so far, matching or not.
func (r *Reader) Decoded() int {
	return r.decoded
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadAll returns every event of the capture at path that matches filter.
func ReadAll(path string, filter Filter) ([]Event, error) {
	r, err := NewFilteredReader(path, filter)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var events []Event
	for {
		event, err := r.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}
