package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	want := Header{
		Magic:      Magic,
		Version:    "1.0",
		Dim:        2,
		Rank:       1,
		Parts:      2,
		Points:     6,
		Roots:      2,
		Levels:     3,
		IdentLimit: 42,
		Canonical:  1,
	}

	var buf bytes.Buffer
	if err := WriteRecord(NewFrameWriter(&buf), &want); err != nil {
		t.Fatalf("WriteRecord failed: %v", err)
	}
	first := append([]byte(nil), buf.Bytes()...)

	var got Header
	if err := ReadRecord(NewFrameReader(&buf), &got); err != nil {
		t.Fatalf("ReadRecord failed: %v", err)
	}
	if got.Magic != want.Magic || got.Rank != 1 || got.IdentLimit != 42 || got.Canonical != 1 {
		t.Errorf("got %+v, want %+v", got, want)
	}

	// Canonical encoding: the same record yields the same bytes.
	buf.Reset()
	if err := WriteRecord(NewFrameWriter(&buf), &want); err != nil {
		t.Fatalf("WriteRecord failed: %v", err)
	}
	if !bytes.Equal(first, buf.Bytes()) {
		t.Error("encoding is not deterministic")
	}
}

func TestReadRecordMalformed(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFrameWriter(&buf).WriteFrame([]byte{0xff, 0xff}); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	var h Header
	err := ReadRecord(NewFrameReader(&buf), &h)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord, got %v", err)
	}
}

func TestReadRecordPassesFramingErrors(t *testing.T) {
	var h Header
	err := ReadRecord(NewFrameReader(bytes.NewReader([]byte{0, 0})), &h)
	if !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("expected ErrFrameTruncated, got %v", err)
	}
}
