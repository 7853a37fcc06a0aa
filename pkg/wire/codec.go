package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Record modes. Encoding is canonical so the same mesh always yields the
// same bytes; decoding skips unknown keys so newer minor versions stay
// readable.
var (
	recordEnc cbor.EncMode
	recordDec cbor.DecMode
)

func init() {
	var err error
	recordEnc, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: record encoder: %v", err))
	}

	recordDec, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		MaxArrayElements:  1 << 27,
		MaxMapPairs:       1 << 27,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: record decoder: %v", err))
	}
}

// WriteRecord encodes v and writes it as one frame.
func WriteRecord(fw *FrameWriter, v any) error {
	data, err := recordEnc.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: encode %T: %w", v, err)
	}
	return fw.WriteFrame(data)
}

// ReadRecord reads one frame and decodes it into v. Framing errors are
// returned unchanged; a payload that does not decode is reported as
// ErrMalformedRecord.
func ReadRecord(fr *FrameReader, v any) error {
	data, err := fr.ReadFrame()
	if err != nil {
		return err
	}
	if err := recordDec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %T: %v", ErrMalformedRecord, v, err)
	}
	return nil
}
