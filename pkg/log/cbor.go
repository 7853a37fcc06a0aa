package log

import (
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// EventTag is the CBOR tag number wrapped around every event written to a
// capture ("mlog" in ASCII). Untagged events from older captures still
// decode.
const EventTag uint64 = 0x6d6c6f67

var (
	eventEncMode cbor.EncMode
	eventDecMode cbor.DecMode
)

func init() {
	tags := cbor.NewTagSet()
	err := tags.Add(
		cbor.TagOptions{EncTag: cbor.EncTagRequired, DecTag: cbor.DecTagOptional},
		reflect.TypeOf(Event{}),
		EventTag,
	)
	if err != nil {
		panic(fmt.Sprintf("failed to register event tag: %v", err))
	}

	eventEncMode, err = cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncModeWithTags(tags)
	if err != nil {
		panic(fmt.Sprintf("failed to create event encoder mode: %v", err))
	}

	// Captures written by newer versions carry fields this reader skips.
	eventDecMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
		MaxNestedLevels:   16,
	}.DecModeWithTags(tags)
	if err != nil {
		panic(fmt.Sprintf("failed to create event decoder mode: %v", err))
	}
}

// EncodeEvent encodes a tagged event.
func EncodeEvent(event Event) ([]byte, error) {
	return eventEncMode.Marshal(event)
}

// DecodeEvent decodes one event, tagged or not.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := eventDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder returns an encoder writing tagged events to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return eventEncMode.NewEncoder(w)
}

// NewDecoder returns a decoder reading events from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return eventDecMode.NewDecoder(r)
}
