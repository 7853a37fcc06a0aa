package log

import (
	"time"
)

// MaxFrameDataSize is the maximum frame payload copied into an event (4 KB).
const MaxFrameDataSize = 4096

// Scope stamps the fields shared by every event of one stream and forwards
// the events to a Logger. The zero Scope discards everything.
type Scope struct {
	Logger    Logger
	SessionID string
	Rank      int
	Parts     int
	Direction Direction
}

// Enabled reports whether events are captured.
func (s Scope) Enabled() bool {
	if s.Logger == nil {
		return false
	}
	_, noop := s.Logger.(NoopLogger)
	return !noop
}

func (s Scope) event(layer Layer, category Category) Event {
	return Event{
		Timestamp: time.Now(),
		SessionID: s.SessionID,
		Direction: s.Direction,
		Layer:     layer,
		Category:  category,
		Rank:      s.Rank,
		Parts:     s.Parts,
	}
}

// Frame records a frame of the given payload starting at offset.
func (s Scope) Frame(payload []byte, offset int64, prefix int) {
	if !s.Enabled() {
		return
	}
	data := payload
	truncated := false
	if len(data) > MaxFrameDataSize {
		data = data[:MaxFrameDataSize]
		truncated = true
	}
	ev := s.event(LayerFrame, CategoryData)
	ev.Frame = &FrameEvent{
		Size:      prefix + len(payload),
		Data:      data,
		Truncated: truncated,
		Offset:    offset,
	}
	s.Logger.Log(ev)
}

// Section records a completed section.
func (s Scope) Section(name string, records int, elapsed time.Duration) {
	if !s.Enabled() {
		return
	}
	ev := s.event(LayerRecord, CategorySection)
	ev.Section = &SectionEvent{Name: name, Records: records, Elapsed: elapsed}
	s.Logger.Log(ev)
}

// Record records one refinement record.
func (s Scope) Record(r RecordEvent) {
	if !s.Enabled() {
		return
	}
	ev := s.event(LayerRecord, CategoryData)
	ev.Record = &r
	s.Logger.Log(ev)
}

// Identity records one identity decision.
func (s Scope) Identity(id IdentityEvent) {
	if !s.Enabled() {
		return
	}
	ev := s.event(LayerReconcile, CategoryIdentity)
	ev.Identity = &id
	s.Logger.Log(ev)
}

// Error records an error.
func (s Scope) Error(layer Layer, err error, section, context string) {
	if !s.Enabled() || err == nil {
		return
	}
	ev := s.event(layer, CategoryError)
	ev.Error = &ErrorData{Layer: layer, Message: err.Error(), Section: section, Context: context}
	s.Logger.Log(ev)
}
