package commands

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/mgio/mgio-go/pkg/log"
)

// Stats summarises a capture.
type Stats struct {
	TotalEvents int
	ByLayer     map[log.Layer]int
	ByCategory  map[log.Category]int
	ByDirection map[log.Direction]int
	Sessions    map[string]*SessionStats
	Errors      int
	First, Last time.Time
}

// SessionStats summarises one save or load session.
type SessionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	Parts      int
	Ranks      map[int]int
	Records    int
	Deferred   int
	Identities int
	Renamed    int
	Errors     int
}

func newStats() *Stats {
	return &Stats{
		ByLayer:     make(map[log.Layer]int),
		ByCategory:  make(map[log.Category]int),
		ByDirection: make(map[log.Direction]int),
		Sessions:    make(map[string]*SessionStats),
	}
}

// RunStats prints a summary of the capture at path.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	stats.print(w)
	return nil
}

func (st *Stats) add(event log.Event) {
	ts := event.Timestamp
	if st.TotalEvents == 0 || ts.Before(st.First) {
		st.First = ts
	}
	if ts.After(st.Last) {
		st.Last = ts
	}
	st.TotalEvents++
	st.ByLayer[event.Layer]++
	st.ByCategory[event.Category]++
	st.ByDirection[event.Direction]++

	s := st.Sessions[event.SessionID]
	if s == nil {
		s = &SessionStats{FirstSeen: ts, LastSeen: ts, Ranks: make(map[int]int)}
		st.Sessions[event.SessionID] = s
	}
	s.Events++
	s.Ranks[event.Rank]++
	s.Parts = max(s.Parts, event.Parts)
	s.FirstSeen = minTime(s.FirstSeen, ts)
	if ts.After(s.LastSeen) {
		s.LastSeen = ts
	}

	if r := event.Record; r != nil {
		s.Records++
		if r.Deferred {
			s.Deferred++
		}
	}
	if id := event.Identity; id != nil {
		s.Identities++
		if id.OldGID != id.NewGID {
			s.Renamed++
		}
	}
	if event.Error != nil {
		s.Errors++
		st.Errors++
	}
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

type countKey interface {
	comparable
	fmt.Stringer
}

// printCounts writes the non-zero counts in order under title.
func printCounts[K countKey](w io.Writer, title string, order []K, counts map[K]int) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range order {
		if n := counts[k]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", k.String()+":", n)
		}
	}
	fmt.Fprintln(w)
}

func (st *Stats) print(w io.Writer) {
	fmt.Fprint(w, "=== MGIO Event Log Statistics ===\n\n")

	if st.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", st.First.Format(time.RFC3339), st.Last.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n\n", st.Last.Sub(st.First).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Total Events: %d\n\n", st.TotalEvents)

	printCounts(w, "Events by Layer", []log.Layer{log.LayerFrame, log.LayerRecord, log.LayerReconcile}, st.ByLayer)
	printCounts(w, "Events by Category", []log.Category{log.CategoryData, log.CategorySection, log.CategoryIdentity, log.CategoryError}, st.ByCategory)
	printCounts(w, "Events by Direction", []log.Direction{log.DirectionIn, log.DirectionOut}, st.ByDirection)

	fmt.Fprintf(w, "Sessions: %d\n", len(st.Sessions))
	ids := make([]string, 0, len(st.Sessions))
	for id := range st.Sessions {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := st.Sessions[a].FirstSeen.Compare(st.Sessions[b].FirstSeen); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(ids) > 0 {
		fmt.Fprintln(w)
	}
	for _, id := range ids {
		s := st.Sessions[id]
		fmt.Fprintf(w, "  [%s] %d events, %d/%d ranks, duration %s\n",
			shortenSessionID(id), s.Events, len(s.Ranks), max(s.Parts, 1),
			s.LastSeen.Sub(s.FirstSeen).Round(time.Millisecond))
		const indent = "           "
		if s.Records > 0 {
			fmt.Fprintf(w, "%sRecords: %d (%d deferred)\n", indent, s.Records, s.Deferred)
		}
		if s.Identities > 0 {
			fmt.Fprintf(w, "%sIdentities: %d (%d renamed)\n", indent, s.Identities, s.Renamed)
		}
		if s.Errors > 0 {
			fmt.Fprintf(w, "%sErrors: %d\n", indent, s.Errors)
		}
	}

	if st.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", st.Errors)
	}
}
