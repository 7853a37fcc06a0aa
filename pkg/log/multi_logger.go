package log

// MultiLogger fans events out to several loggers. A logger added with Route
// only receives the events its filter matches.
type MultiLogger struct {
	routes []route
}

type route struct {
	logger Logger
	filter Filter
}

// NewMultiLogger creates a MultiLogger sending every event to each logger.
// Nil loggers are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		m.Route(l, Filter{})
	}
	return m
}

// Route adds a logger receiving the events that match filter. A nil logger
// is skipped.
func (m *MultiLogger) Route(l Logger, filter Filter) *MultiLogger {
	if l != nil {
		m.routes = append(m.routes, route{logger: l, filter: filter})
	}
	return m
}

// Len returns the number of loggers.
func (m *MultiLogger) Len() int {
	return len(m.routes)
}

// Log sends the event to every logger whose filter matches.
func (m *MultiLogger) Log(event Event) {
	for _, r := range m.routes {
		if r.filter.matches(event) {
			r.logger.Log(event)
		}
	}
}

var _ Logger = (*MultiLogger)(nil)
