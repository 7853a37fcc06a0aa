package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/mgio/mgio-go/pkg/log"
)

// FilterOptions holds the filter command's flag values. Empty values match
// everything.
type FilterOptions struct {
	Output    string
	SessionID string
	Rank      string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	// Category is one category or a comma-separated list.
	Category string
}

// toFilter parses every option and reports all invalid ones together.
func (o FilterOptions) toFilter() (log.Filter, error) {
	f := log.Filter{SessionID: o.SessionID}
	var errs *multierror.Error

	if o.Rank != "" {
		r, err := parseRank(o.Rank)
		errs = multierror.Append(errs, err)
		f.Rank = &r
	}
	if o.TimeStart != "" {
		ts, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid time-start: %w", err))
		}
		f.TimeStart = &ts
	}
	if o.TimeEnd != "" {
		te, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invalid time-end: %w", err))
		}
		f.TimeEnd = &te
	}
	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		errs = multierror.Append(errs, err)
		f.Layer = &l
	}
	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		errs = multierror.Append(errs, err)
		f.Direction = &d
	}
	if o.Category != "" {
		for _, name := range strings.Split(o.Category, ",") {
			c, err := parseCategory(strings.TrimSpace(name))
			errs = multierror.Append(errs, err)
			f.Categories = append(f.Categories, c)
		}
	}
	return f, errs.ErrorOrNil()
}

// RunFilter copies the events of the capture at path that match opts into a
// new capture at opts.Output and returns how many it wrote.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := opts.toFilter()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Close()
			return out.Count(), fmt.Errorf("failed to read event: %w", err)
		}
		out.Log(event)
	}
	if err := out.Close(); err != nil {
		return out.Count(), err
	}
	return out.Count(), nil
}
