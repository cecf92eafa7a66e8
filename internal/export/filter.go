package export

import (
	"fmt"
	"strings"

	"github.com/spigell/resume-extractor/internal/batch"
	"github.com/spigell/resume-extractor/internal/extract"
)

// Filter is a predicate over parsed fields.
type Filter func(fields *extract.Fields) bool

// Contains matches records whose field renders to a string containing substr.
func Contains(field, substr string) Filter {
	return func(fields *extract.Fields) bool {
		v, ok := fields.Get(field)
		if !ok {
			return false
		}
		return strings.Contains(extract.String(v), substr)
	}
}

// All matches when every filter matches. With no filters it matches everything.
func All(filters ...Filter) Filter {
	return func(fields *extract.Fields) bool {
		for _, f := range filters {
			if f != nil && !f(fields) {
				return false
			}
		}
		return true
	}
}

// ParseFilters turns "field=substring" expressions into one Filter.
// It returns nil when exprs is empty so callers get the unfiltered export.
func ParseFilters(exprs []string) (Filter, error) {
	filters := make([]Filter, 0, len(exprs))
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}

		field, substr, ok := strings.Cut(expr, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q: expected field=substring", expr)
		}

		filters = append(filters, Contains(field, strings.TrimSpace(substr)))
	}

	if len(filters) == 0 {
		return nil, nil
	}

	return All(filters...), nil
}

// Select applies filter. A nil filter keeps every record; otherwise only ok
// records that match are kept. The input slice is never modified.
func Select(records []batch.Record, filter Filter) []batch.Record {
	out := make([]batch.Record, 0, len(records))
	for _, rec := range records {
		if filter != nil && (!rec.OK() || !filter(rec.Fields)) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
