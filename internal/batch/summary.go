package batch

import (
	"github.com/spigell/resume-extractor/internal/extract"
)

// Summary is computed from a Result on demand and never stored.
type Summary struct {
	Total          int            `json:"total"`
	ByStatus       map[Status]int `json:"by_status"`
	MeanFieldCount float64        `json:"mean_field_count"`
}

func (r Result) Summary() Summary {
	s := Summary{
		Total: len(r),
		ByStatus: map[Status]int{
			StatusOK:            0,
			StatusParseFailed:   0,
			StatusRequestFailed: 0,
		},
	}

	fields := 0
	for _, rec := range r {
		s.ByStatus[rec.Status]++
		if rec.OK() {
			fields += rec.Fields.Len()
		}
	}

	if ok := s.ByStatus[StatusOK]; ok > 0 {
		s.MeanFieldCount = float64(fields) / float64(ok)
	}

	return s
}

// Failures returns the records that are not ok, in order.
func (r Result) Failures() []Record {
	out := make([]Record, 0)
	for _, rec := range r {
		if !rec.OK() {
			out = append(out, rec)
		}
	}
	return out
}

// DistinctValues lists the non-empty values of field across ok records in first-seen order.
func (r Result) DistinctValues(field string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, rec := range r {
		if !rec.OK() {
			continue
		}
		v, ok := rec.Fields.Get(field)
		if !ok {
			continue
		}
		s := extract.String(v)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
