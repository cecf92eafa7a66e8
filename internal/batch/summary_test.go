package batch

import (
	"reflect"
	"testing"

	"github.com/spigell/resume-extractor/internal/extract"
)

func sampleResult() Result {
	return Result{
		{Index: 1, SourceQuery: "a", Status: StatusOK, Fields: extract.NewFields("name", "Li", "education", "本科")},
		{Index: 2, SourceQuery: "b", Status: StatusRequestFailed, Failure: FailureTransport, Error: "down"},
		{Index: 3, SourceQuery: "c", Status: StatusOK, Fields: extract.NewFields("name", "Wang", "education", "硕士", "age", float64(30), "city", "Beijing")},
		{Index: 4, SourceQuery: "d", Status: StatusParseFailed, Failure: FailureParse, RawReply: "??"},
		{Index: 5, SourceQuery: "e", Status: StatusOK, Fields: extract.NewFields("name", "Li", "education", "")},
	}
}

func TestSummary(t *testing.T) {
	s := sampleResult().Summary()

	if s.Total != 5 {
		t.Fatalf("expected total 5, got %d", s.Total)
	}

	expected := map[Status]int{StatusOK: 3, StatusRequestFailed: 1, StatusParseFailed: 1}
	if !reflect.DeepEqual(s.ByStatus, expected) {
		t.Fatalf("unexpected counts: %v", s.ByStatus)
	}

	if s.MeanFieldCount != float64(2+4+2)/3 {
		t.Fatalf("unexpected mean field count: %v", s.MeanFieldCount)
	}
}

func TestSummaryEmpty(t *testing.T) {
	s := Result{}.Summary()
	if s.Total != 0 || s.MeanFieldCount != 0 || s.ByStatus[StatusOK] != 0 {
		t.Fatalf("unexpected empty summary: %+v", s)
	}
}

func TestDistinctValues(t *testing.T) {
	r := sampleResult()

	if got := r.DistinctValues("name"); !reflect.DeepEqual(got, []string{"Li", "Wang"}) {
		t.Fatalf("unexpected names: %v", got)
	}
	if got := r.DistinctValues("education"); !reflect.DeepEqual(got, []string{"本科", "硕士"}) {
		t.Fatalf("unexpected education levels: %v", got)
	}
	if got := r.DistinctValues("missing"); len(got) != 0 {
		t.Fatalf("expected no values, got %v", got)
	}
}

func TestFailures(t *testing.T) {
	r := sampleResult()

	failed := r.Failures()

	if len(failed) != r.Summary().Total-r.Summary().ByStatus[StatusOK] {
		t.Fatalf("failures must cover every record that is not ok")
	}
	if failed[0].Index != 2 || failed[1].Index != 4 {
		t.Fatalf("failures out of order: %+v", failed)
	}
}
