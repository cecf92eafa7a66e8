package batch

import (
	"time"

	"github.com/spigell/resume-extractor/internal/agent"
	"github.com/spigell/resume-extractor/internal/extract"
)

type Status string

const (
	StatusOK            Status = "ok"
	StatusParseFailed   Status = "parse_failed"
	StatusRequestFailed Status = "request_failed"
)

// FailureKind narrows down why a record is not ok.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureRemote    FailureKind = "remote"
	FailureParse     FailureKind = "parse"
)

// Record is the outcome of one query. Fields is nil unless Status is ok.
type Record struct {
	Index       int             `json:"index"`
	SourceQuery string          `json:"source_query"`
	Status      Status          `json:"status"`
	Fields      *extract.Fields `json:"fields,omitempty"`
	RawReply    string          `json:"raw_reply,omitempty"`
	Failure     FailureKind     `json:"failure,omitempty"`
	Error       string          `json:"error,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	Sequence    int             `json:"sequence_index,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (r Record) OK() bool {
	return r.Status == StatusOK
}

// Result holds one record per input query, in input order.
type Result []Record

func requestFailed(index int, query string, err error, at time.Time) Record {
	kind := FailureTransport
	if agent.IsRemote(err) {
		kind = FailureRemote
	}

	return Record{
		Index:       index,
		SourceQuery: query,
		Status:      StatusRequestFailed,
		Failure:     kind,
		Error:       err.Error(),
		Timestamp:   at,
	}
}
