// Package agent describes the remote conversational agent the extractor talks to
// and the failures it can report.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSessionUnavailable means no usable conversation could be reused or created.
	ErrSessionUnavailable = errors.New("session unavailable")
	// ErrSessionRejected is returned by ResumeSession when the agent does not know the id.
	ErrSessionRejected = errors.New("session rejected by agent")
)

// Agent is a remote conversational backend scoped by session ids.
type Agent interface {
	Name() string
	// NewSession asks the agent for a fresh conversation id.
	NewSession(ctx context.Context) (string, error)
	// ResumeSession returns nil when the agent still accepts the id.
	ResumeSession(ctx context.Context, id string) error
	// Send delivers one message and blocks until the full reply arrives.
	Send(ctx context.Context, sessionID, text string) (*Reply, error)
}

// Reply is a single complete answer from the agent.
type Reply struct {
	Text      string
	SessionID string
	MessageID string
	CreatedAt time.Time
}

// TransportError is a network-level failure: the request never produced a usable response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is a response from the agent that reports failure.
type RemoteError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("remote: bad status: %s", e.Status)
	if e.Status == "" {
		msg = fmt.Sprintf("remote: bad status: %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRemote reports whether err is, or wraps, a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
