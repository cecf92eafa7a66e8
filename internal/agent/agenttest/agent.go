// Package agenttest provides a scripted agent.Agent for tests.
package agenttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spigell/resume-extractor/internal/agent"
)

// Result is a scripted outcome of one Send call.
type Result struct {
	Text string
	Err  error
}

// Agent replays scripted results in call order. When the script runs out
// it echoes the request text back.
type Agent struct {
	mu sync.Mutex

	// Known holds ids ResumeSession accepts.
	Known map[string]bool
	// NewErr is returned by NewSession when set.
	NewErr error
	// ResumeErr is returned by ResumeSession for unknown ids when set.
	ResumeErr error
	Script    []Result

	Created []string
	Sent    []Sent
}

// Sent records one Send call.
type Sent struct {
	SessionID string
	Text      string
}

func New(script ...Result) *Agent {
	return &Agent{Known: map[string]bool{}, Script: script}
}

func (a *Agent) Name() string { return "fake" }

func (a *Agent) NewSession(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.NewErr != nil {
		return "", a.NewErr
	}

	id := fmt.Sprintf("session-%d", len(a.Created)+1)
	a.Created = append(a.Created, id)
	a.Known[id] = true
	return id, nil
}

func (a *Agent) ResumeSession(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Known[id] {
		return nil
	}
	if a.ResumeErr != nil {
		return a.ResumeErr
	}
	return fmt.Errorf("%w: %s", agent.ErrSessionRejected, id)
}

func (a *Agent) Send(_ context.Context, sessionID, text string) (*agent.Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Sent = append(a.Sent, Sent{SessionID: sessionID, Text: text})

	res := Result{Text: text}
	if len(a.Script) > 0 {
		res = a.Script[0]
		a.Script = a.Script[1:]
	}

	if res.Err != nil {
		return nil, res.Err
	}

	return &agent.Reply{
		Text:      res.Text,
		SessionID: sessionID,
		MessageID: fmt.Sprintf("msg-%d", len(a.Sent)),
		CreatedAt: time.Date(2026, 10, 18, 12, 0, len(a.Sent), 0, time.UTC),
	}, nil
}
