// Package conversation runs ordered turns against a remote agent within one session.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-extractor/internal/agent"
	"github.com/spigell/resume-extractor/internal/logger"
	"github.com/spigell/resume-extractor/internal/session"
)

const defaultMaxLogLength = 200

var now = func() time.Time { return time.Now().UTC() }

type Manager struct {
	agent     agent.Agent
	store     session.Store
	logger    *zap.Logger
	maxLogLen int
}

// NewManager wires an agent with an optional session store. A nil store disables persistence.
func NewManager(a agent.Agent, store session.Store, log *zap.Logger, maxLogLength int) *Manager {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Manager{
		agent:     a,
		store:     store,
		logger:    logger.WithCommonFields(log, a.Name(), ""),
		maxLogLen: maxLogLength,
	}
}

// CreateOrLoad reuses the persisted session when asked to and the agent still accepts it,
// otherwise it asks the agent for a new one and persists it.
func (m *Manager) CreateOrLoad(ctx context.Context, reuseExisting bool) (*Session, error) {
	var reuseErr error
	if reuseExisting {
		s, err := m.load(ctx)
		if err == nil {
			m.logger.Info("reusing conversation", zap.String(logger.FieldSession, s.ID))
			return s, nil
		}
		reuseErr = err
		if !errors.Is(err, session.ErrNotFound) {
			m.logger.Warn("persisted conversation is not usable, creating a new one", zap.Error(err))
		}
	}

	id, err := m.agent.NewSession(ctx)
	if err != nil {
		if reuseErr != nil && !errors.Is(reuseErr, session.ErrNotFound) {
			return nil, fmt.Errorf("%w: reuse: %v; create: %w", agent.ErrSessionUnavailable, reuseErr, err)
		}
		return nil, fmt.Errorf("%w: create: %w", agent.ErrSessionUnavailable, err)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: agent returned empty session id", agent.ErrSessionUnavailable)
	}

	s := &Session{ID: id, CreatedAt: now()}

	if m.store != nil {
		if err := m.store.Save(session.Record{ID: s.ID, CreatedAt: s.CreatedAt}); err != nil {
			m.logger.Warn("persisting conversation id failed", zap.String(logger.FieldSession, s.ID), zap.Error(err))
		}
	}

	m.logger.Info("created conversation", zap.String(logger.FieldSession, s.ID))

	return s, nil
}

func (m *Manager) load(ctx context.Context) (*Session, error) {
	if m.store == nil {
		return nil, session.ErrNotFound
	}

	rec, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	if err := m.agent.ResumeSession(ctx, rec.ID); err != nil {
		return nil, fmt.Errorf("resume %s: %w", rec.ID, err)
	}

	return &Session{ID: rec.ID, CreatedAt: rec.CreatedAt, Reused: true}, nil
}

// SendTurn sends one message in the session and records the turn.
// Transport and remote failures are returned unchanged in the error chain.
func (m *Manager) SendTurn(ctx context.Context, s *Session, text string) (Turn, error) {
	if s == nil {
		return Turn{}, errors.New("session is required")
	}

	index := s.NextIndex()
	log := m.logger.With(zap.String(logger.FieldSession, s.ID), zap.Int("turn", index))

	log.Debug("sending turn",
		zap.Int("request_length", utf8.RuneCountInString(text)),
		zap.String("request_preview", logger.TruncateForLog(text, m.maxLogLen)),
	)

	reply, err := m.agent.Send(ctx, s.ID, text)
	if err != nil {
		return Turn{}, fmt.Errorf("turn %d: %w", index, err)
	}

	turn := Turn{
		Index:     index,
		Request:   text,
		Reply:     reply.Text,
		MessageID: reply.MessageID,
		Timestamp: reply.CreatedAt,
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = now()
	}

	s.append(turn)

	log.Debug("received reply",
		zap.Int("response_length", utf8.RuneCountInString(reply.Text)),
		zap.String("response_preview", logger.TruncateForLog(reply.Text, m.maxLogLen)),
	)

	return turn, nil
}

// RunRounds sends texts in order and stops at the first failure,
// returning the turns completed so far together with the error.
func (m *Manager) RunRounds(ctx context.Context, s *Session, texts []string) ([]Turn, error) {
	turns := make([]Turn, 0, len(texts))
	for _, text := range texts {
		turn, err := m.SendTurn(ctx, s, text)
		if err != nil {
			return turns, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (m *Manager) AgentName() string {
	return m.agent.Name()
}
