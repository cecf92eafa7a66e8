// Package gemini serves conversations from Google Gemini chat sessions.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-extractor/internal/agent"
	"github.com/spigell/resume-extractor/internal/logger"
	"github.com/spigell/resume-extractor/internal/utils"
)

const (
	name               = "gemini"
	defaultModel       = "gemini-2.5-flash"
	defaultMaxSessions = 16
	retryDelay         = time.Second
)

var wait = utils.WaitFor

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (g genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	chat, err := g.chats.Create(ctx, model, config, history)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

type Config struct {
	APIKey            string
	Model             string
	SystemInstruction string
	MaxRetries        int
	// MaxSessions bounds how many live chats are kept in memory.
	MaxSessions int
}

// Agent keeps Gemini chats in memory. Chat history lives only in this process,
// so ids persisted by a previous run are never accepted again.
type Agent struct {
	chats             chatCreator
	model             string
	systemInstruction string
	maxRetries        int
	logger            *zap.Logger
	sessions          *lru.Cache[string, chatSession]
}

func New(ctx context.Context, cfg Config, log *zap.Logger) (*Agent, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newAgent(genaiChats{chats: client.Chats}, cfg, log)
}

func newAgent(chats chatCreator, cfg Config, log *zap.Logger) (*Agent, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	size := cfg.MaxSessions
	if size <= 0 {
		size = defaultMaxSessions
	}

	sessions, err := lru.New[string, chatSession](size)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	return &Agent{
		chats:             chats,
		model:             model,
		systemInstruction: strings.TrimSpace(cfg.SystemInstruction),
		maxRetries:        cfg.MaxRetries,
		logger:            logger.WithCommonFields(log, name, "").With(zap.String("model", model)),
		sessions:          sessions,
	}, nil
}

func (a *Agent) Name() string {
	return name
}

func (a *Agent) NewSession(ctx context.Context) (string, error) {
	var config *genai.GenerateContentConfig
	if a.systemInstruction != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: a.systemInstruction}}},
		}
	}

	chat, err := a.chats.Create(ctx, a.model, config, nil)
	if err != nil {
		return "", classify("create chat", err)
	}

	id := uuid.NewString()
	a.sessions.Add(id, chat)

	a.logger.Debug("gemini chat created", zap.String(logger.FieldSession, id))

	return id, nil
}

func (a *Agent) ResumeSession(_ context.Context, id string) error {
	if _, ok := a.sessions.Get(strings.TrimSpace(id)); !ok {
		return fmt.Errorf("%w: %s", agent.ErrSessionRejected, id)
	}
	return nil
}

func (a *Agent) Send(ctx context.Context, sessionID, text string) (*agent.Reply, error) {
	chat, ok := a.sessions.Get(sessionID)
	if !ok {
		return nil, &agent.RemoteError{StatusCode: http.StatusNotFound, Status: "unknown gemini chat", Body: sessionID}
	}

	attempts := max(a.maxRetries, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := chat.SendMessage(ctx, genai.Part{Text: text})
		if err == nil {
			output := responseText(resp)
			if output == "" {
				return nil, &agent.RemoteError{StatusCode: http.StatusOK, Status: "gemini api returned empty response"}
			}
			return &agent.Reply{Text: output, SessionID: sessionID, CreatedAt: time.Now().UTC()}, nil
		}

		lastErr = err
		if !temporary(err) || attempt == attempts {
			break
		}

		a.logger.Warn("gemini request failed, retrying",
			zap.String(logger.FieldSession, sessionID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if err := wait(ctx, time.Duration(attempt)*retryDelay); err != nil {
			return nil, classify("send message", err)
		}
	}

	return nil, classify("send message", lastErr)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func temporary(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code >= http.StatusInternalServerError || apiErr.Code == http.StatusTooManyRequests
}

func classify(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &agent.RemoteError{StatusCode: apiErr.Code, Status: apiErr.Status, Body: apiErr.Message}
	}
	return &agent.TransportError{Op: op, Err: err}
}
