package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-extractor/internal/agent"
	"github.com/spigell/resume-extractor/internal/agent/dify"
	"github.com/spigell/resume-extractor/internal/agent/gemini"
	"github.com/spigell/resume-extractor/internal/conversation"
	"github.com/spigell/resume-extractor/internal/secrets"
	"github.com/spigell/resume-extractor/internal/session"
)

const geminiAPIKeyEnv = "GEMINI_API_KEY"

func newAgent(ctx context.Context, cfg *AgentConfig, logger *zap.Logger) (agent.Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("agent configuration is required")
	}

	switch provider := strings.TrimSpace(strings.ToLower(cfg.Provider)); provider {
	case "", "dify":
		if cfg.Dify == nil {
			return nil, fmt.Errorf("agent.dify section is required for the dify provider")
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name:  "dify api key",
			Value: cfg.Dify.APIKey,
			File:  cfg.Dify.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set agent.dify.api-key-file or RESUME_API_KEY)", err)
		}

		client, err := dify.New(dify.Config{
			BaseURL:           cfg.Dify.BaseURL,
			APIKey:            apiKey,
			User:              cfg.Dify.User,
			OpeningMessage:    cfg.Dify.OpeningMessage,
			RequestsPerMinute: cfg.Dify.RequestsPerMinute,
			Timeout:           cfg.Dify.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("agent.gemini section is required for the gemini provider")
		}

		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
			Env:  geminiAPIKeyEnv,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set agent.gemini.api-key-file, GEMINI_API_KEY_FILE or %s)", err, geminiAPIKeyEnv)
		}

		client, err := gemini.New(ctx, gemini.Config{
			APIKey:            apiKey,
			Model:             cfg.Gemini.Model,
			SystemInstruction: cfg.Gemini.SystemInstruction,
			MaxRetries:        cfg.Gemini.MaxRetries,
			MaxSessions:       cfg.Gemini.MaxSessions,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported agent provider: %s", cfg.Provider)
	}
}

func newManager(ctx context.Context, config *Config, logger *zap.Logger) (*conversation.Manager, error) {
	a, err := newAgent(ctx, config.Agent, logger)
	if err != nil {
		return nil, fmt.Errorf("building agent: %w", err)
	}

	store, err := session.Open(config.Session.Backend, config.Session.Path)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	return conversation.NewManager(a, store, logger, config.Batch.MaxLogLength), nil
}
