// Package dify talks to a chat application exposed through the Dify service API.
package dify

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/resume-extractor/internal/logger"
)

const (
	name                  = "dify"
	defaultOpeningMessage = "Hello"
	userAgent             = "spigell/resume-extractor"
)

type Config struct {
	BaseURL        string
	APIKey         string
	User           string
	OpeningMessage string
	// RequestsPerMinute paces outgoing requests. Zero disables pacing.
	RequestsPerMinute int
	// Timeout bounds a single HTTP exchange. Zero waits forever.
	Timeout time.Duration
}

type Client struct {
	apiKey         string
	user           string
	openingMessage string
	limiter        *rate.Limiter
	logger         *zap.Logger
	HTTPClient     *http.Client
	BaseURL        string
	UserAgent      string
}

func New(cfg Config, log *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("dify base url is required")
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("dify api key is required")
	}

	user := strings.TrimSpace(cfg.User)
	if user == "" {
		return nil, errors.New("dify user is required")
	}

	opening := strings.TrimSpace(cfg.OpeningMessage)
	if opening == "" {
		opening = defaultOpeningMessage
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Client{
		apiKey:         apiKey,
		user:           user,
		openingMessage: opening,
		limiter:        rate.NewLimiter(limit, 1),
		logger:         logger.WithCommonFields(log, name, ""),
		HTTPClient:     &http.Client{Timeout: cfg.Timeout},
		BaseURL:        base,
		UserAgent:      userAgent,
	}, nil
}

func (c *Client) Name() string {
	return name
}
