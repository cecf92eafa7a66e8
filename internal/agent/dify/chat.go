package dify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/resume-extractor/internal/agent"
)

const (
	chatMessagesPath = "/chat-messages"
	messagesPath     = "/messages"
	responseBlocking = "blocking"
)

type chatRequest struct {
	Inputs         map[string]any `json:"inputs"`
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id"`
	User           string         `json:"user"`
}

type chatResponse struct {
	Answer         string  `mapstructure:"answer"`
	ConversationID string  `mapstructure:"conversation_id"`
	MessageID      string  `mapstructure:"message_id"`
	CreatedAt      float64 `mapstructure:"created_at"`
}

// Send posts one blocking chat message scoped to sessionID.
// An empty sessionID makes the service open a new conversation.
func (c *Client) Send(ctx context.Context, sessionID, text string) (*agent.Reply, error) {
	resp, err := c.postJSON(ctx, chatMessagesPath, chatRequest{
		Inputs:         map[string]any{},
		Query:          text,
		ResponseMode:   responseBlocking,
		ConversationID: sessionID,
		User:           c.user,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	var raw map[string]any
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, &agent.TransportError{Op: "decode reply", Err: err}
	}

	if _, ok := raw["answer"]; !ok {
		return nil, &agent.RemoteError{
			StatusCode: resp.StatusCode,
			Status:     "reply without answer",
			Body:       remoteError(resp).Body,
		}
	}

	var decoded chatResponse
	if err := mapstructure.Decode(raw, &decoded); err != nil {
		return nil, &agent.TransportError{Op: "decode reply", Err: err}
	}

	reply := &agent.Reply{
		Text:      decoded.Answer,
		SessionID: decoded.ConversationID,
		MessageID: decoded.MessageID,
		CreatedAt: time.Now().UTC(),
	}
	if decoded.CreatedAt > 0 {
		reply.CreatedAt = time.Unix(int64(decoded.CreatedAt), 0).UTC()
	}

	c.logger.Debug("got reply",
		zap.String("conversation_id", reply.SessionID),
		zap.String("message_id", reply.MessageID),
		zap.Int("answer_length", len(reply.Text)),
	)

	return reply, nil
}

// NewSession opens a conversation by sending the opening message.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	reply, err := c.Send(ctx, "", c.openingMessage)
	if err != nil {
		return "", fmt.Errorf("open conversation: %w", err)
	}

	id := strings.TrimSpace(reply.SessionID)
	if id == "" {
		return "", &agent.RemoteError{StatusCode: http.StatusOK, Status: "reply without conversation_id"}
	}

	return id, nil
}

// ResumeSession checks that the conversation still exists for the configured user.
func (c *Client) ResumeSession(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return agent.ErrSessionRejected
	}

	q := url.Values{}
	q.Set("user", c.user)
	q.Set("conversation_id", id)
	q.Set("limit", "1")

	resp, err := c.get(ctx, messagesPath, q)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", agent.ErrSessionRejected, id)
	default:
		return remoteError(resp)
	}
}
