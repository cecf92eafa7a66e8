package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the remote agent backend.
	FieldProvider = "agent_provider"
	// FieldSession is the structured log field key for the conversation id.
	FieldSession = "session_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger is replaced with a no-op one.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns the agent provider and session id fields, skipping empty values.
func CommonFields(provider, sessionID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldSession, Value: sessionID},
	)
}

// WithCommonFields attaches the common conversation fields to the provided logger.
func WithCommonFields(logger *zap.Logger, provider, sessionID string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, sessionID)...)
}
