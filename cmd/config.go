package cmd

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Agent   *AgentConfig   `mapstructure:"agent"`
	Session *SessionConfig `mapstructure:"session"`
	Batch   *BatchConfig   `mapstructure:"batch"`
	Export  *ExportConfig  `mapstructure:"export"`
}

type AgentConfig struct {
	Provider string        `mapstructure:"provider"`
	Dify     *DifyConfig   `mapstructure:"dify"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type DifyConfig struct {
	BaseURL           string        `mapstructure:"base-url"`
	APIKey            string        `mapstructure:"api-key" json:"-"`
	APIKeyFile        string        `mapstructure:"api-key-file"`
	User              string        `mapstructure:"user"`
	OpeningMessage    string        `mapstructure:"opening-message"`
	RequestsPerMinute int           `mapstructure:"requests-per-minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKeyFile        string `mapstructure:"api-key-file"`
	Model             string `mapstructure:"model"`
	SystemInstruction string `mapstructure:"system-instruction"`
	MaxRetries        int    `mapstructure:"max-retries"`
	MaxSessions       int    `mapstructure:"max-sessions"`
}

type SessionConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type BatchConfig struct {
	ReuseSession  bool     `mapstructure:"reuse-session"`
	SharedSession bool     `mapstructure:"shared-session"`
	Preamble      []string `mapstructure:"preamble"`
	MaxLogLength  int      `mapstructure:"max-log-length"`
}

type ExportConfig struct {
	Dir           string   `mapstructure:"dir"`
	Tabular       string   `mapstructure:"tabular"`
	JSON          string   `mapstructure:"json"`
	Failures      string   `mapstructure:"failures"`
	MetaColumns   bool     `mapstructure:"meta-columns"`
	Filters       []string `mapstructure:"filters"`
	SummaryFields []string `mapstructure:"summary-fields"`
}

var envBindings = map[string]string{
	"agent.dify.api-key":        "RESUME_API_KEY",
	"agent.dify.base-url":       "RESUME_BASE_URL",
	"agent.dify.user":           "RESUME_USER_ID",
	"agent.gemini.api-key-file": "GEMINI_API_KEY_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent.provider", "dify")
	v.SetDefault("agent.dify.requests-per-minute", 0)
	v.SetDefault("agent.gemini.max-retries", 3)
	v.SetDefault("agent.gemini.max-sessions", 16)
	v.SetDefault("session.backend", "file")
	v.SetDefault("session.path", "conversation_id.json")
	v.SetDefault("batch.reuse-session", true)
	v.SetDefault("batch.shared-session", true)
	v.SetDefault("batch.max-log-length", 200)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.tabular", "resume_data.xlsx")
	v.SetDefault("export.json", "resume_data.json")
	v.SetDefault("export.failures", "failed_queries.csv")
	v.SetDefault("export.meta-columns", true)
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
