// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Classifier strategies.
const (
	ClassifierKeyword = "keyword"
	ClassifierModel   = "model"
)

// Config holds all application configuration.
type Config struct {
	Port                 string
	FrontendURL          string
	APIKey               string
	ModelName            string
	Classifier           string
	LearningKeywordsFile string
	Session              SessionConfig
	SSE                  SSEConfig
	History              HistoryConfig
	GRPCHealthAddr       string
	ConversationLog      ConversationLogConfig
}

// SessionConfig bounds the in-memory session store.
type SessionConfig struct {
	MaxSessions     int
	TTL             time.Duration
	LessonTTL       time.Duration
	JanitorInterval time.Duration
}

// SSEConfig controls the streaming transport.
type SSEConfig struct {
	MaxRequestBodySize int64
	KeepaliveInterval  time.Duration
}

// HistoryConfig controls the vocabulary history database.
type HistoryConfig struct {
	Enabled   bool
	DBPath    string
	Retention time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	apiKey := getEnv("API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("GEMINI_API_KEY", "")
	}

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		FrontendURL:          getEnv("FRONTEND_URL", ""),
		APIKey:               apiKey,
		ModelName:            getEnv("MODEL_NAME", "gemini-2.0-flash"),
		Classifier:           strings.ToLower(getEnv("CLASSIFIER", ClassifierModel)),
		LearningKeywordsFile: getEnv("LEARNING_KEYWORDS_FILE", ""),
		Session: SessionConfig{
			MaxSessions:     getEnvInt("SESSION_MAX", 10000),
			TTL:             getEnvDuration("SESSION_TTL", 60*time.Minute),
			LessonTTL:       getEnvDuration("LESSON_TTL", 10*time.Minute),
			JanitorInterval: getEnvDuration("JANITOR_INTERVAL", 5*time.Minute),
		},
		SSE: SSEConfig{
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY", 1<<20)),
			KeepaliveInterval:  getEnvDuration("SSE_KEEPALIVE", 15*time.Second),
		},
		History: HistoryConfig{
			Enabled:   getEnvBool("HISTORY_ENABLED", true),
			DBPath:    getEnv("DB_PATH", "./data/wordchat.db"),
			Retention: getEnvDuration("HISTORY_RETENTION", 30*24*time.Hour),
		},
		GRPCHealthAddr: getEnv("GRPC_HEALTH_ADDR", ":9090"),
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.ModelName == "" {
		return fmt.Errorf("MODEL_NAME cannot be empty")
	}
	if c.Classifier != ClassifierKeyword && c.Classifier != ClassifierModel {
		return fmt.Errorf("CLASSIFIER must be %q or %q, got %q", ClassifierKeyword, ClassifierModel, c.Classifier)
	}
	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("SESSION_MAX must be > 0")
	}
	if c.Session.TTL <= 0 || c.Session.LessonTTL <= 0 || c.Session.JanitorInterval <= 0 {
		return fmt.Errorf("SESSION_TTL, LESSON_TTL and JANITOR_INTERVAL must be > 0")
	}
	if c.SSE.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY must be > 0")
	}
	if c.SSE.KeepaliveInterval <= 0 {
		return fmt.Errorf("SSE_KEEPALIVE must be > 0")
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty when HISTORY_ENABLED")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalEnabled && c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	return nil
}

// MockMode reports whether the server runs without a model API key.
func (c *Config) MockMode() bool {
	return c.APIKey == ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for this configuration.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(c.FrontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
