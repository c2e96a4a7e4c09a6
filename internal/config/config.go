// Package config provides configuration for the chat coordinator.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the coordinator configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Completion provider settings
	LLMBaseURL    string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeout    time.Duration
	SystemPrompt  string
	FallbackReply string

	// How many prior messages are sent to the completion provider.
	HistoryWindow int

	// Operator console settings
	OperatorToken string

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogLevel string
}

// DefaultSystemPrompt constrains the assistant's persona and scope.
const DefaultSystemPrompt = "You are a friendly assistant embedded in a personal portfolio website. " +
	"Answer questions about the site owner's work, skills and projects. " +
	"Keep replies short and conversational. If you don't know something, say so."

// DefaultFallbackReply is appended when the completion provider fails,
// so the visitor never sees a raw error or a silently stalled chat.
const DefaultFallbackReply = "Sorry, I'm having trouble answering right now. " +
	"Please try again in a moment, or leave a message and a human will get back to you."

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:       getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:    getEnv("DATABASE_URL", "file:chatdesk.db?cache=shared&mode=rwc"),
		LLMBaseURL:     getEnv("LLM_BASE_URL", "http://localhost:4000"),
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:     time.Duration(getEnvInt("LLM_TIMEOUT_MS", 30000)) * time.Millisecond,
		SystemPrompt:   getEnv("SYSTEM_PROMPT", DefaultSystemPrompt),
		FallbackReply:  getEnv("FALLBACK_REPLY", DefaultFallbackReply),
		HistoryWindow:  getEnvInt("HISTORY_WINDOW", 8),
		OperatorToken:  getEnv("OPERATOR_TOKEN", ""),
		PingInterval:   time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:   time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:    time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
