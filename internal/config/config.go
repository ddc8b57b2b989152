// Package config loads process configuration from the environment,
// following the teacher repo's getEnv/parseDuration pattern, expanded
// with the pipeline's named thresholds and a pluggable checkpoint-store
// backend selection.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr       string
	LogLevel       string
	AdminPassword  string
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	OpenRouter     OpenRouterConfig
	Telegram       TelegramConfig
	Pipeline       PipelineConfig
	Redis          RedisConfig
}

type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

type TelegramConfig struct {
	BotToken      string
	APIBaseURL    string
	WebhookSecret string
}

// PipelineConfig carries every named threshold from the pipeline's
// external-interfaces contract: fuzzy matching, memory caps, timing
// budgets, and the planner's model parameters.
type PipelineConfig struct {
	FuzzyMatchMin           float64
	DisambiguationGap       float64
	CalendarDeleteThreshold float64
	ConfidenceThreshold     float64

	MaxContextMsgs int
	MaxTotalTokens int
	MaxSystemMsgs  int
	CharsPerToken  float64

	ConversationTTL   time.Duration
	DisambiguationTTL time.Duration

	PlannerModel       string
	PlannerTemperature float64
	PlannerMaxTokens   int

	TurnDeadline         time.Duration
	ExternalCallDeadline time.Duration
	InterruptTimeout     time.Duration
	CheckpointTTL        time.Duration

	// TaskCompleteMeansDelete preserves the legacy behavior where marking
	// a reminder "complete" is implemented as deleting it outright.
	TaskCompleteMeansDelete bool

	// CheckpointBackend selects the orchestrator's checkpoint store:
	// "memory" (default) or "redis".
	CheckpointBackend string
}

// RedisConfig configures the optional Redis-backed checkpoint store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func Load() (Config, error) {
	var cfg Config

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", "")

	sessionTTL, err := parseDuration(getEnv("SESSION_TTL", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = sessionTTL

	reqTimeout, err := parseDuration(getEnv("HTTP_CLIENT_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_CLIENT_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = reqTimeout

	cfg.OpenRouter = OpenRouterConfig{
		APIKey:       getEnv("OPENROUTER_API_KEY", ""),
		BaseURL:      getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		DefaultModel: getEnv("OPENROUTER_DEFAULT_MODEL", ""),
	}

	cfg.Telegram = TelegramConfig{
		BotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		APIBaseURL:    getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		WebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),
	}

	pipeline, err := loadPipeline()
	if err != nil {
		return Config{}, err
	}
	cfg.Pipeline = pipeline

	dbIndex, err := parseIntDefault(getEnv("REDIS_DB", "0"), 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse REDIS_DB: %w", err)
	}
	cfg.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       dbIndex,
	}

	return cfg, nil
}

func loadPipeline() (PipelineConfig, error) {
	var p PipelineConfig
	var err error

	if p.FuzzyMatchMin, err = parseFloatDefault(getEnv("FUZZY_MATCH_MIN", "0.3")); err != nil {
		return p, fmt.Errorf("parse FUZZY_MATCH_MIN: %w", err)
	}
	if p.DisambiguationGap, err = parseFloatDefault(getEnv("DISAMBIGUATION_GAP", "0.2")); err != nil {
		return p, fmt.Errorf("parse DISAMBIGUATION_GAP: %w", err)
	}
	if p.CalendarDeleteThreshold, err = parseFloatDefault(getEnv("CALENDAR_DELETE_THRESHOLD", "0.4")); err != nil {
		return p, fmt.Errorf("parse CALENDAR_DELETE_THRESHOLD: %w", err)
	}
	if p.ConfidenceThreshold, err = parseFloatDefault(getEnv("CONFIDENCE_THRESHOLD", "0.7")); err != nil {
		return p, fmt.Errorf("parse CONFIDENCE_THRESHOLD: %w", err)
	}

	if p.MaxContextMsgs, err = parseIntDefault(getEnv("MAX_CONTEXT_MSGS", "10"), 10); err != nil {
		return p, fmt.Errorf("parse MAX_CONTEXT_MSGS: %w", err)
	}
	if p.MaxTotalTokens, err = parseIntDefault(getEnv("MAX_TOTAL_TOKENS", "500"), 500); err != nil {
		return p, fmt.Errorf("parse MAX_TOTAL_TOKENS: %w", err)
	}
	if p.MaxSystemMsgs, err = parseIntDefault(getEnv("MAX_SYSTEM_MSGS", "3"), 3); err != nil {
		return p, fmt.Errorf("parse MAX_SYSTEM_MSGS: %w", err)
	}
	if p.CharsPerToken, err = parseFloatDefault(getEnv("CHARS_PER_TOKEN", "3.5")); err != nil {
		return p, fmt.Errorf("parse CHARS_PER_TOKEN: %w", err)
	}

	if p.ConversationTTL, err = parseDuration(getEnv("CONVERSATION_TTL", "12h")); err != nil {
		return p, fmt.Errorf("parse CONVERSATION_TTL: %w", err)
	}
	if p.DisambiguationTTL, err = parseDuration(getEnv("DISAMBIGUATION_TTL", "5m")); err != nil {
		return p, fmt.Errorf("parse DISAMBIGUATION_TTL: %w", err)
	}

	p.PlannerModel = getEnv("PLANNER_MODEL", "")
	if p.PlannerTemperature, err = parseFloatDefault(getEnv("PLANNER_TEMPERATURE", "0.3")); err != nil {
		return p, fmt.Errorf("parse PLANNER_TEMPERATURE: %w", err)
	}
	if p.PlannerMaxTokens, err = parseIntDefault(getEnv("PLANNER_MAX_TOKENS", "2500"), 2500); err != nil {
		return p, fmt.Errorf("parse PLANNER_MAX_TOKENS: %w", err)
	}

	if p.TurnDeadline, err = parseDuration(getEnv("TURN_DEADLINE", "60s")); err != nil {
		return p, fmt.Errorf("parse TURN_DEADLINE: %w", err)
	}
	if p.ExternalCallDeadline, err = parseDuration(getEnv("EXTERNAL_CALL_DEADLINE", "30s")); err != nil {
		return p, fmt.Errorf("parse EXTERNAL_CALL_DEADLINE: %w", err)
	}
	if p.InterruptTimeout, err = parseDuration(getEnv("INTERRUPT_TIMEOUT", "15m")); err != nil {
		return p, fmt.Errorf("parse INTERRUPT_TIMEOUT: %w", err)
	}
	if p.CheckpointTTL, err = parseDuration(getEnv("CHECKPOINT_TTL", "30m")); err != nil {
		return p, fmt.Errorf("parse CHECKPOINT_TTL: %w", err)
	}

	if p.TaskCompleteMeansDelete, err = parseBoolDefault(getEnv("TASK_COMPLETE_MEANS_DELETE", ""), true); err != nil {
		return p, fmt.Errorf("parse TASK_COMPLETE_MEANS_DELETE: %w", err)
	}

	p.CheckpointBackend = getEnv("CHECKPOINT_BACKEND", "memory")

	return p, nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("duration is empty")
	}
	return time.ParseDuration(value)
}

func parseFloatDefault(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func parseIntDefault(value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	return strconv.Atoi(value)
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

// parseBoolDefault parses an optional boolean with a default value.
func parseBoolDefault(value string, def bool) (bool, error) {
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}
