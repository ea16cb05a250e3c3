package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Chat   ChatConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Chat: chat, Log: logCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ChatConfig 描述会话与助手回复相关配置。
type ChatConfig struct {
	ResponseDelay    time.Duration
	MaxPending       int
	IdleTTL          time.Duration
	SweepInterval    time.Duration
	MaxMessageLength int
	CatalogFile      string
}

func loadChatConfig() (ChatConfig, error) {
	delay, err := parseDurationEnv("CHAT_RESPONSE_DELAY", 1500*time.Millisecond)
	if err != nil {
		return ChatConfig{}, err
	}
	if delay <= 0 {
		return ChatConfig{}, fmt.Errorf("CHAT_RESPONSE_DELAY must be positive, got %s", delay)
	}

	maxPending := 8
	if override, err := parseOptionalIntEnv("CHAT_MAX_PENDING"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return ChatConfig{}, fmt.Errorf("CHAT_MAX_PENDING must not be negative, got %d", *override)
		}
		maxPending = *override
	}

	// 0 关闭空闲回收
	idleTTL, err := parseDurationEnv("CHAT_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return ChatConfig{}, err
	}
	if idleTTL < 0 {
		return ChatConfig{}, fmt.Errorf("CHAT_IDLE_TTL must not be negative, got %s", idleTTL)
	}

	sweep, err := parseDurationEnv("CHAT_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return ChatConfig{}, err
	}
	if sweep < 0 {
		return ChatConfig{}, fmt.Errorf("CHAT_SWEEP_INTERVAL must not be negative, got %s", sweep)
	}

	maxLength := 2000
	if override, err := parseOptionalIntEnv("CHAT_MAX_MESSAGE_LENGTH"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return ChatConfig{}, fmt.Errorf("CHAT_MAX_MESSAGE_LENGTH must be at least 1, got %d", *override)
		}
		maxLength = *override
	}

	return ChatConfig{
		ResponseDelay:    delay,
		MaxPending:       maxPending,
		IdleTTL:          idleTTL,
		SweepInterval:    sweep,
		MaxMessageLength: maxLength,
		CatalogFile:      strings.TrimSpace(os.Getenv("EDUPAL_CATALOG_FILE")),
	}, nil
}

// LogConfig 描述日志输出配置。
type LogConfig struct {
	Level  string
	Pretty bool
}

func loadLogConfig() (LogConfig, error) {
	pretty, err := parseBoolEnv("LOG_PRETTY", true)
	if err != nil {
		return LogConfig{}, err
	}

	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Pretty: pretty,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseDurationEnv 支持 "1500ms"、"2s" 形式，纯数字按毫秒处理。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
