package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTransport 表示 DEBATE_TRANSPORT 取值不受支持。
var ErrInvalidTransport = errors.New("unsupported transport")

// Transport 表示直播事件的接入方式。
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebSocket Transport = "ws"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Debate DebateConfig
	Replay ReplayConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	debate, err := loadDebateConfig()
	if err != nil {
		return nil, err
	}

	replay, err := loadReplayConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Debate: debate, Replay: replay}, nil
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

// DebateConfig 描述上游辩论服务与计票配置。
type DebateConfig struct {
	BaseURL       string
	Transport     Transport
	VoteThreshold float64
	FetchTimeout  time.Duration
}

// ReplayConfig 描述回放引擎配置。
type ReplayConfig struct {
	Tick           time.Duration
	ScrubFromStart bool
}

func loadDebateConfig() (DebateConfig, error) {
	transport := Transport(strings.ToLower(getEnvOrDefault("DEBATE_TRANSPORT", string(TransportSSE))))
	if transport != TransportSSE && transport != TransportWebSocket {
		return DebateConfig{}, fmt.Errorf("invalid DEBATE_TRANSPORT value %q: %w", transport, ErrInvalidTransport)
	}

	threshold := 7.0
	if override, err := parseOptionalFloatEnv("DEBATE_VOTE_THRESHOLD"); err != nil {
		return DebateConfig{}, err
	} else if override != nil {
		threshold = *override
	}

	timeout := 15 * time.Second
	if seconds, err := parseOptionalIntEnv("DEBATE_FETCH_TIMEOUT"); err != nil {
		return DebateConfig{}, err
	} else if seconds != nil && *seconds > 0 {
		timeout = time.Duration(*seconds) * time.Second
	}

	return DebateConfig{
		BaseURL:       strings.TrimRight(getEnvOrDefault("DEBATE_API_BASE_URL", "http://localhost:8000/api"), "/"),
		Transport:     transport,
		VoteThreshold: threshold,
		FetchTimeout:  timeout,
	}, nil
}

func loadReplayConfig() (ReplayConfig, error) {
	tick := 1200 * time.Millisecond
	if ms, err := parseOptionalIntEnv("REPLAY_TICK_MS"); err != nil {
		return ReplayConfig{}, err
	} else if ms != nil {
		if *ms < 1 {
			return ReplayConfig{}, fmt.Errorf("invalid REPLAY_TICK_MS value %d: must be positive", *ms)
		}
		tick = time.Duration(*ms) * time.Millisecond
	}

	scrub, err := parseBoolEnv("REPLAY_SCRUB_FROM_START", false)
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{Tick: tick, ScrubFromStart: scrub}, nil
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

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
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
