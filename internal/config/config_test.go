package config

import (
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DEBATE_API_BASE_URL", "DEBATE_TRANSPORT", "DEBATE_VOTE_THRESHOLD",
		"DEBATE_FETCH_TIMEOUT", "REPLAY_TICK_MS", "REPLAY_SCRUB_FROM_START",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Debate.Transport != TransportSSE {
		t.Fatalf("expected sse transport, got %q", cfg.Debate.Transport)
	}
	if cfg.Debate.VoteThreshold != 7 {
		t.Fatalf("expected threshold 7, got %v", cfg.Debate.VoteThreshold)
	}
	if cfg.Debate.FetchTimeout != 15*time.Second {
		t.Fatalf("expected 15s fetch timeout, got %s", cfg.Debate.FetchTimeout)
	}
	if cfg.Replay.Tick != 1200*time.Millisecond {
		t.Fatalf("expected 1200ms tick, got %s", cfg.Replay.Tick)
	}
	if cfg.Replay.ScrubFromStart {
		t.Fatal("expected scrub-from-start off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("DEBATE_API_BASE_URL", "https://debates.example.com/api/")
	t.Setenv("DEBATE_TRANSPORT", "WS")
	t.Setenv("DEBATE_VOTE_THRESHOLD", "6.5")
	t.Setenv("DEBATE_FETCH_TIMEOUT", "3")
	t.Setenv("REPLAY_TICK_MS", "250")
	t.Setenv("REPLAY_SCRUB_FROM_START", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Debate.BaseURL != "https://debates.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Debate.BaseURL)
	}
	if cfg.Debate.Transport != TransportWebSocket {
		t.Fatalf("expected ws transport, got %q", cfg.Debate.Transport)
	}
	if cfg.Debate.VoteThreshold != 6.5 || cfg.Debate.FetchTimeout != 3*time.Second {
		t.Fatalf("unexpected debate config: %+v", cfg.Debate)
	}
	if cfg.Replay.Tick != 250*time.Millisecond || !cfg.Replay.ScrubFromStart {
		t.Fatalf("unexpected replay config: %+v", cfg.Replay)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                    "80 80",
		"DEBATE_VOTE_THRESHOLD":   "high",
		"DEBATE_FETCH_TIMEOUT":    "soon",
		"REPLAY_TICK_MS":          "0",
		"REPLAY_SCRUB_FROM_START": "maybe",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBATE_TRANSPORT", "grpc")

	if _, err := Load(); !errors.Is(err, ErrInvalidTransport) {
		t.Fatalf("expected ErrInvalidTransport, got %v", err)
	}
}
