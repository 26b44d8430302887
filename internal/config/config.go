package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port           int
	NatsURL        string // "off" disables the swarm bus
	NatsToken      string
	DatabaseURL    string
	CorpusDir      string
	LogLevel       string
	APIToken       string
	MinEvidence    int
	MaxChainLength int
	TopK           int
	SessionHistory int
}

func Load() Config {
	return Config{
		Port:           envInt("CAUSEWAY_PORT", 8760),
		NatsURL:        envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:      envStr("NATS_TOKEN", ""),
		DatabaseURL:    envStr("DATABASE_URL", ""),
		CorpusDir:      envStr("CORPUS_DIR", ""),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		APIToken:       envStr("CAUSEWAY_API_TOKEN", ""),
		MinEvidence:    envInt("CAUSEWAY_MIN_EVIDENCE", 5),
		MaxChainLength: envInt("CAUSEWAY_MAX_CHAIN_LENGTH", 3),
		TopK:           envInt("CAUSEWAY_TOP_K", 3),
		SessionHistory: envInt("CAUSEWAY_SESSION_HISTORY", 10),
	}
}

// NatsEnabled reports whether the swarm bus should be connected. Setting
// NATS_URL to "off" runs the agent without event-driven rebuilds.
func (c Config) NatsEnabled() bool {
	return c.NatsURL != "" && !strings.EqualFold(c.NatsURL, "off")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
