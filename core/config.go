package core

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"crypto/ed25519"
)

const DefaultReplyTimeout = 3000 * time.Millisecond

type RestConfig struct {
	BaseURL   string `koanf:"base_url" mapstructure:"base_url"`
	Token     string `koanf:"token" mapstructure:"token"`
	TimeoutMS int    `koanf:"timeout_ms" mapstructure:"timeout_ms"`
}

type Config struct {
	ServiceName    string     `koanf:"service_name" mapstructure:"service_name"`
	PublicKey      string     `koanf:"public_key" mapstructure:"public_key"`
	ReplyTimeoutMS int        `koanf:"reply_timeout_ms" mapstructure:"reply_timeout_ms"`
	DeferOnTimeout bool       `koanf:"defer_on_timeout" mapstructure:"defer_on_timeout"`
	Debug          bool       `koanf:"debug" mapstructure:"debug"`
	Rest           RestConfig `koanf:"rest" mapstructure:"rest"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:    "interactions",
		ReplyTimeoutMS: int(DefaultReplyTimeout / time.Millisecond),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.ReplyTimeoutMS <= 0 {
		return fmt.Errorf("core: reply_timeout_ms must be positive")
	}
	if key := strings.TrimSpace(c.PublicKey); key != "" {
		decoded, err := hex.DecodeString(key)
		if err != nil {
			return fmt.Errorf("core: public_key must be hex encoded: %w", err)
		}
		if len(decoded) != ed25519.PublicKeySize {
			return fmt.Errorf("core: public_key must decode to %d bytes, got %d", ed25519.PublicKeySize, len(decoded))
		}
	}
	return nil
}

// ReplyTimeout is the acknowledgement window the platform enforces before it
// considers the callback failed and redelivers it.
func (c Config) ReplyTimeout() time.Duration {
	if c.ReplyTimeoutMS <= 0 {
		return DefaultReplyTimeout
	}
	return time.Duration(c.ReplyTimeoutMS) * time.Millisecond
}

func (c RestConfig) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
