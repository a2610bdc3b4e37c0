package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/signup-activation/internal/model"
)

// Rate limiter backends.
const (
	BackendRedis = "redis"
	BackendMySQL = "mysql"
)

type RateLimitConfig struct {
	Enabled         bool
	Backend         string
	Prefix          string
	Signup          model.RateLimitPolicy
	Activation      model.RateLimitPolicy
	JanitorInterval time.Duration
	Debug           bool
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Backend: strings.ToLower(envStr("RATE_LIMIT_BACKEND", BackendRedis)),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
		Signup: model.RateLimitPolicy{
			Ceiling: envInt("SIGNUP_RATE_LIMIT", 20),
			Window:  envDur("SIGNUP_RATE_WINDOW", time.Hour),
		},
		Activation: model.RateLimitPolicy{
			Ceiling: envInt("ACTIVATION_RATE_LIMIT", 30),
			Window:  envDur("ACTIVATION_RATE_WINDOW", time.Hour),
		},
		JanitorInterval: envDur("RATE_LIMIT_JANITOR_INTERVAL", 10*time.Minute),
		Debug:           envBool("RATE_LIMIT_DEBUG", false),
	}
	if def.Backend != BackendMySQL {
		def.Backend = BackendRedis
	}
	def.Signup = def.Signup.Normalize()
	def.Activation = def.Activation.Normalize()
	if def.JanitorInterval <= 0 {
		def.JanitorInterval = 10 * time.Minute
	}
	return def
}

// Retention is how long a counter must be kept to stay meaningful: the
// longest configured window.
func (c RateLimitConfig) Retention() time.Duration {
	if c.Signup.Window > c.Activation.Window {
		return c.Signup.Window
	}
	return c.Activation.Window
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
