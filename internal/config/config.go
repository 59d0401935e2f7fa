package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by SWARMD_ENV (or .env by
// default), then the corresponding .secret sidecar if it exists.
// All config is flat env vars read via os.Getenv after loading; the
// engine only parses numbers and durations, nothing domain-specific.
func Load() error {
	envFile := os.Getenv("SWARMD_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Ignore errors if the files don't exist.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func RedisURL() string {
	u := os.Getenv("REDIS_URL")
	if u == "" {
		return "redis://localhost:6379/0"
	}
	return u
}

// TickResolution is the wall-clock duration of one periodic interval
// unit. Defaults to one second.
func TickResolution() time.Duration {
	ms, err := strconv.Atoi(os.Getenv("TICK_RESOLUTION_MS"))
	if err != nil || ms <= 0 {
		return time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

// ExecutionTimeout bounds a single strategy invocation.
// Defaults to 60s; 0 disables the bound.
func ExecutionTimeout() time.Duration {
	sec, err := strconv.Atoi(os.Getenv("EXECUTION_TIMEOUT_SEC"))
	if err != nil || sec < 0 {
		return 60 * time.Second
	}
	return time.Duration(sec) * time.Second
}

// ExecutionGrace is how long a timed-out strategy gets to observe
// cancellation before it is abandoned. Defaults to 5s.
func ExecutionGrace() time.Duration {
	sec, err := strconv.Atoi(os.Getenv("EXECUTION_GRACE_SEC"))
	if err != nil || sec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(sec) * time.Second
}

// LogRetention is the maximum execution records kept per agent,
// evicted FIFO. Defaults to 100.
func LogRetention() int {
	n, err := strconv.Atoi(os.Getenv("LOG_RETENTION"))
	if err != nil || n <= 0 {
		return 100
	}
	return n
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
