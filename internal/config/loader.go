package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends accepted by ROOMBOOKING_STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort       int
	StoreBackend   string
	SQLiteDSN      string
	LatencyMin     time.Duration
	LatencyMax     time.Duration
	ConflictPolicy string
	SeedFile       string
	KafkaBrokers   []string
	KafkaTopic     string
	NotifyTimeout  time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
}

// KafkaEnabled reports whether booking notices are published to Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to defaults. Every malformed value is collected and
// reported in a single localized error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		StoreBackend:   BackendMemory,
		SQLiteDSN:      ":memory:",
		ConflictPolicy: "reject",
		NotifyTimeout:  5 * time.Second,
		RateLimitRPS:   5,
		RateLimitBurst: 10,
		RequestTimeout: 10 * time.Second,
		LogLevel:       "info",
		LogFormat:      "json",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("ROOMBOOKING_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "ROOMBOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if backend := strings.ToLower(env("ROOMBOOKING_STORE_BACKEND")); backend != "" {
		if backend != BackendMemory && backend != BackendSQLite {
			invalid = append(invalid, "ROOMBOOKING_STORE_BACKEND")
		} else {
			cfg.StoreBackend = backend
		}
	}

	if dsn := env("ROOMBOOKING_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if latency := env("ROOMBOOKING_STORE_LATENCY"); latency != "" {
		lo, hi, err := parseLatency(latency)
		if err != nil {
			invalid = append(invalid, "ROOMBOOKING_STORE_LATENCY")
		} else {
			cfg.LatencyMin, cfg.LatencyMax = lo, hi
		}
	}

	if policy := strings.ToLower(env("ROOMBOOKING_CONFLICT_POLICY")); policy != "" {
		if policy != "reject" && policy != "queue" {
			invalid = append(invalid, "ROOMBOOKING_CONFLICT_POLICY")
		} else {
			cfg.ConflictPolicy = policy
		}
	}

	cfg.SeedFile = env("ROOMBOOKING_SEED_FILE")

	if brokers := env("ROOMBOOKING_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
		if cfg.KafkaTopic = env("ROOMBOOKING_KAFKA_TOPIC"); cfg.KafkaTopic == "" {
			missing = append(missing, "ROOMBOOKING_KAFKA_TOPIC")
		}
	}

	parseDuration("ROOMBOOKING_NOTIFY_TIMEOUT", &cfg.NotifyTimeout, &invalid)
	parseDuration("ROOMBOOKING_REQUEST_TIMEOUT", &cfg.RequestTimeout, &invalid)

	if rpsValue := env("ROOMBOOKING_RATE_LIMIT_RPS"); rpsValue != "" {
		rps, err := strconv.ParseFloat(rpsValue, 64)
		if err != nil || rps < 0 {
			invalid = append(invalid, "ROOMBOOKING_RATE_LIMIT_RPS")
		} else {
			cfg.RateLimitRPS = rps
		}
	}

	if burstValue := env("ROOMBOOKING_RATE_LIMIT_BURST"); burstValue != "" {
		burst, err := strconv.Atoi(burstValue)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "ROOMBOOKING_RATE_LIMIT_BURST")
		} else {
			cfg.RateLimitBurst = burst
		}
	}

	if level := strings.ToLower(env("ROOMBOOKING_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "ROOMBOOKING_LOG_LEVEL")
		}
	}

	if format := strings.ToLower(env("ROOMBOOKING_LOG_FORMAT")); format != "" {
		if format != "json" && format != "text" {
			invalid = append(invalid, "ROOMBOOKING_LOG_FORMAT")
		} else {
			cfg.LogFormat = format
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("thiếu biến môi trường bắt buộc: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("giá trị biến môi trường không hợp lệ: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// LoadWithEnvFiles reads the given .env files into the process environment
// and then calls Load. Variables already set in the environment win. Missing
// files are skipped.
func LoadWithEnvFiles(paths ...string) (Config, error) {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("không đọc được tệp %s: %w", path, err)
		}
	}
	return Load()
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseDuration(key string, dst *time.Duration, invalid *[]string) {
	value := env(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return
	}
	*dst = d
}

// parseLatency accepts "150ms-300ms" or a single duration such as "200ms".
func parseLatency(value string) (time.Duration, time.Duration, error) {
	lo, hi, ranged := strings.Cut(value, "-")
	min, err := time.ParseDuration(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, err
	}
	max := min
	if ranged {
		if max, err = time.ParseDuration(strings.TrimSpace(hi)); err != nil {
			return 0, 0, err
		}
	}
	if min < 0 || max < min {
		return 0, 0, fmt.Errorf("invalid latency range %q", value)
	}
	return min, max, nil
}
