package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 从环境变量读取
type Config struct {
	Port string

	DBDriver    string // postgres | sqlite
	DatabaseURL string
	SQLitePath  string

	RedisAddr string
	RedisPwd  string
	RedisDB   int

	WebOrigin   string
	JWTSecret   string
	AdminEmails []string

	SessionTTL       time.Duration
	LastSeenThrottle time.Duration
	CatalogCacheTTL  time.Duration

	AMQPURL string

	SearchThreshold float64
	LoanPeriod      time.Duration

	LogLevel slog.Level
}

// LoadEnv 读取 .env（不存在则跳过）
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
}

func Load() Config {
	return Config{
		Port:             envStr("PORT", "3001"),
		DBDriver:         strings.ToLower(envStr("DB_DRIVER", "postgres")),
		DatabaseURL:      envStr("DATABASE_URL", postgresDSN()),
		SQLitePath:       envStr("SQLITE_PATH", "catalog.db"),
		RedisAddr:        envStr("REDIS_ADDR", ""),
		RedisPwd:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:          envInt("REDIS_DB", 0),
		WebOrigin:        envStr("WEB_ORIGIN", "http://localhost:3000"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AdminEmails:      csvLower(os.Getenv("ADMIN_EMAILS")), // 例如: "admin@ex.com,ops@ex.com"
		SessionTTL:       envDur("SESSION_TTL", 24*time.Hour),
		LastSeenThrottle: envDur("LAST_SEEN_THROTTLE", 5*time.Minute),
		CatalogCacheTTL:  envDur("CATALOG_CACHE_TTL", 30*time.Second),
		AMQPURL:          os.Getenv("AMQP_URL"),
		SearchThreshold:  envFloat("SEARCH_THRESHOLD", 0.3),
		LoanPeriod:       envDur("LOAN_PERIOD", 14*24*time.Hour),
		LogLevel:         envLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

func postgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		envStr("DB_HOST", "127.0.0.1"),
		envStr("DB_USER", "postgres"),
		os.Getenv("DB_PASSWORD"),
		envStr("DB_NAME", "catalog"),
		envStr("DB_PORT", "5432"),
	)
}

func envStr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// envDur 支持 "30s"/"5m" 以及纯数字（秒）
func envDur(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func envLevel(k string, def slog.Level) slog.Level {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return def
	}
	return lvl
}

func csvLower(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}
