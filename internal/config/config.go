package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Jobs     JobsConfig
	History  HistoryConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type AuthConfig struct {
	// JWTSecret이 비어 있으면 변경 API 보호 미들웨어를 끔 (로컬 개발용)
	JWTSecret string
}

type JobsConfig struct {
	// cron 표현식 (robfig/cron 표준 5필드)
	SnapshotCron  string
	RetentionCron string

	// RetentionDays: 관측/닫힌 인터벌 보존 기간 (일)
	RetentionDays int
}

type HistoryConfig struct {
	// 날짜 파라미터가 없거나 잘못된 경우의 기본 조회 구간 (일)
	DefaultWindowDays int
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getenv("PORT", "8080"),
			AllowedOrigins: os.Getenv("CORS_ALLOWED_ORIGINS"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Jobs: JobsConfig{
			SnapshotCron:  getenv("SLA_SNAPSHOT_CRON", "0 2 * * *"),
			RetentionCron: getenv("RETENTION_CRON", "30 3 * * *"),
			RetentionDays: getenvInt("RETENTION_DAYS", 90),
		},
		History: HistoryConfig{
			DefaultWindowDays: getenvInt("HISTORY_DEFAULT_WINDOW_DAYS", 3),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
