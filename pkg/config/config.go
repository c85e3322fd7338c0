package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Cache drivers understood by CacheConfig.Driver.
const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
	CacheDriverNone   = "none"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	Cache       CacheConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	ScheduleAPI ScheduleAPIConfig
	Stats       StatsConfig
	Persistence PersistenceConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig selects the backing store for computed statistics.
type CacheConfig struct {
	Driver   string
	MemoryMB int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ScheduleAPIConfig points at the upstream scheduling platform.
type ScheduleAPIConfig struct {
	BaseURL      string
	ListTimeout  time.Duration
	DiaryTimeout time.Duration
}

// StatsConfig tunes the statistics pipeline.
type StatsConfig struct {
	Concurrency  int
	UnitRate     float64
	MaxRangeDays int
	CacheTTL     time.Duration
	LocalTZ      string
}

// PersistenceConfig governs the background writer for computed results.
type PersistenceConfig struct {
	Async      bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Driver:   strings.ToLower(strings.TrimSpace(v.GetString("CACHE_DRIVER"))),
		MemoryMB: v.GetInt("CACHE_MEMORY_MB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.ScheduleAPI = ScheduleAPIConfig{
		BaseURL:      strings.TrimRight(v.GetString("SCHEDULE_API_BASE_URL"), "/"),
		ListTimeout:  parseDuration(v.GetString("SCHEDULE_API_LIST_TIMEOUT"), 15*time.Second),
		DiaryTimeout: parseDuration(v.GetString("SCHEDULE_API_DIARY_TIMEOUT"), 30*time.Second),
	}

	cfg.Stats = StatsConfig{
		Concurrency:  v.GetInt("STATS_CONCURRENCY"),
		UnitRate:     v.GetFloat64("STATS_UNIT_RATE"),
		MaxRangeDays: v.GetInt("STATS_MAX_RANGE_DAYS"),
		CacheTTL:     parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
		LocalTZ:      v.GetString("STATS_LOCAL_TZ"),
	}

	cfg.Persistence = PersistenceConfig{
		Async:      v.GetBool("PERSIST_ASYNC"),
		Workers:    v.GetInt("PERSIST_WORKERS"),
		Retries:    v.GetInt("PERSIST_RETRIES"),
		RetryDelay: parseDuration(v.GetString("PERSIST_RETRY_DELAY"), 2*time.Second),
	}

	return cfg
}

// Location resolves the configured local time zone used for custom date ranges.
func (c StatsConfig) Location() *time.Location {
	if c.LocalTZ == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.LocalTZ)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "teacher_stats")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_DRIVER", CacheDriverRedis)
	v.SetDefault("CACHE_MEMORY_MB", 32)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "teacher-stats-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULE_API_BASE_URL", "https://api-icc.ican.vn/teacher/api/v1/api")
	v.SetDefault("SCHEDULE_API_LIST_TIMEOUT", "15s")
	v.SetDefault("SCHEDULE_API_DIARY_TIMEOUT", "30s")

	v.SetDefault("STATS_CONCURRENCY", 5)
	v.SetDefault("STATS_UNIT_RATE", 50000)
	v.SetDefault("STATS_MAX_RANGE_DAYS", 365)
	v.SetDefault("STATS_CACHE_TTL", "5m")
	v.SetDefault("STATS_LOCAL_TZ", "Asia/Ho_Chi_Minh")

	v.SetDefault("PERSIST_ASYNC", true)
	v.SetDefault("PERSIST_WORKERS", 2)
	v.SetDefault("PERSIST_RETRIES", 3)
	v.SetDefault("PERSIST_RETRY_DELAY", "2s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
