package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	Port            string
	DatabaseURL     string
	ExpensesTable   string
	StoreBackend    string
	UserIDIndex     string
	EnsureSchema    bool
	AWSRegion       string
	AWSAccessKeyID  string
	AWSSecretKey    string
	DynamoEndpoint  string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	TokenCacheTTL   time.Duration
	AllowedOrigins  []string
	ReadOnly        bool
}

func Load() Config {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := load(os.LookupEnv)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func load(lookup func(string) (string, bool)) (Config, error) {
	env := func(key, fallback string) string {
		if value, ok := lookup(key); ok {
			return value
		}
		return fallback
	}

	cfg := Config{
		Port:           env("PORT", "8080"),
		DatabaseURL:    env("DATABASE_URL", ""),
		ExpensesTable:  env("EXPENSES_TABLE", ""),
		StoreBackend:   strings.ToLower(env("STORE_BACKEND", BackendPostgres)),
		UserIDIndex:    env("USER_ID_INDEX", "UserIdIndex"),
		AWSRegion:      env("AWS_REGION", "us-east-1"),
		AWSAccessKeyID: env("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   env("AWS_SECRET_ACCESS_KEY", ""),
		DynamoEndpoint: env("DYNAMODB_ENDPOINT", ""),
		JWTSecret:      env("JWT_SECRET", ""),
		AllowedOrigins: splitList(env("ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.EnsureSchema, err = strconv.ParseBool(env("ENSURE_SCHEMA", "true")); err != nil {
		return Config{}, fmt.Errorf("ENSURE_SCHEMA: %w", err)
	}
	if cfg.ReadOnly, err = strconv.ParseBool(env("READ_ONLY", "false")); err != nil {
		return Config{}, fmt.Errorf("READ_ONLY: %w", err)
	}
	if cfg.AccessTokenTTL, err = time.ParseDuration(env("ACCESS_TOKEN_TTL", "1h")); err != nil {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL: %w", err)
	}
	if cfg.RefreshTokenTTL, err = time.ParseDuration(env("REFRESH_TOKEN_TTL", "720h")); err != nil {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_TTL: %w", err)
	}
	if cfg.TokenCacheTTL, err = time.ParseDuration(env("TOKEN_CACHE_TTL", "30s")); err != nil {
		return Config{}, fmt.Errorf("TOKEN_CACHE_TTL: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ExpensesTable == "" {
		return Config{}, fmt.Errorf("EXPENSES_TABLE is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.StoreBackend != BackendPostgres && cfg.StoreBackend != BackendDynamoDB {
		return Config{}, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
