package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/publicsuffix"
)

// ストレージドライバ
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	DatabaseURL   string
	StorageDriver string

	// Token
	// JWTSecret は空でも起動できる。その場合、トークンを扱うリクエストは500を返す。
	JWTSecret     string
	SessionMaxAge time.Duration

	// Password
	PasswordIterations int

	// Server
	ServerPort string

	// Cookie
	CookieDomain      string
	TrustProxyHeaders bool

	// CORS
	// CORSAllowedOrigin が空の場合はリクエストのOriginをそのまま許可する。
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既に設定済みの環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	LoadEnvFile()

	cfg := &Config{}

	cfg.StorageDriver = strings.ToLower(getEnvString("STORAGE_DRIVER", StorageDriverPostgres))
	switch cfg.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER: %q", cfg.StorageDriver)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.StorageDriver == StorageDriverPostgres {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}

	// Optional fields with defaults
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.SessionMaxAge = time.Duration(getEnvInt("SESSION_MAX_AGE", 604800)) * time.Second
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = 7 * 24 * time.Hour
	}
	cfg.PasswordIterations = getEnvInt("PASSWORD_ITERATIONS", 120000)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8787")
	cfg.CookieDomain = strings.TrimPrefix(strings.ToLower(getEnvString("COOKIE_DOMAIN", "")), ".")
	if err := validateCookieDomain(cfg.CookieDomain); err != nil {
		return nil, err
	}
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// validateCookieDomain はCookieのDomain属性に公開サフィックスが指定されていないかを検証する。
// ブラウザは公開サフィックス（com、co.uk、github.ioなど）を対象とするCookieを拒否する。
func validateCookieDomain(domain string) error {
	if domain == "" {
		return nil
	}
	suffix, icann := publicsuffix.PublicSuffix(domain)
	if suffix == domain && (icann || strings.Contains(domain, ".")) {
		return fmt.Errorf("COOKIE_DOMAIN must not be a public suffix: %q", domain)
	}
	return nil
}

// LoadEnvFile は.envが存在すれば読み込む。存在しない場合は何もしない。
// 既に設定済みの環境変数は上書きしない。
func LoadEnvFile() {
	_ = godotenv.Load(".env")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}
