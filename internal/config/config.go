package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string
	LogFormat   string
	Version     string

	JWTIssuer        string
	JWTAudience      string
	JWTJWKSURL       string
	JWTHMACSecret    string
	JWTClockSkewSecs int

	// DiscloseAccountState restores distinct responses for unknown and
	// inactive accounts instead of one shared refusal.
	DiscloseAccountState bool
	AuthzPolicyPath      string

	RateLimitWindowSeconds int
	RateLimitGeneral       int
	RateLimitAuth          int
	RateLimitAdmin         int
	RateLimitProduct       int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MetricsEnabled bool
}

func FromEnv() Config {
	return Config{
		HTTPAddr:               envDefault("HTTP_ADDR", ":8080"),
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		LogFormat:              envDefault("LOG_FORMAT", "json"),
		Version:                envDefault("WAREHOUSE_VERSION", "1.0.0"),
		JWTIssuer:              os.Getenv("JWT_ISSUER"),
		JWTAudience:            os.Getenv("JWT_AUDIENCE"),
		JWTJWKSURL:             os.Getenv("JWT_JWKS_URL"),
		JWTHMACSecret:          os.Getenv("JWT_HMAC_SECRET"),
		JWTClockSkewSecs:       envIntDefault("JWT_CLOCK_SKEW_SECONDS", 60),
		DiscloseAccountState:   envBoolDefault("AUTH_DISCLOSE_ACCOUNT_STATE", false),
		AuthzPolicyPath:        os.Getenv("AUTHZ_POLICY_PATH"),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 900),
		RateLimitGeneral:       envIntDefault("RATE_LIMIT_GENERAL", 500),
		RateLimitAuth:          envIntDefault("RATE_LIMIT_AUTH", 5),
		RateLimitAdmin:         envIntDefault("RATE_LIMIT_ADMIN", 200),
		RateLimitProduct:       envIntDefault("RATE_LIMIT_PRODUCT", 300),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
		MetricsEnabled:         envBoolDefault("METRICS_ENABLED", true),
	}
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
