package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-session-auth/internal/domain"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTIssuer         string
	AccessTokenTTL    time.Duration
	SigninSessionTTL  time.Duration
	SignupSessionTTL  time.Duration

	SessionCreateAttempts int
	StoreTimeout          time.Duration

	SNSRegion        string
	OpsAlertTopicARN string // empty disables partial-signup alerts

	AllowedOrigins []string // CORS allowed origins

	// TrustProxyHeaders takes the client IP from X-Forwarded-For/X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	// Basic-auth client credentials required on session endpoints. Empty
	// ClientID disables the check.
	ClientID     string
	ClientSecret string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Accounts     map[domain.AccountType]string
	Credentials  string
	AccessTokens string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	accounts := make(map[domain.AccountType]string, len(domain.AccountTypes))
	for _, t := range domain.AccountTypes {
		name := strings.ToUpper(string(t))
		accounts[t] = getEnv("DYNAMO_TABLE_ACCOUNTS_"+name, "accounts_"+string(t))
	}
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Accounts:     accounts,
			Credentials:  getEnv("DYNAMO_TABLE_CREDENTIALS", "credentials"),
			AccessTokens: getEnv("DYNAMO_TABLE_ACCESS_TOKENS", "access_tokens"),
		},
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix:        getEnv("REDIS_KEY_PREFIX", "auth"),
		JWTPrivateKeyPath:     getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:      getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTIssuer:             getEnv("JWT_ISSUER", "go-session-auth"),
		AccessTokenTTL:        time.Duration(getEnvInt("ACCESS_TOKEN_TTL_HOURS", 24*7)) * time.Hour,
		SigninSessionTTL:      time.Duration(getEnvInt("SIGNIN_SESSION_TTL_SECONDS", 120)) * time.Second,
		SignupSessionTTL:      time.Duration(getEnvInt("SIGNUP_SESSION_TTL_SECONDS", 900)) * time.Second,
		SessionCreateAttempts: getEnvInt("SESSION_CREATE_ATTEMPTS", 5),
		StoreTimeout:          time.Duration(getEnvInt("STORE_TIMEOUT_MS", 3000)) * time.Millisecond,
		SNSRegion:             getEnv("SNS_REGION", "us-east-1"),
		OpsAlertTopicARN:      getEnv("OPS_ALERT_TOPIC_ARN", ""),
		AllowedOrigins:        strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustProxyHeaders:     getEnvBool("TRUST_PROXY_HEADERS", false),
		ClientID:              getEnv("CLIENT_ID", ""),
		ClientSecret:          getEnv("CLIENT_SECRET", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
