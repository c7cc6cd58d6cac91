package config

import (
	"os"
	"strconv"
	"strings"
	"time"
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
	S3BucketName   string
	SNSRegion      string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	ClassifierURL     string
	ClassifierTimeout time.Duration

	FCMCredentialsFile string
	PushTimeout        time.Duration

	// Intake policy knobs. The production values were never pinned down, so
	// they are configuration rather than constants.
	DuplicateRadiusMeters float64
	DuplicateWindowDays   int
	EscalationThreshold   int
	DispatchWorkers       int

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Issues        string
	Votes         string
	DeviceTokens  string
	Notifications string
	Users         string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Issues:        getEnv("DYNAMO_TABLE_ISSUES", "issues"),
			Votes:         getEnv("DYNAMO_TABLE_VOTES", "issue_votes"),
			DeviceTokens:  getEnv("DYNAMO_TABLE_DEVICE_TOKENS", "device_tokens"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "civic-issue-images"),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		ClassifierURL:     getEnv("CLASSIFIER_URL", "http://localhost:8000"),
		ClassifierTimeout: time.Duration(getEnvInt("CLASSIFIER_TIMEOUT_SECONDS", 30)) * time.Second,

		FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
		PushTimeout:        time.Duration(getEnvInt("PUSH_TIMEOUT_SECONDS", 10)) * time.Second,

		DuplicateRadiusMeters: getEnvFloat("DUPLICATE_RADIUS_METERS", 50),
		DuplicateWindowDays:   getEnvInt("DUPLICATE_WINDOW_DAYS", 30),
		EscalationThreshold:   getEnvInt("ESCALATION_THRESHOLD", 50),
		DispatchWorkers:       getEnvInt("DISPATCH_WORKERS", 8),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
