package config

import (
	"os"
	"strconv"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type AI struct {
	APIKey              string
	BaseURL             string
	PrimaryModel        string
	FallbackModel       string
	ImageModel          string
	ModerationThreshold float64
}

type Twitter struct {
	ClientID     string
	ClientSecret string
}

type LinkedIn struct {
	ClientID     string
	ClientSecret string
}

type Instagram struct {
	ClientID     string
	ClientSecret string
}

type Tiktok struct {
	ClientKey    string
	ClientSecret string
}

type Config struct {
	PostgresURI string
	RedisURI    string
	SecretKey   string
	CookieName  string

	AI        AI
	Twitter   Twitter
	LinkedIn  LinkedIn
	Instagram Instagram
	Tiktok    Tiktok
	R2        R2

	GenerationQuota   int
	CacheTTLMinutes   int
	QueueBatchSize    int
	MaxPublishRetries int
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		SecretKey:   getEnv("SECRET_KEY", ""),
		CookieName:  getEnv("COOKIE_NAME", "postpilot_session"),
		AI: AI{
			APIKey:              getEnv("AI_API_KEY", ""),
			BaseURL:             getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
			PrimaryModel:        getEnv("AI_PRIMARY_MODEL", "gpt-4o"),
			FallbackModel:       getEnv("AI_FALLBACK_MODEL", "gpt-4o-mini"),
			ImageModel:          getEnv("AI_IMAGE_MODEL", "dall-e-3"),
			ModerationThreshold: getEnvFloat("AI_MODERATION_THRESHOLD", 0.7),
		},
		Twitter: Twitter{
			ClientID:     getEnv("TWITTER_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITTER_CLIENT_SECRET", ""),
		},
		LinkedIn: LinkedIn{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		},
		Instagram: Instagram{
			ClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		},
		Tiktok: Tiktok{
			ClientKey:    getEnv("TIKTOK_CLIENT_KEY", ""),
			ClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		GenerationQuota:   getEnvInt("GENERATION_QUOTA", 10),
		CacheTTLMinutes:   getEnvInt("CACHE_TTL_MINUTES", 60),
		QueueBatchSize:    getEnvInt("QUEUE_BATCH_SIZE", 50),
		MaxPublishRetries: getEnvInt("MAX_PUBLISH_RETRIES", 3),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
