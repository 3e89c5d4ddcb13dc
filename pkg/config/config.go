package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFirestore  = "firestore"
	StoreMemory     = "memory"
	PresenceRedis   = "redis"
	PresenceMemory  = "memory"
	DefaultPageSize = 50
)

type Config struct {
	ServerPort                 string
	Environment                string
	FirebaseProject            string
	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string

	StoreDriver    string
	PresenceDriver string
	RedisURL       string

	GeneralChatID    string
	GeneralChatTitle string
	MessagePageSize  int
	TypingIdle       time.Duration
	PresenceTTL      time.Duration
	TypingTTL        time.Duration

	AllowedOrigins []string

	// SeedUsers populates the memory user directory, as "uid:Display Name".
	SeedUsers []string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:                 getEnv("SERVER_PORT", "8080"),
		Environment:                getEnv("ENVIRONMENT", "development"),
		FirebaseProject:            getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),

		StoreDriver:    getEnv("STORE_DRIVER", StoreFirestore),
		PresenceDriver: getEnv("PRESENCE_DRIVER", PresenceRedis),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),

		GeneralChatID:    getEnv("GENERAL_CHAT_ID", "general_chat"),
		GeneralChatTitle: getEnv("GENERAL_CHAT_TITLE", "General Chat"),
		MessagePageSize:  getEnvAsInt("MESSAGE_PAGE_SIZE", DefaultPageSize),
		TypingIdle:       getEnvAsDuration("TYPING_IDLE", 3*time.Second),
		PresenceTTL:      getEnvAsDuration("PRESENCE_TTL", 60*time.Second),
		TypingTTL:        getEnvAsDuration("TYPING_TTL", 10*time.Second),

		AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		SeedUsers:      getEnvAsList("SEED_USERS", nil),
	}

	if config.MessagePageSize <= 0 {
		config.MessagePageSize = DefaultPageSize
	}

	return config, nil
}

// UsesFirebase reports whether a Firebase app is needed at all. Memory mode
// runs without GCP credentials and trusts the uid in the bearer token.
func (c *Config) UsesFirebase() bool {
	return c.StoreDriver != StoreMemory
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
