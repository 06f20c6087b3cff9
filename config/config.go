package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	JWTSecret  string
	JWTExpiry  int // hours

	GeneratorURL     string
	GeneratorTimeout time.Duration
	TimetableDays    []string
	TimetableTimes   []string
	TimetableMode    string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	LoginRateLimit  int
	LoginRateWindow time.Duration

	SeedAdminEmail    string
	SeedAdminPassword string
}

var (
	defaultDays  = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	defaultTimes = []string{"09:00", "10:00", "11:15", "12:15", "14:15", "15:15"}
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, using system environment")
	} else {
		log.Println("✅ .env file loaded")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvAsInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "timetable_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		JWTSecret:  getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiry:  getEnvAsInt("JWT_EXPIRY", 24),

		GeneratorURL:     strings.TrimRight(getEnv("GENERATOR_URL", "http://localhost:8000"), "/"),
		GeneratorTimeout: getEnvAsDuration("GENERATOR_TIMEOUT", 60*time.Second),
		TimetableDays:    getEnvAsList("TIMETABLE_DAYS", defaultDays),
		TimetableTimes:   getEnvAsList("TIMETABLE_TIMES", defaultTimes),
		TimetableMode:    getEnvAsMode("TIMETABLE_MODE", "upsert"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      getEnvAsDuration("CACHE_TTL", 24*time.Hour),

		LoginRateLimit:  getEnvAsInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getEnvAsDuration("LOGIN_RATE_WINDOW", 15*time.Minute),

		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", "admin123"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("⚠️ Invalid duration for %s: %q, using %v", key, value, defaultValue)
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsMode(key, defaultValue string) string {
	mode := strings.ToLower(strings.TrimSpace(getEnv(key, defaultValue)))
	if mode != "upsert" && mode != "replace" {
		log.Printf("⚠️ Unknown %s %q, falling back to %s", key, mode, defaultValue)
		return defaultValue
	}
	return mode
}
