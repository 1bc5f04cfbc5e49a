package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string
	ServiceName string
	LogLevel    string
	Port        string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	JWTSecret   string
	TokenTTL    time.Duration
	AdminAPIKey string

	SendGridAPIKey string
	MailFrom       string
	MailTo         string

	CartTTL     time.Duration
	SweepHour   int
	SweepMinute int

	CORSOrigins []string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	hour, minute := parseClock(getEnv("CART_SWEEP_AT", "00:00"))

	return Config{
		AppEnv:      getEnv("APP_ENV", "dev"),
		ServiceName: getEnv("SERVICE_NAME", "shopcart-api"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnv("PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      getEnv("DB_NAME", "shopcart"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		TokenTTL:    time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@example.com"),
		MailTo:         getEnv("MAIL_TO", "management@example.com"),

		CartTTL:     time.Duration(getEnvInt("CART_TTL_HOURS", 24)) * time.Hour,
		SweepHour:   hour,
		SweepMinute: minute,

		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
}

// DSN returns DATABASE_URL when set, otherwise a key/value postgres DSN.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// parseClock parses "HH:MM"; malformed values fall back to midnight.
func parseClock(v string) (int, int) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, 0
	}
	return t.Hour(), t.Minute()
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
