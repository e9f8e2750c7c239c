package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Firebase  FirebaseConfig
	Inventory InventoryConfig
	Monitor   MonitorConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds the optional admin credential. The API runs open when
// Enabled is false, which is the default.
type AuthConfig struct {
	Enabled           bool
	Secret            string
	Issuer            string
	Expiry            time.Duration
	AdminUsername     string
	AdminPasswordHash string // bcrypt hash
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

// InventoryConfig points at the external inventory API.
type InventoryConfig struct {
	BaseURL           string
	AccessToken       string
	SecretToken       string
	Timeout           time.Duration
	RequestsPerMinute int
}

// MonitorConfig drives the stock monitor and its schedules.
type MonitorConfig struct {
	// Policy selects the eligibility strategy: "daily_cap" or "cooldown".
	Policy        string
	MaxPerDay     int
	CooldownHours int
	Workers       int

	Interval       time.Duration
	ScheduledTimes []string // "HH:MM" wall-clock slots for guaranteed runs

	BusinessHoursEnabled bool
	BusinessStartHour    int
	BusinessEndHour      int
	Timezone             string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Env:          getEnv("ENV", "development"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", "stockwatch:stockwatch@tcp(localhost:3306)/stockwatch?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Auth: AuthConfig{
			Enabled:           getEnvBool("AUTH_ENABLED", false),
			Secret:            getEnv("JWT_SECRET", ""),
			Issuer:            getEnv("JWT_ISSUER", "stockwatch"),
			Expiry:            getEnvDuration("JWT_EXPIRY", 24*time.Hour),
			AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		},
		Inventory: InventoryConfig{
			BaseURL:           getEnv("INVENTORY_API_URL", ""),
			AccessToken:       getEnv("INVENTORY_API_ACCESS_TOKEN", ""),
			SecretToken:       getEnv("INVENTORY_API_SECRET_TOKEN", ""),
			Timeout:           getEnvDuration("INVENTORY_API_TIMEOUT", 8*time.Second),
			RequestsPerMinute: getEnvInt("INVENTORY_API_RPM", 120),
		},
		Monitor: MonitorConfig{
			Policy:               getEnv("MONITOR_POLICY", "daily_cap"),
			MaxPerDay:            getEnvInt("MONITOR_MAX_PER_DAY", 2),
			CooldownHours:        getEnvInt("MONITOR_COOLDOWN_HOURS", 24),
			Workers:              getEnvInt("MONITOR_WORKERS", 5),
			Interval:             getEnvDuration("MONITOR_INTERVAL", 30*time.Minute),
			ScheduledTimes:       getEnvList("MONITOR_SCHEDULED_TIMES", []string{"08:00", "16:00"}),
			BusinessHoursEnabled: getEnvBool("BUSINESS_HOURS_ENABLED", true),
			BusinessStartHour:    getEnvInt("BUSINESS_HOURS_START", 8),
			BusinessEndHour:      getEnvInt("BUSINESS_HOURS_END", 18),
			Timezone:             getEnv("MONITOR_TIMEZONE", "Local"),
		},
	}
}

// Location resolves the monitor timezone, falling back to the system zone.
func (c *MonitorConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
