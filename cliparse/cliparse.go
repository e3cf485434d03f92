package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	MongoDatabase string
	StaffKeySalt  string

	DebounceInterval time.Duration
	ReminderOffset   time.Duration
	ReminderSchedule string

	SendgridAPIKey    string
	ReminderFromEmail string
	ReminderFromName  string
}

// flag name -> config key. Config keys double as env names (upper-cased).
var flagKeys = map[string]string{
	"p":               "port",
	"d":               "database_url",
	"t":               "database_type",
	"mongo-db":        "mongo_database",
	"staff-salt":      "staff_key_salt",
	"debounce":        "debounce_interval",
	"reminder-offset": "reminder_offset",
	"reminder-cron":   "reminder_schedule",
	"sendgrid-key":    "sendgrid_api_key",
	"reminder-from":   "reminder_from_email",
}

var databaseTypes = map[string]bool{
	"postgres": true,
	"sqlite":   true,
	"mysql":    true,
	"mongo":    true,
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("eventroll", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.Int("p", 0, "Server port")
	fs.String("d", "", "Database URL or Mongo URI")
	fs.String("t", "", "Database type (postgres, sqlite, mysql or mongo)")
	fs.String("mongo-db", "", "Mongo database name")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.String("staff-salt", "", "Staff key salt (prefer env)")
	fs.String("sendgrid-key", "", "SendGrid API key (prefer env)")

	// Attendance and reminders
	fs.Duration("debounce", 0, "Minimum interval between processed beacon batches")
	fs.Duration("reminder-offset", 0, "How long before an event reminders go out")
	fs.String("reminder-cron", "", "Cron spec for re-evaluating reminders")
	fs.String("reminder-from", "", "Sender address for reminder emails")

	envFile := fs.String("env-file", "", "Load environment from this file first")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(*envFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetDefault("port", 3318)
	v.SetDefault("database_type", "sqlite")
	v.SetDefault("mongo_database", "eventroll")
	v.SetDefault("debounce_interval", 5*time.Second)
	v.SetDefault("reminder_offset", 2*time.Hour)
	v.SetDefault("reminder_schedule", "@every 10m")
	v.SetDefault("reminder_from_email", "noreply@localhost")
	v.SetDefault("reminder_from_name", "Eventroll")
	v.AutomaticEnv()

	// CLI flags take precedence over env
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})

	cfg := Config{
		Port:              v.GetInt("port"),
		DatabaseURL:       v.GetString("database_url"),
		DatabaseType:      v.GetString("database_type"),
		MongoDatabase:     v.GetString("mongo_database"),
		StaffKeySalt:      v.GetString("staff_key_salt"),
		DebounceInterval:  v.GetDuration("debounce_interval"),
		ReminderOffset:    v.GetDuration("reminder_offset"),
		ReminderSchedule:  v.GetString("reminder_schedule"),
		SendgridAPIKey:    v.GetString("sendgrid_api_key"),
		ReminderFromEmail: v.GetString("reminder_from_email"),
		ReminderFromName:  v.GetString("reminder_from_name"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, errors.New("invalid port (use -p or PORT env)")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if !databaseTypes[cfg.DatabaseType] {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}
	if cfg.DebounceInterval <= 0 {
		return Config{}, errors.New("DEBOUNCE_INTERVAL must be a positive duration")
	}
	if cfg.ReminderOffset <= 0 {
		return Config{}, errors.New("REMINDER_OFFSET must be a positive duration")
	}

	// Secrets - MUST be provided
	if cfg.StaffKeySalt == "" {
		return Config{}, errors.New("STAFF_KEY_SALT required")
	}

	return cfg, nil
}

// loadEnvFile loads path, or ENV_FILE, or ./.env when present. Variables
// already set in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		path = os.Getenv("ENV_FILE")
	}
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
