// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: SQL DSN or Mongo URI (required)
  - DatabaseType: postgres, sqlite, mysql or mongo (default: sqlite)
  - MongoDatabase: Mongo database name (default: eventroll)
  - StaffKeySalt: Secret for staff key HMAC (required)
  - DebounceInterval: Minimum gap between processed beacon batches (default: 5s)
  - ReminderOffset: Lead time for event reminders (default: 2h)
  - ReminderSchedule: Cron spec for reminder re-evaluation (default: @every 10m)
  - SendgridAPIKey: Enables email reminders when set
  - ReminderFromEmail, ReminderFromName: Reminder sender

# CLI Flags

	-p               Server port
	-d               Database URL
	-t               Database type
	-mongo-db        Mongo database name
	-staff-salt      Staff key salt
	-debounce        Debounce interval
	-reminder-offset Reminder lead time
	-reminder-cron   Reminder schedule
	-sendgrid-key    SendGrid API key
	-reminder-from   Reminder sender address
	-env-file        Env file to load first

# Environment Variables

Flags fall back to environment variables read through viper:

	PORT, DATABASE_URL, DATABASE_TYPE, MONGO_DATABASE, STAFF_KEY_SALT,
	DEBOUNCE_INTERVAL, REMINDER_OFFSET, REMINDER_SCHEDULE,
	SENDGRID_API_KEY, REMINDER_FROM_EMAIL, REMINDER_FROM_NAME

An env file named by -env-file or ENV_FILE (or ./.env when present) is
loaded with godotenv first. It never overrides variables already set.

CLI flags take precedence over environment variables.

# Example

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	// ...
	mux := router.NewRouter(app, cfg)
*/
package cliparse
