// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the eventroll API server.

Eventroll coordinates community events for caregivers, volunteers and staff.
Members join events (caregivers pick a meet-up location), staff run
attendance sessions that turn proximity beacon sightings into attendance,
and registered people get reminders before an event starts.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=file:eventroll.db STAFF_KEY_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -staff-salt ...

# Configuration

Required settings:

  - DATABASE_URL (-d): SQL DSN or Mongo URI
  - STAFF_KEY_SALT (-staff-salt): Secret for staff key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): postgres, sqlite, mysql or mongo (default: sqlite)
  - DEBOUNCE_INTERVAL, REMINDER_OFFSET, REMINDER_SCHEDULE, SENDGRID_API_KEY

See package cliparse for the full list.

# Architecture

  - handlers, router: HTTP surface using Go 1.22+ routing
  - reconcile: attendance sessions and the beacon matching loop
  - proximity: the ranging feed and device location boundary
  - roster, directory: expected attendees and beacon identities
  - registration, feedback: joining events and per-person records
  - notify: reminder scheduling (cron) and delivery (log or SendGrid)
  - repository, store: typed documents over SQL or MongoDB
  - middleware: CORS, logging, JSON helpers, validation
  - auth, cliparse, db, models: keys, configuration, schema, types

See package documentation for each component.
*/
package main
