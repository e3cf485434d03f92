// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the eventroll API.

# Handler Types

Each handler is a struct holding only the dependencies it uses:

  - PersonHandler: Persons, background location reports, feedback history
  - EventHandler: Event lifecycle (create, update, publish, delete)
  - RegistrationHandler: Joining and withdrawing
  - FeedbackHandler: Per-event feedback records
  - SessionHandler: Attendance sessions and sighting batches
  - ReminderHandler: Pending reminders

Handlers are created via constructor functions:

	eventHandler := handlers.NewEventHandler(repo, cfg)

# Identity

The X-Person-ID header names the acting person. Staff (by role) may create
events, see unpublished ones and register others. Changes to a specific
event, its records and its attendance sessions need the X-Staff-Key returned
when the event was created:

	POST /events              → CreateEvent (returns staff_key)
	POST /events/{id}/publish → PublishEvent (X-Staff-Key)

# Registration

	POST /events/{id}/join     {"meet_up_location": "Main Gate", "caregiver_coming": true}
	POST /events/{id}/withdraw

Caregivers must pick one of the event's meet-up locations; a missing one is
rejected with "Location Required". Volunteers join without a location.

# Attendance Sessions

A session scans one meet-up location of one event:

	POST   /events/{id}/sessions     → StartSession (201, status)
	POST   /sessions/{sid}/sightings → PostSightings (202, processed async)
	POST   /sessions/{sid}/override  → Override (mark remaining roster)
	GET    /sessions/{sid}           → GetSession
	DELETE /sessions/{sid}           → StopSession (final status)

# Error Handling

All errors return JSON:

	{"error": "Bad Request", "message": "Location Required"}

Status codes:
  - 400: Invalid input or validation failure
  - 401: Missing identity or invalid staff key
  - 403: Role not allowed
  - 404: Resource not found
  - 409: Conflicting state (already joined, session running)
  - 503: Scanning unavailable or directory not loadable
  - 500: Internal error
*/
package handlers
