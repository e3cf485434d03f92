// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the eventroll API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(repo, sessions, scheduler, cfg)

# Endpoints

Health:

	GET /health

Persons (X-Person-ID identifies the caller):

	POST /persons                - Create person
	GET  /persons                - List persons
	GET  /persons/{id}           - Get person
	PUT  /persons/{id}/location  - Background location report (self only)
	GET  /persons/{id}/records   - Feedback history across events

Events (create needs a staff X-Person-ID; changes need X-Staff-Key):

	POST   /events                - Create event (returns staff_key)
	GET    /events                - Published events, all for staff
	GET    /events/{id}           - Get event
	PATCH  /events/{id}           - Update details
	DELETE /events/{id}           - Delete event and its record
	POST   /events/{id}/publish   - Make visible to members
	POST   /events/{id}/unpublish - Hide from members

Registration:

	POST /events/{id}/join     - Join (caregivers pick a meet-up location)
	POST /events/{id}/withdraw - Withdraw

Feedback (X-Staff-Key):

	GET /events/{id}/records            - Event record
	PUT /events/{id}/records/{personId} - Submit feedback

Attendance sessions (X-Staff-Key of the session's event):

	POST   /events/{id}/sessions      - Start scanning at a meet-up location
	GET    /sessions                  - List live sessions (staff X-Person-ID)
	GET    /sessions/{sid}            - Session status
	DELETE /sessions/{sid}            - Stop session
	POST   /sessions/{sid}/sightings  - Queue a ranging batch (202)
	POST   /sessions/{sid}/override   - Mark every remaining roster member

Reminders:

	GET /reminders - Pending reminders (own, or all for staff)

# Handler Initialization

The router builds the registration and feedback services over the
repository and hands each handler only what it uses:

	personHandler := handlers.NewPersonHandler(repo, feedbackSvc)
	eventHandler := handlers.NewEventHandler(repo, cfg)
	sessionHandler := handlers.NewSessionHandler(repo, sessions, cfg)
*/
package router
