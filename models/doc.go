// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

Document shapes stored in the events, users and eventRecords collections:

  - Event: schedule, meet-up locations, roster lists and attendance lists
  - Participant: structured form of a "name,location,yes|no" roster entry
  - Person: user with role, beacon UUID, last known coordinates and stats
  - EventRecord: per-event feedback entries keyed by person ID
  - FeedbackEntry: achievements, completion (0-100), rank, score, remarks

# Roles

Roles are a closed set with a capability table:

	RoleCaregiver → registers with a meet-up location, counted in participant attendance
	RoleVolunteer → registers without a location, counted in volunteer attendance
	RoleStaff     → manages events, sees unpublished events, not counted

Look capabilities up once at the boundary:

	caps, ok := person.Role.Capabilities()

# Session Context

SessionContext carries the acting person explicitly through registration and
attendance operations instead of relying on a global identity.

# Request and Response Types

  - CreatePersonRequest, LocationReportRequest
  - CreateEventRequest, UpdateEventRequest, CreateEventResponse
  - JoinEventRequest, WithdrawEventRequest
  - SubmitFeedbackRequest
  - StartSessionRequest, SightingBatchRequest, SessionStatus, OverrideResponse
  - ReminderView
  - ErrorResponse: error, message
*/
package models
