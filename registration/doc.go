// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package registration joins people to events and withdraws them.

Caregivers are added to the participant list as "name,location,yes|no" and
must pick one of the event's meet-up locations. Volunteers are added to the
volunteer list by name. Joining twice is rejected with ErrAlreadyJoined.

Each join creates an empty feedback entry in the event record, keyed by
person ID; withdrawing deletes it.

Staff may join or withdraw anyone who can register. Everyone else can only
act for themselves and only on published events.
*/
package registration
