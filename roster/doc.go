// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package roster resolves who is expected at an event and meet-up location.

# Participant Encoding

Participants are stored as comma-joined strings for compatibility with
existing event documents:

	"Alice,Gate A,yes"

DecodeParticipant turns them into models.Participant and rejects anything that
is not exactly three fields. EncodeParticipant refuses names or locations that
contain a comma.

# Resolution

	r := roster.Resolve(event, "Gate A")
	r.Participants // caregivers who chose Gate A
	r.Volunteers   // every volunteer, volunteers are not location-partitioned
	r.Malformed    // raw entries skipped with a warning

Resolve is a pure projection over an already fetched event.
*/
package roster
