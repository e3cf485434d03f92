// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides staff keys and random IDs.

# Staff Keys

Staff keys use HMAC-SHA256 to create deterministic, verifiable keys:

	staffKey := auth.GenerateStaffKey(eventID, salt)
	err := auth.ValidateStaffKey(eventID, staffKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same event ID and salt always produce the same key, so nothing is stored.
Editing, publishing, deleting an event and running its attendance sessions
all require the key in the X-Staff-Key header.

# ID Generation

Random hex IDs, used for request correlation in logs:

	id, err := auth.GenerateID(8)  // 16 hex characters
*/
package auth
