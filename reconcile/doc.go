// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package reconcile turns beacon sightings into event attendance.

# Sessions

A Session covers one event and meet-up location:

	idle -> loading -> scanning -> stopped
	            |          ^
	            v          |
	   failed / unavailable  (Start again to retry)

Start loads the event, resolves the roster and snapshots the identity
directory, then acquires the ranging subscription. Stop, or the end of Run,
releases it on every path.

# Batches

HandleBatch is the single matching path, serialized per session:

 1. A batch within the debounce interval of the last processed one is ignored.
 2. Every sighting of a known person refreshes their coordinates. Failures are
    logged and the batch continues.
 3. A beacon seen for the first time in the session is checked against the
    roster list for the person's role and, if expected, marked attended.
 4. If anything changed, or an earlier write failed, both attendance lists are
    persisted with one array-union write.

Override injects sightings for everyone still missing and runs them through
HandleBatch without the debounce.

# Manager

Manager keeps at most one live session per event and location, feeds posted
batches to it and stops everything on shutdown.
*/
package reconcile
