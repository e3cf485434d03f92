// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package repository gives typed access to events, persons and event records
stored in a store.DocumentStore.

# Collections

	events        models.Event, ID generated with google/uuid
	users         models.Person
	eventRecords  models.EventRecord, same ID as its event

Creating an event creates its record; deleting it deletes the record.

# Writes

Read-modify-write updates go through UpdateEvent and UpdateRecord, which
retry on store.ErrStaleWrite. Attendance is only ever added with
AddAttendance, a single array-union of both attendance lists.
*/
package repository
