// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/eventroll/auth"
	"github.com/danielhkuo/eventroll/cliparse"
	"github.com/danielhkuo/eventroll/db"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/store/sqlstore"
)

// TestDBURL is the connection string for the test database
const TestDBURL = ":memory:"

// SetupTestStore opens a fresh in-memory SQLite document store and returns a
// repository over it. The connection is closed when the test ends.
func SetupTestStore(t *testing.T) *repository.Repository {
	t.Helper()

	conn, err := db.Open(db.DialectSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	docs := sqlstore.New(conn)
	t.Cleanup(func() { docs.Close() })
	return repository.New(docs)
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              3318,
		DatabaseURL:       TestDBURL,
		DatabaseType:      db.DialectSQLite,
		StaffKeySalt:      "test-staff-salt",
		DebounceInterval:  5 * time.Second,
		ReminderOffset:    2 * time.Hour,
		ReminderSchedule:  "@every 10m",
		ReminderFromEmail: "noreply@localhost",
		ReminderFromName:  "Eventroll",
	}
}

// CreateTestPerson stores a person with the given role and beacon UUID
func CreateTestPerson(t *testing.T, repo *repository.Repository, name string, role models.Role, beacon string) models.Person {
	t.Helper()

	p, err := repo.CreatePerson(context.Background(), models.Person{
		Name: name,
		Role: role,
		UUID: beacon,
	})
	if err != nil {
		t.Fatalf("Failed to create test person: %v", err)
	}
	return p
}

// CreateTestEvent stores an event starting in a day with the given meet-up
// locations and returns it with its staff key
func CreateTestEvent(t *testing.T, repo *repository.Repository, cfg cliparse.Config, published bool, locations ...string) (models.Event, string) {
	t.Helper()

	if len(locations) == 0 {
		locations = []string{"Main Gate"}
	}
	e, err := repo.CreateEvent(context.Background(), models.Event{
		Name:            "Test Event",
		Location:        "Community Hall",
		Information:     "A test event",
		DateTime:        time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		MeetUpLocations: locations,
		ItemsToBring:    []string{"Water"},
		Published:       published,
	})
	if err != nil {
		t.Fatalf("Failed to create test event: %v", err)
	}

	return e, auth.GenerateStaffKey(e.ID, cfg.StaffKeySalt)
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
