// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/eventroll/cliparse"
	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/testutil"
)

type testEnv struct {
	repo *repository.Repository
	cfg  cliparse.Config

	staff     models.Person
	caregiver models.Person
	volunteer models.Person
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := testutil.SetupTestStore(t)
	return &testEnv{
		repo:      repo,
		cfg:       testutil.GetTestConfig(),
		staff:     testutil.CreateTestPerson(t, repo, "Sam", models.RoleStaff, ""),
		caregiver: testutil.CreateTestPerson(t, repo, "Alice", models.RoleCaregiver, "beacon-alice"),
		volunteer: testutil.CreateTestPerson(t, repo, "Bob", models.RoleVolunteer, "beacon-bob"),
	}
}

// as returns headers identifying p.
func as(p models.Person) map[string]string {
	return map[string]string{middleware.HeaderPersonID: p.ID}
}

func withKey(key string) map[string]string {
	return map[string]string{middleware.HeaderStaffKey: key}
}

// serve runs h on req with the given path values set.
func serve(h http.HandlerFunc, req *http.Request, pathValues ...string) *httptest.ResponseRecorder {
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}
