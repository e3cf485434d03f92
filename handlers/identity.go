// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/auth"
	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/store"
)

// identify resolves X-Person-ID into a session context. found is false when
// the header is absent; an unknown person is reported as an error.
func identify(r *http.Request, repo *repository.Repository) (sc models.SessionContext, found bool, err error) {
	id := r.Header.Get(middleware.HeaderPersonID)
	if id == "" {
		return models.SessionContext{}, false, nil
	}
	p, err := repo.GetPerson(r.Context(), id)
	if err != nil {
		return models.SessionContext{}, false, err
	}
	return models.SessionContext{Person: p}, true, nil
}

// requirePerson writes 401 and returns false unless X-Person-ID names a
// known person.
func requirePerson(w http.ResponseWriter, r *http.Request, repo *repository.Repository) (models.SessionContext, bool) {
	sc, found, err := identify(r, repo)
	switch {
	case err != nil && errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Unknown person")
		return sc, false
	case err != nil:
		slog.Error("failed to load acting person", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return sc, false
	case !found:
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Person-ID header required")
		return sc, false
	}
	return sc, true
}

// requireStaffKey writes 401 and returns false unless X-Staff-Key is the
// staff key for eventID.
func requireStaffKey(w http.ResponseWriter, r *http.Request, eventID, salt string) bool {
	key := r.Header.Get(middleware.HeaderStaffKey)
	if err := auth.ValidateStaffKey(eventID, key, salt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid staff key")
		return false
	}
	return true
}
