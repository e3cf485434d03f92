// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/registration"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/store"
)

type RegistrationHandler struct {
	repo *repository.Repository
	svc  *registration.Service
}

func NewRegistrationHandler(repo *repository.Repository, svc *registration.Service) *RegistrationHandler {
	return &RegistrationHandler{repo: repo, svc: svc}
}

// Join handles POST /events/{id}/join. Staff may name another person in
// person_id.
func (h *RegistrationHandler) Join(w http.ResponseWriter, r *http.Request) {
	sc, ok := requirePerson(w, r, h.repo)
	if !ok {
		return
	}

	var req models.JoinEventRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	target, ok := h.target(w, r, sc, req.PersonID)
	if !ok {
		return
	}

	event, err := h.svc.Join(r.Context(), sc, r.PathValue("id"), target, registration.JoinOptions{
		MeetUpLocation:  req.MeetUpLocation,
		CaregiverComing: req.CaregiverComing,
	})
	if err != nil {
		writeRegistrationError(w, err, "join")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, event)
}

// Withdraw handles POST /events/{id}/withdraw
func (h *RegistrationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	sc, ok := requirePerson(w, r, h.repo)
	if !ok {
		return
	}

	var req models.WithdrawEventRequest
	if r.ContentLength != 0 {
		if err := middleware.ParseJSONBody(r, &req); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}

	target, ok := h.target(w, r, sc, req.PersonID)
	if !ok {
		return
	}

	event, err := h.svc.Withdraw(r.Context(), sc, r.PathValue("id"), target)
	if err != nil {
		writeRegistrationError(w, err, "withdraw")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, event)
}

// target is the acting person unless personID names someone else.
func (h *RegistrationHandler) target(w http.ResponseWriter, r *http.Request, sc models.SessionContext, personID string) (models.Person, bool) {
	if personID == "" || personID == sc.Person.ID {
		return sc.Person, true
	}
	p, err := h.repo.GetPerson(r.Context(), personID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Person not found")
		return models.Person{}, false
	}
	if err != nil {
		slog.Error("failed to load target person", "person_id", personID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Person{}, false
	}
	return p, true
}

func writeRegistrationError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, registration.ErrLocationRequired):
		middleware.ErrorResponse(w, http.StatusBadRequest, registration.ErrLocationRequired.Error())
	case errors.Is(err, registration.ErrUnknownLocation),
		errors.Is(err, registration.ErrInvalidName):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registration.ErrNotAllowed):
		middleware.ErrorResponse(w, http.StatusForbidden, err.Error())
	case errors.Is(err, registration.ErrAlreadyJoined):
		middleware.ErrorResponse(w, http.StatusConflict, "Already joined")
	case errors.Is(err, registration.ErrNotJoined):
		middleware.ErrorResponse(w, http.StatusConflict, "Not joined")
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, store.ErrStaleWrite):
		middleware.ErrorResponse(w, http.StatusConflict, "Event is busy, try again")
	default:
		slog.Error("registration failed", "op", op, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+op)
	}
}
