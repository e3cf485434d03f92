// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/feedback"
	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/store"
)

type PersonHandler struct {
	repo     *repository.Repository
	feedback *feedback.Service
}

func NewPersonHandler(repo *repository.Repository, fb *feedback.Service) *PersonHandler {
	return &PersonHandler{repo: repo, feedback: fb}
}

// CreatePerson handles POST /persons
func (h *PersonHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePersonRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := middleware.ValidateStruct(req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.repo.CreatePerson(r.Context(), models.Person{
		Name:  req.Name,
		Role:  role,
		UUID:  req.UUID,
		Email: req.Email,
	})
	if err != nil {
		slog.Error("failed to create person", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create person")
		return
	}

	slog.Info("person created", "person_id", p.ID, "role", p.Role)
	middleware.JSONResponse(w, http.StatusCreated, p)
}

// ListPersons handles GET /persons
func (h *PersonHandler) ListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.repo.ListPersons(r.Context())
	if err != nil {
		slog.Error("failed to list persons", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, persons)
}

// GetPerson handles GET /persons/{id}
func (h *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := h.repo.GetPerson(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Person not found")
		return
	}
	if err != nil {
		slog.Error("failed to get person", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}

// ReportLocation handles PUT /persons/{id}/location. Devices report their own
// position only.
func (h *PersonHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")
	if r.Header.Get(middleware.HeaderPersonID) != personID {
		middleware.ErrorResponse(w, http.StatusForbidden, "Can only report your own location")
		return
	}

	var req models.LocationReportRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := middleware.ValidateStruct(req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	coords := models.Coordinates{Lat: req.Lat, Long: req.Long, UpdatedAt: time.Now().UTC()}
	err := h.repo.UpdatePersonCoords(r.Context(), personID, coords)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Person not found")
		return
	}
	if err != nil {
		slog.Error("failed to update location", "person_id", personID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update location")
		return
	}

	slog.Debug("location reported", "person_id", personID)
	middleware.JSONResponse(w, http.StatusOK, coords)
}

// GetRecords handles GET /persons/{id}/records
func (h *PersonHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.feedback.ForPerson(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Person not found")
		return
	}
	if err != nil {
		slog.Error("failed to list person records", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if records == nil {
		records = []models.PersonRecord{}
	}
	middleware.JSONResponse(w, http.StatusOK, records)
}
