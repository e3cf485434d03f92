// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/cliparse"
	"github.com/danielhkuo/eventroll/directory"
	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/proximity"
	"github.com/danielhkuo/eventroll/reconcile"
	"github.com/danielhkuo/eventroll/repository"
	"github.com/danielhkuo/eventroll/store"
)

// SessionHandler drives attendance sessions. The scanning staff device posts
// its ranging batches to a session; every call carries the event's staff key.
type SessionHandler struct {
	repo     *repository.Repository
	sessions *reconcile.Manager
	cfg      cliparse.Config
}

func NewSessionHandler(repo *repository.Repository, sessions *reconcile.Manager, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{repo: repo, sessions: sessions, cfg: cfg}
}

// StartSession handles POST /events/{id}/sessions
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if !requireStaffKey(w, r, eventID, h.cfg.StaffKeySalt) {
		return
	}

	var req models.StartSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := middleware.ValidateStruct(req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	s, err := h.sessions.Start(r.Context(), eventID, req.MeetUpLocation, req.RadioDenied)
	switch {
	case errors.Is(err, reconcile.ErrSessionExists):
		middleware.ErrorResponse(w, http.StatusConflict, "A session is already running for this meet-up location")
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
	case errors.Is(err, reconcile.ErrUnknownLocation):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown meet-up location")
	case errors.Is(err, proximity.ErrPermissionDenied):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Scanning unavailable: radio permission denied")
	case errors.Is(err, directory.ErrLoadFailed):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Identity directory unavailable, try again")
	case err != nil:
		slog.Error("failed to start attendance session", "event_id", eventID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to start session")
	default:
		middleware.JSONResponse(w, http.StatusCreated, s.Status())
	}
}

// ListSessions handles GET /sessions. Staff only.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sc, ok := requirePerson(w, r, h.repo)
	if !ok {
		return
	}
	if !sc.Capabilities().ManagesEvents {
		middleware.ErrorResponse(w, http.StatusForbidden, "Only staff can list sessions")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, h.sessions.List())
}

// session looks up {sid} and checks the staff key against its event.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*reconcile.Session, bool) {
	s, ok := h.sessions.Get(r.PathValue("sid"))
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	if !requireStaffKey(w, r, s.EventID(), h.cfg.StaffKeySalt) {
		return nil, false
	}
	return s, true
}

// GetSession handles GET /sessions/{sid}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, s.Status())
}

// PostSightings handles POST /sessions/{sid}/sightings. The batch is queued
// for the session and processed asynchronously.
func (h *SessionHandler) PostSightings(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.SightingBatchRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := middleware.ValidateStruct(req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	err := h.sessions.Publish(s.ID(), toBatch(req))
	switch {
	case errors.Is(err, reconcile.ErrSessionNotFound), errors.Is(err, proximity.ErrClosed):
		middleware.ErrorResponse(w, http.StatusGone, "Session has stopped")
	case err != nil:
		slog.Error("failed to queue sightings", "session_id", s.ID(), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to queue sightings")
	default:
		middleware.JSONResponse(w, http.StatusAccepted, models.SightingsAcceptedResponse{Queued: true})
	}
}

func toBatch(req models.SightingBatchRequest) proximity.Batch {
	b := proximity.Batch{
		Beacons:        make([]proximity.Beacon, 0, len(req.Beacons)),
		LocationDenied: req.LocationDenied,
		ReceivedAt:     time.Now(),
	}
	for _, sb := range req.Beacons {
		b.Beacons = append(b.Beacons, proximity.Beacon{
			UUID:      sb.UUID,
			RSSI:      sb.RSSI,
			Proximity: sb.Proximity,
			Distance:  sb.Distance,
			Major:     sb.Major,
			Minor:     sb.Minor,
		})
	}
	if req.Lat != nil && req.Long != nil {
		b.Position = &models.Coordinates{Lat: *req.Lat, Long: *req.Long}
	}
	return b
}

// Override handles POST /sessions/{sid}/override
func (h *SessionHandler) Override(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	injected, _, err := s.Override(r.Context())
	if errors.Is(err, reconcile.ErrNotScanning) {
		middleware.ErrorResponse(w, http.StatusConflict, "Session is not scanning")
		return
	}
	if err != nil {
		slog.Error("attendance override failed", "session_id", s.ID(), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Override failed")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.OverrideResponse{
		Injected: injected,
		Status:   s.Status(),
	})
}

// StopSession handles DELETE /sessions/{sid}
func (h *SessionHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	status, err := h.sessions.Stop(s.ID())
	if errors.Is(err, reconcile.ErrSessionNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		slog.Error("failed to stop session", "session_id", s.ID(), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to stop session")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, status)
}
