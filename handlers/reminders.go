// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/models"
	"github.com/danielhkuo/eventroll/repository"
)

// ReminderSource lists scheduled reminders.
type ReminderSource interface {
	Pending() []models.ReminderView
}

type ReminderHandler struct {
	repo      *repository.Repository
	reminders ReminderSource
}

func NewReminderHandler(repo *repository.Repository, reminders ReminderSource) *ReminderHandler {
	return &ReminderHandler{repo: repo, reminders: reminders}
}

// ListReminders handles GET /reminders. Staff see every pending reminder,
// everyone else only their own.
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	sc, ok := requirePerson(w, r, h.repo)
	if !ok {
		return
	}

	pending := h.reminders.Pending()
	if sc.Capabilities().ManagesEvents {
		middleware.JSONResponse(w, http.StatusOK, pending)
		return
	}

	own := make([]models.ReminderView, 0)
	for _, rv := range pending {
		if rv.PersonID == sc.Person.ID {
			own = append(own, rv)
		}
	}
	middleware.JSONResponse(w, http.StatusOK, own)
}
