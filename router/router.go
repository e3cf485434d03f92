// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/eventroll/cliparse"
	"github.com/danielhkuo/eventroll/feedback"
	"github.com/danielhkuo/eventroll/handlers"
	"github.com/danielhkuo/eventroll/middleware"
	"github.com/danielhkuo/eventroll/reconcile"
	"github.com/danielhkuo/eventroll/registration"
	"github.com/danielhkuo/eventroll/repository"
)

func NewRouter(repo *repository.Repository, sessions *reconcile.Manager, reminders handlers.ReminderSource, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize services and handlers
	feedbackSvc := feedback.NewService(repo)
	personHandler := handlers.NewPersonHandler(repo, feedbackSvc)
	eventHandler := handlers.NewEventHandler(repo, cfg)
	registrationHandler := handlers.NewRegistrationHandler(repo, registration.NewService(repo))
	feedbackHandler := handlers.NewFeedbackHandler(feedbackSvc, cfg)
	sessionHandler := handlers.NewSessionHandler(repo, sessions, cfg)
	reminderHandler := handlers.NewReminderHandler(repo, reminders)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Persons
	mux.HandleFunc("POST /persons", middleware.WithLogging(personHandler.CreatePerson))
	mux.HandleFunc("GET /persons", middleware.WithLogging(personHandler.ListPersons))
	mux.HandleFunc("GET /persons/{id}", middleware.WithLogging(personHandler.GetPerson))
	mux.HandleFunc("PUT /persons/{id}/location", middleware.WithLogging(personHandler.ReportLocation))
	mux.HandleFunc("GET /persons/{id}/records", middleware.WithLogging(personHandler.GetRecords))

	// Event management (staff operations need X-Staff-Key)
	mux.HandleFunc("POST /events", middleware.WithLogging(eventHandler.CreateEvent))
	mux.HandleFunc("GET /events", middleware.WithLogging(eventHandler.ListEvents))
	mux.HandleFunc("GET /events/{id}", middleware.WithLogging(eventHandler.GetEvent))
	mux.HandleFunc("PATCH /events/{id}", middleware.WithLogging(eventHandler.UpdateEvent))
	mux.HandleFunc("DELETE /events/{id}", middleware.WithLogging(eventHandler.DeleteEvent))
	mux.HandleFunc("POST /events/{id}/publish", middleware.WithLogging(eventHandler.PublishEvent))
	mux.HandleFunc("POST /events/{id}/unpublish", middleware.WithLogging(eventHandler.UnpublishEvent))

	// Registration
	mux.HandleFunc("POST /events/{id}/join", middleware.WithLogging(registrationHandler.Join))
	mux.HandleFunc("POST /events/{id}/withdraw", middleware.WithLogging(registrationHandler.Withdraw))

	// Feedback records
	mux.HandleFunc("GET /events/{id}/records", middleware.WithLogging(feedbackHandler.GetEventRecords))
	mux.HandleFunc("PUT /events/{id}/records/{personId}", middleware.WithLogging(feedbackHandler.SubmitFeedback))

	// Attendance sessions
	mux.HandleFunc("POST /events/{id}/sessions", middleware.WithLogging(sessionHandler.StartSession))
	mux.HandleFunc("GET /sessions", middleware.WithLogging(sessionHandler.ListSessions))
	mux.HandleFunc("GET /sessions/{sid}", middleware.WithLogging(sessionHandler.GetSession))
	mux.HandleFunc("DELETE /sessions/{sid}", middleware.WithLogging(sessionHandler.StopSession))
	mux.HandleFunc("POST /sessions/{sid}/sightings", middleware.WithLogging(sessionHandler.PostSightings))
	mux.HandleFunc("POST /sessions/{sid}/override", middleware.WithLogging(sessionHandler.Override))

	// Reminders
	mux.HandleFunc("GET /reminders", middleware.WithLogging(reminderHandler.ListReminders))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("eventroll API v1"))
	})

	return mux
}
