// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridEndpoint = "/v3/mail/send"
	sendgridHost     = "https://api.sendgrid.com"
)

// LogNotifier writes reminders to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, r Reminder) error {
	slog.Info("event reminder",
		"person_id", r.PersonID,
		"name", r.Name,
		"event_id", r.EventID,
		"event", r.EventName,
		"starts", humanize.Time(r.StartsAt),
	)
	return nil
}

// SendgridNotifier emails reminders. People without an email address are
// skipped.
type SendgridNotifier struct {
	key  string
	from *sgmail.Email
}

func NewSendgridNotifier(apiKey, fromName, fromAddress string) *SendgridNotifier {
	return &SendgridNotifier{
		key:  apiKey,
		from: sgmail.NewEmail(fromName, fromAddress),
	}
}

func (n *SendgridNotifier) Notify(ctx context.Context, r Reminder) error {
	if r.Email == "" {
		slog.Debug("no email address, skipping reminder", "person_id", r.PersonID, "event_id", r.EventID)
		return nil
	}

	req := sendgrid.GetRequest(n.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(n.message(r))

	res, err := sendgrid.API(req)
	if err != nil {
		return errors.Wrap(err, "sendgrid request")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid returned %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (n *SendgridNotifier) message(r Reminder) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = fmt.Sprintf("Reminder: %s starts %s", r.EventName, humanize.RelTime(r.StartsAt, r.FireAt, "ago", "from now"))
	p.AddTos(sgmail.NewEmail(r.Name, r.Email))

	text := fmt.Sprintf("Hi %s,\n\n%s starts at %s.\n",
		r.Name, r.EventName, r.StartsAt.Format("Mon 2 Jan 15:04"))

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", text))
	return m
}
