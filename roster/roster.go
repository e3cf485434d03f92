// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package roster

import (
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/models"
)

var (
	ErrMalformedParticipant = errors.New("malformed participant entry")
	ErrFieldHasComma        = errors.New("participant field contains a comma")
)

const fieldSep = ","

// EncodeParticipant produces the stored "name,location,yes|no" form.
// Fields containing the separator are rejected since they cannot be decoded.
func EncodeParticipant(p models.Participant) (string, error) {
	if strings.Contains(p.Name, fieldSep) || strings.Contains(p.MeetUpLocation, fieldSep) {
		return "", ErrFieldHasComma
	}
	coming := "no"
	if p.CaregiverComing {
		coming = "yes"
	}
	return p.Name + fieldSep + p.MeetUpLocation + fieldSep + coming, nil
}

// DecodeParticipant parses a stored participant entry. Anything other than
// exactly three fields with a recognised caregiver flag is malformed.
func DecodeParticipant(raw string) (models.Participant, error) {
	fields := strings.Split(raw, fieldSep)
	if len(fields) != 3 {
		return models.Participant{}, errors.Wrapf(ErrMalformedParticipant, "%q has %d fields", raw, len(fields))
	}
	if fields[0] == "" {
		return models.Participant{}, errors.Wrapf(ErrMalformedParticipant, "%q has an empty name", raw)
	}

	var coming bool
	switch strings.ToLower(fields[2]) {
	case "yes", "true":
		coming = true
	case "no", "false":
		coming = false
	default:
		return models.Participant{}, errors.Wrapf(ErrMalformedParticipant, "%q has caregiver flag %q", raw, fields[2])
	}

	return models.Participant{
		Name:            fields[0],
		MeetUpLocation:  fields[1],
		CaregiverComing: coming,
	}, nil
}

// Roster is the expected attendance for one event and meet-up location.
type Roster struct {
	EventID        string
	MeetUpLocation string
	Participants   []string // names, in event order
	Volunteers     []string // names, in event order
	Malformed      []string // raw entries that failed to decode
}

// Resolve projects the event's roster onto one meet-up location. Volunteers
// are not partitioned by location. Malformed participant entries are skipped
// and reported, never fatal.
func Resolve(event models.Event, location string) Roster {
	r := Roster{
		EventID:        event.ID,
		MeetUpLocation: location,
		Participants:   []string{},
		Volunteers:     []string{},
	}

	seen := make(map[string]bool)
	for _, raw := range event.Participants {
		p, err := DecodeParticipant(raw)
		if err != nil {
			slog.Warn("skipping malformed participant", "event_id", event.ID, "entry", raw, "error", err)
			r.Malformed = append(r.Malformed, raw)
			continue
		}
		if p.MeetUpLocation != location || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		r.Participants = append(r.Participants, p.Name)
	}

	seen = make(map[string]bool)
	for _, name := range event.Volunteers {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		r.Volunteers = append(r.Volunteers, name)
	}

	return r
}

// ExpectsParticipant reports whether name is an expected participant.
func (r Roster) ExpectsParticipant(name string) bool {
	return contains(r.Participants, name)
}

// ExpectsVolunteer reports whether name is an expected volunteer.
func (r Roster) ExpectsVolunteer(name string) bool {
	return contains(r.Volunteers, name)
}

// Expects checks membership in the list the given attendance list maps to.
func (r Roster) Expects(list models.AttendanceList, name string) bool {
	switch list {
	case models.AttendanceParticipants:
		return r.ExpectsParticipant(name)
	case models.AttendanceVolunteers:
		return r.ExpectsVolunteer(name)
	default:
		return false
	}
}

// FindParticipant returns the decoded entry for name, skipping malformed ones.
func FindParticipant(event models.Event, name string) (models.Participant, string, bool) {
	for _, raw := range event.Participants {
		p, err := DecodeParticipant(raw)
		if err != nil {
			continue
		}
		if p.Name == name {
			return p, raw, true
		}
	}
	return models.Participant{}, "", false
}

// IsRegistered reports whether person appears in the event list for their role.
// Shared by registration and the reminder scheduler.
func IsRegistered(event models.Event, person models.Person) bool {
	caps, _ := person.Role.Capabilities()
	switch caps.AttendanceList {
	case models.AttendanceParticipants:
		_, _, ok := FindParticipant(event, person.Name)
		return ok
	case models.AttendanceVolunteers:
		return contains(event.Volunteers, person.Name)
	default:
		return false
	}
}

// NotAttended returns the expected names whose person is not in attended.
// Order of expected is preserved.
func NotAttended(expected []string, attended map[string]bool) []string {
	out := make([]string, 0, len(expected))
	for _, name := range expected {
		if !attended[name] {
			out = append(out, name)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
