// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package roster

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/eventroll/models"
)

func TestDecodeParticipant(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    models.Participant
		wantErr bool
	}{
		{"yes flag", "Alice,Gate A,yes", models.Participant{Name: "Alice", MeetUpLocation: "Gate A", CaregiverComing: true}, false},
		{"no flag", "Bob,Gate B,no", models.Participant{Name: "Bob", MeetUpLocation: "Gate B"}, false},
		{"boolean flag", "Cara,Gate A,true", models.Participant{Name: "Cara", MeetUpLocation: "Gate A", CaregiverComing: true}, false},
		{"empty location", "Dana,,false", models.Participant{Name: "Dana"}, false},
		{"two fields", "Alice,Gate A", models.Participant{}, true},
		{"four fields", "Smith, John,Gate A,yes", models.Participant{}, true},
		{"empty name", ",Gate A,yes", models.Participant{}, true},
		{"bad flag", "Alice,Gate A,maybe", models.Participant{}, true},
		{"empty string", "", models.Participant{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeParticipant(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedParticipant))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeParticipant(t *testing.T) {
	raw, err := EncodeParticipant(models.Participant{Name: "Dana", MeetUpLocation: "Gate A", CaregiverComing: true})
	require.NoError(t, err)
	assert.Equal(t, "Dana,Gate A,yes", raw)

	raw, err = EncodeParticipant(models.Participant{Name: "Eve", MeetUpLocation: "Gate B"})
	require.NoError(t, err)
	assert.Equal(t, "Eve,Gate B,no", raw)

	_, err = EncodeParticipant(models.Participant{Name: "Smith, John", MeetUpLocation: "Gate A"})
	assert.ErrorIs(t, err, ErrFieldHasComma)

	_, err = EncodeParticipant(models.Participant{Name: "John", MeetUpLocation: "Gate A, north"})
	assert.ErrorIs(t, err, ErrFieldHasComma)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := models.Participant{Name: "Fay", MeetUpLocation: "Main Hall", CaregiverComing: false}
	raw, err := EncodeParticipant(in)
	require.NoError(t, err)
	out, err := DecodeParticipant(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResolve(t *testing.T) {
	event := models.Event{
		ID:              "ev1",
		MeetUpLocations: []string{"Gate A", "Gate B"},
		Participants:    []string{"Alice,Gate A,yes", "Bob,Gate B,no", "Cara,Gate A,no"},
		Volunteers:      []string{"Vic", "Val"},
	}

	r := Resolve(event, "Gate A")
	assert.Equal(t, []string{"Alice", "Cara"}, r.Participants)
	assert.Equal(t, []string{"Vic", "Val"}, r.Volunteers)
	assert.Empty(t, r.Malformed)

	r = Resolve(event, "Gate B")
	assert.Equal(t, []string{"Bob"}, r.Participants)
	assert.Equal(t, []string{"Vic", "Val"}, r.Volunteers)

	r = Resolve(event, "Nowhere")
	assert.Empty(t, r.Participants)
	assert.Len(t, r.Volunteers, 2)
}

func TestResolve_MalformedTolerance(t *testing.T) {
	for n := 0; n <= 5; n++ {
		event := models.Event{ID: "ev"}
		for i := 0; i < n; i++ {
			event.Participants = append(event.Participants, string(rune('A'+i))+",Gate A,no")
		}
		event.Participants = append(event.Participants, "Broken Entry")

		var r Roster
		assert.NotPanics(t, func() { r = Resolve(event, "Gate A") })
		assert.Len(t, r.Participants, n)
		assert.Equal(t, []string{"Broken Entry"}, r.Malformed)
	}
}

func TestResolve_DeduplicatesNames(t *testing.T) {
	event := models.Event{
		Participants: []string{"Alice,Gate A,yes", "Alice,Gate A,no"},
		Volunteers:   []string{"Vic", "Vic", ""},
	}
	r := Resolve(event, "Gate A")
	assert.Equal(t, []string{"Alice"}, r.Participants)
	assert.Equal(t, []string{"Vic"}, r.Volunteers)
}

func TestRosterExpects(t *testing.T) {
	r := Roster{Participants: []string{"Alice"}, Volunteers: []string{"Bob"}}

	assert.True(t, r.Expects(models.AttendanceParticipants, "Alice"))
	assert.False(t, r.Expects(models.AttendanceParticipants, "Bob"))
	assert.True(t, r.Expects(models.AttendanceVolunteers, "Bob"))
	assert.False(t, r.Expects(models.AttendanceVolunteers, "Alice"))
	assert.False(t, r.Expects(models.AttendanceNone, "Alice"))
}

func TestIsRegistered(t *testing.T) {
	event := models.Event{
		Participants: []string{"Alice,Gate A,yes", "garbage"},
		Volunteers:   []string{"Bob"},
	}

	tests := []struct {
		name   string
		person models.Person
		want   bool
	}{
		{"caregiver registered", models.Person{Name: "Alice", Role: models.RoleCaregiver}, true},
		{"caregiver absent", models.Person{Name: "Zed", Role: models.RoleCaregiver}, false},
		{"volunteer registered", models.Person{Name: "Bob", Role: models.RoleVolunteer}, true},
		{"volunteer listed as participant", models.Person{Name: "Alice", Role: models.RoleVolunteer}, false},
		{"staff never registered", models.Person{Name: "Bob", Role: models.RoleStaff}, false},
		{"unknown role", models.Person{Name: "Alice", Role: "Guest"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRegistered(event, tt.person))
		})
	}
}

func TestNotAttended(t *testing.T) {
	expected := []string{"Alice", "Bob", "Cara"}
	attended := map[string]bool{"Bob": true, "Zed": true}

	got := NotAttended(expected, attended)
	assert.Equal(t, []string{"Alice", "Cara"}, got)

	assert.Empty(t, NotAttended(nil, attended))
	assert.Equal(t, expected, NotAttended(expected, nil))
}
