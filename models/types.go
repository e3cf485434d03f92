package models

import "time"

// Proximity reading labels reported by the ranging service
const (
	ProximityImmediate = "immediate"
	ProximityNear      = "near"
	ProximityFar       = "far"
	ProximityUnknown   = "unknown"
)

// Domain types

type Coordinates struct {
	Lat       float64   `json:"lat"`
	Long      float64   `json:"long"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats holds role-specific counters. Caregivers use medals/podium/score,
// volunteers use activities.
type Stats struct {
	Medals     int     `json:"medals"`
	Podium     int     `json:"podium"`
	Score      float64 `json:"score"`
	Activities int     `json:"activities"`
}

type Person struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Role   Role         `json:"role"`
	UUID   string       `json:"uuid"` // proximity beacon identifier
	Email  string       `json:"email,omitempty"`
	Coords *Coordinates `json:"coords,omitempty"`
	Stats  Stats        `json:"stats"`
}

// Participant is the structured form of an event's participant entry.
// Storage keeps the legacy "name,location,yes|no" encoding, see roster.
type Participant struct {
	Name            string `json:"name"`
	MeetUpLocation  string `json:"meet_up_location"`
	CaregiverComing bool   `json:"caregiver_coming"`
}

type Event struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Location              string    `json:"location"`
	Information           string    `json:"information"`
	DateTime              time.Time `json:"date_time"`
	MeetUpLocations       []string  `json:"meet_up_locations"`
	ItemsToBring          []string  `json:"items_to_bring"`
	Participants          []string  `json:"participants"`
	Volunteers            []string  `json:"volunteers"`
	ParticipantAttendance []string  `json:"participant_attendance"`
	VolunteerAttendance   []string  `json:"volunteer_attendance"`
	Published             bool      `json:"published"`
	CreatedBy             string    `json:"created_by,omitempty"`
}

// HasMeetUpLocation reports whether loc is one of the event's meet-up locations.
func (e Event) HasMeetUpLocation(loc string) bool {
	for _, l := range e.MeetUpLocations {
		if l == loc {
			return true
		}
	}
	return false
}

type FeedbackEntry struct {
	Name         string   `json:"name"`
	Achievements []string `json:"achievements"`
	Completion   int      `json:"completion" validate:"min=0,max=100"`
	Rank         int      `json:"rank" validate:"min=0"`
	Score        float64  `json:"score" validate:"min=0"`
	Remarks      string   `json:"remarks" validate:"max=2000"`
}

// NewFeedbackEntry returns the empty entry created when someone registers.
func NewFeedbackEntry(name string) FeedbackEntry {
	return FeedbackEntry{Name: name, Achievements: []string{}}
}

// EventRecord is the per-event feedback container, keyed by person ID.
type EventRecord struct {
	EventID string                   `json:"event_id"`
	Entries map[string]FeedbackEntry `json:"entries"`
}

// PersonRecord pairs one person's feedback entry with the event it belongs to.
type PersonRecord struct {
	Event Event         `json:"event"`
	Entry FeedbackEntry `json:"entry"`
}

// SessionContext carries the acting person through a request. It replaces any
// notion of a globally "logged in" identity.
type SessionContext struct {
	Person Person
}

// Capabilities returns the capability row for the acting person's role.
func (sc SessionContext) Capabilities() Capabilities {
	c, _ := sc.Person.Role.Capabilities()
	return c
}

// Request types

type CreatePersonRequest struct {
	Name  string `json:"name" validate:"required,notblank,max=100,excludes=0x2C"`
	Role  string `json:"role" validate:"required,oneof=Caregiver Volunteer Staff"`
	UUID  string `json:"uuid" validate:"max=64"`
	Email string `json:"email" validate:"omitempty,email"`
}

type LocationReportRequest struct {
	Lat  float64 `json:"lat" validate:"latitude"`
	Long float64 `json:"long" validate:"longitude"`
}

type CreateEventRequest struct {
	Name            string    `json:"name" validate:"required,notblank,max=200"`
	Location        string    `json:"location" validate:"required"`
	Information     string    `json:"information" validate:"required"`
	DateTime        time.Time `json:"date_time" validate:"required"`
	MeetUpLocations []string  `json:"meet_up_locations" validate:"required,min=1,dive,required,excludes=0x2C"`
	ItemsToBring    []string  `json:"items_to_bring" validate:"required,min=1,dive,required"`
}

// UpdateEventRequest carries a partial update; nil fields are left untouched.
type UpdateEventRequest struct {
	Name            *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Location        *string    `json:"location" validate:"omitempty,min=1"`
	Information     *string    `json:"information" validate:"omitempty,min=1"`
	DateTime        *time.Time `json:"date_time"`
	MeetUpLocations []string   `json:"meet_up_locations" validate:"omitempty,dive,required,excludes=0x2C"`
	ItemsToBring    []string   `json:"items_to_bring" validate:"omitempty,dive,required"`
}

type JoinEventRequest struct {
	PersonID        string `json:"person_id"` // staff only: register someone else
	MeetUpLocation  string `json:"meet_up_location"`
	CaregiverComing bool   `json:"caregiver_coming"`
}

type WithdrawEventRequest struct {
	PersonID string `json:"person_id"`
}

type SubmitFeedbackRequest struct {
	Achievements []string `json:"achievements" validate:"dive,required"`
	Completion   int      `json:"completion" validate:"min=0,max=100"`
	Rank         int      `json:"rank" validate:"min=0"`
	Score        float64  `json:"score" validate:"min=0"`
	Remarks      string   `json:"remarks" validate:"max=2000"`
}

type StartSessionRequest struct {
	MeetUpLocation string `json:"meet_up_location" validate:"required"`
	RadioDenied    bool   `json:"radio_denied"`
}

type SightingBeacon struct {
	UUID      string  `json:"uuid" validate:"required"`
	RSSI      int     `json:"rssi"`
	Proximity string  `json:"proximity"`
	Distance  float64 `json:"distance"`
	Major     int     `json:"major"`
	Minor     int     `json:"minor"`
}

// SightingBatchRequest is one ranging callback forwarded by the scanning device,
// together with the device's own position when it has one.
type SightingBatchRequest struct {
	Beacons        []SightingBeacon `json:"beacons" validate:"dive"`
	Lat            *float64         `json:"lat"`
	Long           *float64         `json:"long"`
	LocationDenied bool             `json:"location_denied"`
}

// Response types

type CreateEventResponse struct {
	Event    Event  `json:"event"`
	StaffKey string `json:"staff_key"`
}

type SessionStatus struct {
	ID                      string    `json:"id"`
	EventID                 string    `json:"event_id"`
	MeetUpLocation          string    `json:"meet_up_location"`
	State                   string    `json:"state"`
	ExpectedParticipants    []string  `json:"expected_participants"`
	ExpectedVolunteers      []string  `json:"expected_volunteers"`
	AttendedParticipants    []string  `json:"attended_participants"`
	AttendedVolunteers      []string  `json:"attended_volunteers"`
	NotAttendedParticipants []string  `json:"not_attended_participants"`
	NotAttendedVolunteers   []string  `json:"not_attended_volunteers"`
	ProcessedBeacons        int       `json:"processed_beacons"`
	BatchesProcessed        int       `json:"batches_processed"`
	BatchesDebounced        int       `json:"batches_debounced"`
	PendingPersist          bool      `json:"pending_persist"`
	LastError               string    `json:"last_error,omitempty"`
	LastBatchAt             time.Time `json:"last_batch_at,omitempty"`
	LastBatchAgo            string    `json:"last_batch_ago,omitempty"`
}

type SightingsAcceptedResponse struct {
	Queued bool `json:"queued"`
}

type OverrideResponse struct {
	Injected int           `json:"injected"`
	Status   SessionStatus `json:"status"`
}

type ReminderView struct {
	PersonID  string    `json:"person_id"`
	Name      string    `json:"name"`
	EventID   string    `json:"event_id"`
	EventName string    `json:"event_name"`
	StartsAt  time.Time `json:"starts_at"`
	FireAt    time.Time `json:"fire_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
