// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "fmt"

type Role string

const (
	RoleCaregiver Role = "Caregiver"
	RoleVolunteer Role = "Volunteer"
	RoleStaff     Role = "Staff"
)

// AttendanceList names the event list a role is counted in.
type AttendanceList int

const (
	AttendanceNone AttendanceList = iota
	AttendanceParticipants
	AttendanceVolunteers
)

func (l AttendanceList) String() string {
	switch l {
	case AttendanceParticipants:
		return "participants"
	case AttendanceVolunteers:
		return "volunteers"
	default:
		return "none"
	}
}

type Capabilities struct {
	CanRegister             bool
	CanSelectMeetUpLocation bool
	RequiresMeetUpLocation  bool
	ManagesEvents           bool
	SeesUnpublished         bool
	AttendanceList          AttendanceList
}

var capabilityTable = map[Role]Capabilities{
	RoleCaregiver: {
		CanRegister:             true,
		CanSelectMeetUpLocation: true,
		RequiresMeetUpLocation:  true,
		AttendanceList:          AttendanceParticipants,
	},
	RoleVolunteer: {
		CanRegister:    true,
		AttendanceList: AttendanceVolunteers,
	},
	RoleStaff: {
		ManagesEvents:   true,
		SeesUnpublished: true,
		AttendanceList:  AttendanceNone,
	},
}

// Capabilities looks up the role in the capability table. Unknown roles get
// the zero value, which grants nothing.
func (r Role) Capabilities() (Capabilities, bool) {
	c, ok := capabilityTable[r]
	return c, ok
}

func (r Role) Valid() bool {
	_, ok := capabilityTable[r]
	return ok
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
