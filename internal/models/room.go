package models

import "time"

type RoomType string

const (
	RoomTypePatientDoctor     RoomType = "patient_doctor"
	RoomTypeGroupConsultation RoomType = "group_consultation"
	RoomTypeEmergency         RoomType = "emergency"
)

func (t RoomType) Valid() bool {
	switch t {
	case RoomTypePatientDoctor, RoomTypeGroupConsultation, RoomTypeEmergency:
		return true
	}
	return false
}

type RoomStatus string

const (
	RoomStatusActive    RoomStatus = "active"
	RoomStatusArchived  RoomStatus = "archived"
	RoomStatusSuspended RoomStatus = "suspended"
)

// RoomRole gates privileged room operations. The permission matrix is
// checked with exhaustive switches, never string comparison at call sites.
type RoomRole string

const (
	RoomRoleOwner       RoomRole = "owner"
	RoomRoleModerator   RoomRole = "moderator"
	RoomRoleParticipant RoomRole = "participant"
)

func (r RoomRole) Valid() bool {
	switch r {
	case RoomRoleOwner, RoomRoleModerator, RoomRoleParticipant:
		return true
	}
	return false
}

// In reports whether the role is one of the required set.
func (r RoomRole) In(required []RoomRole) bool {
	for _, want := range required {
		if r == want {
			return true
		}
	}
	return false
}

type Room struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Type          RoomType   `json:"type"`
	Status        RoomStatus `json:"status"`
	IsPrivate     bool       `json:"isPrivate"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Membership is one (room, user) row. The gateway's per-connection room set
// is only ever a cache of these rows.
type Membership struct {
	RoomID      string     `json:"roomId"`
	UserID      string     `json:"userId"`
	Role        RoomRole   `json:"role"`
	UnreadCount int        `json:"unreadCount"`
	LastReadAt  *time.Time `json:"lastReadAt,omitempty"`
	JoinedAt    time.Time  `json:"joinedAt"`
}

type Participant struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Role      UserRole `json:"role"`
	IsOnline  bool     `json:"isOnline"`
}

type CreateRoomRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Type           RoomType `json:"type"`
	IsPrivate      bool     `json:"isPrivate"`
	ParticipantIDs []string `json:"participantIds,omitempty"`
}

type UpdateRoomRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type AddParticipantsRequest struct {
	UserIDs []string `json:"userIds"`
}

type CreatePatientDoctorRoomRequest struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
}

type RoomResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Type          RoomType       `json:"type"`
	Participants  []*Participant `json:"participants"`
	LastMessageAt *time.Time     `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}
