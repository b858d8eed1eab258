package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role int

const (
	RoleStudent Role = iota + 1
	RoleAdmin
)

// ParseRole maps the wire name of a role to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return RoleStudent, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, Validation("invalid role")
}

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleAdmin:
		return "admin"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdmin:
		return true
	}
	return false
}

func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("model: cannot marshal %s", r)
	}
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return fmt.Errorf("model: unknown role %q", s)
	}
	*r = parsed
	return nil
}

// Status is the verification state of a student account.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
)

// EventStatus is the two-state lifecycle of an event.
type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
)

// Toggled returns the other state.
func (s EventStatus) Toggled() EventStatus {
	if s == EventActive {
		return EventCompleted
	}
	return EventActive
}

// User is a directory entry. PasswordHash never leaves the service; use Public before
// serialising a user for a client.
type User struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"studentId,omitempty"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status,omitempty"`
	QRCode       *string   `json:"qrCode"`
	ProfilePhoto *string   `json:"profilePhoto"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FullName is the display name used in QR payloads and attendance snapshots.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Verified reports whether the account may be recorded at events. Admins are
// implicitly verified.
func (u User) Verified() bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleStudent:
		return u.Status == StatusVerified
	}
	return false
}

// Public strips secrets.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// Event is a scheduled session that attendance is recorded against.
type Event struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	StartTime   string      `json:"startTime"`
	EndTime     string      `json:"endTime"`
	Status      EventStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// AttendanceRecord is one student's presence at one event. Name and photo are
// snapshots taken when the record was created.
type AttendanceRecord struct {
	ID           string    `json:"id"`
	EventID      string    `json:"eventId"`
	StudentID    string    `json:"studentId"`
	StudentName  string    `json:"studentName"`
	StudentPhoto *string   `json:"studentPhoto"`
	Timestamp    time.Time `json:"timestamp"`
}

// PublicUsers applies Public to every user.
func PublicUsers(users []User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}
