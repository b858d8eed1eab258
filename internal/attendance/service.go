// Package attendance records which students were present at which events.
package attendance

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hackattend/internal/metrics"
	"hackattend/internal/model"
	"hackattend/internal/qr"
	"hackattend/internal/records"
)

// Source says how the student was identified.
type Source string

const (
	// SourceScan identifies the student by the JSON payload of their QR code.
	SourceScan Source = "scan"
	// SourceManual identifies the student by the student id an admin typed in.
	SourceManual Source = "manual"
	// SourceAPI identifies the student by user id.
	SourceAPI Source = "api"
)

// RecentLimit is the number of records shown on the student dashboard.
const RecentLimit = 5

// Entry is a record joined with its event for history views.
type Entry struct {
	model.AttendanceRecord
	EventName string `json:"eventName"`
	EventDate string `json:"eventDate"`
}

// StudentSummary is the student dashboard view.
type StudentSummary struct {
	Attended    int     `json:"attended"`
	TotalEvents int     `json:"totalEvents"`
	Rate        int     `json:"rate"`
	Recent      []Entry `json:"recent"`
}

// Service coordinates attendance checks and deduplication.
type Service struct {
	repo *records.Repository
	log  *zap.SugaredLogger
	now  func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo *records.Repository, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

// Record marks the student named by identifier as present at eventID. A
// student can be recorded at most once per event.
func (s *Service) Record(ctx context.Context, eventID, identifier string, source Source) (model.AttendanceRecord, error) {
	rec, err := s.record(ctx, strings.TrimSpace(eventID), strings.TrimSpace(identifier), source)
	metrics.Attendance.WithLabelValues(string(source), outcome(err)).Inc()
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	s.log.Infow("attendance recorded",
		"event_id", rec.EventID,
		"user_id", rec.StudentID,
		"source", string(source),
	)
	return rec, nil
}

func (s *Service) record(ctx context.Context, eventID, identifier string, source Source) (model.AttendanceRecord, error) {
	if eventID == "" || identifier == "" {
		return model.AttendanceRecord{}, model.Validation("Event ID and Student ID required")
	}

	var match func(model.User) bool
	switch source {
	case SourceScan:
		p, err := qr.ParsePayload(identifier)
		if err != nil {
			return model.AttendanceRecord{}, model.Validation("Invalid QR code")
		}
		match = func(u model.User) bool { return u.ID == p.ID }
	case SourceManual:
		match = func(u model.User) bool { return u.Role == model.RoleStudent && u.StudentID == identifier }
	case SourceAPI:
		match = func(u model.User) bool { return u.ID == identifier }
	default:
		return model.AttendanceRecord{}, model.Validation("Unknown attendance source")
	}

	var rec model.AttendanceRecord
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		events, err := s.repo.LoadEvents(ctx)
		if err != nil {
			return err
		}
		if !hasEvent(events, eventID) {
			return model.NotFound("Event not found")
		}
		users, err := s.repo.LoadUsers(ctx)
		if err != nil {
			return err
		}
		var student *model.User
		for _, u := range users {
			if match(u) {
				u := u
				student = &u
				break
			}
		}
		if student == nil {
			return model.NotFound("Student not found")
		}
		if !student.Verified() {
			return model.NotVerified("Student not verified")
		}

		recs, err := s.repo.LoadAttendance(ctx)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if r.EventID == eventID && r.StudentID == student.ID {
				return model.Duplicate("Attendance already recorded")
			}
		}
		rec = model.AttendanceRecord{
			ID:           uuid.NewString(),
			EventID:      eventID,
			StudentID:    student.ID,
			StudentName:  student.FullName(),
			StudentPhoto: student.ProfilePhoto,
			Timestamp:    s.now().UTC(),
		}
		return s.repo.SaveAttendance(ctx, append(recs, rec))
	})
	return rec, err
}

// RecordImage decodes the QR code in a captured PNG or JPEG frame and records
// it as a scan.
func (s *Service) RecordImage(ctx context.Context, eventID string, frame []byte) (model.AttendanceRecord, error) {
	text, err := qr.Decode(frame)
	if err != nil {
		metrics.Attendance.WithLabelValues(string(SourceScan), "invalid").Inc()
		if errors.Is(err, qr.ErrNoCode) {
			return model.AttendanceRecord{}, model.Validation("No QR code found in image")
		}
		return model.AttendanceRecord{}, model.Validation("Could not read image")
	}
	return s.Record(ctx, eventID, text, SourceScan)
}

// Remove deletes one record, letting the student be recorded again.
func (s *Service) Remove(ctx context.Context, id string) error {
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		recs, err := s.repo.LoadAttendance(ctx)
		if err != nil {
			return err
		}
		for i, r := range recs {
			if r.ID == id {
				return s.repo.SaveAttendance(ctx, append(recs[:i], recs[i+1:]...))
			}
		}
		return model.NotFound("Attendance record not found")
	})
	if err == nil {
		s.log.Infow("attendance removed", "record_id", id)
	}
	return err
}

// List returns every record, oldest first.
func (s *Service) List(ctx context.Context) []model.AttendanceRecord {
	return s.repo.Attendance(ctx)
}

// ListForEvent returns the records of one event, oldest first.
func (s *Service) ListForEvent(ctx context.Context, eventID string) []model.AttendanceRecord {
	out := []model.AttendanceRecord{}
	for _, r := range s.repo.Attendance(ctx) {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out
}

// ListForStudent returns the history of one user, newest first.
func (s *Service) ListForStudent(ctx context.Context, userID string) []Entry {
	events := map[string]model.Event{}
	for _, e := range s.repo.Events(ctx) {
		events[e.ID] = e
	}
	out := []Entry{}
	for _, r := range s.repo.Attendance(ctx) {
		if r.StudentID != userID {
			continue
		}
		e := events[r.EventID]
		out = append(out, Entry{AttendanceRecord: r, EventName: e.Name, EventDate: e.Date})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// Summary is the attendance rate of userID against every event, with their
// most recent records.
func (s *Service) Summary(ctx context.Context, userID string) StudentSummary {
	history := s.ListForStudent(ctx, userID)
	total := len(s.repo.Events(ctx))
	recent := history
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	return StudentSummary{
		Attended:    len(history),
		TotalEvents: total,
		Rate:        model.Rate(len(history), total),
		Recent:      recent,
	}
}

func hasEvent(events []model.Event, id string) bool {
	for _, e := range events {
		if e.ID == id {
			return true
		}
	}
	return false
}

func outcome(err error) string {
	switch model.KindOf(err) {
	case 0:
		if err != nil {
			return "error"
		}
		return "ok"
	case model.KindDuplicate:
		return "duplicate"
	case model.KindNotVerified:
		return "not_verified"
	case model.KindNotFound:
		return "not_found"
	case model.KindValidation:
		return "invalid"
	}
	return "error"
}
