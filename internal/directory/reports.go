package directory

import (
	"context"

	"hackattend/internal/model"
)

// ReportKind selects a report.
type ReportKind string

const (
	ReportEvent   ReportKind = "event"
	ReportStudent ReportKind = "student"
	ReportSummary ReportKind = "summary"
)

// EventRow is one line of the per-event report.
type EventRow struct {
	EventID       string `json:"eventId"`
	Name          string `json:"name"`
	Date          string `json:"date"`
	TotalStudents int    `json:"totalStudents"`
	Attended      int    `json:"attended"`
	Rate          int    `json:"rate"`
}

// StudentRow is one line of the per-student report.
type StudentRow struct {
	ID          string `json:"id"`
	StudentID   string `json:"studentId"`
	Name        string `json:"name"`
	TotalEvents int    `json:"totalEvents"`
	Attended    int    `json:"attended"`
	Rate        int    `json:"rate"`
}

// Summary holds the dashboard counters.
type Summary struct {
	TotalStudents    int `json:"totalStudents"`
	PendingStudents  int `json:"pendingStudents"`
	VerifiedStudents int `json:"verifiedStudents"`
	TotalEvents      int `json:"totalEvents"`
	ActiveEvents     int `json:"activeEvents"`
	TotalAttendance  int `json:"totalAttendance"`
}

// Report is the result of GenerateReport. Exactly one of the fields is set.
type Report struct {
	Kind     ReportKind   `json:"kind"`
	Events   []EventRow   `json:"events,omitempty"`
	Students []StudentRow `json:"students,omitempty"`
	Summary  *Summary     `json:"summary,omitempty"`
}

// GenerateReport builds the requested report from the current collections.
func (s *Service) GenerateReport(ctx context.Context, kind ReportKind) (Report, error) {
	users := s.repo.Users(ctx)
	events := s.repo.Events(ctx)
	recs := s.repo.Attendance(ctx)

	switch kind {
	case ReportEvent:
		verified := countStudents(users, model.StatusVerified)
		perEvent := map[string]int{}
		for _, r := range recs {
			perEvent[r.EventID]++
		}
		rows := make([]EventRow, 0, len(events))
		for _, e := range events {
			n := perEvent[e.ID]
			rows = append(rows, EventRow{
				EventID:       e.ID,
				Name:          e.Name,
				Date:          e.Date,
				TotalStudents: verified,
				Attended:      n,
				Rate:          model.Rate(n, verified),
			})
		}
		return Report{Kind: kind, Events: rows}, nil

	case ReportStudent:
		perUser := map[string]int{}
		for _, r := range recs {
			perUser[r.StudentID]++
		}
		rows := []StudentRow{}
		for _, u := range users {
			if u.Role != model.RoleStudent || u.Status != model.StatusVerified {
				continue
			}
			n := perUser[u.ID]
			rows = append(rows, StudentRow{
				ID:          u.ID,
				StudentID:   u.StudentID,
				Name:        u.FullName(),
				TotalEvents: len(events),
				Attended:    n,
				Rate:        model.Rate(n, len(events)),
			})
		}
		return Report{Kind: kind, Students: rows}, nil

	case ReportSummary:
		sum := s.summarize(users, events, recs)
		return Report{Kind: kind, Summary: &sum}, nil
	}
	return Report{}, model.Validation("Unknown report type")
}

// DashboardStats returns the admin dashboard counters.
func (s *Service) DashboardStats(ctx context.Context) Summary {
	return s.summarize(s.repo.Users(ctx), s.repo.Events(ctx), s.repo.Attendance(ctx))
}

func (s *Service) summarize(users []model.User, events []model.Event, recs []model.AttendanceRecord) Summary {
	sum := Summary{
		PendingStudents:  countStudents(users, model.StatusPending),
		VerifiedStudents: countStudents(users, model.StatusVerified),
		TotalEvents:      len(events),
		TotalAttendance:  len(recs),
	}
	for _, u := range users {
		if u.Role == model.RoleStudent {
			sum.TotalStudents++
		}
	}
	for _, e := range events {
		if e.Status == model.EventActive {
			sum.ActiveEvents++
		}
	}
	return sum
}

func countStudents(users []model.User, status model.Status) int {
	n := 0
	for _, u := range users {
		if u.Role == model.RoleStudent && u.Status == status {
			n++
		}
	}
	return n
}
