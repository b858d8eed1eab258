package directory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"hackattend/internal/model"
)

// EventInput is the create form. All fields are required.
type EventInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

// EventPatch carries the fields an update may change. Nil fields are left as
// they are.
type EventPatch struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Date        *string            `json:"date"`
	StartTime   *string            `json:"startTime"`
	EndTime     *string            `json:"endTime"`
	Status      *model.EventStatus `json:"status"`
}

// ListEvents returns events, newest date first. An empty status returns all.
func (s *Service) ListEvents(ctx context.Context, status model.EventStatus) []model.Event {
	out := []model.Event{}
	for _, e := range s.repo.Events(ctx) {
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].StartTime > out[j].StartTime
	})
	return out
}

// GetEvent returns one event.
func (s *Service) GetEvent(ctx context.Context, id string) (model.Event, error) {
	e, _, err := findEvent(s.repo.Events(ctx), id)
	return e, err
}

// CreateEvent adds an active event.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (model.Event, error) {
	e := model.Event{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Date:        strings.TrimSpace(in.Date),
		StartTime:   strings.TrimSpace(in.StartTime),
		EndTime:     strings.TrimSpace(in.EndTime),
		Status:      model.EventActive,
		CreatedAt:   time.Now().UTC(),
	}
	if e.Name == "" || e.Description == "" || e.Date == "" || e.StartTime == "" || e.EndTime == "" {
		return model.Event{}, model.Validation("All fields are required")
	}
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		events, err := s.repo.LoadEvents(ctx)
		if err != nil {
			return err
		}
		return s.repo.SaveEvents(ctx, append(events, e))
	})
	if err != nil {
		return model.Event{}, err
	}
	s.log.Infow("event created", "event_id", e.ID, "name", e.Name)
	return e, nil
}

// UpdateEvent applies a partial update.
func (s *Service) UpdateEvent(ctx context.Context, id string, p EventPatch) (model.Event, error) {
	if p.Status != nil && *p.Status != model.EventActive && *p.Status != model.EventCompleted {
		return model.Event{}, model.Validation("Invalid event status")
	}
	var updated model.Event
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		events, err := s.repo.LoadEvents(ctx)
		if err != nil {
			return err
		}
		e, i, err := findEvent(events, id)
		if err != nil {
			return err
		}
		for _, f := range []struct {
			dst *string
			src *string
		}{
			{&e.Name, p.Name},
			{&e.Description, p.Description},
			{&e.Date, p.Date},
			{&e.StartTime, p.StartTime},
			{&e.EndTime, p.EndTime},
		} {
			if f.src == nil {
				continue
			}
			v := strings.TrimSpace(*f.src)
			if v == "" {
				return model.Validation("All fields are required")
			}
			*f.dst = v
		}
		if p.Status != nil {
			e.Status = *p.Status
		}
		events[i] = e
		if err := s.repo.SaveEvents(ctx, events); err != nil {
			return err
		}
		updated = e
		return nil
	})
	return updated, err
}

// ToggleEventStatus flips an event between active and completed.
func (s *Service) ToggleEventStatus(ctx context.Context, id string) (model.Event, error) {
	var updated model.Event
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		events, err := s.repo.LoadEvents(ctx)
		if err != nil {
			return err
		}
		e, i, err := findEvent(events, id)
		if err != nil {
			return err
		}
		e.Status = e.Status.Toggled()
		events[i] = e
		if err := s.repo.SaveEvents(ctx, events); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	s.log.Infow("event status changed", "event_id", id, "status", updated.Status)
	return updated, nil
}

// DeleteEvent removes an event together with its attendance records.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	var dropped int
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		events, err := s.repo.LoadEvents(ctx)
		if err != nil {
			return err
		}
		_, i, err := findEvent(events, id)
		if err != nil {
			return err
		}
		recs, err := s.repo.LoadAttendance(ctx)
		if err != nil {
			return err
		}
		kept := make([]model.AttendanceRecord, 0, len(recs))
		for _, r := range recs {
			if r.EventID != id {
				kept = append(kept, r)
			}
		}
		// Attendance is saved first so a failed save never orphans records.
		if dropped = len(recs) - len(kept); dropped > 0 {
			if err := s.repo.SaveAttendance(ctx, kept); err != nil {
				return err
			}
		}
		return s.repo.SaveEvents(ctx, append(events[:i], events[i+1:]...))
	})
	if err != nil {
		return err
	}
	s.log.Infow("event deleted", "event_id", id, "attendance_removed", dropped)
	return nil
}

func findEvent(events []model.Event, id string) (model.Event, int, error) {
	for i, e := range events {
		if e.ID == id {
			return e, i, nil
		}
	}
	return model.Event{}, -1, model.NotFound("Event not found")
}
