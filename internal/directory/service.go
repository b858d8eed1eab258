// Package directory manages users and events on behalf of admins, and lets
// signed-in users edit their own profile.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"hackattend/internal/metrics"
	"hackattend/internal/model"
	"hackattend/internal/qr"
	"hackattend/internal/queue"
	"hackattend/internal/records"
)

// SessionRefresher is the part of the session manager the directory needs.
type SessionRefresher interface {
	Refresh(ctx context.Context, u model.User) error
	Purge(ctx context.Context, userID string) error
}

// UserFilter selects a subset of users for ListUsers.
type UserFilter string

const (
	FilterAll      UserFilter = "all"
	FilterPending  UserFilter = "pending"
	FilterVerified UserFilter = "verified"
	FilterAdmin    UserFilter = "admin"
)

// ParseUserFilter maps a query value to a filter. Empty means all.
func ParseUserFilter(s string) (UserFilter, error) {
	switch f := UserFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterVerified, FilterAdmin:
		return f, nil
	}
	return "", model.Validation("Invalid filter")
}

func (f UserFilter) match(u model.User) bool {
	switch f {
	case FilterPending:
		return u.Role == model.RoleStudent && u.Status == model.StatusPending
	case FilterVerified:
		return u.Role == model.RoleStudent && u.Status == model.StatusVerified
	case FilterAdmin:
		return u.Role == model.RoleAdmin
	}
	return true
}

// PasswordHasher hashes and checks passwords for profile edits.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// Service is the admin directory.
type Service struct {
	repo     *records.Repository
	sessions SessionRefresher
	hasher   PasswordHasher
	photos   queue.Queue
	log      *zap.SugaredLogger
}

// NewService wires the directory. photos may be nil, in which case uploaded
// profile photos stay inline.
func NewService(repo *records.Repository, sessions SessionRefresher, hasher PasswordHasher, photos queue.Queue, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{repo: repo, sessions: sessions, hasher: hasher, photos: photos, log: log}
}

// ListUsers returns public users matching filter and, when q is not empty,
// whose name, email or student id contains q.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter, q string) []model.User {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []model.User{}
	for _, u := range s.repo.Users(ctx) {
		if !filter.match(u) {
			continue
		}
		if q != "" && !matchesQuery(u, q) {
			continue
		}
		out = append(out, u.Public())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func matchesQuery(u model.User, q string) bool {
	for _, field := range []string{u.FullName(), u.Email, u.StudentID} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// GetUser returns the public view of one user.
func (s *Service) GetUser(ctx context.Context, id string) (model.User, error) {
	u, _, err := findUser(s.repo.Users(ctx), id)
	if err != nil {
		return model.User{}, err
	}
	return u.Public(), nil
}

// VerifyStudent moves a pending student to verified and issues their QR code.
func (s *Service) VerifyStudent(ctx context.Context, id string) (model.User, error) {
	var verified model.User
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		users, err := s.repo.LoadUsers(ctx)
		if err != nil {
			return err
		}
		u, i, err := findUser(users, id)
		if err != nil {
			return err
		}
		if u.Role != model.RoleStudent || u.Status != model.StatusPending {
			return model.Precondition("Only pending students can be verified")
		}
		u.Status = model.StatusVerified
		if err := renderQR(&u); err != nil {
			return err
		}
		users[i] = u
		if err := s.repo.SaveUsers(ctx, users); err != nil {
			return err
		}
		verified = u.Public()
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	metrics.Verifications.Inc()
	s.log.Infow("student verified", "user_id", verified.ID, "student_id", verified.StudentID)
	s.refresh(ctx, verified)
	return verified, nil
}

// ChangeRole sets a user's role. Promoting to admin also marks the account
// verified. A demoted account keeps its verification only if it holds a QR
// code from an earlier student verification; otherwise it is pending again.
func (s *Service) ChangeRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	if !role.Valid() {
		return model.User{}, model.Validation("Invalid role")
	}
	var changed model.User
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		users, err := s.repo.LoadUsers(ctx)
		if err != nil {
			return err
		}
		u, i, err := findUser(users, id)
		if err != nil {
			return err
		}
		u.Role = role
		switch role {
		case model.RoleAdmin:
			u.Status = model.StatusVerified
		case model.RoleStudent:
			if u.QRCode == nil {
				u.Status = model.StatusPending
				break
			}
			u.Status = model.StatusVerified
			if err := renderQR(&u); err != nil {
				return err
			}
		}
		users[i] = u
		if err := s.repo.SaveUsers(ctx, users); err != nil {
			return err
		}
		changed = u.Public()
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	s.log.Infow("role changed", "user_id", changed.ID, "role", role.String())
	s.refresh(ctx, changed)
	return changed, nil
}

// DeleteUser removes a user and ends their sessions. Attendance records that
// reference the user are kept.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		users, err := s.repo.LoadUsers(ctx)
		if err != nil {
			return err
		}
		_, i, err := findUser(users, id)
		if err != nil {
			return err
		}
		users = append(users[:i], users[i+1:]...)
		return s.repo.SaveUsers(ctx, users)
	})
	if err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.Purge(ctx, id); err != nil {
			s.log.Warnw("purge sessions failed", "user_id", id, "err", err)
		}
	}
	s.log.Infow("user deleted", "user_id", id)
	return nil
}

func (s *Service) refresh(ctx context.Context, u model.User) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.Refresh(ctx, u); err != nil {
		s.log.Warnw("refresh sessions failed", "user_id", u.ID, "err", err)
	}
}

// renderQR sets u's QR code from its current fields.
func renderQR(u *model.User) error {
	code, err := qr.DataURL(qr.PayloadFor(*u))
	if err != nil {
		return fmt.Errorf("render qr for %s: %w", u.ID, err)
	}
	u.QRCode = &code
	return nil
}

func findUser(users []model.User, id string) (model.User, int, error) {
	for i, u := range users {
		if u.ID == id {
			return u, i, nil
		}
	}
	return model.User{}, -1, model.NotFound("User not found")
}
