package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"hackattend/internal/metrics"
	"hackattend/internal/model"
	"hackattend/internal/records"
	"hackattend/internal/session"
)

const invalidCredentials = "Invalid email or password"

// Service handles signup, login and logout.
type Service struct {
	repo     *records.Repository
	sessions *session.Manager
	hasher   PasswordHasher
	signer   Signer
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewService wires the authentication service.
func NewService(repo *records.Repository, sessions *session.Manager, hasher PasswordHasher, signer Signer, log *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{repo: repo, sessions: sessions, hasher: hasher, signer: signer, log: log, now: time.Now}
}

// SignupInput is the registration form.
type SignupInput struct {
	StudentID       string
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	User      model.User
	SessionID string
	Token     Token
}

// Signup registers a pending student. It does not sign the user in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (model.User, error) {
	studentID := strings.TrimSpace(in.StudentID)
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	email := model.NormalizeEmail(in.Email)

	if studentID == "" || first == "" || last == "" || email == "" || in.Password == "" {
		return model.User{}, model.Validation("Please fill in all fields")
	}
	if !model.ValidEmail(email) {
		return model.User{}, model.Validation("Please enter a valid email address")
	}
	if len(in.Password) < model.MinPasswordLength {
		return model.User{}, model.Validation(fmt.Sprintf("Password must be at least %d characters long", model.MinPasswordLength))
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		return model.User{}, model.Validation("Passwords do not match")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, model.Validation("Password cannot be used")
	}

	now := s.now().UTC()
	user := model.User{
		ID:           model.NewUserID(model.RoleStudent, now),
		StudentID:    studentID,
		FirstName:    first,
		LastName:     last,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleStudent,
		Status:       model.StatusPending,
		CreatedAt:    now,
	}

	err = s.repo.Update(ctx, func(ctx context.Context) error {
		users, err := s.repo.LoadUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			if model.NormalizeEmail(u.Email) == email {
				return model.Duplicate("Email already registered")
			}
			if u.StudentID != "" && u.StudentID == studentID {
				return model.Duplicate("Student ID already registered")
			}
		}
		return s.repo.SaveUsers(ctx, append(users, user))
	})
	if err != nil {
		return model.User{}, err
	}

	metrics.Signups.Inc()
	s.log.Infow("student registered", "user_id", user.ID, "student_id", studentID)
	return user.Public(), nil
}

// Login checks credentials and starts a session. Failures never reveal which
// field was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, model.Validation("Please enter both email and password")
	}
	if !model.ValidEmail(email) {
		return LoginResult{}, model.Validation("Please enter a valid email address")
	}

	var found *model.User
	for _, u := range s.repo.Users(ctx) {
		if model.NormalizeEmail(u.Email) == email {
			u := u
			found = &u
			break
		}
	}
	if found == nil || !s.hasher.Verify(found.PasswordHash, password) {
		metrics.Logins.WithLabelValues("rejected").Inc()
		return LoginResult{}, model.Auth(invalidCredentials)
	}

	user := found.Public()
	sess, err := s.sessions.Set(ctx, user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("start session: %w", err)
	}
	tok, err := s.signer.Issue(user.ID, sess.ID, user.Role)
	if err != nil {
		_ = s.sessions.Clear(ctx, sess.ID)
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	s.log.Infow("user logged in", "user_id", user.ID, "role", user.Role.String())
	return LoginResult{User: user, SessionID: sess.ID, Token: tok}, nil
}

// Logout ends the session.
func (s *Service) Logout(ctx context.Context, sid string) error {
	return s.sessions.Clear(ctx, sid)
}

// Authenticate resolves a token to the session's user snapshot.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, string, error) {
	if token == "" {
		return nil, "", model.Auth("Not signed in")
	}
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", model.Auth("Not signed in")
	}
	u, err := s.sessions.Current(ctx, claims.ID)
	if errors.Is(err, session.ErrNoSession) {
		return nil, "", model.Auth("Session ended")
	}
	if err != nil {
		return nil, "", fmt.Errorf("load session: %w", err)
	}
	return u, claims.ID, nil
}

// EnsureAdmin seeds an admin account when no user has the given email.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	return s.repo.Update(ctx, func(ctx context.Context) error {
		users, err := s.repo.LoadUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			if model.NormalizeEmail(u.Email) == email {
				return nil
			}
		}
		now := s.now().UTC()
		admin := model.User{
			ID:           model.NewUserID(model.RoleAdmin, now),
			FirstName:    "Admin",
			LastName:     "User",
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
			Status:       model.StatusVerified,
			CreatedAt:    now,
		}
		if err := s.repo.SaveUsers(ctx, append(users, admin)); err != nil {
			return err
		}
		s.log.Infow("default admin created", "email", email)
		return nil
	})
}
