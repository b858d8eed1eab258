package directory

import (
	"context"
	"encoding/base64"
	"strings"

	"hackattend/internal/model"
	"hackattend/internal/queue"
)

// MaxPhotoBytes caps the decoded size of an uploaded profile photo.
const MaxPhotoBytes = 2 << 20

// ProfileInput is the self-service profile form. Password fields are only
// looked at when NewPassword is set.
type ProfileInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UpdateProfile edits the name, email and optionally the password of id.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileInput) (model.User, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	email := model.NormalizeEmail(in.Email)
	if first == "" || last == "" || email == "" {
		return model.User{}, model.Validation("Please fill in all required fields")
	}
	if !model.ValidEmail(email) {
		return model.User{}, model.Validation("Please enter a valid email address")
	}
	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return model.User{}, model.Validation("Please enter your current password")
		}
		if in.ConfirmPassword != in.NewPassword {
			return model.User{}, model.Validation("New passwords do not match")
		}
		if len(in.NewPassword) < model.MinPasswordLength {
			return model.User{}, model.Validation("Password must be at least 6 characters")
		}
	}

	var updated model.User
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		users, err := s.repo.LoadUsers(ctx)
		if err != nil {
			return err
		}
		u, i, err := findUser(users, id)
		if err != nil {
			return err
		}
		for _, other := range users {
			if other.ID != id && model.NormalizeEmail(other.Email) == email {
				return model.Duplicate("Email already registered")
			}
		}
		if in.NewPassword != "" {
			if !s.hasher.Verify(u.PasswordHash, in.CurrentPassword) {
				return model.Validation("Current password is incorrect")
			}
			hash, err := s.hasher.Hash(in.NewPassword)
			if err != nil {
				return model.Validation("Password cannot be used")
			}
			u.PasswordHash = hash
		}
		renamed := u.FirstName != first || u.LastName != last
		u.FirstName, u.LastName, u.Email = first, last, email
		if renamed && u.QRCode != nil {
			if err := renderQR(&u); err != nil {
				return err
			}
		}
		users[i] = u
		if err := s.repo.SaveUsers(ctx, users); err != nil {
			return err
		}
		updated = u.Public()
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	s.log.Infow("profile updated", "user_id", id, "password_changed", in.NewPassword != "")
	s.refresh(ctx, updated)
	return updated, nil
}

// SetProfilePhoto stores dataURL inline and, when a photo queue is configured,
// schedules it for upload to the CDN.
func (s *Service) SetProfilePhoto(ctx context.Context, id, dataURL string) (model.User, error) {
	if err := validatePhoto(dataURL); err != nil {
		return model.User{}, err
	}
	var updated model.User
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		users, err := s.repo.LoadUsers(ctx)
		if err != nil {
			return err
		}
		u, i, err := findUser(users, id)
		if err != nil {
			return err
		}
		photo := dataURL
		u.ProfilePhoto = &photo
		users[i] = u
		if err := s.repo.SaveUsers(ctx, users); err != nil {
			return err
		}
		updated = u.Public()
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	s.refresh(ctx, updated)

	if s.photos != nil {
		msg := queue.Message{Type: queue.TypeProfilePhoto, Body: []byte(id)}
		if err := s.photos.Publish(ctx, msg); err != nil {
			s.log.Warnw("queue photo upload failed", "user_id", id, "err", err)
		}
	}
	return updated, nil
}

// PendingPhoto returns the inline photo of id, or "" when the user is gone or
// their photo is already hosted elsewhere.
func (s *Service) PendingPhoto(ctx context.Context, id string) string {
	u, _, err := findUser(s.repo.Users(ctx), id)
	if err != nil || u.ProfilePhoto == nil || !strings.HasPrefix(*u.ProfilePhoto, "data:") {
		return ""
	}
	return *u.ProfilePhoto
}

// CompletePhotoUpload replaces the inline photo with its hosted url. Nothing
// changes if the user uploaded another photo in the meantime.
func (s *Service) CompletePhotoUpload(ctx context.Context, id, inline, url string) (bool, error) {
	var (
		updated model.User
		swapped bool
	)
	err := s.repo.Update(ctx, func(ctx context.Context) error {
		users, err := s.repo.LoadUsers(ctx)
		if err != nil {
			return err
		}
		u, i, err := findUser(users, id)
		if err != nil {
			return err
		}
		if u.ProfilePhoto == nil || *u.ProfilePhoto != inline {
			return nil
		}
		hosted := url
		u.ProfilePhoto = &hosted
		users[i] = u
		if err := s.repo.SaveUsers(ctx, users); err != nil {
			return err
		}
		updated, swapped = u.Public(), true
		return nil
	})
	if err != nil || !swapped {
		return false, err
	}
	s.refresh(ctx, updated)
	return true, nil
}

func validatePhoto(dataURL string) error {
	meta, data, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(meta, "data:image/") || !strings.HasSuffix(meta, ";base64") {
		return model.Validation("Please upload an image")
	}
	if base64.StdEncoding.DecodedLen(len(data)) > MaxPhotoBytes+2 {
		return model.Validation("Image size must be less than 2MB")
	}
	return nil
}
