package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
)

// UserRepository defines persistence operations for users and the session.
type UserRepository interface {
	Register(ctx context.Context, user types.User, password string) (types.User, error)
	FindByUsername(ctx context.Context, username string) (types.User, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	List(ctx context.Context, userType types.UserType) ([]types.User, error)
	Authenticate(ctx context.Context, username, password string) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	SetPassword(ctx context.Context, id, password string) error
	Remove(ctx context.Context, username string) error
	SetSession(ctx context.Context, userID string) error
	GetSession(ctx context.Context) (types.User, error)
	ClearSession(ctx context.Context) error
}

// RegisterInput is the data a new account is created from. Children only
// apply to parents; email, university and field only to doctors.
type RegisterInput struct {
	Type       types.UserType `json:"type" validate:"omitempty,oneof=normal doctor"`
	Username   string         `json:"username" validate:"required,max=64"`
	Password   string         `json:"password" validate:"required,max=72"`
	Children   []types.Child  `json:"children" validate:"omitempty,max=20,dive"`
	Email      string         `json:"email" validate:"omitempty,email"`
	University string         `json:"university" validate:"max=200"`
	Field      string         `json:"field" validate:"max=200"`
	Avatar     string         `json:"avatar" validate:"max=2048"`
}

// ProfileInput replaces the editable part of a profile.
type ProfileInput struct {
	Username   string        `json:"username" validate:"required,max=64"`
	Children   []types.Child `json:"children" validate:"omitempty,max=20,dive"`
	Email      string        `json:"email" validate:"omitempty,email"`
	University string        `json:"university" validate:"max=200"`
	Field      string        `json:"field" validate:"max=200"`
	Avatar     string        `json:"avatar" validate:"max=2048"`
}

// PasswordInput changes a password after checking the current one.
type PasswordInput struct {
	Current string `json:"currentPassword" validate:"required"`
	New     string `json:"newPassword" validate:"required,max=72"`
}

// UserService encapsulates account and session use-cases.
type UserService struct {
	repo   UserRepository
	logger *slog.Logger
}

func NewUserService(repo UserRepository, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, logger: loggerOrDefault(logger)}
}

// Register creates an account and starts a session for it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateInput(in); err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Register(ctx, types.User{
		Type:       in.Type,
		Username:   in.Username,
		Children:   in.Children,
		Email:      in.Email,
		University: in.University,
		Field:      in.Field,
		Avatar:     in.Avatar,
	}, in.Password)
	if err != nil {
		return types.User{}, err
	}
	if err := s.repo.SetSession(ctx, user.ID); err != nil {
		return types.User{}, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "type", user.Type)
	return user, nil
}

// Login checks credentials and makes the user the active session.
func (s *UserService) Login(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.User{}, store.ErrInvalidCredentials
	}
	user, err := s.repo.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			s.logger.InfoContext(ctx, "login failed", "username", username)
		}
		return types.User{}, err
	}
	if err := s.repo.SetSession(ctx, user.ID); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Logout ends the active session. The account is kept.
func (s *UserService) Logout(ctx context.Context) error {
	return s.repo.ClearSession(ctx)
}

// Session returns the user of the active session.
func (s *UserService) Session(ctx context.Context) (types.User, error) {
	return s.repo.GetSession(ctx)
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// ListDoctors returns every doctor account in registration order.
func (s *UserService) ListDoctors(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx, types.UserTypeDoctor)
}

// UpdateProfile replaces the editable profile fields of a user.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (types.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateInput(in); err != nil {
		return types.User{}, err
	}

	current, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}
	current.Username = in.Username
	current.Children = in.Children
	current.Email = in.Email
	current.University = in.University
	current.Field = in.Field
	current.Avatar = in.Avatar
	return s.repo.Update(ctx, current)
}

// ChangePassword replaces the password once the current one is confirmed.
func (s *UserService) ChangePassword(ctx context.Context, userID string, in PasswordInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.repo.Authenticate(ctx, user.Username, in.Current); err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, userID, in.New)
}

// DeleteAccount removes the user. A session pointing at the user ends with it.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.Remove(ctx, user.Username); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", userID)
	return nil
}
