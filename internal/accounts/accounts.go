// Package accounts registers users, logs them in and administers their
// profiles.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/auth"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store"
	"github.com/safar/shop-api/internal/validate"
)

const msgBadCredentials = "Invalid email or password"

type RegisterCommand struct {
	UserName    string     `json:"userName" validate:"required"`
	Email       string     `json:"email" validate:"required,email"`
	Phone       string     `json:"phone"`
	Password    string     `json:"password" validate:"required,min=6"`
	FullName    string     `json:"fullName"`
	Address     string     `json:"address"`
	Avatar      string     `json:"avatar"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

type LoginCommand struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateCommand carries the target id in the body; nil fields are left as is.
type UpdateCommand struct {
	ID          string       `json:"id" validate:"required"`
	UserName    *string      `json:"userName"`
	Email       *string      `json:"email" validate:"omitempty,email"`
	Phone       *string      `json:"phone"`
	Password    *string      `json:"password" validate:"omitempty,min=6"`
	FullName    *string      `json:"fullName"`
	Address     *string      `json:"address"`
	Avatar      *string      `json:"avatar"`
	DateOfBirth *time.Time   `json:"dateOfBirth"`
	Role        *models.Role `json:"role"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role models.Role
}

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Service struct {
	store  store.UserStore
	hasher *auth.Hasher
	tokens *auth.Issuer
	log    logrus.FieldLogger
}

func NewService(st store.UserStore, hasher *auth.Hasher, tokens *auth.Issuer, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: st, hasher: hasher, tokens: tokens, log: log}
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*models.User, error) {
	const op = "accounts.Register"

	cmd.UserName = strings.TrimSpace(cmd.UserName)
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	cmd.Phone = strings.TrimSpace(cmd.Phone)
	if err := validate.Struct(op, cmd); err != nil {
		return nil, err
	}

	exists, err := s.store.UserExists(ctx, cmd.UserName, cmd.Email, cmd.Phone)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if exists {
		return nil, apperr.Conflict(op, "User already exists")
	}

	hashed, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	u := &models.User{
		UserName:    cmd.UserName,
		Email:       cmd.Email,
		Phone:       cmd.Phone,
		Password:    hashed,
		Role:        models.RoleMember,
		FullName:    cmd.FullName,
		Address:     cmd.Address,
		Avatar:      cmd.Avatar,
		DateOfBirth: cmd.DateOfBirth,
		Status:      true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict(op, "User already exists")
		}
		return nil, apperr.Internal(op, err)
	}

	s.log.WithFields(logrus.Fields{"user_id": u.ID, "user_name": u.UserName}).Info("user registered")
	return u, nil
}

// EnsureAdmin creates an admin account for email unless a user with that
// email already exists.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	const op = "accounts.EnsureAdmin"

	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.store.FindUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal(op, err)
	}

	name := email
	if i := strings.Index(email, "@"); i > 0 {
		name = email[:i]
	}
	u, err := s.Register(ctx, RegisterCommand{UserName: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	admin := models.RoleAdmin
	u, err = s.store.UpdateUser(ctx, u.ID, store.UserPatch{Role: &admin})
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	s.log.WithField("user_id", u.ID).Info("admin account created")
	return u, nil
}

func (s *Service) Login(ctx context.Context, cmd LoginCommand) (*Session, error) {
	const op = "accounts.Login"

	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	if err := validate.Struct(op, cmd); err != nil {
		return nil, err
	}

	u, err := s.store.FindUserByEmail(ctx, cmd.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthorized(op, msgBadCredentials)
		}
		return nil, apperr.Internal(op, err)
	}

	ok, err := s.hasher.Check(u.Password, cmd.Password)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if !ok {
		return nil, apperr.Unauthorized(op, msgBadCredentials)
	}
	if !u.Status {
		return nil, apperr.Forbidden(op, "Account is disabled")
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	s.log.WithField("user_id", u.ID).Info("user logged in")
	return &Session{Token: token, User: u}, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("accounts.List", err)
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, userError("accounts.Get", id, err)
	}
	return u, nil
}

// Update lets members edit their own profile and admins edit anyone,
// including roles.
func (s *Service) Update(ctx context.Context, actor Actor, cmd UpdateCommand) (*models.User, error) {
	const op = "accounts.Update"

	if err := validate.Struct(op, cmd); err != nil {
		return nil, err
	}
	isAdmin := actor.Role == models.RoleAdmin
	if !isAdmin && actor.ID != cmd.ID {
		return nil, apperr.Forbidden(op, "You can only update your own account")
	}
	if cmd.Role != nil && !isAdmin {
		return nil, apperr.Forbidden(op, "Only admins can change roles")
	}
	if cmd.Role != nil && *cmd.Role != models.RoleAdmin && *cmd.Role != models.RoleMember {
		return nil, apperr.Validation(op, "role must be one of 0, 1")
	}

	patch := store.UserPatch{
		UserName:    trimmed(cmd.UserName),
		Phone:       trimmed(cmd.Phone),
		FullName:    cmd.FullName,
		Address:     cmd.Address,
		Avatar:      cmd.Avatar,
		DateOfBirth: cmd.DateOfBirth,
		Role:        cmd.Role,
	}
	if patch.UserName != nil && *patch.UserName == "" {
		return nil, apperr.Validation(op, "userName must not be empty")
	}
	if cmd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*cmd.Email))
		patch.Email = &email
	}
	if cmd.Password != nil {
		hashed, err := s.hasher.Hash(*cmd.Password)
		if err != nil {
			return nil, apperr.Internal(op, err)
		}
		patch.Password = &hashed
	}

	u, err := s.store.UpdateUser(ctx, cmd.ID, patch)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict(op, "User already exists")
		}
		return nil, userError(op, cmd.ID, err)
	}

	s.log.WithFields(logrus.Fields{"user_id": u.ID, "actor_id": actor.ID}).Info("user updated")
	return u, nil
}

func (s *Service) ChangeStatus(ctx context.Context, id string, status bool) (*models.User, error) {
	const op = "accounts.ChangeStatus"

	u, err := s.store.SetUserStatus(ctx, id, status)
	if err != nil {
		return nil, userError(op, id, err)
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "status": status}).Info("user status changed")
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) (*models.User, error) {
	const op = "accounts.Delete"

	u, err := s.store.DeleteUser(ctx, id)
	if err != nil {
		return nil, userError(op, id, err)
	}

	s.log.WithField("user_id", id).Info("user deleted")
	return u, nil
}

func userError(op, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(op, "User with ID %s not found", id)
	}
	return apperr.Internal(op, err)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
