package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/safar/shop-api/internal/apperr"
	"github.com/safar/shop-api/internal/auth"
	"github.com/safar/shop-api/internal/logger"
	"github.com/safar/shop-api/internal/models"
	"github.com/safar/shop-api/internal/store/memstore"
)

func newService(t *testing.T) (*Service, *auth.Issuer) {
	t.Helper()
	tokens := auth.NewIssuer("test-secret", time.Hour)
	return NewService(memstore.New(), auth.NewHasher(bcrypt.MinCost), tokens, logger.Discard()), tokens
}

func register(t *testing.T, svc *Service, name string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterCommand{
		UserName: name,
		Email:    name + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return u
}

func strPtr(s string) *string { return &s }

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	u, err := svc.Register(ctx, RegisterCommand{
		UserName: "alice",
		Email:    " Alice@Example.com ",
		Phone:    "555-0100",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, models.RoleMember, u.Role)
	assert.True(t, u.Status)
	assert.NotEqual(t, "secret123", u.Password)

	tests := []struct {
		name string
		cmd  RegisterCommand
		kind apperr.Kind
	}{
		{"duplicate userName", RegisterCommand{UserName: "alice", Email: "other@example.com", Password: "secret123"}, apperr.KindConflict},
		{"duplicate email", RegisterCommand{UserName: "bob", Email: "alice@example.com", Password: "secret123"}, apperr.KindConflict},
		{"duplicate phone", RegisterCommand{UserName: "bob", Email: "bob@example.com", Phone: "555-0100", Password: "secret123"}, apperr.KindConflict},
		{"bad email", RegisterCommand{UserName: "bob", Email: "not-an-email", Password: "secret123"}, apperr.KindValidation},
		{"short password", RegisterCommand{UserName: "bob", Email: "bob@example.com", Password: "123"}, apperr.KindValidation},
		{"missing userName", RegisterCommand{Email: "bob@example.com", Password: "secret123"}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.cmd)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newService(t)
	u := register(t, svc, "carol")

	session, err := svc.Login(ctx, LoginCommand{Email: "CAROL@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, session.User.ID)

	claims, err := tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, models.RoleMember, claims.Role)

	_, err = svc.Login(ctx, LoginCommand{Email: "carol@example.com", Password: "wrong-pass"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.Login(ctx, LoginCommand{Email: "nobody@example.com", Password: "secret123"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.Login(ctx, LoginCommand{Email: "carol@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.ChangeStatus(ctx, u.ID, false)
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginCommand{Email: "carol@example.com", Password: "secret123"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	dave := register(t, svc, "dave")
	erin := register(t, svc, "erin")
	self := Actor{ID: dave.ID, Role: models.RoleMember}

	updated, err := svc.Update(ctx, self, UpdateCommand{ID: dave.ID, FullName: strPtr("Dave D"), Password: strPtr("newsecret")})
	require.NoError(t, err)
	assert.Equal(t, "Dave D", updated.FullName)

	_, err = svc.Login(ctx, LoginCommand{Email: "dave@example.com", Password: "newsecret"})
	require.NoError(t, err, "password is re-hashed on update")

	_, err = svc.Update(ctx, self, UpdateCommand{ID: erin.ID, FullName: strPtr("x")})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	admin := models.RoleAdmin
	_, err = svc.Update(ctx, self, UpdateCommand{ID: dave.ID, Role: &admin})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.Update(ctx, self, UpdateCommand{ID: dave.ID, UserName: strPtr("erin")})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	root := Actor{ID: "root", Role: models.RoleAdmin}
	promoted, err := svc.Update(ctx, root, UpdateCommand{ID: erin.ID, Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	_, err = svc.Update(ctx, root, UpdateCommand{ID: "missing", FullName: strPtr("x")})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAdministration(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	frank := register(t, svc, "frank")
	register(t, svc, "grace")

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	got, err := svc.Get(ctx, frank.ID)
	require.NoError(t, err)
	assert.Equal(t, "frank", got.UserName)

	disabled, err := svc.ChangeStatus(ctx, frank.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.Status)

	deleted, err := svc.Delete(ctx, frank.ID)
	require.NoError(t, err)
	assert.Equal(t, frank.ID, deleted.ID)

	_, err = svc.Get(ctx, frank.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.EqualError(t, err, "User with ID "+frank.ID+" not found")

	_, err = svc.Delete(ctx, frank.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.ChangeStatus(ctx, "missing", true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	admin, err := svc.EnsureAdmin(ctx, "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "root", admin.UserName)

	again, err := svc.EnsureAdmin(ctx, "root@example.com", "ignored")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	session, err := svc.Login(ctx, LoginCommand{Email: "root@example.com", Password: "rootpass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, session.User.Role)
}
