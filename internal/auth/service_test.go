package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/auth"
	"github.com/noah-isme/miniapp-shop/internal/common"
	"github.com/noah-isme/miniapp-shop/internal/user"
)

type memUsers struct {
	byEmail map[string]user.User
	byID    map[uuid.UUID]user.User
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: make(map[string]user.User), byID: make(map[uuid.UUID]user.User)}
}

func (m *memUsers) CreateUser(_ context.Context, u *user.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	m.byEmail[u.Email] = *u
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetUser(_ context.Context, id uuid.UUID) (user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(auth.Config{
		Users:          newMemUsers(),
		Secret:         "test-secret-please-rotate",
		AccessTokenTTL: 15 * time.Minute,
		Issuer:         "miniapp-shop",
		Audience:       "miniapp-shop",
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterLoginParseRoundTrip(t *testing.T) {
	t.Parallel()
	svc := newAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "Siti", "Siti@Example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "siti@example.com", registered.Email)

	result, err := svc.Login(ctx, "siti@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, registered.ID, result.User.ID)

	subject, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, registered.ID.String(), subject)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "a@b.com", "password1")
	requireAppErrorCode(t, err, "VALIDATION_ERROR")

	_, err = svc.Register(ctx, "A", "a@b.com", "short")
	requireAppErrorCode(t, err, "VALIDATION_ERROR")

	_, err = svc.Register(ctx, "A", "dup@b.com", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "B", "DUP@b.com", "password2")
	requireAppErrorCode(t, err, "EMAIL_TAKEN")
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Siti", "siti@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "siti@example.com", "wrong-horse")
	requireAppErrorCode(t, err, "INVALID_CREDENTIALS")

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	requireAppErrorCode(t, err, "INVALID_CREDENTIALS")
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Parallel()
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Siti", "siti@example.com", "correct-horse")
	require.NoError(t, err)
	result, err := svc.Login(ctx, "siti@example.com", "correct-horse")
	require.NoError(t, err)

	svc.WithNow(func() time.Time { return result.ExpiresAt.Add(2 * time.Minute) })
	_, err = svc.ParseAccessToken(result.AccessToken)
	requireAppErrorCode(t, err, "UNAUTHORIZED")
}

func TestParseRejectsForeignIssuer(t *testing.T) {
	t.Parallel()
	users := newMemUsers()
	mint := func(issuer string) string {
		svc, err := auth.NewService(auth.Config{
			Users:    users,
			Secret:   "test-secret-please-rotate",
			Issuer:   issuer,
			Audience: issuer,
		})
		require.NoError(t, err)
		_, _ = svc.Register(context.Background(), "Siti", issuer+"@example.com", "correct-horse")
		result, err := svc.Login(context.Background(), issuer+"@example.com", "correct-horse")
		require.NoError(t, err)
		return result.AccessToken
	}

	svc := newAuthService(t)
	// Same secret, wrong issuer/audience: the claim check must reject it.
	_, err := svc.ParseAccessToken(mint("other-app"))
	requireAppErrorCode(t, err, "UNAUTHORIZED")
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()
	svc := newAuthService(t)

	for _, token := range []string{"", "   ", "not.a.jwt", "eyJhbGciOiJub25lIn0.e30."} {
		_, err := svc.ParseAccessToken(token)
		requireAppErrorCode(t, err, "UNAUTHORIZED")
	}
}

func requireAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
}
