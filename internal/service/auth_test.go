package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skarpov/webauth/internal/models"
	"github.com/skarpov/webauth/internal/repo"
	"github.com/skarpov/webauth/internal/tokens"
	"github.com/skarpov/webauth/internal/validation"
)

// fakeStore is an in-memory stand-in for both repositories.
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	refresh map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[string]*models.User),
		refresh: make(map[string]string),
	}
}

func (f *fakeStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Username]; ok {
		return repo.ErrUserExists
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return repo.ErrUserExists
		}
	}
	user.CreatedAt = time.Now()
	copied := *user
	f.users[user.Username] = &copied
	return nil
}

func (f *fakeStore) InsertRefreshToken(_ context.Context, username, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[username] = token
	return nil
}

func (f *fakeStore) VerifyRefreshToken(_ context.Context, username, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.refresh[username]
	return ok && stored == token, nil
}

func (f *fakeStore) DeleteRefreshToken(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refresh, username)
	return nil
}

func newTestService() (*AuthService, *fakeStore) {
	store := newFakeStore()
	svc := &AuthService{
		Users:  store,
		Tokens: store,
		Codec:  tokens.NewCodec([]byte("test-secret"), 15*time.Minute, 7*24*time.Hour),
	}
	return svc, store
}

func mustRegister(t *testing.T, svc *AuthService) {
	t.Helper()
	_, err := svc.Register(context.Background(), "alice", "alice@x.com", "Abc12345")
	require.NoError(t, err)
}

func TestRegister_ReturnsView(t *testing.T) {
	t.Parallel()

	svc, store := newTestService()
	view, err := svc.Register(context.Background(), "alice", "Alice@X.com", "Abc12345")
	require.NoError(t, err)

	assert.Equal(t, "alice", view.Username)
	assert.Equal(t, "alice@x.com", view.Email)
	assert.Equal(t, []string{"user"}, view.Roles)
	assert.False(t, view.CreatedAt.IsZero())

	// The stored hash is never the plaintext.
	assert.NotEqual(t, "Abc12345", store.users["alice"].PasswordHash)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	mustRegister(t, svc)

	_, err := svc.Register(context.Background(), "alice", "alice2@x.com", "Abc12345")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegister_ValidationBeforeHashing(t *testing.T) {
	t.Parallel()

	svc, store := newTestService()

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{name: "short password", username: "alice", email: "alice@x.com", password: "short1"},
		{name: "no uppercase", username: "alice", email: "alice@x.com", password: "alllowercase1"},
		{name: "bad email", username: "alice", email: "not-an-email", password: "Abc12345"},
		{name: "short username", username: "al", email: "alice@x.com", password: "Abc12345"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, tt.email, tt.password)
			require.Error(t, err)
			assert.ErrorIs(t, err, validation.ErrValidation)
		})
	}
	assert.Empty(t, store.users)
}

func TestLogin_IssuesTypedTokenPair(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	mustRegister(t, svc)

	res, err := svc.Login(context.Background(), "alice", "Abc12345")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)

	access, err := svc.Codec.Decode(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.TypeAccess, access.Type)
	assert.Equal(t, "alice", access.Subject)

	refresh, err := svc.Codec.Decode(res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.TypeRefresh, refresh.Type)
	assert.Equal(t, "alice", refresh.Subject)
}

func TestLogin_UniformErrorForUnknownUserAndBadPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	mustRegister(t, svc)

	_, errUnknown := svc.Login(context.Background(), "nobody", "Abc12345")
	_, errBadPass := svc.Login(context.Background(), "alice", "Wrong1234")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errBadPass, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errBadPass.Error())
}

func TestLogin_RotatesRefreshToken(t *testing.T) {
	t.Parallel()

	svc, store := newTestService()
	mustRegister(t, svc)
	ctx := context.Background()

	first, err := svc.Login(ctx, "alice", "Abc12345")
	require.NoError(t, err)

	second, err := svc.Login(ctx, "alice", "Abc12345")
	require.NoError(t, err)

	// The earlier session's refresh token is superseded.
	ok, err := store.VerifyRefreshToken(ctx, "alice", first.RefreshToken)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	mustRegister(t, svc)

	res, err := svc.Login(context.Background(), "alice", "Abc12345")
	require.NoError(t, err)

	// Valid signature, wrong declared type.
	_, _, err = svc.Refresh(context.Background(), res.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_IssuesNewAccessToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	mustRegister(t, svc)

	res, err := svc.Login(context.Background(), "alice", "Abc12345")
	require.NoError(t, err)

	accessToken, exp, err := svc.Refresh(context.Background(), res.RefreshToken)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 2*time.Second)

	claims, err := svc.Codec.Decode(accessToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.TypeAccess, claims.Type)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []string{"user"}, claims.Roles)
}

func TestRefresh_GarbageToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	_, _, err := svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_InvalidatesRefreshToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	mustRegister(t, svc)
	ctx := context.Background()

	res, err := svc.Login(ctx, "alice", "Abc12345")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, "alice"))

	_, _, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Logging out twice is a no-op.
	require.NoError(t, svc.Logout(ctx, "alice"))
}
