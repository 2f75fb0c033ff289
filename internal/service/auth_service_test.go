package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type mockAuthUserRepo struct {
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken
}

func newMockAuthUserRepo() *mockAuthUserRepo {
	return &mockAuthUserRepo{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
}

func (m *mockAuthUserRepo) addUser(email, password string, active bool) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         models.RoleAdmin,
		Active:       active,
	}
	m.users[user.ID] = user
	return user
}

func (m *mockAuthUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *u
	return &copy, nil
}

func (m *mockAuthUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.LastLogin = &at
	return nil
}

func (m *mockAuthUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockAuthUserRepo) RevokeAllForUser(_ context.Context, userID string) error {
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthUserRepo) SaveRefreshToken(_ context.Context, token *models.RefreshToken) error {
	stored := *token
	m.tokens[token.Token] = &stored
	return nil
}

func (m *mockAuthUserRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *t
	return &copy, nil
}

func (m *mockAuthUserRepo) RevokeRefreshToken(_ context.Context, token string) error {
	t, ok := m.tokens[token]
	if !ok {
		return sql.ErrNoRows
	}
	t.Revoked = true
	return nil
}

func newAuthFixture() (*AuthService, *mockAuthUserRepo, *journalSpy) {
	repo := newMockAuthUserRepo()
	journal := &journalSpy{}
	svc := NewAuthService(repo, journal, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "ecole-adm-api",
	})
	return svc, repo, journal
}

func TestLoginSuccess(t *testing.T) {
	svc, repo, journal := newAuthFixture()
	user := repo.addUser("admin@ecole.test", "secret123", true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ecole.test",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, int64(900), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	require.Len(t, journal.entries, 1)
	assert.Equal(t, models.JournalActionConnexion, journal.entries[0].Action)
}

func TestLoginInvalidPassword(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	repo.addUser("admin@ecole.test", "secret123", true)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ecole.test",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@ecole.test",
		Password: "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	repo.addUser("former@ecole.test", "secret123", false)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "former@ecole.test",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	repo.addUser("admin@ecole.test", "secret123", true)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ecole.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token is single-use.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	user := repo.addUser("admin@ecole.test", "secret123", true)

	expired := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     "expired-token",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, repo.SaveRefreshToken(context.Background(), expired))

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: "expired-token",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	repo.addUser("admin@ecole.test", "secret123", true)
	other := repo.addUser("other@ecole.test", "secret123", true)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ecole.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, other.ID, models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	user := repo.addUser("admin@ecole.test", "secret123", true)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ecole.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, user.ID, models.LoginRequest{}))
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	user := repo.addUser("admin@ecole.test", "secret123", true)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ecole.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret",
	}))
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ecole.test",
		Password: "newsecret",
	})
	assert.NoError(t, err)
}

func TestSingleSessionRevokesPreviousTokens(t *testing.T) {
	repo := newMockAuthUserRepo()
	journal := &journalSpy{}
	svc := NewAuthService(repo, journal, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		SingleSession:      true,
	})
	repo.addUser("admin@ecole.test", "secret123", true)

	first, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ecole.test",
		Password: "secret123",
	})
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@ecole.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.True(t, repo.tokens[first.RefreshToken].Revoked)
}
