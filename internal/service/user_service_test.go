package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ecole-adm-api/internal/models"
	appErrors "github.com/noah-isme/ecole-adm-api/pkg/errors"
)

type mockUserRepo struct {
	users   map[string]*models.User
	revoked map[string]int
	seq     int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User), revoked: make(map[string]int)}
}

func (m *mockUserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *u
	return &copy, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	m.seq++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) RevokeAllForUser(_ context.Context, userID string) error {
	m.revoked[userID]++
	return nil
}

func newUserFixture() (*UserService, *mockUserRepo, *journalSpy) {
	repo := newMockUserRepo()
	journal := &journalSpy{}
	svc := NewUserService(repo, journal, nil, nil)
	return svc, repo, journal
}

func TestCreateUserLowercasesEmail(t *testing.T) {
	svc, repo, journal := newUserFixture()

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "Admin@Ecole.Test",
		FullName: "Admin Principal",
		Role:     models.RoleAdmin,
		Active:   true,
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@ecole.test", user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[user.ID].PasswordHash), []byte("secret123")))
	require.Len(t, journal.entries, 1)
	assert.Equal(t, models.JournalActionCreation, journal.entries[0].Action)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newUserFixture()

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "admin@ecole.test",
		FullName: "Admin Principal",
		Role:     models.RoleAdmin,
		Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserRequest{
		Email:    "admin@ecole.test",
		FullName: "Autre Admin",
		Role:     models.RoleComptable,
		Password: "secret456",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newUserFixture()

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "x@ecole.test",
		FullName: "X",
		Role:     models.UserRole("INTENDANT"),
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateUserDeactivationRevokesSessions(t *testing.T) {
	svc, repo, _ := newUserFixture()

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "prof@ecole.test",
		FullName: "Prof",
		Role:     models.RoleProfesseur,
		Active:   true,
		Password: "secret123",
	})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(context.Background(), user.ID, UpdateUserRequest{
		FullName: "Prof Renomme",
		Role:     models.RoleProfesseur,
		Active:   &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, 1, repo.revoked[user.ID])
}

func TestUpdateUserKeepsActiveWhenOmitted(t *testing.T) {
	svc, repo, _ := newUserFixture()

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "prof@ecole.test",
		FullName: "Prof",
		Role:     models.RoleProfesseur,
		Active:   true,
		Password: "secret123",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), user.ID, UpdateUserRequest{
		FullName: "Prof Renomme",
		Role:     models.RoleSurveillant,
	})
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.Equal(t, models.RoleSurveillant, updated.Role)
	assert.Zero(t, repo.revoked[user.ID])
}

func TestDeactivateIdempotent(t *testing.T) {
	svc, repo, journal := newUserFixture()

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "prof@ecole.test",
		FullName: "Prof",
		Role:     models.RoleProfesseur,
		Active:   true,
		Password: "secret123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), user.ID, nil))
	assert.False(t, repo.users[user.ID].Active)
	assert.Equal(t, 1, repo.revoked[user.ID])
	entries := len(journal.entries)

	// Already inactive: nothing changes, no journal entry.
	require.NoError(t, svc.Deactivate(context.Background(), user.ID, nil))
	assert.Equal(t, 1, repo.revoked[user.ID])
	assert.Len(t, journal.entries, entries)
}

func TestResetPasswordMasksJournalSnapshot(t *testing.T) {
	svc, repo, journal := newUserFixture()

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Email:    "prof@ecole.test",
		FullName: "Prof",
		Role:     models.RoleProfesseur,
		Active:   true,
		Password: "secret123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(context.Background(), user.ID, ResetUserPasswordRequest{Password: "fresh-pass"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[user.ID].PasswordHash), []byte("fresh-pass")))
	assert.Equal(t, 1, repo.revoked[user.ID])

	last := journal.entries[len(journal.entries)-1]
	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal(last.Apres, &snapshot))
	assert.Equal(t, models.MasqueChampSensible, snapshot["password"])
}

func TestGetUserNotFound(t *testing.T) {
	svc, _, _ := newUserFixture()

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
