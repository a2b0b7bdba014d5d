package platformadmin

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tessera-io/tessera/internal/platform/httpx"
)

type mockRepository struct {
	admins    map[string]Admin
	existsErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{admins: make(map[string]Admin)}
}

func (m *mockRepository) Create(ctx context.Context, userID, createdBy string) (Admin, error) {
	admin := Admin{ID: uuid.New(), UserID: userID, CreatedBy: createdBy}
	m.admins[userID] = admin
	return admin, nil
}

func (m *mockRepository) Get(ctx context.Context, userID string) (Admin, error) {
	admin, ok := m.admins[userID]
	if !ok {
		return Admin{}, httpx.ErrNotFound
	}
	return admin, nil
}

func (m *mockRepository) List(ctx context.Context) ([]Admin, error) {
	out := make([]Admin, 0, len(m.admins))
	for _, admin := range m.admins {
		out = append(out, admin)
	}
	return out, nil
}

func (m *mockRepository) Delete(ctx context.Context, userID string) error {
	if _, ok := m.admins[userID]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.admins, userID)
	return nil
}

func (m *mockRepository) Exists(ctx context.Context, userID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.admins[userID]
	return ok, nil
}

func (m *mockRepository) Count(ctx context.Context) (int, error) {
	return len(m.admins), nil
}

func TestCreateAdmin(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	admin, err := svc.Create(ctx, CreateAdminRequest{UserID: "root-1"}, "bootstrap")
	require.NoError(t, err)
	require.Equal(t, "root-1", admin.UserID)
	require.Equal(t, "bootstrap", admin.CreatedBy)

	_, err = svc.Create(ctx, CreateAdminRequest{UserID: "root-1"}, "root-1")
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestCreateAdminRejectsBlankUser(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.Create(context.Background(), CreateAdminRequest{UserID: "   "}, "x")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestIsPlatformAdmin(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	ok, err := svc.IsPlatformAdmin(ctx, "root-1")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.Create(ctx, CreateAdminRequest{UserID: "root-1"}, "bootstrap")
	require.NoError(t, err)

	ok, err = svc.IsPlatformAdmin(ctx, "root-1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsPlatformAdminPropagatesStorageError(t *testing.T) {
	repo := newMockRepository()
	repo.existsErr = errors.New("connection refused")
	svc := NewService(repo)

	_, err := svc.IsPlatformAdmin(context.Background(), "root-1")
	require.Error(t, err)
}

func TestDeleteAdminKeepsLastOne(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateAdminRequest{UserID: "root-1"}, "bootstrap")
	require.NoError(t, err)

	err = svc.Delete(ctx, "root-1")
	require.ErrorIs(t, err, httpx.ErrConflict)
	require.Contains(t, repo.admins, "root-1")

	_, err = svc.Create(ctx, CreateAdminRequest{UserID: "root-2"}, "root-1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "root-1"))
	require.NotContains(t, repo.admins, "root-1")
}

func TestDeleteAdminNotFound(t *testing.T) {
	svc := NewService(newMockRepository())
	require.ErrorIs(t, svc.Delete(context.Background(), "ghost"), httpx.ErrNotFound)
}
