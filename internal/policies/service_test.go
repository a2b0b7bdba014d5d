package policies

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tessera-io/tessera/internal/permissions"
	"github.com/tessera-io/tessera/internal/platform/httpx"
)

type mockRepository struct {
	policies map[uuid.UUID]Policy
	grants   map[uuid.UUID][]uuid.UUID
	known    map[uuid.UUID]permissions.Key
	roleRefs map[uuid.UUID]int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		policies: make(map[uuid.UUID]Policy),
		grants:   make(map[uuid.UUID][]uuid.UUID),
		known:    make(map[uuid.UUID]permissions.Key),
		roleRefs: make(map[uuid.UUID]int),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	// Validation happens before any insert, so a failed batch leaves the
	// maps untouched just like a rolled back transaction would.
	return fn(ctx, m)
}

func (m *mockRepository) Create(ctx context.Context, p Policy) (Policy, error) {
	p.ID = uuid.New()
	m.policies[p.ID] = p
	return p, nil
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (Policy, error) {
	p, ok := m.policies[id]
	if !ok {
		return Policy{}, httpx.ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) List(ctx context.Context, tenantID *uuid.UUID) ([]Policy, error) {
	var out []Policy
	for _, p := range m.policies {
		if p.IsSystem {
			out = append(out, p)
			continue
		}
		if tenantID != nil && p.TenantID != nil && *p.TenantID == *tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepository) Update(ctx context.Context, p Policy) (Policy, error) {
	if _, ok := m.policies[p.ID]; !ok {
		return Policy{}, httpx.ErrNotFound
	}
	m.policies[p.ID] = p
	return p, nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.policies[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.policies, id)
	delete(m.grants, id)
	return nil
}

func (m *mockRepository) CountRoleReferences(ctx context.Context, id uuid.UUID) (int, error) {
	return m.roleRefs[id], nil
}

func (m *mockRepository) ExistingPermissionIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	out := make(map[uuid.UUID]struct{})
	for _, id := range ids {
		if _, ok := m.known[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *mockRepository) InsertPermissions(ctx context.Context, policyID uuid.UUID, ids []uuid.UUID) error {
	for _, id := range ids {
		duplicate := false
		for _, existing := range m.grants[policyID] {
			if existing == id {
				duplicate = true
				break
			}
		}
		if !duplicate {
			m.grants[policyID] = append(m.grants[policyID], id)
		}
	}
	return nil
}

func (m *mockRepository) RemovePermission(ctx context.Context, policyID, permissionID uuid.UUID) error {
	granted := m.grants[policyID]
	for i, id := range granted {
		if id == permissionID {
			m.grants[policyID] = append(granted[:i], granted[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockRepository) EffectivePermissions(ctx context.Context, policyID uuid.UUID) ([]permissions.Key, error) {
	var out []permissions.Key
	for _, id := range m.grants[policyID] {
		out = append(out, m.known[id])
	}
	return out, nil
}

func (m *mockRepository) addPermission(key permissions.Key) uuid.UUID {
	id := uuid.New()
	m.known[id] = key
	return id
}

type recordingInvalidator struct {
	calls int
}

func (r *recordingInvalidator) GraphChanged(ctx context.Context) {
	r.calls++
}

func TestCreatePolicyScoping(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	system, err := svc.Create(ctx, CreatePolicyRequest{Name: "base-access"})
	require.NoError(t, err)
	require.True(t, system.IsSystem)
	require.Nil(t, system.TenantID)

	tenant := uuid.New()
	owned, err := svc.Create(ctx, CreatePolicyRequest{Name: "custom", TenantID: &tenant})
	require.NoError(t, err)
	require.False(t, owned.IsSystem)
	require.Equal(t, tenant, *owned.TenantID)
}

func TestAssignPermissionsAtomicBatch(t *testing.T) {
	repo := newMockRepository()
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv)
	ctx := context.Background()

	policy, err := svc.Create(ctx, CreatePolicyRequest{Name: "billing"})
	require.NoError(t, err)

	valid := repo.addPermission(permissions.Key{Service: "billing", Entity: "invoice", Action: "read"})
	missing := uuid.New()

	err = svc.AssignPermissions(ctx, policy.ID, AssignPermissionsRequest{
		PermissionIDs: []uuid.UUID{valid, missing},
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Empty(t, repo.grants[policy.ID], "failed batch must not grant anything")
	require.Zero(t, inv.calls)

	err = svc.AssignPermissions(ctx, policy.ID, AssignPermissionsRequest{
		PermissionIDs: []uuid.UUID{valid},
	})
	require.NoError(t, err)
	require.Len(t, repo.grants[policy.ID], 1)
	require.Equal(t, 1, inv.calls)
}

func TestAssignPermissionsSkipsDuplicates(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	policy, err := svc.Create(ctx, CreatePolicyRequest{Name: "billing"})
	require.NoError(t, err)
	perm := repo.addPermission(permissions.Key{Service: "billing", Entity: "invoice", Action: "read"})

	require.NoError(t, svc.AssignPermissions(ctx, policy.ID, AssignPermissionsRequest{PermissionIDs: []uuid.UUID{perm}}))
	require.NoError(t, svc.AssignPermissions(ctx, policy.ID, AssignPermissionsRequest{PermissionIDs: []uuid.UUID{perm}}))
	require.Len(t, repo.grants[policy.ID], 1)
}

func TestRevokePermissionIdempotent(t *testing.T) {
	repo := newMockRepository()
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv)
	ctx := context.Background()

	policy, err := svc.Create(ctx, CreatePolicyRequest{Name: "billing"})
	require.NoError(t, err)
	perm := repo.addPermission(permissions.Key{Service: "billing", Entity: "invoice", Action: "read"})
	require.NoError(t, svc.AssignPermissions(ctx, policy.ID, AssignPermissionsRequest{PermissionIDs: []uuid.UUID{perm}}))

	require.NoError(t, svc.RevokePermission(ctx, policy.ID, perm))
	require.Empty(t, repo.grants[policy.ID])

	// Revoking again is a no-op, not an error.
	require.NoError(t, svc.RevokePermission(ctx, policy.ID, perm))
}

func TestDeletePolicyRestrictedWhileReferenced(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	policy, err := svc.Create(ctx, CreatePolicyRequest{Name: "billing"})
	require.NoError(t, err)
	repo.roleRefs[policy.ID] = 1

	err = svc.Delete(ctx, policy.ID)
	require.ErrorIs(t, err, httpx.ErrReferenced)
	require.Contains(t, repo.policies, policy.ID)

	repo.roleRefs[policy.ID] = 0
	require.NoError(t, svc.Delete(ctx, policy.ID))
}

func TestListPoliciesTenantVisibility(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePolicyRequest{Name: "system"})
	require.NoError(t, err)
	tenantA := uuid.New()
	tenantB := uuid.New()
	_, err = svc.Create(ctx, CreatePolicyRequest{Name: "a-only", TenantID: &tenantA})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreatePolicyRequest{Name: "b-only", TenantID: &tenantB})
	require.NoError(t, err)

	visible, err := svc.List(ctx, &tenantA)
	require.NoError(t, err)
	require.Len(t, visible, 2, "tenant sees its own policies plus system ones")

	systemOnly, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, systemOnly, 1)
}
