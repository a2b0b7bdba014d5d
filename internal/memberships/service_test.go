package memberships

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tessera-io/tessera/internal/platform/httpx"
	"github.com/tessera-io/tessera/internal/roles"
)

type mockRepository struct {
	members map[string]Membership
}

func memberKey(tenantID uuid.UUID, userID string) string {
	return tenantID.String() + "/" + userID
}

func newMockRepository() *mockRepository {
	return &mockRepository{members: make(map[string]Membership)}
}

func (m *mockRepository) Create(ctx context.Context, member Membership) (Membership, error) {
	member.ID = uuid.New()
	m.members[memberKey(member.TenantID, member.UserID)] = member
	return member, nil
}

func (m *mockRepository) Get(ctx context.Context, tenantID uuid.UUID, userID string) (Membership, error) {
	member, ok := m.members[memberKey(tenantID, userID)]
	if !ok {
		return Membership{}, httpx.ErrNotFound
	}
	return member, nil
}

func (m *mockRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Membership, int, error) {
	var out []Membership
	for _, member := range m.members {
		if member.TenantID == tenantID {
			out = append(out, member)
		}
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockRepository) Update(ctx context.Context, member Membership) (Membership, error) {
	key := memberKey(member.TenantID, member.UserID)
	if _, ok := m.members[key]; !ok {
		return Membership{}, httpx.ErrNotFound
	}
	m.members[key] = member
	return member, nil
}

func (m *mockRepository) Delete(ctx context.Context, tenantID uuid.UUID, userID string) error {
	key := memberKey(tenantID, userID)
	if _, ok := m.members[key]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.members, key)
	return nil
}

type mockRoleDirectory struct {
	roles map[uuid.UUID]roles.Role
}

func newMockRoleDirectory() *mockRoleDirectory {
	return &mockRoleDirectory{roles: make(map[uuid.UUID]roles.Role)}
}

func (m *mockRoleDirectory) Get(ctx context.Context, id uuid.UUID) (roles.Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return roles.Role{}, httpx.ErrNotFound
	}
	return role, nil
}

func (m *mockRoleDirectory) add(role roles.Role) uuid.UUID {
	role.ID = uuid.New()
	m.roles[role.ID] = role
	return role.ID
}

func TestAddMember(t *testing.T) {
	repo := newMockRepository()
	dir := newMockRoleDirectory()
	svc := NewService(repo, dir)
	ctx := context.Background()

	tenant := uuid.New()
	roleID := dir.add(roles.Role{Name: "viewer", Type: roles.RoleTypeTenant})

	member, err := svc.Add(ctx, tenant, AddMemberRequest{UserID: "user-1", RoleID: roleID}, "admin-1")
	require.NoError(t, err)
	require.Equal(t, StatusActive, member.Status)
	require.Equal(t, "admin-1", *member.InvitedBy)
}

func TestAddMemberDuplicate(t *testing.T) {
	repo := newMockRepository()
	dir := newMockRoleDirectory()
	svc := NewService(repo, dir)
	ctx := context.Background()

	tenant := uuid.New()
	roleID := dir.add(roles.Role{Name: "viewer", Type: roles.RoleTypeTenant})

	_, err := svc.Add(ctx, tenant, AddMemberRequest{UserID: "user-1", RoleID: roleID}, "")
	require.NoError(t, err)

	_, err = svc.Add(ctx, tenant, AddMemberRequest{UserID: "user-1", RoleID: roleID}, "")
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestAddMemberRejectsPlatformRole(t *testing.T) {
	repo := newMockRepository()
	dir := newMockRoleDirectory()
	svc := NewService(repo, dir)
	ctx := context.Background()

	roleID := dir.add(roles.Role{Name: "operator", Type: roles.RoleTypePlatform})

	_, err := svc.Add(ctx, uuid.New(), AddMemberRequest{UserID: "user-1", RoleID: roleID}, "")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAddMemberRejectsForeignTenantRole(t *testing.T) {
	repo := newMockRepository()
	dir := newMockRoleDirectory()
	svc := NewService(repo, dir)
	ctx := context.Background()

	otherTenant := uuid.New()
	roleID := dir.add(roles.Role{Name: "custom", Type: roles.RoleTypeTenant, TenantID: &otherTenant})

	_, err := svc.Add(ctx, uuid.New(), AddMemberRequest{UserID: "user-1", RoleID: roleID}, "")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAddMemberUnknownRole(t *testing.T) {
	svc := NewService(newMockRepository(), newMockRoleDirectory())

	_, err := svc.Add(context.Background(), uuid.New(), AddMemberRequest{UserID: "user-1", RoleID: uuid.New()}, "")
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateMemberStatusAndRole(t *testing.T) {
	repo := newMockRepository()
	dir := newMockRoleDirectory()
	svc := NewService(repo, dir)
	ctx := context.Background()

	tenant := uuid.New()
	viewer := dir.add(roles.Role{Name: "viewer", Type: roles.RoleTypeTenant})
	manager := dir.add(roles.Role{Name: "manager", Type: roles.RoleTypeTenant})

	_, err := svc.Add(ctx, tenant, AddMemberRequest{UserID: "user-1", RoleID: viewer}, "")
	require.NoError(t, err)

	inactive := StatusInactive
	updated, err := svc.Update(ctx, tenant, "user-1", UpdateMemberRequest{RoleID: &manager, Status: &inactive})
	require.NoError(t, err)
	require.Equal(t, manager, updated.RoleID)
	require.Equal(t, StatusInactive, updated.Status)
}

func TestUpdateMemberUnknownStatus(t *testing.T) {
	repo := newMockRepository()
	dir := newMockRoleDirectory()
	svc := NewService(repo, dir)
	ctx := context.Background()

	tenant := uuid.New()
	roleID := dir.add(roles.Role{Name: "viewer", Type: roles.RoleTypeTenant})
	_, err := svc.Add(ctx, tenant, AddMemberRequest{UserID: "user-1", RoleID: roleID}, "")
	require.NoError(t, err)

	bogus := Status("suspended")
	_, err = svc.Update(ctx, tenant, "user-1", UpdateMemberRequest{Status: &bogus})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestRemoveMember(t *testing.T) {
	repo := newMockRepository()
	dir := newMockRoleDirectory()
	svc := NewService(repo, dir)
	ctx := context.Background()

	tenant := uuid.New()
	roleID := dir.add(roles.Role{Name: "viewer", Type: roles.RoleTypeTenant})
	_, err := svc.Add(ctx, tenant, AddMemberRequest{UserID: "user-1", RoleID: roleID}, "")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, tenant, "user-1"))
	require.ErrorIs(t, svc.Remove(ctx, tenant, "user-1"), httpx.ErrNotFound)
}

func TestListMembersPagination(t *testing.T) {
	repo := newMockRepository()
	dir := newMockRoleDirectory()
	svc := NewService(repo, dir)
	ctx := context.Background()

	tenant := uuid.New()
	roleID := dir.add(roles.Role{Name: "viewer", Type: roles.RoleTypeTenant})
	for i := 0; i < 5; i++ {
		_, err := svc.Add(ctx, tenant, AddMemberRequest{UserID: uuid.NewString(), RoleID: roleID}, "")
		require.NoError(t, err)
	}

	members, page, err := svc.List(ctx, ListMembersRequest{TenantID: tenant, Limit: 2})
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, 5, page.Total)
	require.Equal(t, 3, page.TotalPages)
}
