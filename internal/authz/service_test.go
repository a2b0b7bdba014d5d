package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tessera-io/tessera/internal/memberships"
	"github.com/tessera-io/tessera/internal/permissions"
	"github.com/tessera-io/tessera/internal/platform/httpx"
)

type mockAdmins struct {
	admins map[string]bool
	err    error
}

func (m *mockAdmins) IsPlatformAdmin(ctx context.Context, userID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.admins[userID], nil
}

type mockMembers struct {
	members map[string]memberships.Membership
	err     error
}

func membershipKey(tenantID uuid.UUID, userID string) string {
	return tenantID.String() + "/" + userID
}

func (m *mockMembers) Get(ctx context.Context, tenantID uuid.UUID, userID string) (memberships.Membership, error) {
	if m.err != nil {
		return memberships.Membership{}, m.err
	}
	member, ok := m.members[membershipKey(tenantID, userID)]
	if !ok {
		return memberships.Membership{}, httpx.ErrNotFound
	}
	return member, nil
}

type mockGrants struct {
	grants map[uuid.UUID][]permissions.Key
	err    error
	calls  int
}

func (m *mockGrants) EffectivePermissions(ctx context.Context, roleID uuid.UUID) ([]permissions.Key, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.grants[roleID], nil
}

type resolverFixture struct {
	admins  *mockAdmins
	members *mockMembers
	grants  *mockGrants
	svc     *Resolver
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	f := &resolverFixture{
		admins:  &mockAdmins{admins: make(map[string]bool)},
		members: &mockMembers{members: make(map[string]memberships.Membership)},
		grants:  &mockGrants{grants: make(map[uuid.UUID][]permissions.Key)},
	}
	f.svc = NewResolver(testLogger(), f.admins, f.members, f.grants)
	return f
}

func (f *resolverFixture) addMember(tenantID uuid.UUID, userID string, status memberships.Status, keys ...permissions.Key) {
	roleID := uuid.New()
	f.members.members[membershipKey(tenantID, userID)] = memberships.Membership{
		TenantID: tenantID,
		UserID:   userID,
		RoleID:   roleID,
		Status:   status,
	}
	f.grants.grants[roleID] = keys
}

var invoiceRead = permissions.Key{Service: "billing", Entity: "invoice", Action: "read"}

func TestAuthorizeActiveMemberWithGrant(t *testing.T) {
	f := newResolverFixture(t)
	tenant := uuid.New()
	f.addMember(tenant, "user-1", memberships.StatusActive, invoiceRead)

	ok, err := f.svc.Authorize(context.Background(), "user-1", tenant, invoiceRead)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAuthorizeActiveMemberWithoutGrant(t *testing.T) {
	f := newResolverFixture(t)
	tenant := uuid.New()
	f.addMember(tenant, "user-1", memberships.StatusActive)

	ok, err := f.svc.Authorize(context.Background(), "user-1", tenant, invoiceRead)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAuthorizeTenantIsolation(t *testing.T) {
	f := newResolverFixture(t)
	home := uuid.New()
	other := uuid.New()
	f.addMember(home, "user-1", memberships.StatusActive, invoiceRead)

	ok, err := f.svc.Authorize(context.Background(), "user-1", other, invoiceRead)
	require.NoError(t, err)
	require.False(t, ok, "a grant in one tenant must not leak into another")
}

func TestAuthorizeInactiveMemberDenied(t *testing.T) {
	f := newResolverFixture(t)
	tenant := uuid.New()

	for _, status := range []memberships.Status{memberships.StatusPending, memberships.StatusInactive} {
		f.addMember(tenant, "user-"+string(status), status, invoiceRead)
		ok, err := f.svc.Authorize(context.Background(), "user-"+string(status), tenant, invoiceRead)
		require.NoError(t, err)
		require.False(t, ok, "status %s must deny", status)
	}
}

func TestAuthorizePlatformAdminBypass(t *testing.T) {
	f := newResolverFixture(t)
	f.admins.admins["root-1"] = true

	// No membership anywhere, yet every check passes.
	ok, err := f.svc.Authorize(context.Background(), "root-1", uuid.New(), invoiceRead)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, f.grants.calls, "admin bypass must not resolve the graph")
}

func TestAuthorizeFailsClosedOnStorageError(t *testing.T) {
	tenant := uuid.New()

	t.Run("admin lookup", func(t *testing.T) {
		f := newResolverFixture(t)
		f.admins.err = errors.New("connection refused")
		ok, err := f.svc.Authorize(context.Background(), "user-1", tenant, invoiceRead)
		require.ErrorIs(t, err, httpx.ErrStorageUnavailable)
		require.False(t, ok)
	})

	t.Run("membership lookup", func(t *testing.T) {
		f := newResolverFixture(t)
		f.members.err = errors.New("connection refused")
		ok, err := f.svc.Authorize(context.Background(), "user-1", tenant, invoiceRead)
		require.ErrorIs(t, err, httpx.ErrStorageUnavailable)
		require.False(t, ok)
	})

	t.Run("grant resolution", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addMember(tenant, "user-1", memberships.StatusActive, invoiceRead)
		f.grants.err = errors.New("connection refused")
		ok, err := f.svc.Authorize(context.Background(), "user-1", tenant, invoiceRead)
		require.ErrorIs(t, err, httpx.ErrStorageUnavailable)
		require.False(t, ok)
	})
}

func TestUserPermissionsMember(t *testing.T) {
	f := newResolverFixture(t)
	tenant := uuid.New()
	write := permissions.Key{Service: "billing", Entity: "invoice", Action: "create"}
	f.addMember(tenant, "user-1", memberships.StatusActive, invoiceRead, write)

	grants, err := f.svc.UserPermissions(context.Background(), "user-1", tenant)
	require.NoError(t, err)
	require.False(t, grants.Unrestricted)
	require.ElementsMatch(t, []permissions.Key{invoiceRead, write}, grants.Permissions)
}

func TestUserPermissionsPlatformAdminUnrestricted(t *testing.T) {
	f := newResolverFixture(t)
	f.admins.admins["root-1"] = true

	grants, err := f.svc.UserPermissions(context.Background(), "root-1", uuid.New())
	require.NoError(t, err)
	require.True(t, grants.Unrestricted)
	require.Empty(t, grants.Permissions)
}

func TestUserPermissionsNonMemberForbidden(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.svc.UserPermissions(context.Background(), "user-1", uuid.New())
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestUserPermissionsInactiveMemberForbidden(t *testing.T) {
	f := newResolverFixture(t)
	tenant := uuid.New()
	f.addMember(tenant, "user-1", memberships.StatusInactive, invoiceRead)

	_, err := f.svc.UserPermissions(context.Background(), "user-1", tenant)
	require.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestUserPermissionsEmptyGrantSet(t *testing.T) {
	f := newResolverFixture(t)
	tenant := uuid.New()
	f.addMember(tenant, "user-1", memberships.StatusActive)

	grants, err := f.svc.UserPermissions(context.Background(), "user-1", tenant)
	require.NoError(t, err)
	require.NotNil(t, grants.Permissions)
	require.Empty(t, grants.Permissions)
}
