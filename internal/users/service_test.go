package users

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/shared"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

type recordingInvalidator struct{ ids []int64 }

func (r *recordingInvalidator) Invalidate(_ context.Context, userID int64) error {
	r.ids = append(r.ids, userID)
	return nil
}

var (
	adminActor  = &authz.Principal{UserID: 100, Role: authz.RoleSystemAdmin}
	officeActor = &authz.Principal{UserID: 101, Role: authz.RoleAccountingOffice}
)

func TestCreateUserRules(t *testing.T) {
	repo := newMemRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, nil, nil, audit, nil)
	ctx := context.Background()

	base := CreateUserRequest{Email: "x@nixcon.local", Name: "X", Password: "segredo123"}

	req := base
	req.Role = authz.RoleSystemAdmin
	_, err := svc.CreateUser(ctx, officeActor, req)
	require.ErrorIs(t, err, ErrRoleEscalation)

	req.Role = authz.RoleClientCompany
	_, err = svc.CreateUser(ctx, officeActor, req)
	require.ErrorIs(t, err, ErrCompanyRequired)

	req.Role = authz.RoleAccountingOffice
	req.CompanyID = 10
	_, err = svc.CreateUser(ctx, officeActor, req)
	require.ErrorIs(t, err, ErrCompanyNotAllowed)

	req.Role = authz.RoleClientCompany
	req.CompanyID = 99
	_, err = svc.CreateUser(ctx, officeActor, req)
	require.ErrorIs(t, err, ErrCompanyNotFound)

	req.CompanyID = 10
	user, err := svc.CreateUser(ctx, officeActor, req)
	require.NoError(t, err)
	require.Equal(t, authz.RoleClientCompany, user.Role)
	require.Equal(t, int64(10), user.CompanyID)

	_, err = svc.CreateUser(ctx, officeActor, req)
	require.ErrorIs(t, err, ErrDuplicateEmail)

	req = base
	req.Email = "root@nixcon.local"
	req.Role = authz.RoleSystemAdmin
	_, err = svc.CreateUser(ctx, adminActor, req)
	require.NoError(t, err)

	require.Len(t, audit.entries, 2)
	require.Equal(t, "user.created", audit.entries[0].Action)
	require.Equal(t, int64(101), audit.entries[0].ActorID)
}

func TestListUsersScopesCompanyActors(t *testing.T) {
	repo := newMemRepo()
	repo.seed(User{Email: "a@x", Role: authz.RoleClientCompany, CompanyID: 10})
	repo.seed(User{Email: "b@x", Role: authz.RoleClientCompany, CompanyID: 11})
	repo.seed(User{Email: "c@x", Role: authz.RoleAccountingOffice})
	svc := NewService(repo, nil, nil, nil, nil)

	all, total, err := svc.ListUsers(context.Background(), officeActor, ListFilter{Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, all, 3)

	company := &authz.Principal{UserID: 1, Role: authz.RoleClientCompany, CompanyID: 11}
	own, total, err := svc.ListUsers(context.Background(), company, ListFilter{Limit: 20, CompanyID: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "b@x", own[0].Email)
}

func TestReplacePermissionsInvalidatesAndAudits(t *testing.T) {
	repo := newMemRepo()
	target := repo.seed(User{Email: "e@x", Role: authz.RoleClientCompany, CompanyID: 10})
	inv := &recordingInvalidator{}
	audit := &recordingAudit{}
	svc := NewService(repo, nil, inv, audit, nil)

	perms, err := svc.ReplacePermissions(context.Background(), adminActor, target.ID,
		authz.Overrides{authz.ModuleFiscalAjustes: authz.AccessWrite, authz.ModuleFinanceiro: authz.AccessNone})
	require.NoError(t, err)
	require.Equal(t, "write", perms.Effective["fiscal_ajustes"])
	require.Equal(t, "none", perms.Effective["financeiro"])
	require.Equal(t, "read", perms.Effective["dashboard"])
	require.Equal(t, []int64{target.ID}, inv.ids)
	require.Len(t, audit.entries, 1)
	require.Equal(t, "user.permissions_replaced", audit.entries[0].Action)

	loaded, err := svc.Permissions(context.Background(), adminActor, target.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Overrides, 2)

	_, err = svc.ReplacePermissions(context.Background(), adminActor, 999, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListUsersScopesEndClientsToThemselves(t *testing.T) {
	repo := newMemRepo()
	self := repo.seed(User{Email: "cli@x", Role: authz.RoleEndClient})
	repo.seed(User{Email: "outro@x", Role: authz.RoleEndClient})
	repo.seed(User{Email: "a@x", Role: authz.RoleClientCompany, CompanyID: 10})
	svc := NewService(repo, nil, nil, nil, nil)
	actor := &authz.Principal{UserID: self.ID, Role: authz.RoleEndClient}

	got, total, err := svc.ListUsers(context.Background(), actor, ListFilter{Limit: 20})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, []User{self}, got)

	got, _, err = svc.ListUsers(context.Background(), actor, ListFilter{Limit: 20, CompanyID: 10})
	require.NoError(t, err)
	require.Empty(t, got)

	got, total, err = svc.ListUsers(context.Background(), nil, ListFilter{Limit: 20})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, got)
}

func TestUserLookupsHideOtherTenants(t *testing.T) {
	repo := newMemRepo()
	own := repo.seed(User{Email: "a@x", Role: authz.RoleClientCompany, CompanyID: 10})
	other := repo.seed(User{Email: "b@x", Role: authz.RoleClientCompany, CompanyID: 11})
	client := repo.seed(User{Email: "cli@x", Role: authz.RoleEndClient})
	inv := &recordingInvalidator{}
	svc := NewService(repo, nil, inv, nil, nil)
	ctx := context.Background()

	company := &authz.Principal{UserID: own.ID, Role: authz.RoleClientCompany, CompanyID: 10}
	_, err := svc.GetUser(ctx, company, own.ID)
	require.NoError(t, err)
	_, err = svc.GetUser(ctx, company, other.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Permissions(ctx, company, other.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ReplacePermissions(ctx, company, other.ID, authz.Overrides{authz.ModuleUsuarios: authz.AccessAdmin})
	require.ErrorIs(t, err, ErrNotFound)
	require.Empty(t, inv.ids)

	endClient := &authz.Principal{UserID: client.ID, Role: authz.RoleEndClient}
	_, err = svc.GetUser(ctx, endClient, client.ID)
	require.NoError(t, err)
	_, err = svc.GetUser(ctx, endClient, own.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetUser(ctx, officeActor, other.ID)
	require.NoError(t, err)
}
