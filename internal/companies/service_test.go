package companies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nixcon/nixcon/internal/authz"
)

const validCNPJ = "11.222.333/0001-81"

func TestCreateNormalizesAndDefaults(t *testing.T) {
	svc := NewService(newMemRepo())
	c, err := svc.Create(context.Background(), CompanyRequest{CNPJ: validCNPJ, RazaoSocial: "  Padaria Aurora Ltda ", Email: "Contato@Aurora.com.br"})
	require.NoError(t, err)
	require.Equal(t, "11222333000181", c.CNPJ)
	require.Equal(t, "Padaria Aurora Ltda", c.RazaoSocial)
	require.Equal(t, "contato@aurora.com.br", c.Email)
	require.Equal(t, RegimeSimplesNacional, c.Regime)
	require.True(t, c.IsActive)

	_, err = svc.Create(context.Background(), CompanyRequest{CNPJ: "11222333000181", RazaoSocial: "Outra"})
	require.ErrorIs(t, err, ErrDuplicateCNPJ)

	_, err = svc.Create(context.Background(), CompanyRequest{CNPJ: "11222333000180", RazaoSocial: "Inválida"})
	require.ErrorIs(t, err, ErrInvalidCNPJ)
}

func TestUpdateKeepsActiveFlagWhenOmitted(t *testing.T) {
	repo := newMemRepo()
	seeded := repo.seed(Company{CNPJ: "11222333000181", RazaoSocial: "Aurora", IsActive: false, Regime: RegimeLucroReal})
	svc := NewService(repo)

	updated, err := svc.Update(context.Background(), seeded.ID, CompanyRequest{CNPJ: validCNPJ, RazaoSocial: "Aurora SA", Regime: RegimeLucroPresumido})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
	require.Equal(t, RegimeLucroPresumido, updated.Regime)

	_, err = svc.Update(context.Background(), 999, CompanyRequest{CNPJ: validCNPJ, RazaoSocial: "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListScopesCompanyUsers(t *testing.T) {
	repo := newMemRepo()
	first := repo.seed(Company{CNPJ: "11222333000181", RazaoSocial: "Aurora", IsActive: true})
	repo.seed(Company{CNPJ: "45723174000110", RazaoSocial: "Boreal", IsActive: true})
	svc := NewService(repo)

	all, total, err := svc.List(context.Background(), &authz.Principal{Role: authz.RoleAccountingOffice}, ListFilters{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, all, 2)

	own, total, err := svc.List(context.Background(), &authz.Principal{Role: authz.RoleClientCompany, CompanyID: first.ID}, ListFilters{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, first.ID, own[0].ID)
}

func TestExists(t *testing.T) {
	repo := newMemRepo()
	c := repo.seed(Company{CNPJ: "11222333000181", RazaoSocial: "Aurora"})
	svc := NewService(repo)

	ok, err := svc.Exists(context.Background(), c.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.Exists(context.Background(), 0)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.Exists(context.Background(), 42)
	require.NoError(t, err)
	require.False(t, ok)
}
