package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasModuleAccessBoundary(t *testing.T) {
	m := DefaultMatrix()
	for _, role := range Roles() {
		for _, module := range Modules() {
			level := m.Level(role, module)
			require.Truef(t, m.HasModuleAccess(role, module, level, nil), "%s/%s at %s", role, module, level)
			if level < AccessAdmin {
				require.Falsef(t, m.HasModuleAccess(role, module, level+1, nil), "%s/%s above %s", role, module, level)
			}
		}
	}
}

func TestMatrixIsTotal(t *testing.T) {
	table := DefaultMatrix()
	rendered := table.Table()
	require.Len(t, rendered, len(Roles()))
	for _, role := range Roles() {
		row := rendered[role.String()]
		require.Len(t, row, len(Modules()), role.String())
		for _, module := range Modules() {
			_, ok := row[module.String()]
			require.Truef(t, ok, "missing %s/%s", role, module)
		}
	}
}

func TestSystemAdminHasAdminEverywhere(t *testing.T) {
	for _, module := range Modules() {
		require.True(t, CanAdmin(RoleSystemAdmin, module, nil), module.String())
	}
}

func TestOverrideWinsRegardlessOfDirection(t *testing.T) {
	// Downgrade below the matrix.
	require.False(t, CanRead(RoleSystemAdmin, ModuleUsuarios, Overrides{ModuleUsuarios: AccessNone}))
	// Upgrade above the matrix.
	require.True(t, CanAdmin(RoleEndClient, ModuleUsuarios, Overrides{ModuleUsuarios: AccessAdmin}))
	// Entries for other modules leave the matrix in charge.
	require.True(t, CanAdmin(RoleSystemAdmin, ModuleFiscal, Overrides{ModuleUsuarios: AccessNone}))
}

func TestAccessIsMonotonic(t *testing.T) {
	overrideSets := []Overrides{nil, {ModuleFiscal: AccessWrite, ModuleUsuarios: AccessNone}}
	for _, overrides := range overrideSets {
		for _, role := range Roles() {
			for _, module := range Modules() {
				if CanAdmin(role, module, overrides) {
					require.True(t, CanWrite(role, module, overrides))
				}
				if CanWrite(role, module, overrides) {
					require.True(t, CanRead(role, module, overrides))
				}
			}
		}
	}
}

func TestClientCompanyFiscalAdjustmentsIsReadOnly(t *testing.T) {
	require.Equal(t, AccessRead, defaultMatrix.Level(RoleClientCompany, ModuleFiscalAjustes))
	require.True(t, CanRead(RoleClientCompany, ModuleFiscalAjustes, nil))
	require.False(t, CanWrite(RoleClientCompany, ModuleFiscalAjustes, nil))
}

func TestEndClientLacksManagementModules(t *testing.T) {
	for _, module := range []Module{ModuleUsuarios, ModuleConfiguracoes, ModuleAuditoria, ModuleEmpresas} {
		require.False(t, CanRead(RoleEndClient, module, nil), module.String())
	}
}

func TestOutOfRangeOrdinalsAreDenied(t *testing.T) {
	require.False(t, HasModuleAccess(roleUnknown, ModuleDashboard, AccessNone, nil))
	require.False(t, HasModuleAccess(Role(42), ModuleDashboard, AccessNone, nil))
	require.False(t, HasModuleAccess(RoleSystemAdmin, moduleCount, AccessNone, nil))
	require.Equal(t, AccessNone, defaultMatrix.Level(Role(42), ModuleDashboard))
}

func TestEffectiveAppliesOverrides(t *testing.T) {
	effective := defaultMatrix.Effective(RoleClientCompany, Overrides{ModuleFiscalAjustes: AccessWrite})
	require.Len(t, effective, len(Modules()))
	require.Equal(t, AccessWrite, effective[ModuleFiscalAjustes])
	require.Equal(t, AccessNone, effective[ModuleUsuarios])
}
