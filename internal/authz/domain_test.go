package authz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, role := range Roles() {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		require.Equal(t, role, parsed)
	}
	parsed, err := ParseRole(" Escritorio ")
	require.NoError(t, err)
	require.Equal(t, RoleAccountingOffice, parsed)

	for _, bad := range []string{"", "root", "contador"} {
		_, err := ParseRole(bad)
		require.ErrorIs(t, err, ErrUnknownRole, bad)
	}
}

func TestParseModuleRejectsUnknown(t *testing.T) {
	module, err := ParseModule("fiscal_ajustes")
	require.NoError(t, err)
	require.Equal(t, ModuleFiscalAjustes, module)

	_, err = ParseModule("estoque")
	require.ErrorIs(t, err, ErrUnknownModule)
}

func TestParseAccessLevel(t *testing.T) {
	cases := map[string]AccessLevel{
		"none":  AccessNone,
		"read":  AccessRead,
		"WRITE": AccessWrite,
		"3":     AccessAdmin,
	}
	for in, want := range cases {
		got, err := ParseAccessLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	for _, bad := range []string{"4", "-1", "owner", ""} {
		_, err := ParseAccessLevel(bad)
		require.ErrorIs(t, err, ErrUnknownAccessLevel, bad)
	}
}

func TestAccessLevelJSON(t *testing.T) {
	var levels []AccessLevel
	require.NoError(t, json.Unmarshal([]byte(`["read", 2, "admin"]`), &levels))
	require.Equal(t, []AccessLevel{AccessRead, AccessWrite, AccessAdmin}, levels)

	var level AccessLevel
	require.ErrorIs(t, json.Unmarshal([]byte(`7`), &level), ErrUnknownAccessLevel)
	require.ErrorIs(t, json.Unmarshal([]byte(`"superuser"`), &level), ErrUnknownAccessLevel)

	out, err := json.Marshal(AccessWrite)
	require.NoError(t, err)
	require.JSONEq(t, `"write"`, string(out))
}

func TestOverridesJSONUsesModuleNames(t *testing.T) {
	var overrides Overrides
	require.NoError(t, json.Unmarshal([]byte(`{"fiscal":"none","usuarios":3}`), &overrides))
	require.Equal(t, Overrides{ModuleFiscal: AccessNone, ModuleUsuarios: AccessAdmin}, overrides)

	require.Error(t, json.Unmarshal([]byte(`{"estoque":"read"}`), &overrides))

	out, err := json.Marshal(Overrides{ModuleTarefas: AccessRead})
	require.NoError(t, err)
	require.JSONEq(t, `{"tarefas":"read"}`, string(out))
}

func TestParseOverrides(t *testing.T) {
	overrides, err := ParseOverrides(map[string]string{"documentos": "write"})
	require.NoError(t, err)
	require.Equal(t, Overrides{ModuleDocumentos: AccessWrite}, overrides)
	require.Equal(t, map[string]string{"documentos": "write"}, overrides.Strings())

	_, err = ParseOverrides(map[string]string{"documentos": "owner"})
	require.ErrorIs(t, err, ErrUnknownAccessLevel)

	empty, err := ParseOverrides(nil)
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestRoleMarshalRejectsZero(t *testing.T) {
	_, err := json.Marshal(roleUnknown)
	require.Error(t, err)
}
