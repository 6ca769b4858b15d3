// Package authz holds the portal permission model: the role x module access
// matrix, per-user overrides and the HTTP guards built on top of them.
package authz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownRole is returned when a role name is not part of the enumeration.
	ErrUnknownRole = errors.New("authz: unknown role")
	// ErrUnknownModule is returned when a module name is not part of the enumeration.
	ErrUnknownModule = errors.New("authz: unknown module")
	// ErrUnknownAccessLevel is returned when an access level is out of range.
	ErrUnknownAccessLevel = errors.New("authz: unknown access level")
)

// Role is the coarse-grained category of an authenticated session.
type Role uint8

const (
	roleUnknown Role = iota
	// RoleSystemAdmin operates the platform.
	RoleSystemAdmin
	// RoleAccountingOffice is staff of the accounting office (escritório).
	RoleAccountingOffice
	// RoleClientCompany is a user of a client company (empresa).
	RoleClientCompany
	// RoleEndClient is an external end client of a company.
	RoleEndClient
	roleCount
)

var roleNames = [roleCount]string{
	roleUnknown:          "",
	RoleSystemAdmin:      "admin",
	RoleAccountingOffice: "escritorio",
	RoleClientCompany:    "empresa",
	RoleEndClient:        "cliente",
}

// Roles lists every valid role in ordinal order.
func Roles() []Role {
	out := make([]Role, 0, roleCount-1)
	for r := RoleSystemAdmin; r < roleCount; r++ {
		out = append(out, r)
	}
	return out
}

// ParseRole converts a wire name into a Role.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for r := RoleSystemAdmin; r < roleCount; r++ {
		if roleNames[r] == s {
			return r, nil
		}
	}
	return roleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return r > roleUnknown && r < roleCount
}

func (r Role) String() string {
	if r >= roleCount {
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
	return roleNames[r]
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, r)
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Module is a named functional area of the portal subject to access control.
type Module uint8

const (
	ModuleDashboard Module = iota
	ModuleFiscal
	ModuleFinanceiro
	ModuleDocumentos
	ModuleClientes
	ModuleTarefas
	ModuleMensagens
	ModuleFiscalApuracao
	ModuleFiscalObrigacoes
	ModuleFiscalNotas
	ModuleFiscalAjustes
	ModuleConfiguracoes
	ModuleUsuarios
	ModuleCalculadoraTributaria
	ModuleRelatorios
	ModuleEmpresas
	ModuleContabil
	ModuleFolha
	ModuleFaturamento
	ModuleAuditoria
	moduleCount
)

var moduleNames = [moduleCount]string{
	ModuleDashboard:             "dashboard",
	ModuleFiscal:                "fiscal",
	ModuleFinanceiro:            "financeiro",
	ModuleDocumentos:            "documentos",
	ModuleClientes:              "clientes",
	ModuleTarefas:               "tarefas",
	ModuleMensagens:             "mensagens",
	ModuleFiscalApuracao:        "fiscal_apuracao",
	ModuleFiscalObrigacoes:      "fiscal_obrigacoes",
	ModuleFiscalNotas:           "fiscal_notas",
	ModuleFiscalAjustes:         "fiscal_ajustes",
	ModuleConfiguracoes:         "configuracoes",
	ModuleUsuarios:              "usuarios",
	ModuleCalculadoraTributaria: "calculadora_tributaria",
	ModuleRelatorios:            "relatorios",
	ModuleEmpresas:              "empresas",
	ModuleContabil:              "contabil",
	ModuleFolha:                 "folha",
	ModuleFaturamento:           "faturamento",
	ModuleAuditoria:             "auditoria",
}

// Modules lists every module in ordinal order.
func Modules() []Module {
	out := make([]Module, 0, moduleCount)
	for m := Module(0); m < moduleCount; m++ {
		out = append(out, m)
	}
	return out
}

// ParseModule converts a wire name into a Module.
func ParseModule(s string) (Module, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for m := Module(0); m < moduleCount; m++ {
		if moduleNames[m] == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModule, s)
}

// Valid reports whether m is one of the enumerated modules.
func (m Module) Valid() bool {
	return m < moduleCount
}

func (m Module) String() string {
	if !m.Valid() {
		return "module(" + strconv.Itoa(int(m)) + ")"
	}
	return moduleNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Module) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModule, m)
	}
	return []byte(moduleNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Module) UnmarshalText(text []byte) error {
	parsed, err := ParseModule(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// AccessLevel is an ordered permission tier. Comparison is by integer order.
type AccessLevel uint8

const (
	AccessNone AccessLevel = iota
	AccessRead
	AccessWrite
	AccessAdmin
)

var accessLevelNames = [...]string{
	AccessNone:  "none",
	AccessRead:  "read",
	AccessWrite: "write",
	AccessAdmin: "admin",
}

// ParseAccessLevel accepts either the level name or its ordinal (0..3).
func ParseAccessLevel(s string) (AccessLevel, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for i, name := range accessLevelNames {
		if name == s {
			return AccessLevel(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < len(accessLevelNames) {
		return AccessLevel(n), nil
	}
	return AccessNone, fmt.Errorf("%w: %q", ErrUnknownAccessLevel, s)
}

// Valid reports whether l is within none..admin.
func (l AccessLevel) Valid() bool {
	return int(l) < len(accessLevelNames)
}

func (l AccessLevel) String() string {
	if !l.Valid() {
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
	return accessLevelNames[l]
}

// MarshalText implements encoding.TextMarshaler.
func (l AccessLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAccessLevel, l)
	}
	return []byte(accessLevelNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *AccessLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseAccessLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// UnmarshalJSON accepts both `"write"` and `2`.
func (l *AccessLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return l.UnmarshalText([]byte(name))
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownAccessLevel, string(data))
	}
	if n < 0 || n >= len(accessLevelNames) {
		return fmt.Errorf("%w: %d", ErrUnknownAccessLevel, n)
	}
	*l = AccessLevel(n)
	return nil
}

// Overrides is a per-user partial map that takes precedence over the matrix.
// Lookup is presence-based: an explicit AccessNone still wins.
type Overrides map[Module]AccessLevel

// ParseOverrides converts a wire map into Overrides, rejecting unknown keys or levels.
func ParseOverrides(raw map[string]string) (Overrides, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(Overrides, len(raw))
	for k, v := range raw {
		module, err := ParseModule(k)
		if err != nil {
			return nil, err
		}
		level, err := ParseAccessLevel(v)
		if err != nil {
			return nil, err
		}
		out[module] = level
	}
	return out, nil
}

// Strings renders the overrides with wire names, e.g. for persistence.
func (o Overrides) Strings() map[string]string {
	out := make(map[string]string, len(o))
	for module, level := range o {
		out[module.String()] = level.String()
	}
	return out
}
