package authz

// Matrix is the total role x module table. Every (Role, Module) pair holds a
// level by construction; the row for the zero role stays AccessNone.
type Matrix [roleCount][moduleCount]AccessLevel

// Rows are sized by their own literal and the Matrix literal below only
// accepts [moduleCount]AccessLevel, so a module appended to the enumeration
// must be added to every row before this file compiles.
var (
	systemAdminRow = [...]AccessLevel{
		ModuleDashboard:             AccessAdmin,
		ModuleFiscal:                AccessAdmin,
		ModuleFinanceiro:            AccessAdmin,
		ModuleDocumentos:            AccessAdmin,
		ModuleClientes:              AccessAdmin,
		ModuleTarefas:               AccessAdmin,
		ModuleMensagens:             AccessAdmin,
		ModuleFiscalApuracao:        AccessAdmin,
		ModuleFiscalObrigacoes:      AccessAdmin,
		ModuleFiscalNotas:           AccessAdmin,
		ModuleFiscalAjustes:         AccessAdmin,
		ModuleConfiguracoes:         AccessAdmin,
		ModuleUsuarios:              AccessAdmin,
		ModuleCalculadoraTributaria: AccessAdmin,
		ModuleRelatorios:            AccessAdmin,
		ModuleEmpresas:              AccessAdmin,
		ModuleContabil:              AccessAdmin,
		ModuleFolha:                 AccessAdmin,
		ModuleFaturamento:           AccessAdmin,
		ModuleAuditoria:             AccessAdmin,
	}

	accountingOfficeRow = [...]AccessLevel{
		ModuleDashboard:             AccessWrite,
		ModuleFiscal:                AccessAdmin,
		ModuleFinanceiro:            AccessWrite,
		ModuleDocumentos:            AccessAdmin,
		ModuleClientes:              AccessAdmin,
		ModuleTarefas:               AccessAdmin,
		ModuleMensagens:             AccessWrite,
		ModuleFiscalApuracao:        AccessAdmin,
		ModuleFiscalObrigacoes:      AccessAdmin,
		ModuleFiscalNotas:           AccessWrite,
		ModuleFiscalAjustes:         AccessWrite,
		ModuleConfiguracoes:         AccessWrite,
		ModuleUsuarios:              AccessWrite,
		ModuleCalculadoraTributaria: AccessWrite,
		ModuleRelatorios:            AccessWrite,
		ModuleEmpresas:              AccessAdmin,
		ModuleContabil:              AccessAdmin,
		ModuleFolha:                 AccessWrite,
		ModuleFaturamento:           AccessWrite,
		ModuleAuditoria:             AccessRead,
	}

	clientCompanyRow = [...]AccessLevel{
		ModuleDashboard:             AccessRead,
		ModuleFiscal:                AccessRead,
		ModuleFinanceiro:            AccessWrite,
		ModuleDocumentos:            AccessWrite,
		ModuleClientes:              AccessWrite,
		ModuleTarefas:               AccessWrite,
		ModuleMensagens:             AccessWrite,
		ModuleFiscalApuracao:        AccessRead,
		ModuleFiscalObrigacoes:      AccessRead,
		ModuleFiscalNotas:           AccessWrite,
		ModuleFiscalAjustes:         AccessRead,
		ModuleConfiguracoes:         AccessRead,
		ModuleUsuarios:              AccessNone,
		ModuleCalculadoraTributaria: AccessRead,
		ModuleRelatorios:            AccessRead,
		ModuleEmpresas:              AccessRead,
		ModuleContabil:              AccessRead,
		ModuleFolha:                 AccessRead,
		ModuleFaturamento:           AccessWrite,
		ModuleAuditoria:             AccessNone,
	}

	endClientRow = [...]AccessLevel{
		ModuleDashboard:             AccessRead,
		ModuleFiscal:                AccessNone,
		ModuleFinanceiro:            AccessNone,
		ModuleDocumentos:            AccessRead,
		ModuleClientes:              AccessNone,
		ModuleTarefas:               AccessRead,
		ModuleMensagens:             AccessWrite,
		ModuleFiscalApuracao:        AccessNone,
		ModuleFiscalObrigacoes:      AccessNone,
		ModuleFiscalNotas:           AccessNone,
		ModuleFiscalAjustes:         AccessNone,
		ModuleConfiguracoes:         AccessNone,
		ModuleUsuarios:              AccessNone,
		ModuleCalculadoraTributaria: AccessNone,
		ModuleRelatorios:            AccessNone,
		ModuleEmpresas:              AccessNone,
		ModuleContabil:              AccessNone,
		ModuleFolha:                 AccessNone,
		ModuleFaturamento:           AccessRead,
		ModuleAuditoria:             AccessNone,
	}
)

var defaultMatrix = Matrix{
	RoleSystemAdmin:      systemAdminRow,
	RoleAccountingOffice: accountingOfficeRow,
	RoleClientCompany:    clientCompanyRow,
	RoleEndClient:        endClientRow,
}

// DefaultMatrix returns a copy of the built-in permission table.
func DefaultMatrix() Matrix {
	return defaultMatrix
}

// Level returns the configured level for the pair, AccessNone when either
// ordinal is out of range.
func (m *Matrix) Level(role Role, module Module) AccessLevel {
	if !role.Valid() || !module.Valid() {
		return AccessNone
	}
	return m[role][module]
}

// Row returns the full module map for a role.
func (m *Matrix) Row(role Role) map[Module]AccessLevel {
	out := make(map[Module]AccessLevel, moduleCount)
	for _, module := range Modules() {
		out[module] = m.Level(role, module)
	}
	return out
}

// Effective returns the per-module levels for a role after applying overrides.
func (m *Matrix) Effective(role Role, overrides Overrides) map[Module]AccessLevel {
	out := m.Row(role)
	for module, level := range overrides {
		if module.Valid() {
			out[module] = level
		}
	}
	return out
}

// Table renders the matrix keyed by wire names, for the admin UI.
func (m *Matrix) Table() map[string]map[string]string {
	out := make(map[string]map[string]string, roleCount-1)
	for _, role := range Roles() {
		row := make(map[string]string, moduleCount)
		for _, module := range Modules() {
			row[module.String()] = m.Level(role, module).String()
		}
		out[role.String()] = row
	}
	return out
}
