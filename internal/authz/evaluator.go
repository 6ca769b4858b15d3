package authz

// HasModuleAccess reports whether role may use module at the required level.
// An override entry for the module, when present, replaces the matrix value
// regardless of direction.
func (m *Matrix) HasModuleAccess(role Role, module Module, required AccessLevel, overrides Overrides) bool {
	if !role.Valid() || !module.Valid() {
		return false
	}
	if level, ok := overrides[module]; ok {
		return level >= required
	}
	return m[role][module] >= required
}

// CanRead is HasModuleAccess with AccessRead.
func (m *Matrix) CanRead(role Role, module Module, overrides Overrides) bool {
	return m.HasModuleAccess(role, module, AccessRead, overrides)
}

// CanWrite is HasModuleAccess with AccessWrite.
func (m *Matrix) CanWrite(role Role, module Module, overrides Overrides) bool {
	return m.HasModuleAccess(role, module, AccessWrite, overrides)
}

// CanAdmin is HasModuleAccess with AccessAdmin.
func (m *Matrix) CanAdmin(role Role, module Module, overrides Overrides) bool {
	return m.HasModuleAccess(role, module, AccessAdmin, overrides)
}

// HasModuleAccess evaluates against the default matrix.
func HasModuleAccess(role Role, module Module, required AccessLevel, overrides Overrides) bool {
	return defaultMatrix.HasModuleAccess(role, module, required, overrides)
}

func CanRead(role Role, module Module, overrides Overrides) bool {
	return defaultMatrix.CanRead(role, module, overrides)
}

func CanWrite(role Role, module Module, overrides Overrides) bool {
	return defaultMatrix.CanWrite(role, module, overrides)
}

func CanAdmin(role Role, module Module, overrides Overrides) bool {
	return defaultMatrix.CanAdmin(role, module, overrides)
}
