package rbac

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownRole matches every UnknownRoleError.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrUnknownPermission matches every UnknownPermissionError.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
	// ErrDuplicatePermission indicates two catalog entries share an identifier.
	ErrDuplicatePermission = errors.New("rbac: duplicate permission")
	// ErrDuplicateRole indicates two registry entries share a code.
	ErrDuplicateRole = errors.New("rbac: duplicate role")
	// ErrInvalidDefinition reports a malformed catalog, registry or route entry.
	ErrInvalidDefinition = errors.New("rbac: invalid definition")
)

// UnknownRoleError is returned when a role outside the registry is queried.
// Callers must treat it as a denial.
type UnknownRoleError struct {
	Role Role
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("rbac: unknown role %q", string(e.Role))
}

// Is lets errors.Is match ErrUnknownRole.
func (e *UnknownRoleError) Is(target error) bool {
	return target == ErrUnknownRole
}

// UnknownPermissionError is returned when a permission outside the catalog is queried.
type UnknownPermissionError struct {
	Permission Permission
}

func (e *UnknownPermissionError) Error() string {
	return fmt.Sprintf("rbac: unknown permission %q", string(e.Permission))
}

// Is lets errors.Is match ErrUnknownPermission.
func (e *UnknownPermissionError) Is(target error) bool {
	return target == ErrUnknownPermission
}
