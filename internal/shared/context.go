package shared

import "context"

type roleContextKey struct{}

// ContextWithRole stores the caller's role code in context. The role is
// resolved by the authentication layer in front of the platform.
func ContextWithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleContextKey{}, role)
}

// RoleFromContext extracts the caller's role code from context.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleContextKey{}).(string)
	return role
}
