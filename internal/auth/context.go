package auth

import "context"

type userContextKey struct{}

// ContextWithUser attaches the resolved identity to ctx. A nil user marks an
// anonymous caller.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the identity attached by ContextWithUser, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}

// UsernameFromContext returns the caller's username or "" when anonymous.
func UsernameFromContext(ctx context.Context) string {
	if user := UserFromContext(ctx); user != nil {
		return user.Username
	}
	return ""
}
