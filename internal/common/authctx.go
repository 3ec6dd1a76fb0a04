package common

import "context"

type ctxKey string

const (
	userIDKey ctxKey = "auth/user-id"
	roleKey   ctxKey = "auth/role"
	emailKey  ctxKey = "auth/email"
)

// Role names stored on users and carried in access tokens.
const (
	RoleAdmin    = "Admin"
	RoleCustomer = "Customer"
)

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithRole stores the authenticated user's role.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// Role returns the authenticated user's role, or "" when anonymous.
func Role(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// WithEmail stores the authenticated user's email.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// Email returns the authenticated user's email, or "".
func Email(ctx context.Context) string {
	email, _ := ctx.Value(emailKey).(string)
	return email
}

// IsAdmin reports whether the context carries the Admin role.
func IsAdmin(ctx context.Context) bool {
	return Role(ctx) == RoleAdmin
}

// CanAccessUser reports whether the caller is the given user or an admin.
func CanAccessUser(ctx context.Context, userID string) bool {
	if IsAdmin(ctx) {
		return true
	}
	id, ok := UserID(ctx)
	return ok && id != "" && id == userID
}
