// Package authctx carries the authenticated caller through a request context.
package authctx

import "context"

type contextKey struct{ name string }

var (
	userIDKey  = contextKey{"user_id"}
	orgIDKey   = contextKey{"org_id"}
	grantIDKey = contextKey{"grant_id"}
)

// WithIdentity returns a context with user_id, org_id, and grant_id set.
// Handlers read these via GetUserID, GetOrgID, GetGrantID.
func WithIdentity(ctx context.Context, userID, orgID, grantID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, orgIDKey, orgID)
	ctx = context.WithValue(ctx, grantIDKey, grantID)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetOrgID returns the org_id from context and true if set; otherwise "", false.
// A caller without an organization has org_id set to "".
func GetOrgID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(orgIDKey).(string)
	return v, ok
}

// GetGrantID returns the grant_id from context and true if set; otherwise "", false.
func GetGrantID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(grantIDKey).(string)
	return v, ok
}
