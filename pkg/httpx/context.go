package httpx

import "context"

// Identity describes the authenticated caller as asserted by the SSO
// gateway's identity token. The ID is the person urn used by the group
// directory.
type Identity struct {
	ID          string
	DisplayName string
	Email       string
	HomeOrg     string
	Guest       bool
}

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

// ContextWithIdentity returns a ctx carrying the authenticated identity.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)
	return id, ok
}
