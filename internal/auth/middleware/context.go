package auth

import "context"

// Identity is the forum user established by the SSO handshake.
type Identity struct {
	Username string
	MemberID int64
	Name     string
}

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if v := ctx.Value(ctxKeyIdentity); v != nil {
		if id, ok := v.(Identity); ok && id.Username != "" {
			return id, true
		}
	}
	return Identity{}, false
}
