// Package auth holds the contract with the authentication collaborator. The
// backend only consumes authenticated principals; credential verification and
// token issuance happen upstream.
package auth

import "context"

// Principal is the authenticated caller attached to each request.
type Principal struct {
	UserID      int64
	Name        string
	Role        string
	Permissions []string
}

// Has reports whether the principal holds the given permission. Admins hold
// everything.
func (p *Principal) Has(perm string) bool {
	if p == nil {
		return false
	}
	if p.Role == "admin" {
		return true
	}
	for _, granted := range p.Permissions {
		if granted == perm {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
