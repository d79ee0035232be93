package auth

import (
	"github.com/spec-kit/study-share/internal/domain"
)

// Reasons a guard denies access. They are logged, never shown to the client.
const (
	ReasonMissingCredential = "missing credential"
	ReasonInvalidCredential = "invalid credential"
	ReasonRoleNotPermitted  = "role not permitted"
)

// Decision is the outcome of one authorization check.
type Decision struct {
	Allowed  bool
	Identity domain.Identity
	Reason   string
}

// Guard decides whether a credential may reach a role-gated view.
type Guard struct {
	tokens *TokenManager
}

// NewGuard builds a guard that trusts tokens issued by tokens.
func NewGuard(tokens *TokenManager) *Guard {
	return &Guard{tokens: tokens}
}

// Authorize is evaluated on every call; nothing is cached between calls.
// An empty required set admits nobody.
func (g *Guard) Authorize(credential string, required domain.RoleSet) Decision {
	if credential == "" {
		return Decision{Reason: ReasonMissingCredential}
	}
	identity, err := g.tokens.ParseCredential(credential)
	if err != nil {
		return Decision{Reason: ReasonInvalidCredential}
	}
	if !required.Contains(identity.Role) {
		return Decision{Identity: *identity, Reason: ReasonRoleNotPermitted}
	}
	return Decision{Allowed: true, Identity: *identity}
}
