package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
)

const CtxIdentity = "identity"

var ErrInvalidToken = errors.New("invalid token")

// Identity is the caller as resolved by the gateway.
type Identity struct {
	UserID       string      `json:"userId"`
	Email        string      `json:"email,omitempty"`
	Role         domain.Role `json:"role"`
	DepartmentID string      `json:"departmentId,omitempty"`
}

// TokenVerifier turns a bearer token into the identity it claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Policy decides which claimed roles an identity may actually hold.
type Policy struct {
	privileged map[string]struct{}
}

// NewPolicy builds a policy from the privileged identity list. Entries are
// matched case-insensitively against the identity email.
func NewPolicy(privileged []string) *Policy {
	p := &Policy{privileged: make(map[string]struct{}, len(privileged))}
	for _, e := range privileged {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			p.privileged[e] = struct{}{}
		}
	}
	return p
}

// IsPrivileged reports whether email may hold the admin role.
func (p *Policy) IsPrivileged(email string) bool {
	_, ok := p.privileged[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Apply downgrades claims the identity is not entitled to: admin without a
// privileged email, department without a department id, unknown roles.
func (p *Policy) Apply(id Identity) Identity {
	switch id.Role {
	case domain.RoleAdmin:
		if !p.IsPrivileged(id.Email) {
			id.Role = domain.RoleUser
		}
	case domain.RoleDepartment:
		if strings.TrimSpace(id.DepartmentID) == "" {
			id.Role = domain.RoleUser
		}
	case domain.RoleUser:
	default:
		id.Role = domain.RoleUser
	}
	if id.Role != domain.RoleDepartment {
		id.DepartmentID = ""
	}
	return id
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
