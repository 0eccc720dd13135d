package auth

import "strings"

// Decision is the result of an ownership check.
type Decision int

const (
	RequiresIdentity Decision = iota
	Forbidden
	Allow
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Forbidden:
		return "forbidden"
	default:
		return "requires_identity"
	}
}

// Authorize decides whether id may mutate a resource owned by ownerID.
// The caller must have confirmed the resource exists: a missing resource is
// reported as not found before ownership is considered.
func Authorize(ownerID string, id *Identity) Decision {
	if id == nil || id.Email == "" {
		return RequiresIdentity
	}
	if !strings.EqualFold(ownerID, id.Email) {
		return Forbidden
	}
	return Allow
}
