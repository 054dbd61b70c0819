package auth

import "github.com/markethub/storefront-gateway/pkg/enums"

// Actor is the resolved caller of a gateway request.
type Actor struct {
	UserID string
	Role   enums.UserRole
	HubID  *int64
	// Token is forwarded to the marketplace on the caller's behalf.
	Token string
}

// Is reports whether the actor holds one of roles.
func (a Actor) Is(roles ...enums.UserRole) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}
