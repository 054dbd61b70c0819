package orders

import (
	"github.com/markethub/storefront-gateway/pkg/enums"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
)

type edge struct {
	to     enums.SuborderStatus
	actors []enums.UserRole
}

var (
	fulfillmentActors = []enums.UserRole{enums.UserRoleMerchant, enums.UserRoleAdmin}
	hubActors         = []enums.UserRole{enums.UserRoleHubStaff}
)

// transitions is the forward-only fulfillment graph. Statuses without a key are terminal.
var transitions = map[enums.SuborderStatus][]edge{
	enums.SuborderStatusPaidAwaitingShipment: {
		{to: enums.SuborderStatusShipped, actors: fulfillmentActors},
	},
	enums.SuborderStatusShipped: {
		{to: enums.SuborderStatusInTransit, actors: fulfillmentActors},
	},
	enums.SuborderStatusInTransit: {
		{to: enums.SuborderStatusDelivered, actors: fulfillmentActors},
	},
	enums.SuborderStatusPendingMerchantDelivery: {
		{to: enums.SuborderStatusAtHubVerificationPending, actors: fulfillmentActors},
	},
	enums.SuborderStatusAtHubVerificationPending: {
		{to: enums.SuborderStatusApprovedForDelivery, actors: hubActors},
		{to: enums.SuborderStatusQualityCheckFailed, actors: hubActors},
	},
	enums.SuborderStatusApprovedForDelivery: {
		{to: enums.SuborderStatusPickedUp, actors: hubActors},
	},
}

var cancellable = map[enums.SuborderStatus]struct{}{
	enums.SuborderStatusPendingPayment:          {},
	enums.SuborderStatusPaidAwaitingShipment:    {},
	enums.SuborderStatusPendingMerchantDelivery: {},
}

// Allowed returns the statuses role may move a suborder to from its current status.
// The result is empty, never nil, for terminal and unknown statuses.
func Allowed(role enums.UserRole, from enums.SuborderStatus) []enums.SuborderStatus {
	out := []enums.SuborderStatus{}
	for _, e := range transitions[enums.NormalizeSuborderStatus(from.String())] {
		if roleIn(role, e.actors) {
			out = append(out, e.to)
		}
	}
	return out
}

// CanTransition reports whether role may move a suborder from one status to another.
func CanTransition(role enums.UserRole, from, to enums.SuborderStatus) bool {
	target := enums.NormalizeSuborderStatus(to.String())
	for _, next := range Allowed(role, from) {
		if next == target {
			return true
		}
	}
	return false
}

// CheckTransition is CanTransition as an error, for rejecting a request before any network call.
func CheckTransition(role enums.UserRole, from, to enums.SuborderStatus) error {
	if CanTransition(role, from, to) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not permitted").WithDetails(map[string]any{
		"from":    enums.NormalizeSuborderStatus(from.String()),
		"to":      enums.NormalizeSuborderStatus(to.String()),
		"role":    role,
		"allowed": Allowed(role, from),
	})
}

// CanCancel reports whether the one-way cancellation is still open for a status.
func CanCancel(from enums.SuborderStatus) bool {
	_, ok := cancellable[enums.NormalizeSuborderStatus(from.String())]
	return ok
}

// IsTerminal reports whether no forward transition exists for any actor.
func IsTerminal(status enums.SuborderStatus) bool {
	_, ok := transitions[enums.NormalizeSuborderStatus(status.String())]
	return !ok
}

func roleIn(role enums.UserRole, roles []enums.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
