package listing

import (
	"github.com/google/uuid"

	domainListing "wanderhub/internal/domain/listing"
)

// Operation names a lifecycle mutation on a listing.
type Operation string

const (
	OpEdit    Operation = "edit"
	OpDelete  Operation = "delete"
	OpBuy     Operation = "buy"
	OpApprove Operation = "approve"
	OpDecline Operation = "decline"
)

// allowedOperations is the state machine: which mutations each lifecycle
// state admits. Sold is terminal and admits none; a pending request locks
// the listing down to approve/decline.
var allowedOperations = map[domainListing.State][]Operation{
	domainListing.StateActive: {
		OpEdit,
		OpDelete,
		OpBuy,
	},
	domainListing.StateRequestPending: {
		OpApprove,
		OpDecline,
	},
	domainListing.StateSold: {
		// Terminal state - no mutations
	},
}

// ValidateOperation checks the state machine. The violation is reported
// as the most specific domain error so callers can surface it precisely.
func ValidateOperation(l *domainListing.Listing, op Operation) error {
	state := l.State()
	for _, allowed := range allowedOperations[state] {
		if op == allowed {
			return nil
		}
	}

	switch state {
	case domainListing.StateSold:
		return domainListing.ErrListingSold
	case domainListing.StateRequestPending:
		return domainListing.ErrRequestPending
	default:
		return domainListing.ErrNoRequest
	}
}

// ValidateCaller enforces the identity guards attached to each operation:
// owner-only mutations and the owner exclusion on buy.
func ValidateCaller(l *domainListing.Listing, op Operation, callerID uuid.UUID) error {
	switch op {
	case OpEdit, OpDelete, OpApprove, OpDecline:
		if l.OwnerID != callerID {
			return domainListing.ErrNotOwner
		}
	case OpBuy:
		if l.OwnerID == callerID {
			return domainListing.ErrOwnListing
		}
	}
	return nil
}
