package listing

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for listings, their images, and the
// embedded purchase request. The lifecycle transitions (attach, approve,
// decline) must be atomic compare-and-set operations: when the guard no
// longer holds the repository reports the specific violation instead of
// overwriting state.
type Repository interface {
	Create(ctx context.Context, l *Listing) error
	GetByID(ctx context.Context, listingID uuid.UUID) (*Listing, error)
	// UpdateFields applies owner edits while the listing is Active; owner
	// and sale fields are never touched.
	UpdateFields(ctx context.Context, listingID uuid.UUID, fields map[string]interface{}) error
	// Delete removes the listing together with its image rows and reviews.
	Delete(ctx context.Context, listingID uuid.UUID) error
	List(ctx context.Context, filter *Filter) ([]*Listing, int64, error)

	// AttachPurchaseRequest transitions Active -> RequestPending. Exactly
	// one concurrent caller succeeds; losers get ErrRequestPending (or
	// ErrListingSold / ErrListingNotFound, depending on observed state).
	AttachPurchaseRequest(ctx context.Context, listingID uuid.UUID, req *PurchaseRequest) error
	// ApproveRequest transitions RequestPending -> Sold, snapshotting the
	// buyer and the current price, and clears the request.
	ApproveRequest(ctx context.Context, listingID uuid.UUID) error
	// DeclineRequest transitions RequestPending -> Active.
	DeclineRequest(ctx context.Context, listingID uuid.UUID) error
	// MarkRequestsSeen flags all pending requests on the owner's listings
	// as seen by the seller.
	MarkRequestsSeen(ctx context.Context, ownerID uuid.UUID) error

	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	CountUnseenPending(ctx context.Context, ownerID uuid.UUID) (int64, error)

	AddImages(ctx context.Context, listingID uuid.UUID, images []Image) error
	GetImage(ctx context.Context, listingID, imageID uuid.UUID) (*Image, error)
	RemoveImage(ctx context.Context, listingID, imageID uuid.UUID) error
}

// Filter narrows and pages the listing index.
type Filter struct {
	UnsoldOnly     bool
	OwnerID        *uuid.UUID
	PendingRequest *bool
	Search         string

	Page     int
	PageSize int
}
