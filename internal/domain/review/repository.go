package review

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for reviews. Create and Delete maintain
// the owning listing's review count in the same transaction so the two
// sides can never diverge.
type Repository interface {
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, reviewID uuid.UUID) (*Review, error)
	// Delete removes the review and decrements the listing's count; it is
	// a no-op returning ErrReviewNotFound when the review is gone already.
	Delete(ctx context.Context, reviewID uuid.UUID) error
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]*Review, error)
}
