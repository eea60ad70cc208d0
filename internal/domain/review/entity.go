package review

import (
	"time"

	"github.com/google/uuid"
)

// Review is an independently stored comment attached to one listing.
// The listing keeps its own reference bookkeeping (review count), so
// creation and deletion are two-sided writes.
type Review struct {
	ID        uuid.UUID
	ListingID uuid.UUID
	AuthorID  uuid.UUID
	Comment   string
	Rating    int
	CreatedAt time.Time

	// AuthorUsername is resolved on reads for display; it is not persisted
	// on the review row.
	AuthorUsername string
}
