package listing

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a listing, derived from the sold flag
// and the presence of a purchase request.
type State string

const (
	StateActive         State = "active"          // unsold, no pending request
	StateRequestPending State = "request_pending" // unsold, one pending request
	StateSold           State = "sold"            // terminal
)

// MaxImages caps the number of images attached to one listing.
const MaxImages = 5

// Listing is a sellable item owned by a user. The purchase request is an
// embedded child: at most one exists, and only while the listing is unsold.
type Listing struct {
	ID          uuid.UUID
	Title       string
	Description string
	Price       float64
	Location    string
	Country     string

	OwnerID uuid.UUID
	IsSold  bool

	// Sale outcome, set once on approval and immutable afterwards.
	BuyerID      *uuid.UUID
	BuyerDetails *BuyerDetails
	SoldPrice    *float64

	PurchaseRequest *PurchaseRequest

	Images      []Image
	ReviewCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// State derives the lifecycle state from persisted fields.
func (l *Listing) State() State {
	switch {
	case l.IsSold:
		return StateSold
	case l.PurchaseRequest != nil:
		return StateRequestPending
	default:
		return StateActive
	}
}

// PurchaseRequest is the embedded pending-sale record. Its status is
// always "pending" while present; approval and decline clear it instead
// of transitioning it.
type PurchaseRequest struct {
	BuyerID      uuid.UUID
	BuyerDetails BuyerDetails
	SeenBySeller bool
	RequestedAt  time.Time
}

// BuyerDetails is a contact snapshot captured at purchase-request time.
// It is a copy, not a live reference to the buyer's profile.
type BuyerDetails struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Image is a stored listing photo: public URL plus the blob-store key
// needed for cascade deletion.
type Image struct {
	ID         uuid.UUID
	URL        string
	StorageKey string
	Position   int
}
