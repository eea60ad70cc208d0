package listing

import (
	"io"
	"time"

	"github.com/google/uuid"

	domainListing "wanderhub/internal/domain/listing"
	domainReview "wanderhub/internal/domain/review"
)

type CreateListingRequest struct {
	Title       string  `json:"title" form:"title" validate:"required,min=3,max=255"`
	Description string  `json:"description" form:"description" validate:"max=5000"`
	Price       float64 `json:"price" form:"price" validate:"gte=0"`
	Location    string  `json:"location" form:"location" validate:"required,max=255"`
	Country     string  `json:"country" form:"country" validate:"required,max=100"`
}

type UpdateListingRequest struct {
	Title       *string  `json:"title" form:"title" validate:"omitempty,min=3,max=255"`
	Description *string  `json:"description" form:"description" validate:"omitempty,max=5000"`
	Price       *float64 `json:"price" form:"price" validate:"omitempty,gte=0"`
	Location    *string  `json:"location" form:"location" validate:"omitempty,max=255"`
	Country     *string  `json:"country" form:"country" validate:"omitempty,max=100"`

	RemoveImageIDs []uuid.UUID `json:"remove_image_ids" form:"remove_image_ids"`
}

type BuyRequest struct {
	Name    string `json:"name" form:"name" validate:"required,max=255"`
	Email   string `json:"email" form:"email" validate:"required,email"`
	Phone   string `json:"phone" form:"phone" validate:"max=50"`
	Address string `json:"address" form:"address" validate:"required,max=1000"`
}

type AddReviewRequest struct {
	Comment string `json:"comment" form:"comment" validate:"required,max=2000"`
	Rating  int    `json:"rating" form:"rating" validate:"required,min=1,max=5"`
}

type FilterRequest struct {
	Search   string `form:"q"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ImageUpload is one multipart file handed to the blob store.
type ImageUpload struct {
	ContentType string
	Body        io.Reader
}

type ImageResponse struct {
	ID  uuid.UUID `json:"id"`
	URL string    `json:"url"`
}

type PurchaseRequestResponse struct {
	BuyerID      uuid.UUID `json:"buyer_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	SeenBySeller bool      `json:"seen_by_seller"`
	RequestedAt  time.Time `json:"requested_at"`
}

type ListingResponse struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       float64         `json:"price"`
	Location    string          `json:"location"`
	Country     string          `json:"country"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	State       string          `json:"state"`
	IsSold      bool            `json:"is_sold"`
	SoldPrice   *float64        `json:"sold_price,omitempty"`
	BuyerID     *uuid.UUID      `json:"buyer_id,omitempty"`
	Images      []ImageResponse `json:"images"`
	ReviewCount int             `json:"review_count"`
	CreatedAt   time.Time       `json:"created_at"`

	// PurchaseRequest is populated only for the listing owner.
	PurchaseRequest *PurchaseRequestResponse `json:"purchase_request,omitempty"`
}

type ReviewResponse struct {
	ID             uuid.UUID `json:"id"`
	AuthorID       uuid.UUID `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Comment        string    `json:"comment"`
	Rating         int       `json:"rating"`
	CreatedAt      time.Time `json:"created_at"`
}

type ListingDetailResponse struct {
	*ListingResponse
	OwnerUsername string            `json:"owner_username"`
	Reviews       []*ReviewResponse `json:"reviews"`
}

type ListingListResponse struct {
	Listings []*ListingResponse `json:"listings"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// ToListingResponse renders a listing. The embedded purchase request is
// included only when the viewer owns the listing.
func ToListingResponse(l *domainListing.Listing, viewerID *uuid.UUID) *ListingResponse {
	resp := &ListingResponse{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Location:    l.Location,
		Country:     l.Country,
		OwnerID:     l.OwnerID,
		State:       string(l.State()),
		IsSold:      l.IsSold,
		SoldPrice:   l.SoldPrice,
		BuyerID:     l.BuyerID,
		ReviewCount: l.ReviewCount,
		CreatedAt:   l.CreatedAt,
	}

	resp.Images = make([]ImageResponse, len(l.Images))
	for i, img := range l.Images {
		resp.Images[i] = ImageResponse{ID: img.ID, URL: img.URL}
	}

	if l.PurchaseRequest != nil && viewerID != nil && *viewerID == l.OwnerID {
		req := l.PurchaseRequest
		resp.PurchaseRequest = &PurchaseRequestResponse{
			BuyerID:      req.BuyerID,
			Name:         req.BuyerDetails.Name,
			Email:        req.BuyerDetails.Email,
			Phone:        req.BuyerDetails.Phone,
			Address:      req.BuyerDetails.Address,
			SeenBySeller: req.SeenBySeller,
			RequestedAt:  req.RequestedAt,
		}
	}

	return resp
}

func toListResponse(listings []*domainListing.Listing, total int64, filter *domainListing.Filter) *ListingListResponse {
	resp := &ListingListResponse{
		Listings: make([]*ListingResponse, len(listings)),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	for i, l := range listings {
		resp.Listings[i] = ToListingResponse(l, nil)
	}
	return resp
}

func ToReviewResponse(r *domainReview.Review) *ReviewResponse {
	return &ReviewResponse{
		ID:             r.ID,
		AuthorID:       r.AuthorID,
		AuthorUsername: r.AuthorUsername,
		Comment:        r.Comment,
		Rating:         r.Rating,
		CreatedAt:      r.CreatedAt,
	}
}
