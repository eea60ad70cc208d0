package listing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainListing "wanderhub/internal/domain/listing"
	domainReview "wanderhub/internal/domain/review"
	domainUser "wanderhub/internal/domain/user"
	"wanderhub/internal/logger"
	appErrors "wanderhub/pkg/errors"
	"wanderhub/pkg/utils"
)

// ImageStore abstracts the blob store holding listing images.
type ImageStore interface {
	Upload(ctx context.Context, contentType string, body io.Reader) (url, key string, err error)
	Delete(ctx context.Context, key string) error
}

// Service is the listing lifecycle engine: it owns every state transition
// and the review attachment bookkeeping.
type Service struct {
	listingRepo domainListing.Repository
	reviewRepo  domainReview.Repository
	userRepo    domainUser.Repository
	images      ImageStore
}

func NewService(
	listingRepo domainListing.Repository,
	reviewRepo domainReview.Repository,
	userRepo domainUser.Repository,
	images ImageStore,
) *Service {
	return &Service{
		listingRepo: listingRepo,
		reviewRepo:  reviewRepo,
		userRepo:    userRepo,
		images:      images,
	}
}

// Create uploads the images and persists the new listing in Active state.
// A failed upload or insert rolls back already-uploaded blobs so no
// half-created listing survives.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *CreateListingRequest, uploads []ImageUpload) (*ListingResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}
	if len(uploads) == 0 {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "At least one image is required", nil)
	}
	if len(uploads) > domainListing.MaxImages {
		return nil, appErrors.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("At most %d images are allowed", domainListing.MaxImages), nil)
	}

	images, err := s.uploadImages(ctx, uploads, 0)
	if err != nil {
		return nil, err
	}

	l := &domainListing.Listing{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Location:    req.Location,
		Country:     req.Country,
		OwnerID:     ownerID,
		Images:      images,
	}
	if err := s.listingRepo.Create(ctx, l); err != nil {
		s.deleteBlobs(ctx, images)
		return nil, err
	}

	logger.Info("Listing created",
		zap.String("listing_id", l.ID.String()),
		zap.String("owner_id", ownerID.String()),
		zap.String("event", "listing_created"),
	)

	return ToListingResponse(l, &ownerID), nil
}

// Get resolves a listing with its owner and reviews for display.
func (s *Service) Get(ctx context.Context, listingID uuid.UUID, viewerID *uuid.UUID) (*ListingDetailResponse, error) {
	l, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, translateListingErr(err)
	}

	detail := &ListingDetailResponse{
		ListingResponse: ToListingResponse(l, viewerID),
	}

	if owner, err := s.userRepo.GetByID(ctx, l.OwnerID); err == nil {
		detail.OwnerUsername = owner.Username
	}

	reviews, err := s.reviewRepo.ListByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	detail.Reviews = make([]*ReviewResponse, len(reviews))
	for i, rv := range reviews {
		detail.Reviews[i] = ToReviewResponse(rv)
	}

	return detail, nil
}

// List returns the public index: unsold listings, newest first.
func (s *Service) List(ctx context.Context, req *FilterRequest) (*ListingListResponse, error) {
	filter := &domainListing.Filter{
		UnsoldOnly: true,
		Search:     req.Search,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}

	listings, total, err := s.listingRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return toListResponse(listings, total, filter), nil
}

// Update applies owner edits while the listing is Active. Owner and sale
// fields are immutable; images may be added up to the cap and removed by id.
func (s *Service) Update(ctx context.Context, callerID, listingID uuid.UUID, req *UpdateListingRequest, uploads []ImageUpload) (*ListingResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	l, err := s.guardedListing(ctx, listingID, OpEdit, callerID)
	if err != nil {
		return nil, err
	}

	if len(l.Images)+len(uploads)-len(req.RemoveImageIDs) > domainListing.MaxImages {
		return nil, appErrors.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("At most %d images are allowed", domainListing.MaxImages), nil)
	}
	if len(l.Images)+len(uploads)-len(req.RemoveImageIDs) < 1 {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "At least one image is required", nil)
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.Location != nil {
		fields["location"] = *req.Location
	}
	if req.Country != nil {
		fields["country"] = *req.Country
	}

	if len(fields) > 0 {
		if err := s.listingRepo.UpdateFields(ctx, listingID, fields); err != nil {
			return nil, translateListingErr(err)
		}
	}

	for _, imageID := range req.RemoveImageIDs {
		img, err := s.listingRepo.GetImage(ctx, listingID, imageID)
		if err != nil {
			return nil, translateListingErr(err)
		}
		if err := s.listingRepo.RemoveImage(ctx, listingID, imageID); err != nil {
			return nil, translateListingErr(err)
		}
		if err := s.images.Delete(ctx, img.StorageKey); err != nil {
			logger.Error("Failed to delete image blob",
				zap.String("listing_id", listingID.String()),
				zap.String("storage_key", img.StorageKey),
				zap.Error(err),
			)
		}
	}

	if len(uploads) > 0 {
		nextPos := 0
		for _, img := range l.Images {
			if img.Position >= nextPos {
				nextPos = img.Position + 1
			}
		}
		images, err := s.uploadImages(ctx, uploads, nextPos)
		if err != nil {
			return nil, err
		}
		if err := s.listingRepo.AddImages(ctx, listingID, images); err != nil {
			s.deleteBlobs(ctx, images)
			return nil, err
		}
	}

	updated, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, translateListingErr(err)
	}

	logger.Info("Listing updated",
		zap.String("listing_id", listingID.String()),
		zap.String("event", "listing_updated"),
	)

	return ToListingResponse(updated, &callerID), nil
}

// Delete removes an Active listing and cascades blob deletion for its
// images.
func (s *Service) Delete(ctx context.Context, callerID, listingID uuid.UUID) error {
	l, err := s.guardedListing(ctx, listingID, OpDelete, callerID)
	if err != nil {
		return err
	}

	if err := s.listingRepo.Delete(ctx, listingID); err != nil {
		return translateListingErr(err)
	}

	s.deleteBlobs(ctx, l.Images)

	logger.Info("Listing deleted",
		zap.String("listing_id", listingID.String()),
		zap.String("owner_id", callerID.String()),
		zap.String("event", "listing_deleted"),
	)

	return nil
}

// Buy submits a purchase request: Active -> RequestPending. Exactly one
// concurrent buyer wins; the loser observes the pending request and is
// rejected with a conflict.
func (s *Service) Buy(ctx context.Context, buyerID, listingID uuid.UUID, req *BuyRequest) (*ListingResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	l, err := s.guardedListing(ctx, listingID, OpBuy, buyerID)
	if err != nil {
		return nil, err
	}

	purchaseReq := &domainListing.PurchaseRequest{
		BuyerID: buyerID,
		BuyerDetails: domainListing.BuyerDetails{
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Address: req.Address,
		},
	}
	if err := s.listingRepo.AttachPurchaseRequest(ctx, listingID, purchaseReq); err != nil {
		return nil, translateListingErr(err)
	}

	logger.Info("Purchase request submitted",
		zap.String("listing_id", l.ID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.String("event", "purchase_request_submitted"),
	)

	updated, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, translateListingErr(err)
	}
	return ToListingResponse(updated, &buyerID), nil
}

// SellerRequests lists the caller's listings with a pending request and
// marks those requests seen for the notification counter.
func (s *Service) SellerRequests(ctx context.Context, ownerID uuid.UUID) ([]*ListingResponse, error) {
	if err := s.listingRepo.MarkRequestsSeen(ctx, ownerID); err != nil {
		return nil, err
	}

	pending := true
	listings, _, err := s.listingRepo.List(ctx, &domainListing.Filter{
		UnsoldOnly:     true,
		OwnerID:        &ownerID,
		PendingRequest: &pending,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]*ListingResponse, len(listings))
	for i, l := range listings {
		responses[i] = ToListingResponse(l, &ownerID)
	}
	return responses, nil
}

// Approve finalizes a pending sale: RequestPending -> Sold. Replaying an
// approve finds the listing already Sold and is rejected without touching
// the recorded buyer or sold price.
func (s *Service) Approve(ctx context.Context, callerID, listingID uuid.UUID) (*ListingResponse, error) {
	if _, err := s.guardedListing(ctx, listingID, OpApprove, callerID); err != nil {
		return nil, err
	}

	if err := s.listingRepo.ApproveRequest(ctx, listingID); err != nil {
		return nil, translateListingErr(err)
	}

	logger.Info("Purchase request approved",
		zap.String("listing_id", listingID.String()),
		zap.String("owner_id", callerID.String()),
		zap.String("event", "purchase_request_approved"),
	)

	updated, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, translateListingErr(err)
	}
	return ToListingResponse(updated, &callerID), nil
}

// Decline rejects a pending request: RequestPending -> Active.
func (s *Service) Decline(ctx context.Context, callerID, listingID uuid.UUID) (*ListingResponse, error) {
	if _, err := s.guardedListing(ctx, listingID, OpDecline, callerID); err != nil {
		return nil, err
	}

	if err := s.listingRepo.DeclineRequest(ctx, listingID); err != nil {
		return nil, translateListingErr(err)
	}

	logger.Info("Purchase request declined",
		zap.String("listing_id", listingID.String()),
		zap.String("owner_id", callerID.String()),
		zap.String("event", "purchase_request_declined"),
	)

	updated, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, translateListingErr(err)
	}
	return ToListingResponse(updated, &callerID), nil
}

// AddReview appends a review and registers it on the listing as one
// logical write.
func (s *Service) AddReview(ctx context.Context, authorID, listingID uuid.UUID, req *AddReviewRequest) (*ReviewResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	if _, err := s.listingRepo.GetByID(ctx, listingID); err != nil {
		return nil, translateListingErr(err)
	}

	rv := &domainReview.Review{
		ListingID: listingID,
		AuthorID:  authorID,
		Comment:   req.Comment,
		Rating:    req.Rating,
	}
	if err := s.reviewRepo.Create(ctx, rv); err != nil {
		return nil, translateListingErr(err)
	}

	logger.Info("Review added",
		zap.String("listing_id", listingID.String()),
		zap.String("author_id", authorID.String()),
		zap.String("event", "review_added"),
	)

	return ToReviewResponse(rv), nil
}

// RemoveReview deletes a review; only its author or the listing's owner
// may do so. Both the review record and the listing's bookkeeping are
// removed together.
func (s *Service) RemoveReview(ctx context.Context, callerID, listingID, reviewID uuid.UUID) error {
	l, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return translateListingErr(err)
	}

	rv, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, domainReview.ErrReviewNotFound) {
			return appErrors.ErrNotFound
		}
		return err
	}
	if rv.ListingID != listingID {
		return appErrors.ErrNotFound
	}

	if rv.AuthorID != callerID && l.OwnerID != callerID {
		return appErrors.ErrForbidden
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		if errors.Is(err, domainReview.ErrReviewNotFound) {
			return appErrors.ErrNotFound
		}
		return err
	}

	logger.Info("Review removed",
		zap.String("listing_id", listingID.String()),
		zap.String("review_id", reviewID.String()),
		zap.String("event", "review_removed"),
	)

	return nil
}

// IsSeller reports whether the identity owns at least one listing.
func (s *Service) IsSeller(ctx context.Context, userID uuid.UUID) (bool, error) {
	count, err := s.listingRepo.CountByOwner(ctx, userID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PendingUnseenCount counts the identity's listings with a pending,
// not-yet-seen purchase request.
func (s *Service) PendingUnseenCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.listingRepo.CountUnseenPending(ctx, userID)
}

// guardedListing loads the listing and checks both the identity guard and
// the state machine for the operation. Guard failures never mutate state.
func (s *Service) guardedListing(ctx context.Context, listingID uuid.UUID, op Operation, callerID uuid.UUID) (*domainListing.Listing, error) {
	l, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, translateListingErr(err)
	}

	if err := ValidateCaller(l, op, callerID); err != nil {
		logger.Warn("Listing guard rejected caller",
			zap.String("listing_id", listingID.String()),
			zap.String("caller_id", callerID.String()),
			zap.String("operation", string(op)),
			zap.String("event", "listing_guard_rejected"),
		)
		return nil, translateListingErr(err)
	}
	if err := ValidateOperation(l, op); err != nil {
		return nil, translateListingErr(err)
	}

	return l, nil
}

func (s *Service) uploadImages(ctx context.Context, uploads []ImageUpload, startPos int) ([]domainListing.Image, error) {
	images := make([]domainListing.Image, 0, len(uploads))
	for i, up := range uploads {
		url, key, err := s.images.Upload(ctx, up.ContentType, up.Body)
		if err != nil {
			s.deleteBlobs(ctx, images)
			return nil, fmt.Errorf("%w: image upload failed: %v", appErrors.ErrStorageFailure, err)
		}
		images = append(images, domainListing.Image{
			URL:        url,
			StorageKey: key,
			Position:   startPos + i,
		})
	}
	return images, nil
}

func (s *Service) deleteBlobs(ctx context.Context, images []domainListing.Image) {
	for _, img := range images {
		if err := s.images.Delete(ctx, img.StorageKey); err != nil {
			logger.Error("Failed to delete image blob",
				zap.String("storage_key", img.StorageKey),
				zap.Error(err),
			)
		}
	}
}

// translateListingErr maps domain sentinels onto the shared taxonomy the
// handlers understand.
func translateListingErr(err error) error {
	switch {
	case errors.Is(err, domainListing.ErrListingNotFound),
		errors.Is(err, domainListing.ErrImageNotFound):
		return appErrors.ErrNotFound
	case errors.Is(err, domainListing.ErrNotOwner):
		return appErrors.ErrForbidden
	case errors.Is(err, domainListing.ErrListingSold),
		errors.Is(err, domainListing.ErrRequestPending),
		errors.Is(err, domainListing.ErrNoRequest),
		errors.Is(err, domainListing.ErrOwnListing),
		errors.Is(err, domainListing.ErrTooManyImages):
		return fmt.Errorf("%w: %v", appErrors.ErrConflict, err)
	default:
		return err
	}
}
