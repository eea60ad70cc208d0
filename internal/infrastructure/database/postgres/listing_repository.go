package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wanderhub/internal/domain/listing"
	"wanderhub/internal/infrastructure/database/postgres/models"
)

// ListingRepository implements listing.Repository on Postgres. All
// lifecycle transitions are single-statement conditional updates so
// concurrent callers cannot both observe a stale state and win.
type ListingRepository struct {
	db *DB
}

func NewListingRepository(db *DB) listing.Repository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	l.UpdatedAt = time.Now()

	dbModel := toListingModel(l)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}

	l.ID = dbModel.ID
	for i := range dbModel.Images {
		l.Images[i].ID = dbModel.Images[i].ID
	}
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, listingID uuid.UUID) (*listing.Listing, error) {
	var dbModel models.ListingModel
	err := r.db.DB.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("listing_images.position ASC")
		}).
		First(&dbModel, "id = ?", listingID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, listing.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return toListingEntity(&dbModel), nil
}

// UpdateFields applies owner edits. The guard restricts the update to the
// Active state: a sold listing is immutable and a pending request locks
// further edits.
func (r *ListingRepository) UpdateFields(ctx context.Context, listingID uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()

	result := r.db.DB.WithContext(ctx).Model(&models.ListingModel{}).
		Where("id = ? AND is_sold = false AND request_buyer_id IS NULL", listingID).
		Updates(fields)

	if result.Error != nil {
		return fmt.Errorf("failed to update listing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.classifyGuardFailure(ctx, listingID, listing.ErrRequestPending)
	}

	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, listingID uuid.UUID) error {
	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listingID).
			Delete(&models.ListingImageModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete listing images: %w", err)
		}
		if err := tx.Where("listing_id = ?", listingID).
			Delete(&models.ReviewModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete listing reviews: %w", err)
		}

		result := tx.Where("id = ? AND is_sold = false AND request_buyer_id IS NULL", listingID).
			Delete(&models.ListingModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete listing: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return r.classifyGuardFailureTx(tx, listingID, listing.ErrRequestPending)
		}
		return nil
	})
}

func (r *ListingRepository) List(ctx context.Context, filter *listing.Filter) ([]*listing.Listing, int64, error) {
	query := r.db.DB.WithContext(ctx).Model(&models.ListingModel{})

	if filter.UnsoldOnly {
		query = query.Where("is_sold = false")
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.PendingRequest != nil {
		if *filter.PendingRequest {
			query = query.Where("request_buyer_id IS NOT NULL")
		} else {
			query = query.Where("request_buyer_id IS NULL")
		}
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR location ILIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var dbModels []models.ListingModel
	err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("listing_images.position ASC")
		}).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&dbModels).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list listings: %w", err)
	}

	listings := make([]*listing.Listing, len(dbModels))
	for i := range dbModels {
		listings[i] = toListingEntity(&dbModels[i])
	}

	return listings, total, nil
}

// AttachPurchaseRequest transitions Active -> RequestPending. The WHERE
// clause is the compare-and-set: of two concurrent buyers exactly one
// update matches a row.
func (r *ListingRepository) AttachPurchaseRequest(ctx context.Context, listingID uuid.UUID, req *listing.PurchaseRequest) error {
	now := time.Now()
	result := r.db.DB.WithContext(ctx).Model(&models.ListingModel{}).
		Where("id = ? AND is_sold = false AND request_buyer_id IS NULL", listingID).
		Updates(map[string]interface{}{
			"request_buyer_id": req.BuyerID,
			"request_name":     req.BuyerDetails.Name,
			"request_email":    req.BuyerDetails.Email,
			"request_phone":    req.BuyerDetails.Phone,
			"request_address":  req.BuyerDetails.Address,
			"request_seen":     false,
			"requested_at":     now,
			"updated_at":       now,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to attach purchase request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.classifyGuardFailure(ctx, listingID, listing.ErrRequestPending)
	}

	req.RequestedAt = now
	return nil
}

// ApproveRequest transitions RequestPending -> Sold in one statement,
// snapshotting the buyer columns and the current price from the row itself.
func (r *ListingRepository) ApproveRequest(ctx context.Context, listingID uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).Model(&models.ListingModel{}).
		Where("id = ? AND is_sold = false AND request_buyer_id IS NOT NULL", listingID).
		Updates(map[string]interface{}{
			"is_sold":       true,
			"buyer_id":      gorm.Expr("request_buyer_id"),
			"buyer_name":    gorm.Expr("request_name"),
			"buyer_email":   gorm.Expr("request_email"),
			"buyer_phone":   gorm.Expr("request_phone"),
			"buyer_address": gorm.Expr("request_address"),
			"sold_price":    gorm.Expr("price"),

			"request_buyer_id": nil,
			"request_name":     nil,
			"request_email":    nil,
			"request_phone":    nil,
			"request_address":  nil,
			"request_seen":     false,
			"requested_at":     nil,

			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to approve purchase request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.classifyGuardFailure(ctx, listingID, listing.ErrNoRequest)
	}

	return nil
}

// DeclineRequest transitions RequestPending -> Active by clearing the
// embedded request.
func (r *ListingRepository) DeclineRequest(ctx context.Context, listingID uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).Model(&models.ListingModel{}).
		Where("id = ? AND is_sold = false AND request_buyer_id IS NOT NULL", listingID).
		Updates(map[string]interface{}{
			"request_buyer_id": nil,
			"request_name":     nil,
			"request_email":    nil,
			"request_phone":    nil,
			"request_address":  nil,
			"request_seen":     false,
			"requested_at":     nil,
			"updated_at":       time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to decline purchase request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.classifyGuardFailure(ctx, listingID, listing.ErrNoRequest)
	}

	return nil
}

func (r *ListingRepository) MarkRequestsSeen(ctx context.Context, ownerID uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).Model(&models.ListingModel{}).
		Where("owner_id = ? AND is_sold = false AND request_buyer_id IS NOT NULL AND request_seen = false", ownerID).
		Update("request_seen", true)

	if result.Error != nil {
		return fmt.Errorf("failed to mark requests seen: %w", result.Error)
	}
	return nil
}

func (r *ListingRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).Model(&models.ListingModel{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}

func (r *ListingRepository) CountUnseenPending(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).Model(&models.ListingModel{}).
		Where("owner_id = ? AND is_sold = false AND request_buyer_id IS NOT NULL AND request_seen = false", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending requests: %w", err)
	}
	return count, nil
}

func (r *ListingRepository) AddImages(ctx context.Context, listingID uuid.UUID, images []listing.Image) error {
	dbModels := make([]models.ListingImageModel, len(images))
	for i, img := range images {
		dbModels[i] = models.ListingImageModel{
			ID:         uuid.New(),
			ListingID:  listingID,
			URL:        img.URL,
			StorageKey: img.StorageKey,
			Position:   img.Position,
			CreatedAt:  time.Now(),
		}
	}

	if err := r.db.DB.WithContext(ctx).Create(&dbModels).Error; err != nil {
		return fmt.Errorf("failed to add listing images: %w", err)
	}
	return nil
}

func (r *ListingRepository) GetImage(ctx context.Context, listingID, imageID uuid.UUID) (*listing.Image, error) {
	var dbModel models.ListingImageModel
	err := r.db.DB.WithContext(ctx).
		Where("id = ? AND listing_id = ?", imageID, listingID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, listing.ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing image: %w", err)
	}

	return &listing.Image{
		ID:         dbModel.ID,
		URL:        dbModel.URL,
		StorageKey: dbModel.StorageKey,
		Position:   dbModel.Position,
	}, nil
}

func (r *ListingRepository) RemoveImage(ctx context.Context, listingID, imageID uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).
		Where("id = ? AND listing_id = ?", imageID, listingID).
		Delete(&models.ListingImageModel{})

	if result.Error != nil {
		return fmt.Errorf("failed to remove listing image: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return listing.ErrImageNotFound
	}
	return nil
}

// classifyGuardFailure re-reads the row to report which guard rejected a
// zero-row conditional update. fallback covers the remaining state.
func (r *ListingRepository) classifyGuardFailure(ctx context.Context, listingID uuid.UUID, fallback error) error {
	return r.classifyGuardFailureTx(r.db.DB.WithContext(ctx), listingID, fallback)
}

func (r *ListingRepository) classifyGuardFailureTx(tx *gorm.DB, listingID uuid.UUID, fallback error) error {
	var dbModel models.ListingModel
	err := tx.Select("id", "is_sold", "request_buyer_id").
		First(&dbModel, "id = ?", listingID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return listing.ErrListingNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect listing state: %w", err)
	}
	if dbModel.IsSold {
		return listing.ErrListingSold
	}
	return fallback
}

func toListingModel(l *listing.Listing) *models.ListingModel {
	m := &models.ListingModel{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Location:    l.Location,
		Country:     l.Country,
		OwnerID:     l.OwnerID,
		IsSold:      l.IsSold,
		BuyerID:     l.BuyerID,
		SoldPrice:   l.SoldPrice,
		ReviewCount: l.ReviewCount,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}

	if l.BuyerDetails != nil {
		m.BuyerName = &l.BuyerDetails.Name
		m.BuyerEmail = &l.BuyerDetails.Email
		m.BuyerPhone = &l.BuyerDetails.Phone
		m.BuyerAddress = &l.BuyerDetails.Address
	}

	if l.PurchaseRequest != nil {
		req := l.PurchaseRequest
		m.RequestBuyerID = &req.BuyerID
		m.RequestName = &req.BuyerDetails.Name
		m.RequestEmail = &req.BuyerDetails.Email
		m.RequestPhone = &req.BuyerDetails.Phone
		m.RequestAddress = &req.BuyerDetails.Address
		m.RequestSeen = req.SeenBySeller
		requestedAt := req.RequestedAt
		m.RequestedAt = &requestedAt
	}

	m.Images = make([]models.ListingImageModel, len(l.Images))
	for i, img := range l.Images {
		m.Images[i] = models.ListingImageModel{
			ID:         uuid.New(),
			URL:        img.URL,
			StorageKey: img.StorageKey,
			Position:   img.Position,
			CreatedAt:  time.Now(),
		}
	}

	return m
}

func toListingEntity(m *models.ListingModel) *listing.Listing {
	l := &listing.Listing{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Price:       m.Price,
		Location:    m.Location,
		Country:     m.Country,
		OwnerID:     m.OwnerID,
		IsSold:      m.IsSold,
		BuyerID:     m.BuyerID,
		SoldPrice:   m.SoldPrice,
		ReviewCount: m.ReviewCount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}

	if m.BuyerName != nil || m.BuyerEmail != nil || m.BuyerAddress != nil {
		l.BuyerDetails = &listing.BuyerDetails{
			Name:    derefString(m.BuyerName),
			Email:   derefString(m.BuyerEmail),
			Phone:   derefString(m.BuyerPhone),
			Address: derefString(m.BuyerAddress),
		}
	}

	if m.RequestBuyerID != nil {
		req := &listing.PurchaseRequest{
			BuyerID: *m.RequestBuyerID,
			BuyerDetails: listing.BuyerDetails{
				Name:    derefString(m.RequestName),
				Email:   derefString(m.RequestEmail),
				Phone:   derefString(m.RequestPhone),
				Address: derefString(m.RequestAddress),
			},
			SeenBySeller: m.RequestSeen,
		}
		if m.RequestedAt != nil {
			req.RequestedAt = *m.RequestedAt
		}
		l.PurchaseRequest = req
	}

	l.Images = make([]listing.Image, len(m.Images))
	for i, img := range m.Images {
		l.Images[i] = listing.Image{
			ID:         img.ID,
			URL:        img.URL,
			StorageKey: img.StorageKey,
			Position:   img.Position,
		}
	}

	return l
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
