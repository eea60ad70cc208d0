package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wanderhub/internal/domain/listing"
	"wanderhub/internal/domain/review"
	"wanderhub/internal/infrastructure/database/postgres/models"
)

// ReviewRepository implements review.Repository on Postgres. The review
// row and the listing's review count are written in one transaction so
// the reference bookkeeping can never be half-applied.
type ReviewRepository struct {
	db *DB
}

func NewReviewRepository(db *DB) review.Repository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	rv.ID = uuid.New()
	rv.CreatedAt = time.Now()

	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbModel := &models.ReviewModel{
			ID:        rv.ID,
			ListingID: rv.ListingID,
			AuthorID:  rv.AuthorID,
			Comment:   rv.Comment,
			Rating:    rv.Rating,
			CreatedAt: rv.CreatedAt,
		}
		if err := tx.Create(dbModel).Error; err != nil {
			return fmt.Errorf("failed to create review: %w", err)
		}

		result := tx.Model(&models.ListingModel{}).
			Where("id = ?", rv.ListingID).
			Update("review_count", gorm.Expr("review_count + 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to register review on listing: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return listing.ErrListingNotFound
		}
		return nil
	})
}

func (r *ReviewRepository) GetByID(ctx context.Context, reviewID uuid.UUID) (*review.Review, error) {
	var dbModel models.ReviewModel
	err := r.db.DB.WithContext(ctx).First(&dbModel, "id = ?", reviewID).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, review.ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return toReviewEntity(&dbModel), nil
}

func (r *ReviewRepository) Delete(ctx context.Context, reviewID uuid.UUID) error {
	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dbModel models.ReviewModel
		err := tx.First(&dbModel, "id = ?", reviewID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return review.ErrReviewNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get review: %w", err)
		}

		result := tx.Delete(&models.ReviewModel{}, "id = ?", reviewID)
		if result.Error != nil {
			return fmt.Errorf("failed to delete review: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return review.ErrReviewNotFound
		}

		if err := tx.Model(&models.ListingModel{}).
			Where("id = ? AND review_count > 0", dbModel.ListingID).
			Update("review_count", gorm.Expr("review_count - 1")).Error; err != nil {
			return fmt.Errorf("failed to deregister review from listing: %w", err)
		}
		return nil
	})
}

// ListByListing resolves author usernames with a read-side join; the join
// is display convenience, not a lifecycle dependency.
func (r *ReviewRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*review.Review, error) {
	type reviewRow struct {
		models.ReviewModel
		AuthorUsername string
	}

	var rows []reviewRow
	err := r.db.DB.WithContext(ctx).Model(&models.ReviewModel{}).
		Select("reviews.*, users.username AS author_username").
		Joins("LEFT JOIN users ON users.id = reviews.author_id").
		Where("reviews.listing_id = ?", listingID).
		Order("reviews.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	reviews := make([]*review.Review, len(rows))
	for i := range rows {
		rv := toReviewEntity(&rows[i].ReviewModel)
		rv.AuthorUsername = rows[i].AuthorUsername
		reviews[i] = rv
	}

	return reviews, nil
}

func toReviewEntity(m *models.ReviewModel) *review.Review {
	return &review.Review{
		ID:        m.ID,
		ListingID: m.ListingID,
		AuthorID:  m.AuthorID,
		Comment:   m.Comment,
		Rating:    m.Rating,
		CreatedAt: m.CreatedAt,
	}
}
