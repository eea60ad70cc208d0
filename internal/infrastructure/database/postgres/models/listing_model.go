package models

import (
	"time"

	"github.com/google/uuid"
)

// ListingModel represents the database model for Listing. The purchase
// request is embedded as nullable request_* columns so lifecycle
// transitions are single-row conditional updates.
type ListingModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Description string    `gorm:"type:text"`
	Price       float64   `gorm:"not null;check:price >= 0"`
	Location    string    `gorm:"type:varchar(255);not null"`
	Country     string    `gorm:"type:varchar(100);not null"`

	OwnerID uuid.UUID `gorm:"type:uuid;not null;index"`
	IsSold  bool      `gorm:"default:false;not null;index"`

	BuyerID      *uuid.UUID `gorm:"type:uuid"`
	BuyerName    *string    `gorm:"type:varchar(255)"`
	BuyerEmail   *string    `gorm:"type:varchar(255)"`
	BuyerPhone   *string    `gorm:"type:varchar(50)"`
	BuyerAddress *string    `gorm:"type:text"`
	SoldPrice    *float64

	RequestBuyerID *uuid.UUID `gorm:"type:uuid;index"`
	RequestName    *string    `gorm:"type:varchar(255)"`
	RequestEmail   *string    `gorm:"type:varchar(255)"`
	RequestPhone   *string    `gorm:"type:varchar(50)"`
	RequestAddress *string    `gorm:"type:text"`
	RequestSeen    bool       `gorm:"default:false;not null"`
	RequestedAt    *time.Time

	ReviewCount int `gorm:"default:0;not null"`

	Images []ListingImageModel `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ListingModel) TableName() string {
	return "listings"
}

// ListingImageModel represents one stored listing photo.
type ListingImageModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ListingID  uuid.UUID `gorm:"type:uuid;not null;index"`
	URL        string    `gorm:"type:text;not null"`
	StorageKey string    `gorm:"type:varchar(255);not null"`
	Position   int       `gorm:"default:0;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (ListingImageModel) TableName() string {
	return "listing_images"
}
