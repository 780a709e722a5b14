package models

import (
	"time"

	"gorm.io/gorm"
)

// ListingStatus represents the occupancy state of a listing
type ListingStatus string

const (
	ListingStatusVacant   ListingStatus = "Vacant"
	ListingStatusOccupied ListingStatus = "Occupied"
)

// Listing is a rental property posting. The featured/boosted flags are
// payment grants and carry their own expiry, swept lazily on read.
type Listing struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	LandlordUID  string        `gorm:"type:varchar(128);index" json:"landlord_uid"`
	Title        string        `gorm:"type:varchar(255)" json:"title"`
	Location     string        `gorm:"type:varchar(255)" json:"location"`
	RentAmount   int           `json:"rent_amount"` // KES per month
	ContactPhone string        `gorm:"type:varchar(20)" json:"contact_phone"`
	Status       ListingStatus `gorm:"type:varchar(20);default:'Vacant'" json:"status"`

	IsFeatured    bool       `gorm:"default:false" json:"is_featured"`
	FeaturedUntil *time.Time `json:"featured_until,omitempty"`
	IsBoosted     bool       `gorm:"default:false" json:"is_boosted"`
	BoostedUntil  *time.Time `json:"boosted_until,omitempty"`
}
