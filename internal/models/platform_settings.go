package models

import (
	"time"
)

// PlatformSettings is a singleton row holding platform-wide counters.
// TotalRevenue is incremented in the same database transaction that marks a
// payment SUCCESS.
type PlatformSettings struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TotalRevenue      int64 `gorm:"default:0" json:"total_revenue"` // KES
	TotalTransactions int64 `gorm:"default:0" json:"total_transactions"`
}
