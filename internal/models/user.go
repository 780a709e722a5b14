package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole represents the role of a user on the platform
type UserRole string

const (
	UserRoleTenant   UserRole = "Tenant"
	UserRoleLandlord UserRole = "Landlord"
	UserRoleAdmin    UserRole = "Admin"
)

// User mirrors the platform user record. FirebaseUID is the identity the
// client authenticates with; payment grants are denormalized onto this row.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FirebaseUID string   `gorm:"type:varchar(128);uniqueIndex" json:"firebase_uid"`
	Name        string   `gorm:"type:varchar(255)" json:"name"`
	Email       string   `gorm:"type:varchar(255);index" json:"email"`
	Phone       string   `gorm:"type:varchar(50)" json:"phone"`
	Role        UserRole `gorm:"type:varchar(20);default:'Tenant'" json:"role"`

	// Contact-access grant (CONTACT_ACCESS payments)
	CanViewContacts        bool       `gorm:"default:false" json:"can_view_contacts"`
	ContactAccessExpiresAt *time.Time `json:"contact_access_expires_at,omitempty"`
}

// HasContactAccess reports whether the user holds an unexpired contact grant
func (u User) HasContactAccess(now time.Time) bool {
	return u.CanViewContacts &&
		u.ContactAccessExpiresAt != nil &&
		u.ContactAccessExpiresAt.After(now)
}
