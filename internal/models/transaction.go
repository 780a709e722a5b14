package models

import (
	"time"

	"gorm.io/gorm"
)

// TransactionType identifies what a payment unlocks
type TransactionType string

const (
	TransactionTypeContactAccess   TransactionType = "CONTACT_ACCESS"
	TransactionTypeVacancyListing  TransactionType = "VACANCY_LISTING"
	TransactionTypeFeaturedListing TransactionType = "FEATURED_LISTING"
	TransactionTypeBoostedListing  TransactionType = "BOOSTED_LISTING"
)

// ValidTransactionType reports whether t is one of the four known types
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TransactionTypeContactAccess, TransactionTypeVacancyListing,
		TransactionTypeFeaturedListing, TransactionTypeBoostedListing:
		return true
	}
	return false
}

// ListingScoped reports whether the type targets a specific listing
func (t TransactionType) ListingScoped() bool {
	return t == TransactionTypeVacancyListing ||
		t == TransactionTypeFeaturedListing ||
		t == TransactionTypeBoostedListing
}

// TransactionStatus represents the lifecycle state of a payment attempt
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusSuccess   TransactionStatus = "SUCCESS"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// Terminal reports whether the status can no longer change
func (s TransactionStatus) Terminal() bool {
	return s != TransactionStatusPending && s != ""
}

// Transaction records one STK-push payment attempt.
// CheckoutRequestID is the gateway correlation key; there is exactly one
// transaction per CheckoutRequestID. Status only moves PENDING -> terminal,
// and a terminal transaction is never rewritten.
type Transaction struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	TransactionID     string `gorm:"type:varchar(100);uniqueIndex" json:"transaction_id"`
	CheckoutRequestID string `gorm:"type:varchar(100);uniqueIndex" json:"checkout_request_id"`
	MerchantRequestID string `gorm:"type:varchar(100)" json:"merchant_request_id"`

	UserID      string            `gorm:"type:varchar(128);index" json:"user_id"`
	UserEmail   string            `gorm:"type:varchar(255)" json:"user_email"`
	UserName    string            `gorm:"type:varchar(255)" json:"user_name"`
	Type        TransactionType   `gorm:"type:varchar(30);not null" json:"type"`
	Amount      int               `gorm:"not null" json:"amount"` // KES, whole shillings
	PhoneNumber string            `gorm:"type:varchar(20)" json:"phone_number"`
	ListingID   *uint             `gorm:"index" json:"listing_id,omitempty"`
	Status      TransactionStatus `gorm:"type:varchar(20);index;default:'PENDING'" json:"status"`

	StatusMessage      string     `gorm:"type:text" json:"status_message"`
	MpesaReceiptNumber string     `gorm:"type:varchar(50)" json:"mpesa_receipt_number,omitempty"`
	// GrantApplied guards against webhook redelivery double-applying the
	// paid-for effect. Set in the same database transaction as the grant.
	GrantApplied bool       `gorm:"default:false" json:"grant_applied"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	IPAddress string `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent string `gorm:"type:text" json:"user_agent"`
}
