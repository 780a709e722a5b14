package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// MpesaCallbackLog keeps the raw gateway webhook payload for audit.
// Written best-effort: a failed insert never fails callback processing.
type MpesaCallbackLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CheckoutRequestID string          `gorm:"type:varchar(100);index" json:"checkout_request_id"`
	ResultCode        int             `json:"result_code"`
	Outcome           string          `gorm:"type:varchar(50)" json:"outcome"` // success or failure
	Payload           json.RawMessage `gorm:"type:jsonb" json:"payload"`
	SourceIP          string          `gorm:"type:varchar(64)" json:"source_ip"`
}
