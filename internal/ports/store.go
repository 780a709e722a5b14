package ports

import (
	"context"
	"errors"
	"time"

	"key2rent_backend/internal/models"
)

// ErrNotFound is returned when a looked-up record does not exist
var ErrNotFound = errors.New("record not found")

// Outcome describes the terminal result to apply to a PENDING transaction
type Outcome struct {
	Status        models.TransactionStatus // SUCCESS or FAILED
	Message       string
	ReceiptNumber string // only on SUCCESS
	CompletedAt   time.Time
}

// TransactionStore is the persistence surface the payment service needs.
// Implemented by the GORM store in repository and by in-memory fakes in tests.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	TransactionByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error)

	// PendingTransactionsBefore lists PENDING transactions created before the
	// cutoff, for the reconciliation sweep.
	PendingTransactionsBefore(ctx context.Context, cutoff time.Time) ([]models.Transaction, error)

	// FinalizeTransaction moves a PENDING transaction to a terminal status
	// and, on SUCCESS, applies the type-specific grant and increments the
	// platform revenue counter in the same atomic write. Finalizing an
	// already-terminal transaction is a no-op that returns the stored record
	// unchanged, which is what makes webhook redelivery safe.
	FinalizeTransaction(ctx context.Context, checkoutRequestID string, outcome Outcome) (*models.Transaction, error)

	// LogCallback stores a raw webhook payload for audit. Best-effort at the
	// call site: failures are logged and swallowed.
	LogCallback(ctx context.Context, entry *models.MpesaCallbackLog) error

	UserByUID(ctx context.Context, uid string) (*models.User, error)
	ListingByID(ctx context.Context, id uint) (*models.Listing, error)
}
