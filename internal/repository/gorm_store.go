package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"key2rent_backend/internal/models"
	"key2rent_backend/internal/ports"
)

// GormStore is the Postgres-backed implementation of ports.TransactionStore
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return s.db.WithContext(ctx).Create(txn).Error
}

func (s *GormStore) TransactionByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *GormStore) PendingTransactionsBefore(ctx context.Context, cutoff time.Time) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.TransactionStatusPending, cutoff).
		Order("created_at asc").
		Find(&txns).Error
	return txns, err
}

// FinalizeTransaction applies the terminal outcome, the grant and the revenue
// increment inside one database transaction, with the row locked for the
// duration. A transaction that is already terminal is returned untouched, so
// redelivered webhooks and concurrent reconciliation cannot double-apply.
func (s *GormStore) FinalizeTransaction(ctx context.Context, checkoutRequestID string, outcome ports.Outcome) (*models.Transaction, error) {
	var result *models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn models.Transaction
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("checkout_request_id = ?", checkoutRequestID).
			First(&txn).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ErrNotFound
		}
		if err != nil {
			return err
		}

		if txn.Status.Terminal() {
			result = &txn
			return nil
		}

		txn.Status = outcome.Status
		txn.StatusMessage = outcome.Message
		completed := outcome.CompletedAt
		txn.CompletedAt = &completed

		if outcome.Status == models.TransactionStatusSuccess {
			txn.MpesaReceiptNumber = outcome.ReceiptNumber
			if err := s.applyGrant(tx, &txn, completed); err != nil {
				return err
			}
			if err := s.incrementRevenue(tx, int64(txn.Amount)); err != nil {
				return err
			}
		}

		if err := tx.Save(&txn).Error; err != nil {
			return err
		}
		result = &txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyGrant resolves the target record for the transaction type and applies
// the paid-for effect. A listing-scoped transaction whose listing is missing
// degrades to a logged no-op; the payment itself still completes.
func (s *GormStore) applyGrant(tx *gorm.DB, txn *models.Transaction, now time.Time) error {
	var user *models.User
	var listing *models.Listing

	switch {
	case txn.Type == models.TransactionTypeContactAccess:
		var u models.User
		err := tx.Where("firebase_uid = ?", txn.UserID).First(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			u = models.User{FirebaseUID: txn.UserID, Email: txn.UserEmail, Name: txn.UserName}
		} else if err != nil {
			return err
		}
		user = &u
	case txn.ListingID != nil:
		var l models.Listing
		err := tx.First(&l, *txn.ListingID).Error
		if err == nil {
			listing = &l
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if !models.ApplyGrant(txn.Type, user, listing, now) {
		log.Printf("transaction %s: no grant target for type %s, skipping", txn.TransactionID, txn.Type)
		return nil
	}

	if user != nil {
		if err := tx.Save(user).Error; err != nil {
			return fmt.Errorf("failed to save user grant: %w", err)
		}
	}
	if listing != nil {
		if err := tx.Save(listing).Error; err != nil {
			return fmt.Errorf("failed to save listing grant: %w", err)
		}
	}
	txn.GrantApplied = true
	return nil
}

// incrementRevenue bumps the singleton platform counters row
func (s *GormStore) incrementRevenue(tx *gorm.DB, amount int64) error {
	var settings models.PlatformSettings
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).FirstOrCreate(&settings, models.PlatformSettings{ID: 1}).Error; err != nil {
		return err
	}
	return tx.Model(&settings).UpdateColumns(map[string]interface{}{
		"total_revenue":      gorm.Expr("total_revenue + ?", amount),
		"total_transactions": gorm.Expr("total_transactions + 1"),
	}).Error
}

func (s *GormStore) LogCallback(ctx context.Context, entry *models.MpesaCallbackLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) UserByUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("firebase_uid = ?", uid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) ListingByID(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.WithContext(ctx).First(&listing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
