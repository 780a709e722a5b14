package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"key2rent_backend/internal/models"
	"key2rent_backend/internal/mpesa"
	"key2rent_backend/internal/ports"
)

// MaxAmountKES is the largest accepted payment, matching the gateway's
// single-transaction ceiling
const MaxAmountKES = 150000

const (
	initiationLimit  = 5
	initiationWindow = time.Hour
)

// ErrRateLimited means the user exceeded the initiation budget for the window
var ErrRateLimited = errors.New("too many payment attempts, please try again later")

// ValidationError marks bad request input; handlers map it to HTTP 400
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// GatewayError carries the payment gateway's rejection back to the caller
type GatewayError struct {
	Message string
	Code    string
}

func (e *GatewayError) Error() string { return e.Message }

// StkGateway is the slice of the Daraja client the service depends on
type StkGateway interface {
	InitiateSTKPush(ctx context.Context, push mpesa.STKPushRequest) (*mpesa.STKPushResult, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.StatusResult, error)
}

// PaymentService drives the STK-push lifecycle: initiation, callback
// finalization, polling and reconciliation.
type PaymentService struct {
	store   ports.TransactionStore
	gateway StkGateway
	limiter *RateLimiter
	now     func() time.Time
}

func NewPaymentService(store ports.TransactionStore, gateway StkGateway, limiter *RateLimiter) *PaymentService {
	return &PaymentService{
		store:   store,
		gateway: gateway,
		limiter: limiter,
		now:     time.Now,
	}
}

// InitiatePaymentRequest is the validated input for one payment attempt
type InitiatePaymentRequest struct {
	PhoneNumber string
	Amount      float64
	Type        models.TransactionType
	UserID      string
	UserEmail   string
	UserName    string
	ListingID   *uint
	IPAddress   string
	UserAgent   string
}

// InitiatePaymentResult mirrors what the client needs to start polling
type InitiatePaymentResult struct {
	TransactionID     string
	CheckoutRequestID string
	Message           string
	DocumentID        string
}

// paymentDescription returns the human description and gateway account
// reference for a transaction type
func paymentDescription(t models.TransactionType) (desc, accountRef string) {
	switch t {
	case models.TransactionTypeContactAccess:
		return "Key-2-Rent contact access (30 days)", "K2R-CONTACT"
	case models.TransactionTypeVacancyListing:
		return "Key-2-Rent vacancy listing fee", "K2R-VACANCY"
	case models.TransactionTypeFeaturedListing:
		return "Key-2-Rent featured listing (30 days)", "K2R-FEATURED"
	case models.TransactionTypeBoostedListing:
		return "Key-2-Rent boosted listing (7 days)", "K2R-BOOST"
	}
	return "Key-2-Rent payment", "K2R"
}

func (s *PaymentService) generateTransactionID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("K2R-%s-%s", s.now().Format("20060102150405"), suffix)
}

// InitiatePayment validates the request, pushes the payment prompt through
// the gateway and persists a PENDING transaction. Validation order is fixed:
// field presence, then type, then the per-user rate limit, then amount
// bounds. No record is persisted unless the gateway accepts the push.
func (s *PaymentService) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*InitiatePaymentResult, error) {
	if req.PhoneNumber == "" || req.UserID == "" || req.Type == "" || req.Amount == 0 {
		return nil, &ValidationError{Message: "phoneNumber, amount, type and userId are required"}
	}
	if !models.ValidTransactionType(req.Type) {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown payment type %q", req.Type)}
	}
	if !s.limiter.Allow(ctx, "ratelimit:stk:"+req.UserID, initiationLimit, initiationWindow) {
		return nil, ErrRateLimited
	}
	if req.Amount <= 0 || req.Amount > MaxAmountKES {
		return nil, &ValidationError{Message: fmt.Sprintf("amount must be between 1 and %d KES", MaxAmountKES)}
	}

	phone, err := mpesa.FormatPhoneNumber(req.PhoneNumber)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	desc, accountRef := paymentDescription(req.Type)
	push, err := s.gateway.InitiateSTKPush(ctx, mpesa.STKPushRequest{
		PhoneNumber:      phone,
		Amount:           req.Amount,
		AccountReference: accountRef,
		TransactionDesc:  desc,
	})
	if err != nil {
		return nil, fmt.Errorf("stk push failed: %w", err)
	}
	if !push.OK {
		return nil, &GatewayError{Message: push.ErrorMessage, Code: push.ResponseCode}
	}

	txn := &models.Transaction{
		TransactionID:     s.generateTransactionID(),
		CheckoutRequestID: push.CheckoutRequestID,
		MerchantRequestID: push.MerchantRequestID,
		UserID:            req.UserID,
		UserEmail:         req.UserEmail,
		UserName:          req.UserName,
		Type:              req.Type,
		Amount:            int(req.Amount),
		PhoneNumber:       phone,
		ListingID:         req.ListingID,
		Status:            models.TransactionStatusPending,
		StatusMessage:     "STK push sent, awaiting confirmation",
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
	}
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	message := push.CustomerMessage
	if message == "" {
		message = "Payment initiated. Check your phone to complete."
	}
	return &InitiatePaymentResult{
		TransactionID:     txn.TransactionID,
		CheckoutRequestID: txn.CheckoutRequestID,
		Message:           message,
		DocumentID:        fmt.Sprint(txn.ID),
	}, nil
}

// ProcessCallback applies one gateway webhook. All failures here are
// internal: the HTTP layer acknowledges the webhook regardless, so errors
// returned from this method are logged and go no further.
func (s *PaymentService) ProcessCallback(ctx context.Context, cb mpesa.StkCallback, raw json.RawMessage, sourceIP string) error {
	outcome := "failure"
	if cb.Succeeded() {
		outcome = "success"
	}

	// Audit trail first, best-effort
	entry := &models.MpesaCallbackLog{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		Outcome:           outcome,
		Payload:           raw,
		SourceIP:          sourceIP,
	}
	if err := s.store.LogCallback(ctx, entry); err != nil {
		log.Printf("callback audit log failed for %s: %v", cb.CheckoutRequestID, err)
	}

	txn, err := s.store.TransactionByCheckoutID(ctx, cb.CheckoutRequestID)
	if errors.Is(err, ports.ErrNotFound) {
		log.Printf("callback for unknown CheckoutRequestID %s, ignoring", cb.CheckoutRequestID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up transaction %s: %w", cb.CheckoutRequestID, err)
	}
	if txn.Status.Terminal() {
		log.Printf("callback replay for %s (already %s), ignoring", cb.CheckoutRequestID, txn.Status)
		return nil
	}

	result := ports.Outcome{
		Status:      models.TransactionStatusFailed,
		Message:     cb.ResultDesc,
		CompletedAt: s.now(),
	}
	if cb.Succeeded() {
		receipt, err := cb.ReceiptNumber()
		if err != nil {
			// Malformed success payload. Leave the transaction PENDING for
			// the reconciliation sweep rather than completing without a
			// receipt.
			return fmt.Errorf("success callback without receipt: %w", err)
		}
		result.Status = models.TransactionStatusSuccess
		result.ReceiptNumber = receipt
	}

	if _, err := s.store.FinalizeTransaction(ctx, cb.CheckoutRequestID, result); err != nil {
		return fmt.Errorf("failed to finalize transaction %s: %w", cb.CheckoutRequestID, err)
	}
	log.Printf("transaction %s finalized as %s", cb.CheckoutRequestID, result.Status)
	return nil
}

// TransactionByCheckoutID exposes a point read for status polling clients
func (s *PaymentService) TransactionByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	return s.store.TransactionByCheckoutID(ctx, checkoutRequestID)
}

// UserByUID looks up a platform user by Firebase UID
func (s *PaymentService) UserByUID(ctx context.Context, uid string) (*models.User, error) {
	return s.store.UserByUID(ctx, uid)
}

// ListingByID looks up a listing
func (s *PaymentService) ListingByID(ctx context.Context, id uint) (*models.Listing, error) {
	return s.store.ListingByID(ctx, id)
}
