package services

import (
	"context"
	"time"

	"key2rent_backend/internal/models"
)

// PollOutcome is the terminal report of a polling session
type PollOutcome string

const (
	PollOutcomeSuccess PollOutcome = "SUCCESS"
	PollOutcomeFailed  PollOutcome = "FAILED"
	PollOutcomeTimeout PollOutcome = "TIMEOUT"
)

// PollResult is what the UI shows when polling stops
type PollResult struct {
	Outcome       PollOutcome              `json:"outcome"`
	Status        models.TransactionStatus `json:"status"`
	ReceiptNumber string                   `json:"receipt_number,omitempty"`
	Message       string                   `json:"message,omitempty"`
}

// PollOptions tunes the polling loop. Zero values pick the defaults.
type PollOptions struct {
	Interval time.Duration // default 2s
	Timeout  time.Duration // default 60s
}

// PollTransaction reads the transaction record at a fixed interval until its
// status leaves PENDING or the ceiling elapses. Context cancellation stops
// the loop immediately (the caller went away).
func (s *PaymentService) PollTransaction(ctx context.Context, checkoutRequestID string, opts PollOptions) (*PollResult, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		txn, err := s.store.TransactionByCheckoutID(ctx, checkoutRequestID)
		if err != nil {
			return nil, err
		}
		if txn.Status.Terminal() {
			outcome := PollOutcomeFailed
			if txn.Status == models.TransactionStatusSuccess {
				outcome = PollOutcomeSuccess
			}
			return &PollResult{
				Outcome:       outcome,
				Status:        txn.Status,
				ReceiptNumber: txn.MpesaReceiptNumber,
				Message:       txn.StatusMessage,
			}, nil
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			return &PollResult{
				Outcome: PollOutcomeTimeout,
				Status:  txn.Status,
				Message: "payment still pending, check again later",
			}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
