package services

import (
	"context"
	"log"
	"time"

	"key2rent_backend/internal/models"
	"key2rent_backend/internal/ports"
)

// ReconcilePending queries gateway status for PENDING transactions older
// than olderThan and finalizes any with a definitive result, through the same
// idempotent path the webhook uses. Covers the cases where the callback was
// lost or arrived malformed. Returns how many transactions were finalized.
func (s *PaymentService) ReconcilePending(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	stale, err := s.store.PendingTransactionsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	log.Printf("reconciling %d stale pending transactions", len(stale))

	finalized := 0
	for _, txn := range stale {
		if ctx.Err() != nil {
			return finalized, ctx.Err()
		}

		status, err := s.gateway.QueryStatus(ctx, txn.CheckoutRequestID)
		if err != nil {
			log.Printf("reconcile: status query failed for %s: %v", txn.CheckoutRequestID, err)
			continue
		}
		if !status.OK {
			// Still processing or not resolvable yet; leave it for the next
			// sweep.
			continue
		}

		outcome := ports.Outcome{
			Status:      models.TransactionStatusFailed,
			Message:     status.ResultDesc,
			CompletedAt: s.now(),
		}
		if status.ResultCode == "0" {
			// The query response carries no receipt number; the grant still
			// applies, the receipt stays empty.
			outcome.Status = models.TransactionStatusSuccess
		}

		if _, err := s.store.FinalizeTransaction(ctx, txn.CheckoutRequestID, outcome); err != nil {
			log.Printf("reconcile: failed to finalize %s: %v", txn.CheckoutRequestID, err)
			continue
		}
		log.Printf("reconcile: %s finalized as %s", txn.CheckoutRequestID, outcome.Status)
		finalized++
	}
	return finalized, nil
}
