package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"

	"key2rent_backend/internal/mpesa"
	"key2rent_backend/internal/repository"
	"key2rent_backend/internal/services"
)

const defaultSweepInterval = 5 * time.Minute

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	gateway, err := mpesa.NewClientFromEnv()
	if err != nil {
		log.Fatalf("M-Pesa gateway configuration error: %v", err)
	}

	threshold := 10 * time.Minute
	if s := os.Getenv("RECONCILE_THRESHOLD"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			threshold = d
		}
	}

	store := repository.NewGormStore(db)
	paymentService := services.NewPaymentService(store, gateway, services.NewRateLimiter(nil))

	log.Println("Reconciliation worker started")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down worker...")
		cancel()
	}()

	// Optional RRULE schedule (e.g. "FREQ=MINUTELY;INTERVAL=10"); falls back
	// to a fixed ticker when unset or unparseable
	var rule *rrule.RRule
	if s := os.Getenv("RECONCILE_SCHEDULE"); s != "" {
		rule, err = rrule.StrToRRule(s)
		if err != nil {
			log.Printf("Invalid RECONCILE_SCHEDULE %q, using %s ticker: %v", s, defaultSweepInterval, err)
			rule = nil
		} else {
			rule.DTStart(time.Now())
		}
	}

	// Run once on start, then follow the schedule
	runSweep(ctx, paymentService, threshold)

	for {
		wait := defaultSweepInterval
		if rule != nil {
			next := rule.After(time.Now(), false)
			if next.IsZero() {
				log.Println("Schedule exhausted, stopping worker")
				return
			}
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		}

		select {
		case <-time.After(wait):
			runSweep(ctx, paymentService, threshold)
		case <-ctx.Done():
			return
		}
	}
}

func runSweep(ctx context.Context, svc *services.PaymentService, threshold time.Duration) {
	finalized, err := svc.ReconcilePending(ctx, threshold)
	if err != nil {
		log.Printf("Reconciliation sweep failed: %v", err)
		return
	}
	if finalized > 0 {
		log.Printf("Reconciliation sweep finalized %d transactions", finalized)
	}
}
