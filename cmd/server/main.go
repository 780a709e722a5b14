package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"key2rent_backend/internal/handlers"
	authMiddleware "key2rent_backend/internal/middleware"
	"key2rent_backend/internal/mpesa"
	"key2rent_backend/internal/repository"
	"key2rent_backend/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Firebase
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}
	authClient, err := services.InitFirebase(credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Authenticated endpoints will not work until valid credentials are provided")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis for rate-limit counters; the limiter degrades to
	// in-process counters when unset
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed, rate limits are per-instance: %v", err)
			cache = nil
		}
	} else {
		log.Println("Warning: REDIS_URL not set, rate limits are per-instance")
	}

	// Gateway credentials are required up front; fail before serving
	gateway, err := mpesa.NewClientFromEnv()
	if err != nil {
		log.Fatalf("M-Pesa gateway configuration error: %v", err)
	}

	limiter := services.NewRateLimiter(cache)
	store := repository.NewGormStore(db)
	paymentService := services.NewPaymentService(store, gateway, limiter)

	// Create Echo instance
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler

	paymentHandler := handlers.NewPaymentHandler(paymentService, limiter)
	listingHandler := handlers.NewListingHandler(paymentService)

	// Payment routes
	api := e.Group("/api")
	api.POST("/mpesa/stk-push", paymentHandler.STKPush)
	api.POST("/mpesa/callback", paymentHandler.MpesaCallback)
	api.GET("/mpesa/callback", paymentHandler.CallbackHealth)
	api.GET("/mpesa/status/:checkoutRequestID", paymentHandler.TransactionStatus)
	api.GET("/mpesa/poll/:checkoutRequestID", paymentHandler.PollTransaction)

	// Grant-gated routes
	protected := api.Group("", authMiddleware.RequireAuth(authClient))
	protected.GET("/listings/:id/contact", listingHandler.ListingContact)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
