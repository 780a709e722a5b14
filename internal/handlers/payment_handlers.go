package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"key2rent_backend/internal/models"
	"key2rent_backend/internal/mpesa"
	"key2rent_backend/internal/ports"
	"key2rent_backend/internal/services"
)

const (
	callbackIPLimit  = 50
	callbackIPWindow = time.Minute

	maxPollTimeout = 2 * time.Minute
)

// PaymentHandler exposes the M-Pesa payment endpoints
type PaymentHandler struct {
	service *services.PaymentService
	limiter *services.RateLimiter
}

func NewPaymentHandler(service *services.PaymentService, limiter *services.RateLimiter) *PaymentHandler {
	return &PaymentHandler{service: service, limiter: limiter}
}

// STKPush initiates a payment prompt on the payer's phone
func (h *PaymentHandler) STKPush(c echo.Context) error {
	var req StkPushRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	result, err := h.service.InitiatePayment(c.Request().Context(), services.InitiatePaymentRequest{
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
		Type:        models.TransactionType(req.Type),
		UserID:      req.UserID,
		UserEmail:   req.UserEmail,
		UserName:    req.UserName,
		ListingID:   req.ListingID,
		IPAddress:   c.RealIP(),
		UserAgent:   c.Request().UserAgent(),
	})
	if err != nil {
		var verr *services.ValidationError
		var gwErr *services.GatewayError
		switch {
		case errors.As(err, &verr):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Message})
		case errors.Is(err, services.ErrRateLimited):
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
		case errors.As(err, &gwErr):
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: gwErr.Message, Code: gwErr.Code})
		default:
			log.Printf("stk push failed: %v", err)
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "payment initiation failed"})
		}
	}

	return c.JSON(http.StatusOK, StkPushResponse{
		Success:           true,
		TransactionID:     result.TransactionID,
		CheckoutRequestID: result.CheckoutRequestID,
		Message:           result.Message,
		DocumentID:        result.DocumentID,
	})
}

// MpesaCallback receives the gateway's asynchronous result webhook. The
// contract with the gateway: acknowledge with ResultCode 0 no matter what
// happens internally, otherwise it redelivers. Internal failures are logged
// and swallowed.
func (h *PaymentHandler) MpesaCallback(c echo.Context) error {
	ip := c.RealIP()
	if !h.limiter.Allow(c.Request().Context(), "ratelimit:callback:"+ip, callbackIPLimit, callbackIPWindow) {
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
	}

	ack := CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		log.Printf("mpesa callback: failed to read body: %v", err)
		return c.JSON(http.StatusOK, ack)
	}

	var envelope mpesa.CallbackEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Printf("mpesa callback: malformed payload: %v", err)
		return c.JSON(http.StatusOK, ack)
	}

	if err := h.service.ProcessCallback(c.Request().Context(), envelope.Body.StkCallback, raw, ip); err != nil {
		log.Printf("mpesa callback: processing failed: %v", err)
	}
	return c.JSON(http.StatusOK, ack)
}

// CallbackHealth is the liveness probe the gateway configuration points at
func (h *PaymentHandler) CallbackHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "M-Pesa callback endpoint is live"})
}

// TransactionStatus is a point read for clients polling on an interval
func (h *PaymentHandler) TransactionStatus(c echo.Context) error {
	checkoutID := c.Param("checkoutRequestID")
	txn, err := h.service.TransactionByCheckoutID(c.Request().Context(), checkoutID)
	if errors.Is(err, ports.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "transaction not found"})
	}
	if err != nil {
		log.Printf("transaction status lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "lookup failed"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"transactionId":      txn.TransactionID,
		"checkoutRequestID":  txn.CheckoutRequestID,
		"status":             txn.Status,
		"statusMessage":      txn.StatusMessage,
		"mpesaReceiptNumber": txn.MpesaReceiptNumber,
		"completedAt":        txn.CompletedAt,
	})
}

// PollTransaction long-polls until the transaction leaves PENDING or the
// requested ceiling elapses. Disconnecting cancels the poll.
func (h *PaymentHandler) PollTransaction(c echo.Context) error {
	checkoutID := c.Param("checkoutRequestID")

	timeout := 30 * time.Second
	if s := c.QueryParam("timeout"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxPollTimeout {
			timeout = d
		}
	}

	result, err := h.service.PollTransaction(c.Request().Context(), checkoutID, services.PollOptions{
		Timeout: timeout,
	})
	if errors.Is(err, ports.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "transaction not found"})
	}
	if err != nil {
		log.Printf("poll failed for %s: %v", checkoutID, err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "poll failed"})
	}
	return c.JSON(http.StatusOK, result)
}
