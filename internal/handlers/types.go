package handlers

// StkPushRequest is the body of POST /api/mpesa/stk-push
type StkPushRequest struct {
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	UserID      string  `json:"userId"`
	UserEmail   string  `json:"userEmail,omitempty"`
	UserName    string  `json:"userName,omitempty"`
	ListingID   *uint   `json:"listingId,omitempty"`
}

// StkPushResponse is returned once the gateway accepts the push
type StkPushResponse struct {
	Success           bool   `json:"success"`
	TransactionID     string `json:"transactionId"`
	CheckoutRequestID string `json:"checkoutRequestID"`
	Message           string `json:"message"`
	DocumentID        string `json:"documentId"`
}

// CallbackAck is the only body the gateway webhook ever receives back.
// Anything else triggers gateway-side redelivery.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// ErrorResponse is the standard error body for the payment API
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
