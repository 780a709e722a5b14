package mpesa

import (
	"fmt"
)

// CallbackEnvelope is the webhook body Daraja posts after an STK push
// resolves on the payer's phone.
type CallbackEnvelope struct {
	Body CallbackBody `json:"Body"`
}

type CallbackBody struct {
	StkCallback StkCallback `json:"stkCallback"`
}

// StkCallback carries the asynchronous result for one CheckoutRequestID.
// ResultCode 0 is success; any other code is a failure (1032 = cancelled by
// user, 1 = insufficient funds, and so on).
type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata is only present on success and holds name/value pairs
// such as the receipt number and the amount actually paid.
type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// Succeeded reports whether the payer completed the payment
func (cb StkCallback) Succeeded() bool {
	return cb.ResultCode == 0
}

// ReceiptNumber extracts the MpesaReceiptNumber metadata item. A successful
// callback without one is malformed, so absence is an explicit error rather
// than an empty string.
func (cb StkCallback) ReceiptNumber() (string, error) {
	item, ok := cb.metadataItem("MpesaReceiptNumber")
	if !ok {
		return "", fmt.Errorf("callback %s has no MpesaReceiptNumber item", cb.CheckoutRequestID)
	}
	receipt, ok := item.Value.(string)
	if !ok || receipt == "" {
		return "", fmt.Errorf("callback %s has a non-string MpesaReceiptNumber: %v", cb.CheckoutRequestID, item.Value)
	}
	return receipt, nil
}

// AmountPaid extracts the Amount metadata item when present
func (cb StkCallback) AmountPaid() (float64, bool) {
	item, ok := cb.metadataItem("Amount")
	if !ok {
		return 0, false
	}
	amount, ok := item.Value.(float64)
	return amount, ok
}

func (cb StkCallback) metadataItem(name string) (MetadataItem, bool) {
	if cb.CallbackMetadata == nil {
		return MetadataItem{}, false
	}
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name == name {
			return item, true
		}
	}
	return MetadataItem{}, false
}
