package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testConfig(baseURL string) Config {
	return Config{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Shortcode:      "174379",
		Passkey:        "passkey123",
		Environment:    "sandbox",
		CallbackURL:    "https://example.com/api/mpesa/callback",
		BaseURL:        baseURL,
	}
}

func TestNewClientMissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty config", Config{}},
		{"missing secret", Config{ConsumerKey: "k", Shortcode: "s", Passkey: "p", CallbackURL: "c"}},
		{"missing passkey", Config{ConsumerKey: "k", ConsumerSecret: "s", Shortcode: "s", CallbackURL: "c"}},
		{"missing callback url", Config{ConsumerKey: "k", ConsumerSecret: "s", Shortcode: "s", Passkey: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.cfg); err != ErrMissingCredentials {
				t.Errorf("NewClient() error = %v; want ErrMissingCredentials", err)
			}
		})
	}
}

func TestAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
		if got := r.Header.Get("Authorization"); got != wantAuth {
			t.Errorf("Authorization = %q; want %q", got, wantAuth)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "token-abc", "expires_in": "3599"})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	token, err := client.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken() returned error: %v", err)
	}
	if token != "token-abc" {
		t.Errorf("AccessToken() = %q; want token-abc", token)
	}
}

func TestInitiateSTKPush(t *testing.T) {
	var captured stkPushPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
		case "/mpesa/stkpush/v1/processrequest":
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("Authorization = %q; want Bearer tok", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("failed to decode push payload: %v", err)
			}
			json.NewEncoder(w).Encode(stkPushResponse{
				MerchantRequestID:   "29115-34620561-1",
				CheckoutRequestID:   "ws_CO_123",
				ResponseCode:        "0",
				ResponseDescription: "Success. Request accepted for processing",
				CustomerMessage:     "Success. Request accepted for processing",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	client.now = func() time.Time {
		return time.Date(2026, 3, 1, 14, 30, 45, 0, time.UTC)
	}

	result, err := client.InitiateSTKPush(context.Background(), STKPushRequest{
		PhoneNumber:      "0712345678",
		Amount:           99.6,
		AccountReference: "K2R-CONTACT",
		TransactionDesc:  "Contact access",
	})
	if err != nil {
		t.Fatalf("InitiateSTKPush() returned error: %v", err)
	}

	if !result.OK {
		t.Fatalf("expected OK result, got %+v", result)
	}
	if result.CheckoutRequestID != "ws_CO_123" {
		t.Errorf("CheckoutRequestID = %q; want ws_CO_123", result.CheckoutRequestID)
	}

	if captured.PhoneNumber != "254712345678" {
		t.Errorf("PhoneNumber = %q; want 254712345678", captured.PhoneNumber)
	}
	if captured.Amount != 100 {
		t.Errorf("Amount = %d; want 100 (rounded)", captured.Amount)
	}
	if captured.Timestamp != "20260301143045" {
		t.Errorf("Timestamp = %q; want 20260301143045", captured.Timestamp)
	}
	wantPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "passkey123" + "20260301143045"))
	if captured.Password != wantPassword {
		t.Errorf("Password = %q; want %q", captured.Password, wantPassword)
	}
	if captured.TransactionType != "CustomerPayBillOnline" {
		t.Errorf("TransactionType = %q", captured.TransactionType)
	}
	if captured.CallBackURL != "https://example.com/api/mpesa/callback" {
		t.Errorf("CallBackURL = %q", captured.CallBackURL)
	}
}

func TestInitiateSTKPushGatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(gatewayError{
			RequestID:    "1234",
			ErrorCode:    "500.001.1001",
			ErrorMessage: "Unable to lock subscriber",
		})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	result, err := client.InitiateSTKPush(context.Background(), STKPushRequest{
		PhoneNumber: "0712345678",
		Amount:      100,
	})
	if err != nil {
		t.Fatalf("gateway rejection must not be an error, got: %v", err)
	}
	if result.OK {
		t.Fatal("expected OK=false for rejected push")
	}
	if result.ErrorMessage != "Unable to lock subscriber" {
		t.Errorf("ErrorMessage = %q", result.ErrorMessage)
	}
	if result.ResponseCode != "500.001.1001" {
		t.Errorf("ResponseCode = %q", result.ResponseCode)
	}
}

func TestInitiateSTKPushInvalidPhone(t *testing.T) {
	client, err := NewClient(testConfig("http://unused"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.InitiateSTKPush(context.Background(), STKPushRequest{PhoneNumber: "12345", Amount: 100}); err == nil {
		t.Error("expected validation error for malformed phone")
	}
}

func TestQueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
			return
		}
		var payload stkQueryPayload
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.CheckoutRequestID != "ws_CO_123" {
			t.Errorf("CheckoutRequestID = %q", payload.CheckoutRequestID)
		}
		json.NewEncoder(w).Encode(stkQueryResponse{
			ResponseCode: "0",
			ResultCode:   "1032",
			ResultDesc:   "Request cancelled by user",
		})
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	status, err := client.QueryStatus(context.Background(), "ws_CO_123")
	if err != nil {
		t.Fatalf("QueryStatus() returned error: %v", err)
	}
	if !status.OK {
		t.Error("expected OK=true")
	}
	if status.ResultCode != "1032" {
		t.Errorf("ResultCode = %q; want 1032", status.ResultCode)
	}
}
