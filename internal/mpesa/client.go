package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// ErrMissingCredentials means the Daraja environment is not configured.
// Checked eagerly at construction, before any network call.
var ErrMissingCredentials = errors.New("mpesa: missing gateway credentials")

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	tokenPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	stkQueryPath = "/mpesa/stkpushquery/v1/query"
)

// Config holds the Daraja gateway settings
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	Environment    string // "sandbox" or "production"
	CallbackURL    string
	BaseURL        string // optional override, used in tests
}

// LoadConfig reads the gateway configuration from the environment
func LoadConfig() Config {
	return Config{
		ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		Shortcode:      os.Getenv("MPESA_SHORTCODE"),
		Passkey:        os.Getenv("MPESA_PASSKEY"),
		Environment:    os.Getenv("MPESA_ENV"),
		CallbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
	}
}

// Client talks to the Daraja OAuth, STK-push and status-query endpoints
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient validates the configuration and builds a gateway client.
// Returns ErrMissingCredentials when any required key is absent.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" || cfg.Shortcode == "" || cfg.Passkey == "" || cfg.CallbackURL == "" {
		return nil, ErrMissingCredentials
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Environment == "production" {
			baseURL = productionBaseURL
		} else {
			baseURL = sandboxBaseURL
		}
	}

	return &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}, nil
}

// NewClientFromEnv builds a client from MPESA_* environment variables
func NewClientFromEnv() (*Client, error) {
	return NewClient(LoadConfig())
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// gatewayError is the Daraja error envelope returned on non-2xx responses
type gatewayError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// AccessToken obtains an OAuth bearer token using basic auth over the
// consumer key/secret. Retries transient failures with doubling backoff.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
		}

		token, err := c.fetchToken(ctx)
		if err == nil {
			return token, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tokenPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+credentials)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gateway rejected credentials: status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("gateway returned empty access token")
	}
	return tr.AccessToken, nil
}

// STKPushRequest describes one push prompt to a payer's phone
type STKPushRequest struct {
	PhoneNumber      string
	Amount           float64
	AccountReference string
	TransactionDesc  string
}

// STKPushResult is the gateway's synchronous acceptance or rejection.
// OK=false carries the gateway's own rejection; transport and configuration
// failures surface as errors instead.
type STKPushResult struct {
	OK                bool
	CheckoutRequestID string
	MerchantRequestID string
	ResponseCode      string
	CustomerMessage   string
	ErrorMessage      string
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiateSTKPush sends a payment prompt to the payer's phone. The phone
// number is normalized first and the amount rounded to whole shillings, which
// the gateway requires.
func (c *Client) InitiateSTKPush(ctx context.Context, push STKPushRequest) (*STKPushResult, error) {
	phone, err := FormatPhoneNumber(push.PhoneNumber)
	if err != nil {
		return nil, err
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := c.timestamp()
	payload := stkPushPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          c.password(ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int(math.Round(push.Amount)),
		PartyA:            phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  push.AccountReference,
		TransactionDesc:   push.TransactionDesc,
	}

	var resp stkPushResponse
	var gwErr *gatewayError
	if gwErr, err = c.postJSON(ctx, stkPushPath, token, payload, &resp); err != nil {
		return nil, err
	}
	if gwErr != nil {
		return &STKPushResult{
			OK:           false,
			ResponseCode: gwErr.ErrorCode,
			ErrorMessage: gwErr.ErrorMessage,
		}, nil
	}
	if resp.ResponseCode != "0" {
		return &STKPushResult{
			OK:           false,
			ResponseCode: resp.ResponseCode,
			ErrorMessage: resp.ResponseDescription,
		}, nil
	}

	return &STKPushResult{
		OK:                true,
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		ResponseCode:      resp.ResponseCode,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

type stkQueryPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type stkQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// StatusResult is the answer to a status query. OK=false means the gateway
// could not resolve the request (still processing, or unknown).
type StatusResult struct {
	OK         bool
	ResultCode string
	ResultDesc string
}

// QueryStatus asks the gateway for the outcome of a previously initiated push
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*StatusResult, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	ts := c.timestamp()
	payload := stkQueryPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          c.password(ts),
		Timestamp:         ts,
		CheckoutRequestID: checkoutRequestID,
	}

	var resp stkQueryResponse
	gwErr, err := c.postJSON(ctx, stkQueryPath, token, payload, &resp)
	if err != nil {
		return nil, err
	}
	if gwErr != nil {
		return &StatusResult{OK: false, ResultCode: gwErr.ErrorCode, ResultDesc: gwErr.ErrorMessage}, nil
	}

	return &StatusResult{
		OK:         resp.ResponseCode == "0",
		ResultCode: resp.ResultCode,
		ResultDesc: resp.ResultDesc,
	}, nil
}

// postJSON posts a bearer-authenticated JSON payload. Gateway-side rejections
// (non-2xx with a Daraja error envelope) come back as a gatewayError rather
// than an error, so callers can map them to expected-failure results.
func (c *Client) postJSON(ctx context.Context, path, token string, payload, out interface{}) (*gatewayError, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var gwErr gatewayError
		if err := json.Unmarshal(body, &gwErr); err != nil || gwErr.ErrorMessage == "" {
			return nil, fmt.Errorf("gateway request failed with status %d: %s", resp.StatusCode, string(body))
		}
		return &gwErr, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil, nil
}

// timestamp formats the current time as the YYYYMMDDHHMMSS string Daraja
// expects in push and query payloads
func (c *Client) timestamp() string {
	return c.now().Format("20060102150405")
}

// password derives the request password as base64(shortcode+passkey+timestamp)
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))
}
