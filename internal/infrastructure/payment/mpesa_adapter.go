package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nyumbani/backend/internal/domain/payment"
)

const (
	mpesaOAuthPath   = "/oauth/v1/generate?grant_type=client_credentials"
	mpesaSTKPushPath = "/mpesa/stkpush/v1/processrequest"

	mpesaTransactionType = "CustomerPayBillOnline"
	mpesaTimestampLayout = "20060102150405"
)

// MpesaAdapter implements the payment.Gateway port against the M-Pesa
// Daraja STK push API. The OAuth token is cached and renewed with a
// configurable slop before expiry.
type MpesaAdapter struct {
	config     *MpesaConfig
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	// now is swapped in tests
	now func() time.Time
}

// NewMpesaAdapter creates a new Daraja adapter
func NewMpesaAdapter(config *MpesaConfig) (*MpesaAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &MpesaAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}, nil
}

// StartCharge queues an STK push prompt on the payer's handset. The
// returned correlation id is Daraja's CheckoutRequestID, echoed later
// in the result callback.
func (a *MpesaAdapter) StartCharge(ctx context.Context, req *payment.ChargeRequest) (*payment.ChargeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := a.now().Format(mpesaTimestampLayout)
	body := mpesaSTKPushRequest{
		BusinessShortCode: a.config.ShortCode,
		Password:          stkPassword(a.config.ShortCode, a.config.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   mpesaTransactionType,
		// Daraja only accepts whole shillings
		Amount:           req.Amount.Ceil().String(),
		PartyA:           req.PayerPhone,
		PartyB:           a.config.ShortCode,
		PhoneNumber:      req.PayerPhone,
		CallBackURL:      a.config.CallbackURL,
		AccountReference: req.AccountReference,
		TransactionDesc:  req.Description,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("mpesa: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+mpesaSTKPushPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("mpesa: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidResponse, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		// An expired token is retried once with a fresh one
		if httpResp.StatusCode == http.StatusUnauthorized {
			a.invalidateToken()
		}
		return nil, rejectionError(httpResp.StatusCode, respBody)
	}

	var resp mpesaSTKPushResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidResponse, err)
	}

	if resp.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: code %s: %s", payment.ErrGatewayRequestRejected, resp.ResponseCode, resp.ResponseDescription)
	}
	if resp.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", payment.ErrGatewayInvalidResponse)
	}

	return &payment.ChargeResponse{
		CorrelationID:       resp.CheckoutRequestID,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
	}, nil
}

// ParseCallback normalizes a Daraja STK push result webhook
func (a *MpesaAdapter) ParseCallback(payload []byte) (*payment.CallbackResult, error) {
	var envelope mpesaCallbackEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayInvalidCallback, err)
	}

	cb := envelope.Body.STKCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", payment.ErrGatewayInvalidCallback)
	}

	result := &payment.CallbackResult{
		CorrelationID: cb.CheckoutRequestID,
		ResultCode:    cb.ResultCode,
		ResultDesc:    cb.ResultDesc,
	}

	if cb.CallbackMetadata == nil {
		return result, nil
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			amount, err := metaDecimal(item.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: bad Amount: %v", payment.ErrGatewayInvalidCallback, err)
			}
			result.Amount = amount
		case "MpesaReceiptNumber":
			result.ReceiptNumber = metaString(item.Value)
		case "PhoneNumber":
			result.PayerPhone = metaString(item.Value)
		}
	}

	return result, nil
}

// GenerateCallbackResponse builds the acknowledgement Daraja expects.
// The webhook is always acknowledged; success only signals that the
// payload was accepted for reconciliation.
func (a *MpesaAdapter) GenerateCallbackResponse(success bool, message string) []byte {
	ack := mpesaAck{ResultDesc: message}
	if !success {
		ack.ResultCode = 1
	}
	body, _ := json.Marshal(ack)
	return body
}

// accessToken returns a valid OAuth token, fetching a new one when the
// cached token is within the expiry slop.
func (a *MpesaAdapter) accessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	slop := a.config.TokenExpirySlop
	if slop <= 0 {
		slop = 60 * time.Second
	}
	if a.token != "" && a.now().Add(slop).Before(a.tokenExpiry) {
		return a.token, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+mpesaOAuthPath, nil)
	if err != nil {
		return "", fmt.Errorf("mpesa: failed to build token request: %w", err)
	}
	httpReq.SetBasicAuth(a.config.ConsumerKey, a.config.ConsumerSecret)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrGatewayInvalidResponse, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", payment.ErrGatewayAuthFailed, httpResp.StatusCode)
	}

	var resp mpesaTokenResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", payment.ErrGatewayInvalidResponse, err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", payment.ErrGatewayAuthFailed)
	}

	expiresIn, err := strconv.Atoi(resp.ExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 3599
	}

	a.token = resp.AccessToken
	a.tokenExpiry = a.now().Add(time.Duration(expiresIn) * time.Second)
	return a.token, nil
}

func (a *MpesaAdapter) invalidateToken() {
	a.mu.Lock()
	a.token = ""
	a.tokenExpiry = time.Time{}
	a.mu.Unlock()
}

// stkPassword is base64(shortcode + passkey + timestamp) per the Daraja spec
func stkPassword(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

func rejectionError(status int, body []byte) error {
	var errResp mpesaErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.ErrorMessage != "" {
		return fmt.Errorf("%w: status %d: %s (%s)", payment.ErrGatewayRequestRejected, status, errResp.ErrorMessage, errResp.ErrorCode)
	}
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", payment.ErrGatewayUnavailable, status)
	}
	return fmt.Errorf("%w: status %d", payment.ErrGatewayRequestRejected, status)
}

// metaDecimal parses a callback metadata value that may arrive as a
// JSON number or a quoted string
func metaDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	return decimal.NewFromString(metaString(raw))
}

// metaString renders a callback metadata value as a plain string
func metaString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal(raw, &unquoted); err == nil {
			return unquoted
		}
	}
	return s
}
