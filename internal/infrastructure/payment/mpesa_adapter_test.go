package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyumbani/backend/internal/domain/payment"
)

func TestMpesaConfig_Validate(t *testing.T) {
	valid := func() *MpesaConfig {
		return &MpesaConfig{
			BaseURL:        "https://sandbox.safaricom.co.ke",
			ConsumerKey:    "key",
			ConsumerSecret: "secret",
			ShortCode:      "174379",
			Passkey:        "bfb279f9aa9bdbcf158e97dd71a467cd2e0c893059b10f78e6b72ada1ed2c919",
			CallbackURL:    "https://example.com/api/v1/payments/callback",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*MpesaConfig)
		wantErr error
	}{
		{
			name:    "valid config",
			mutate:  func(c *MpesaConfig) {},
			wantErr: nil,
		},
		{
			name:    "missing base URL",
			mutate:  func(c *MpesaConfig) { c.BaseURL = "" },
			wantErr: ErrMpesaMissingBaseURL,
		},
		{
			name:    "missing consumer key",
			mutate:  func(c *MpesaConfig) { c.ConsumerKey = "" },
			wantErr: ErrMpesaMissingConsumerKey,
		},
		{
			name:    "missing consumer secret",
			mutate:  func(c *MpesaConfig) { c.ConsumerSecret = "" },
			wantErr: ErrMpesaMissingConsumerSecret,
		},
		{
			name:    "missing short code",
			mutate:  func(c *MpesaConfig) { c.ShortCode = "" },
			wantErr: ErrMpesaMissingShortCode,
		},
		{
			name:    "missing passkey",
			mutate:  func(c *MpesaConfig) { c.Passkey = "" },
			wantErr: ErrMpesaMissingPasskey,
		},
		{
			name:    "missing callback URL",
			mutate:  func(c *MpesaConfig) { c.CallbackURL = "" },
			wantErr: ErrMpesaMissingCallbackURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// newMpesaTestServer serves the OAuth and STK push endpoints. tokenHits
// counts token fetches so tests can assert on caching behavior.
func newMpesaTestServer(t *testing.T, tokenHits *atomic.Int32, stkHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		if tokenHits != nil {
			tokenHits.Add(1)
		}
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","expires_in":"3599"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", stkHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newMpesaTestAdapter(t *testing.T, baseURL string) *MpesaAdapter {
	t.Helper()
	adapter, err := NewMpesaAdapter(&MpesaConfig{
		BaseURL:         baseURL,
		ConsumerKey:     "key",
		ConsumerSecret:  "secret",
		ShortCode:       "174379",
		Passkey:         "passkey",
		CallbackURL:     "https://example.com/api/v1/payments/callback",
		Timeout:         5 * time.Second,
		TokenExpirySlop: time.Minute,
	})
	require.NoError(t, err)
	return adapter
}

func validChargeRequest() *payment.ChargeRequest {
	return &payment.ChargeRequest{
		Amount:           decimal.NewFromInt(35000),
		PayerPhone:       "254712345678",
		AccountReference: "LEASE-2024-001",
		Description:      "Rent for January",
	}
}

func TestMpesaAdapter_StartCharge(t *testing.T) {
	t.Run("successful charge returns correlation id", func(t *testing.T) {
		var tokenHits atomic.Int32
		server := newMpesaTestServer(t, &tokenHits, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

			var req mpesaSTKPushRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "174379", req.BusinessShortCode)
			assert.Equal(t, "CustomerPayBillOnline", req.TransactionType)
			assert.Equal(t, "35000", req.Amount)
			assert.Equal(t, "254712345678", req.PartyA)
			assert.Equal(t, "254712345678", req.PhoneNumber)
			assert.Equal(t, "LEASE-2024-001", req.AccountReference)
			assert.NotEmpty(t, req.Password)
			assert.NotEmpty(t, req.Timestamp)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResponseCode": "0",
				"ResponseDescription": "Success. Request accepted for processing",
				"CustomerMessage": "Success. Request accepted for processing"
			}`))
		})

		adapter := newMpesaTestAdapter(t, server.URL)
		resp, err := adapter.StartCharge(context.Background(), validChargeRequest())
		require.NoError(t, err)
		assert.Equal(t, "ws_CO_191220191020363925", resp.CorrelationID)
		assert.Equal(t, "Success. Request accepted for processing", resp.CustomerMessage)
		assert.Equal(t, int32(1), tokenHits.Load())
	})

	t.Run("token is cached across charges", func(t *testing.T) {
		var tokenHits atomic.Int32
		server := newMpesaTestServer(t, &tokenHits, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"CheckoutRequestID":"ws_CO_1","ResponseCode":"0"}`))
		})

		adapter := newMpesaTestAdapter(t, server.URL)
		for i := 0; i < 3; i++ {
			_, err := adapter.StartCharge(context.Background(), validChargeRequest())
			require.NoError(t, err)
		}
		assert.Equal(t, int32(1), tokenHits.Load())
	})

	t.Run("expired token is refetched", func(t *testing.T) {
		var tokenHits atomic.Int32
		server := newMpesaTestServer(t, &tokenHits, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"CheckoutRequestID":"ws_CO_1","ResponseCode":"0"}`))
		})

		adapter := newMpesaTestAdapter(t, server.URL)
		_, err := adapter.StartCharge(context.Background(), validChargeRequest())
		require.NoError(t, err)

		// Move past the token lifetime
		adapter.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = adapter.StartCharge(context.Background(), validChargeRequest())
		require.NoError(t, err)
		assert.Equal(t, int32(2), tokenHits.Load())
	})

	t.Run("fractional amount is rounded up to whole shillings", func(t *testing.T) {
		server := newMpesaTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			var req mpesaSTKPushRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "36751", req.Amount)
			_, _ = w.Write([]byte(`{"CheckoutRequestID":"ws_CO_1","ResponseCode":"0"}`))
		})

		adapter := newMpesaTestAdapter(t, server.URL)
		req := validChargeRequest()
		req.Amount = decimal.RequireFromString("36750.25")
		_, err := adapter.StartCharge(context.Background(), req)
		require.NoError(t, err)
	})

	t.Run("non-zero response code is a rejection", func(t *testing.T) {
		server := newMpesaTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ResponseCode":"1032","ResponseDescription":"Request cancelled by user"}`))
		})

		adapter := newMpesaTestAdapter(t, server.URL)
		_, err := adapter.StartCharge(context.Background(), validChargeRequest())
		assert.ErrorIs(t, err, payment.ErrGatewayRequestRejected)
		assert.Contains(t, err.Error(), "Request cancelled by user")
	})

	t.Run("http error status is a rejection with the api message", func(t *testing.T) {
		server := newMpesaTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"requestId":"1234","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid PhoneNumber"}`))
		})

		adapter := newMpesaTestAdapter(t, server.URL)
		_, err := adapter.StartCharge(context.Background(), validChargeRequest())
		assert.ErrorIs(t, err, payment.ErrGatewayRequestRejected)
		assert.Contains(t, err.Error(), "Invalid PhoneNumber")
	})

	t.Run("server error maps to gateway unavailable", func(t *testing.T) {
		server := newMpesaTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		adapter := newMpesaTestAdapter(t, server.URL)
		_, err := adapter.StartCharge(context.Background(), validChargeRequest())
		assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	})

	t.Run("invalid phone fails before any API call", func(t *testing.T) {
		adapter := newMpesaTestAdapter(t, "http://127.0.0.1:1")
		req := validChargeRequest()
		req.PayerPhone = "0712345678"
		_, err := adapter.StartCharge(context.Background(), req)
		assert.ErrorIs(t, err, payment.ErrChargeInvalidPhone)
	})

	t.Run("auth failure maps to gateway auth error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		adapter := newMpesaTestAdapter(t, server.URL)
		_, err := adapter.StartCharge(context.Background(), validChargeRequest())
		assert.ErrorIs(t, err, payment.ErrGatewayAuthFailed)
	})
}

func TestMpesaAdapter_ParseCallback(t *testing.T) {
	adapter := newMpesaTestAdapter(t, "http://127.0.0.1:1")

	t.Run("successful callback with metadata", func(t *testing.T) {
		payload := []byte(`{
			"Body": {
				"stkCallback": {
					"MerchantRequestID": "29115-34620561-1",
					"CheckoutRequestID": "ws_CO_191220191020363925",
					"ResultCode": 0,
					"ResultDesc": "The service request is processed successfully.",
					"CallbackMetadata": {
						"Item": [
							{"Name": "Amount", "Value": 35000.00},
							{"Name": "MpesaReceiptNumber", "Value": "SLK7RT61SV"},
							{"Name": "TransactionDate", "Value": 20240310143022},
							{"Name": "PhoneNumber", "Value": 254712345678}
						]
					}
				}
			}
		}`)

		result, err := adapter.ParseCallback(payload)
		require.NoError(t, err)
		assert.Equal(t, "ws_CO_191220191020363925", result.CorrelationID)
		assert.True(t, result.Succeeded())
		assert.True(t, decimal.NewFromInt(35000).Equal(result.Amount))
		assert.Equal(t, "SLK7RT61SV", result.ReceiptNumber)
		assert.Equal(t, "254712345678", result.PayerPhone)
	})

	t.Run("failed callback has no metadata", func(t *testing.T) {
		payload := []byte(`{
			"Body": {
				"stkCallback": {
					"MerchantRequestID": "29115-34620561-1",
					"CheckoutRequestID": "ws_CO_191220191020363925",
					"ResultCode": 1032,
					"ResultDesc": "Request cancelled by user"
				}
			}
		}`)

		result, err := adapter.ParseCallback(payload)
		require.NoError(t, err)
		assert.Equal(t, "ws_CO_191220191020363925", result.CorrelationID)
		assert.False(t, result.Succeeded())
		assert.Equal(t, 1032, result.ResultCode)
		assert.Equal(t, "Request cancelled by user", result.ResultDesc)
		assert.Empty(t, result.ReceiptNumber)
	})

	t.Run("quoted metadata values are accepted", func(t *testing.T) {
		payload := []byte(`{
			"Body": {
				"stkCallback": {
					"CheckoutRequestID": "ws_CO_1",
					"ResultCode": 0,
					"ResultDesc": "ok",
					"CallbackMetadata": {
						"Item": [
							{"Name": "Amount", "Value": "42000.50"},
							{"Name": "PhoneNumber", "Value": "254712345678"}
						]
					}
				}
			}
		}`)

		result, err := adapter.ParseCallback(payload)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("42000.50").Equal(result.Amount))
		assert.Equal(t, "254712345678", result.PayerPhone)
	})

	t.Run("malformed JSON is rejected", func(t *testing.T) {
		_, err := adapter.ParseCallback([]byte(`{"Body": {`))
		assert.ErrorIs(t, err, payment.ErrGatewayInvalidCallback)
	})

	t.Run("missing correlation id is rejected", func(t *testing.T) {
		_, err := adapter.ParseCallback([]byte(`{"Body":{"stkCallback":{"ResultCode":0}}}`))
		assert.ErrorIs(t, err, payment.ErrGatewayInvalidCallback)
	})
}

func TestMpesaAdapter_GenerateCallbackResponse(t *testing.T) {
	adapter := newMpesaTestAdapter(t, "http://127.0.0.1:1")

	t.Run("accepted", func(t *testing.T) {
		body := adapter.GenerateCallbackResponse(true, "Accepted")
		var ack mpesaAck
		require.NoError(t, json.Unmarshal(body, &ack))
		assert.Equal(t, 0, ack.ResultCode)
		assert.Equal(t, "Accepted", ack.ResultDesc)
	})

	t.Run("rejected still produces an ack body", func(t *testing.T) {
		body := adapter.GenerateCallbackResponse(false, "Rejected")
		var ack mpesaAck
		require.NoError(t, json.Unmarshal(body, &ack))
		assert.Equal(t, 1, ack.ResultCode)
		assert.Equal(t, "Rejected", ack.ResultDesc)
	})
}

func TestStkPassword(t *testing.T) {
	// base64("174379" + "passkey" + "20240310143022")
	assert.Equal(t, "MTc0Mzc5cGFzc2tleTIwMjQwMzEwMTQzMDIy", stkPassword("174379", "passkey", "20240310143022"))
}
