package payment

import (
	"errors"
	"strings"
	"time"
)

// MpesaConfig contains configuration for the M-Pesa Daraja STK push API
type MpesaConfig struct {
	// BaseURL is the Daraja API origin (sandbox or production)
	BaseURL string
	// ConsumerKey is the app consumer key for OAuth
	ConsumerKey string
	// ConsumerSecret is the app consumer secret for OAuth
	ConsumerSecret string
	// ShortCode is the paybill or till number charges settle into
	ShortCode string
	// Passkey is the Lipa na M-Pesa online passkey for the short code
	Passkey string
	// CallbackURL is where Daraja posts the asynchronous charge result
	CallbackURL string
	// Timeout bounds each HTTP call to the API
	Timeout time.Duration
	// TokenExpirySlop renews the OAuth token this long before it expires
	TokenExpirySlop time.Duration
}

// Errors for configuration validation
var (
	ErrMpesaMissingBaseURL        = errors.New("mpesa: missing base URL")
	ErrMpesaMissingConsumerKey    = errors.New("mpesa: missing consumer key")
	ErrMpesaMissingConsumerSecret = errors.New("mpesa: missing consumer secret")
	ErrMpesaMissingShortCode      = errors.New("mpesa: missing short code")
	ErrMpesaMissingPasskey        = errors.New("mpesa: missing passkey")
	ErrMpesaMissingCallbackURL    = errors.New("mpesa: missing callback URL")
)

// Validate validates the configuration
func (c *MpesaConfig) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMpesaMissingBaseURL
	}
	if c.ConsumerKey == "" {
		return ErrMpesaMissingConsumerKey
	}
	if c.ConsumerSecret == "" {
		return ErrMpesaMissingConsumerSecret
	}
	if c.ShortCode == "" {
		return ErrMpesaMissingShortCode
	}
	if c.Passkey == "" {
		return ErrMpesaMissingPasskey
	}
	if c.CallbackURL == "" {
		return ErrMpesaMissingCallbackURL
	}
	return nil
}
