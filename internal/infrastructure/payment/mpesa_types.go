package payment

import "encoding/json"

// mpesaTokenResponse is the OAuth client-credentials response.
// Daraja returns expires_in as a string of seconds.
type mpesaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// mpesaSTKPushRequest is the Lipa na M-Pesa online charge request
type mpesaSTKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// mpesaSTKPushResponse is the synchronous acceptance of a charge request.
// ResponseCode "0" means the prompt was queued to the handset.
type mpesaSTKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// mpesaErrorResponse is the error body Daraja returns on non-2xx statuses
type mpesaErrorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// mpesaCallbackEnvelope is the asynchronous STK push result webhook body
type mpesaCallbackEnvelope struct {
	Body struct {
		STKCallback mpesaSTKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type mpesaSTKCallback struct {
	MerchantRequestID string             `json:"MerchantRequestID"`
	CheckoutRequestID string             `json:"CheckoutRequestID"`
	ResultCode        int                `json:"ResultCode"`
	ResultDesc        string             `json:"ResultDesc"`
	CallbackMetadata  *mpesaCallbackMeta `json:"CallbackMetadata,omitempty"`
}

// mpesaCallbackMeta carries the confirmation details as a name/value list.
// Values are numbers or strings depending on the item.
type mpesaCallbackMeta struct {
	Item []mpesaCallbackItem `json:"Item"`
}

type mpesaCallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// mpesaAck is the acknowledgement body Daraja expects in reply to its webhook
type mpesaAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}
