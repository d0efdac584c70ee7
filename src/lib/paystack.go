package lib

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"hbs/src/types"
)

const paystackBaseURL = "https://api.paystack.co"

type PaystackClient struct {
	BaseURL    string
	secretKey  string
	httpClient *http.Client
}

var paystackClient *PaystackClient

func GetPaystackClient() *PaystackClient {
	if paystackClient != nil {
		return paystackClient
	}
	c := &PaystackClient{
		BaseURL:   paystackBaseURL,
		secretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	paystackClient = c
	return c
}

// NewPaystackClient Replace gateway instance with custom client implementation
func NewPaystackClient(c *PaystackClient) *PaystackClient {
	paystackClient = c
	return c
}

// PaystackSignature computes the webhook signature over the raw, unparsed
// payload bytes. The gateway sends the same value in x-paystack-signature.
func PaystackSignature(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaystackSignatureValid reports whether signature matches the keyed MAC of
// body. The comparison is constant time.
func PaystackSignatureValid(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := PaystackSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks a webhook header against the client's secret.
func (c *PaystackClient) VerifyWebhookSignature(body []byte, signature string) bool {
	return PaystackSignatureValid(c.secretKey, body, signature)
}

func (c *PaystackClient) call(method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	res, err := c.httpClient.Do(req)
	if err != nil {
		return types.WrapError(types.KindExternalService, "gateway request failed", err)
	}
	defer res.Body.Close()
	rbytes, err := io.ReadAll(res.Body)
	if err != nil {
		return types.WrapError(types.KindExternalService, "error reading gateway response", err)
	}
	if res.StatusCode >= 500 {
		return types.NewError(types.KindExternalService, fmt.Sprintf("gateway returned %d", res.StatusCode))
	}
	if res.StatusCode >= 400 {
		log.Printf("[Paystack] %s %s returned %d: %s\n", method, path, res.StatusCode, string(rbytes))
		return types.NewError(types.KindValidation, fmt.Sprintf("gateway rejected request with %d", res.StatusCode))
	}
	if out != nil {
		if err := json.Unmarshal(rbytes, out); err != nil {
			return types.WrapError(types.KindExternalService, "error decoding gateway response", err)
		}
	}
	return nil
}

func (c *PaystackClient) InitializeTransaction(email string, amount int64, currency string, reference string, metadata types.JSONB) (*types.GatewayAuthorization, error) {
	var res struct {
		Status bool                       `json:"status"`
		Data   types.GatewayAuthorization `json:"data"`
	}
	payload := map[string]any{
		"email":     email,
		"amount":    amount,
		"currency":  currency,
		"reference": reference,
		"metadata":  metadata,
	}
	if err := c.call(http.MethodPost, "/transaction/initialize", payload, &res); err != nil {
		return nil, err
	}
	if !res.Status {
		return nil, types.NewError(types.KindExternalService, "gateway declined to initialize transaction")
	}
	return &res.Data, nil
}

func (c *PaystackClient) VerifyTransaction(reference string) (*types.GatewayVerification, error) {
	var res struct {
		Status bool `json:"status"`
		Data   struct {
			Status  string      `json:"status"`
			Amount  int64       `json:"amount"`
			Channel string      `json:"channel"`
			Raw     types.JSONB `json:"-"`
		} `json:"data"`
	}
	if err := c.call(http.MethodGet, "/transaction/verify/"+reference, nil, &res); err != nil {
		return nil, err
	}
	return &types.GatewayVerification{
		Status:  res.Data.Status,
		Amount:  res.Data.Amount,
		Channel: res.Data.Channel,
	}, nil
}

func (c *PaystackClient) InitiateTransfer(recipient string, amount int64, currency string, reference string, reason string) error {
	payload := map[string]any{
		"source":    "balance",
		"recipient": recipient,
		"amount":    amount,
		"currency":  currency,
		"reference": reference,
		"reason":    reason,
	}
	var res struct {
		Status bool `json:"status"`
	}
	if err := c.call(http.MethodPost, "/transfer", payload, &res); err != nil {
		return err
	}
	if !res.Status {
		return types.NewError(types.KindExternalService, "gateway declined to initiate transfer")
	}
	return nil
}
