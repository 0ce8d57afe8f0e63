package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/quickhire-gh/quickhire/internal/payment"
)

// Client implements payment.Provider against the Paystack HTTP API.
type Client struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewClient creates a Paystack client. baseURL is normally
// https://api.paystack.co.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

// channelsFor maps a payment method to Paystack channels. Mobile money
// methods also carry the network provider in the request metadata.
func channelsFor(method string) ([]string, string) {
	switch method {
	case "mtn_momo":
		return []string{"mobile_money"}, "mtn"
	case "vodafone_cash":
		return []string{"mobile_money"}, "vod"
	case "airtel_money":
		return []string{"mobile_money"}, "tgo"
	case "card":
		return []string{"card"}, ""
	default:
		return []string{"card", "mobile_money", "bank_transfer"}, ""
	}
}

func (c *Client) InitializeCharge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	channels, momoProvider := channelsFor(req.PaymentMethod)

	metadata := map[string]any{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if momoProvider != "" {
		metadata["mobile_money_provider"] = momoProvider
	}

	body := map[string]any{
		"reference":    req.Reference,
		"email":        req.Email,
		"amount":       payment.MinorUnits(req.Amount),
		"currency":     req.Currency,
		"callback_url": req.CallbackURL,
		"channels":     channels,
		"metadata":     metadata,
	}

	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/transaction/initialize", body, &resp); err != nil {
		return payment.ChargeResult{}, err
	}
	if !resp.Status {
		return payment.ChargeResult{}, fmt.Errorf("%w: %s", payment.ErrChargeDeclined, resp.Message)
	}

	return payment.ChargeResult{
		Reference:        resp.Data.Reference,
		AuthorizationURL: resp.Data.AuthorizationURL,
		AccessCode:       resp.Data.AccessCode,
	}, nil
}

func (c *Client) VerifyCharge(ctx context.Context, reference string) (payment.VerifyResult, error) {
	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			ID        int64     `json:"id"`
			Status    string    `json:"status"`
			Reference string    `json:"reference"`
			Amount    int64     `json:"amount"`
			Currency  string    `json:"currency"`
			Channel   string    `json:"channel"`
			PaidAt    time.Time `json:"paid_at"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/transaction/verify/"+reference, &resp); err != nil {
		return payment.VerifyResult{}, err
	}
	if !resp.Status {
		return payment.VerifyResult{}, fmt.Errorf("%w: %s", payment.ErrUnknownReference, resp.Message)
	}

	return payment.VerifyResult{
		Reference:     resp.Data.Reference,
		Settled:       resp.Data.Status == "success",
		Amount:        payment.MajorUnits(resp.Data.Amount),
		Currency:      resp.Data.Currency,
		TransactionID: fmt.Sprintf("%d", resp.Data.ID),
		Channel:       resp.Data.Channel,
		PaidAt:        resp.Data.PaidAt,
	}, nil
}

func (c *Client) ReleasePayout(ctx context.Context, req payment.PayoutRequest) (payment.PayoutResult, error) {
	body := map[string]any{
		"source":    "balance",
		"reference": req.Reference,
		"recipient": req.WorkerID,
		"amount":    payment.MinorUnits(req.Amount),
		"currency":  req.Currency,
		"reason":    req.Reason,
	}

	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			TransferCode string `json:"transfer_code"`
			Status       string `json:"status"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/transfer", body, &resp); err != nil {
		return payment.PayoutResult{}, err
	}
	if !resp.Status {
		return payment.PayoutResult{}, fmt.Errorf("%w: %s", payment.ErrTransferFailed, resp.Message)
	}

	return payment.PayoutResult{
		TransferCode: resp.Data.TransferCode,
		Status:       resp.Data.Status,
	}, nil
}

func (c *Client) Refund(ctx context.Context, req payment.RefundRequest) (payment.RefundResult, error) {
	body := map[string]any{
		"transaction":   req.Reference,
		"merchant_note": req.Reason,
	}
	if req.Amount > 0 {
		body["amount"] = payment.MinorUnits(req.Amount)
	}

	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/refund", body, &resp); err != nil {
		return payment.RefundResult{}, err
	}
	if !resp.Status {
		return payment.RefundResult{}, fmt.Errorf("%w: %s", payment.ErrRefundFailed, resp.Message)
	}

	return payment.RefundResult{
		RefundID: fmt.Sprintf("%d", resp.Data.ID),
		Status:   resp.Data.Status,
	}, nil
}

// VerifyWebhookSignature checks the x-paystack-signature header, an
// HMAC-SHA512 of the raw body keyed with the secret key.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setHeaders(httpReq)

	return c.do(httpReq, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", payment.ErrProviderUnreachable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", payment.ErrProviderTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", payment.ErrProviderTimeout, err)
		}
	}

	return fmt.Errorf("%w: %v", payment.ErrProviderUnreachable, err)
}
