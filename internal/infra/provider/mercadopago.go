package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"renovecare/internal/domain/payment"
	"renovecare/internal/pkg/config"
	"renovecare/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrProviderUnavailable = errs.New("payment provider unavailable")
	ErrProviderRejected    = errs.New("payment provider rejected the charge")
	ErrInvalidSignature    = errs.New("invalid webhook signature")
	ErrPaymentNotFound     = errs.New("payment unknown to the provider")
)

// ChargeRequest carries everything the provider needs to open a charge.
// IdempotencyKey must be stable across retries of the same logical charge;
// it is sent as X-Idempotency-Key so the processor collapses duplicates.
type ChargeRequest struct {
	RequestID      uuid.UUID
	IdempotencyKey string
	Method         payment.Method
	AmountCents    int64
	Description    string
	PayerEmail     string
}

type ChargeResult struct {
	ProviderPaymentID string
	Artifacts         payment.CheckoutArtifacts
}

// MercadoPagoClient talks to the Mercado Pago REST API. Pix charges go
// through /v1/payments, card checkouts through /checkout/preferences.
type MercadoPagoClient struct {
	baseURL     string
	accessToken string
	secret      string
	checkoutURL string
	httpClient  *http.Client
}

func NewMercadoPagoClient(cfg config.PaymentConfig) *MercadoPagoClient {
	return &MercadoPagoClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		secret:      cfg.WebhookSecret,
		checkoutURL: cfg.CheckoutURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *MercadoPagoClient) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.Method == payment.MethodPix {
		return c.createPixPayment(ctx, req)
	}
	return c.createCheckoutPreference(ctx, req)
}

type pixPaymentBody struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

type pixPaymentResponse struct {
	ID                 int64  `json:"id"`
	Status             string `json:"status"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
	DateOfExpiration string `json:"date_of_expiration"`
}

func (c *MercadoPagoClient) createPixPayment(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body := pixPaymentBody{
		TransactionAmount: float64(req.AmountCents) / 100,
		Description:       req.Description,
		PaymentMethodID:   "pix",
	}
	body.Payer.Email = req.PayerEmail

	var resp pixPaymentResponse
	if err := c.post(ctx, "/v1/payments", req.IdempotencyKey, body, &resp); err != nil {
		return nil, err
	}

	txn := resp.PointOfInteraction.TransactionData
	var artifacts payment.CheckoutArtifacts
	if txn.QRCode != "" {
		artifacts.QRCode = &txn.QRCode
		artifacts.PixCode = &txn.QRCode
	}
	if txn.QRCodeBase64 != "" {
		artifacts.QRCodeBase64 = &txn.QRCodeBase64
	}
	if expires, err := time.Parse(time.RFC3339, resp.DateOfExpiration); err == nil {
		artifacts.ExpiresAt = &expires
	}

	return &ChargeResult{
		ProviderPaymentID: fmt.Sprintf("%d", resp.ID),
		Artifacts:         artifacts,
	}, nil
}

type preferenceBody struct {
	ExternalReference string `json:"external_reference"`
	Items             []struct {
		Title     string  `json:"title"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unit_price"`
	} `json:"items"`
	BackURLs struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
	} `json:"back_urls"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

func (c *MercadoPagoClient) createCheckoutPreference(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body := preferenceBody{ExternalReference: req.RequestID.String()}
	body.Items = append(body.Items, struct {
		Title     string  `json:"title"`
		Quantity  int     `json:"quantity"`
		UnitPrice float64 `json:"unit_price"`
	}{Title: req.Description, Quantity: 1, UnitPrice: float64(req.AmountCents) / 100})
	body.BackURLs.Success = c.checkoutURL + "/success"
	body.BackURLs.Failure = c.checkoutURL + "/failure"

	var resp preferenceResponse
	if err := c.post(ctx, "/checkout/preferences", req.IdempotencyKey, body, &resp); err != nil {
		return nil, err
	}

	return &ChargeResult{
		ProviderPaymentID: resp.ID,
		Artifacts:         payment.CheckoutArtifacts{CheckoutURL: &resp.InitPoint},
	}, nil
}

type paymentStatusResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// PaymentStatus fetches the authoritative status of a charge. Webhook
// bodies are only authenticated as far as data.id, so settlement decisions
// always read the status from this endpoint, never from the notification.
func (c *MercadoPagoClient) PaymentStatus(ctx context.Context, providerPaymentID string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/payments/"+providerPaymentID, nil)
	if err != nil {
		return "", errs.Wrap(err, "failed to build provider request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errs.Mark(errs.Wrap(err, "provider request failed"), ErrProviderUnavailable)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return "", errs.Mark(errs.Wrap(err, "failed to read provider response"), ErrProviderUnavailable)
	}

	switch {
	case httpResp.StatusCode == http.StatusNotFound:
		return "", ErrPaymentNotFound
	case httpResp.StatusCode >= 400:
		return "", errs.Mark(errs.New(fmt.Sprintf("provider returned %d", httpResp.StatusCode)), ErrProviderUnavailable)
	}

	var resp paymentStatusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", errs.Wrap(err, "failed to decode provider response")
	}
	return resp.Status, nil
}

func (c *MercadoPagoClient) post(ctx context.Context, path, idempotencyKey string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(err, "failed to encode provider request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errs.Wrap(err, "failed to build provider request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Idempotency-Key", idempotencyKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures count as provider failure so the
		// caller can record a failed attempt and let the patient retry.
		return errs.Mark(errs.Wrap(err, "provider request failed"), ErrProviderUnavailable)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return errs.Mark(errs.Wrap(err, "failed to read provider response"), ErrProviderUnavailable)
	}

	if httpResp.StatusCode >= 500 {
		return errs.Mark(errs.New(fmt.Sprintf("provider returned %d", httpResp.StatusCode)), ErrProviderUnavailable)
	}
	if httpResp.StatusCode >= 400 {
		return errs.Mark(errs.New(fmt.Sprintf("provider returned %d: %s", httpResp.StatusCode, respBody)), ErrProviderRejected)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errs.Wrap(err, "failed to decode provider response")
	}
	return nil
}

// ValidateWebhookSignature checks the x-signature header Mercado Pago sends
// with webhook deliveries. The header carries ts and v1 parts; v1 is an
// HMAC-SHA256 over "id:<dataID>;request-id:<requestID>;ts:<ts>;".
func (c *MercadoPagoClient) ValidateWebhookSignature(signatureHeader, requestIDHeader, dataID string) error {
	var ts, v1 string
	for _, part := range strings.Split(signatureHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return errs.Mark(errs.New("malformed signature header"), ErrInvalidSignature)
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestIDHeader, ts)
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return errs.Mark(errs.New("signature mismatch"), ErrInvalidSignature)
	}
	return nil
}
