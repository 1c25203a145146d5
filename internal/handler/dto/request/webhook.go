package request

// ProviderWebhookRequest mirrors the Mercado Pago notification body. Only
// data.id is read; any status a body claims is ignored because the HMAC
// signature covers nothing beyond the id, and settlement is decided against
// the provider's own payment endpoint.
type ProviderWebhookRequest struct {
	ID     int64  `json:"id"`
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}
