package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	reqdto "renovecare/internal/handler/dto/request"
	"renovecare/internal/handler/httperr"
	"renovecare/internal/infra/provider"
	"renovecare/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const providerName = "mercadopago"

// SignatureValidator is implemented by the provider client.
type SignatureValidator interface {
	ValidateWebhookSignature(signatureHeader, requestIDHeader, dataID string) error
}

type WebhookHandler struct {
	cmds      commands.WebhookCommands
	validator SignatureValidator
}

func NewWebhookHandler(cmds commands.WebhookCommands, validator SignatureValidator) *WebhookHandler {
	return &WebhookHandler{cmds: cmds, validator: validator}
}

// @Summary Payment provider webhook
// @Description Receive a payment status notification from the provider
// @Tags webhooks
// @Accept json
// @Produce json
// @Param x-signature header string true "Provider HMAC signature"
// @Param x-request-id header string true "Provider request ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Router /webhooks/payment [post]
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Unreadable body")
		return
	}

	var body reqdto.ProviderWebhookRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Invalid webhook body")
		return
	}

	signature := c.GetHeader("x-signature")
	requestID := c.GetHeader("x-request-id")
	if err := h.validator.ValidateWebhookSignature(signature, requestID, body.Data.ID); err != nil {
		httperr.Abort(c, http.StatusUnauthorized, provider.ErrInvalidSignature, "Invalid signature")
		return
	}

	err = h.cmds.HandleProviderEvent(c.Request.Context(), commands.ProviderEventInput{
		Provider:          providerName,
		ExternalEventID:   fmt.Sprintf("%d", body.ID),
		EventType:         body.Type,
		ProviderPaymentID: body.Data.ID,
		RawPayload:        raw,
	})
	if err != nil {
		// Non-200 makes the provider redeliver; the dedupe row keeps the
		// retry from double-applying once processing succeeds.
		httperr.Internal(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
