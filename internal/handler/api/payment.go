package api

import (
	"errors"
	"net/http"

	"renovecare/internal/domain/payment"
	reqdto "renovecare/internal/handler/dto/request"
	resdto "renovecare/internal/handler/dto/response"
	"renovecare/internal/handler/httperr"
	"renovecare/internal/handler/middleware"
	"renovecare/internal/usecase/commands"
	"renovecare/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PaymentHandler struct {
	cmds    commands.PaymentCommands
	queries queries.PaymentQueries
}

func NewPaymentHandler(cmds commands.PaymentCommands, qs queries.PaymentQueries) *PaymentHandler {
	return &PaymentHandler{cmds: cmds, queries: qs}
}

// @Summary Create payment
// @Description Open a charge for an approved request, or return the active one
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreatePaymentRequest true "Payment request"
// @Success 200 {object} resdto.PaymentResponse
// @Success 201 {object} resdto.PaymentResponse
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Failure 429 {object} httperr.Response
// @Failure 502 {object} httperr.Response
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.Internal(c, errors.New("missing user in context"))
		return
	}

	var req reqdto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Invalid request format")
		return
	}

	result, err := h.cmds.CreateOrGet(c.Request.Context(), commands.CreatePaymentInput{
		RequestID: req.RequestID,
		PayerID:   userID,
		Method:    payment.Method(req.Method),
	})
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrRequestNotFound):
			httperr.Abort(c, http.StatusNotFound, err, "Request not found")
		case errors.Is(err, commands.ErrRequestNotPayable):
			httperr.Abort(c, http.StatusUnprocessableEntity, err, "Request is not awaiting payment")
		case errors.Is(err, commands.ErrActivePaymentExists):
			httperr.Abort(c, http.StatusConflict, err, "Request already has an active payment")
		case errors.Is(err, commands.ErrPaymentRejected):
			httperr.Abort(c, http.StatusUnprocessableEntity, err, "Payment was rejected")
		case errors.Is(err, commands.ErrProviderFailure):
			httperr.Abort(c, http.StatusBadGateway, err, "Payment provider unavailable, retry later")
		default:
			httperr.Internal(c, err)
		}
		return
	}

	status := http.StatusCreated
	if result.Existed {
		status = http.StatusOK
	}
	c.JSON(status, resdto.FromPaymentEntity(result.Payment))
}

// @Summary Get payment
// @Description Get one payment, scoped to the payer
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} resdto.PaymentViewResponse
// @Failure 404 {object} httperr.Response
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	actor, role, ok := actorFromContext(c)
	if !ok {
		httperr.Internal(c, errors.New("missing user in context"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Invalid payment ID format")
		return
	}

	view, err := h.queries.GetPayment(c.Request.Context(), id, actor, role)
	if err != nil {
		if errors.Is(err, queries.ErrPaymentNotFound) {
			httperr.Abort(c, http.StatusNotFound, err, "Payment not found")
			return
		}
		httperr.Internal(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromPaymentView(view))
}
