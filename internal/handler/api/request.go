package api

import (
	"encoding/json"
	"errors"
	"net/http"

	domain "renovecare/internal/domain/request"
	"renovecare/internal/domain/user"
	reqdto "renovecare/internal/handler/dto/request"
	resdto "renovecare/internal/handler/dto/response"
	"renovecare/internal/handler/httperr"
	"renovecare/internal/handler/middleware"
	"renovecare/internal/usecase/commands"
	"renovecare/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequestHandler struct {
	cmds    commands.RequestCommands
	queries queries.RequestQueries
}

func NewRequestHandler(cmds commands.RequestCommands, qs queries.RequestQueries) *RequestHandler {
	return &RequestHandler{cmds: cmds, queries: qs}
}

// @Summary Submit request
// @Description Submit a new service request (prescription, exam or consultation)
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreateRequestRequest true "Request body"
// @Success 201 {object} resdto.RequestResponse
// @Failure 400 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.Internal(c, errors.New("missing user in context"))
		return
	}

	var req reqdto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Invalid request format")
		return
	}

	created, err := h.cmds.Submit(c.Request.Context(), commands.SubmitRequestInput{
		PatientID: userID,
		Variant:   domain.Variant(req.Variant),
		Payload:   req.ToPayload(),
	})
	if err != nil {
		if errors.Is(err, commands.ErrInvalidPayload) {
			httperr.Abort(c, http.StatusUnprocessableEntity, err, "Payload does not match the variant")
			return
		}
		httperr.Internal(c, err)
		return
	}

	c.JSON(http.StatusCreated, entityToResponse(created))
}

// @Summary Get request
// @Description Get one request, scoped to the caller's role
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} resdto.RequestResponse
// @Failure 404 {object} httperr.Response
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	actor, role, ok := actorFromContext(c)
	if !ok {
		httperr.Internal(c, errors.New("missing user in context"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Invalid request ID format")
		return
	}

	view, err := h.queries.GetRequest(c.Request.Context(), id, actor, role)
	if err != nil {
		if errors.Is(err, queries.ErrRequestNotFound) {
			httperr.Abort(c, http.StatusNotFound, err, "Request not found")
			return
		}
		httperr.Internal(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromRequestView(view))
}

// @Summary List requests
// @Description List the caller's requests, or the review queue for reviewers
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resdto.RequestListResponse
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	actor, role, ok := actorFromContext(c)
	if !ok {
		httperr.Internal(c, errors.New("missing user in context"))
		return
	}

	items, err := h.queries.ListRequests(c.Request.Context(), actor, role)
	if err != nil {
		httperr.Internal(c, err)
		return
	}

	out := make([]*resdto.RequestListResponse, len(items))
	for i, item := range items {
		out[i] = resdto.FromRequestListItem(item)
	}
	c.JSON(http.StatusOK, out)
}

// @Summary Claim request
// @Description Take review ownership of a request
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} resdto.RequestResponse
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /requests/{id}/claim [post]
func (h *RequestHandler) Claim(c *gin.Context) {
	actor, role, ok := actorFromContext(c)
	if !ok {
		httperr.Internal(c, errors.New("missing user in context"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Invalid request ID format")
		return
	}

	req, err := h.cmds.Claim(c.Request.Context(), id, actor, role)
	if err != nil {
		h.abortLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entityToResponse(req))
}

// @Summary Apply lifecycle action
// @Description Run approve, reject, forward, sign or deliver on a request
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param request body reqdto.StatusActionRequest true "Action"
// @Success 200 {object} resdto.RequestResponse
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /requests/{id}/status [post]
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	actor, role, ok := actorFromContext(c)
	if !ok {
		httperr.Internal(c, errors.New("missing user in context"))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Invalid request ID format")
		return
	}

	var body reqdto.StatusActionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Invalid request format")
		return
	}

	var req *domain.Request
	switch body.Action {
	case "approve":
		req, err = h.cmds.Approve(c.Request.Context(), id, actor, role)
	case "reject":
		req, err = h.cmds.Reject(c.Request.Context(), id, actor, role, body.Reason)
	case "forward":
		req, err = h.cmds.ForwardToDoctor(c.Request.Context(), id, actor)
	case "sign":
		req, err = h.cmds.Sign(c.Request.Context(), id, actor, role)
	case "deliver":
		if role != user.RoleAdmin {
			httperr.Abort(c, http.StatusForbidden, commands.ErrForbidden, "Only admin may trigger delivery")
			return
		}
		req, err = h.cmds.Deliver(c.Request.Context(), id)
	default:
		httperr.Abort(c, http.StatusBadRequest, errors.New("unknown action"), "Unknown action")
		return
	}
	if err != nil {
		h.abortLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, entityToResponse(req))
}

func (h *RequestHandler) abortLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, commands.ErrRequestNotFound):
		httperr.Abort(c, http.StatusNotFound, err, "Request not found")
	case errors.Is(err, commands.ErrForbidden), errors.Is(err, commands.ErrNotAssignee):
		httperr.Abort(c, http.StatusForbidden, err, "Action not allowed for this actor")
	case errors.Is(err, commands.ErrClaimConflict):
		httperr.Abort(c, http.StatusConflict, err, "Request was claimed by someone else")
	case errors.Is(err, commands.ErrStateConflict):
		httperr.Abort(c, http.StatusConflict, err, "Request changed, reload and retry")
	case errors.Is(err, commands.ErrTerminalRequest):
		httperr.Abort(c, http.StatusConflict, err, "Request is already closed")
	case errors.Is(err, commands.ErrInvalidTransition):
		httperr.Abort(c, http.StatusUnprocessableEntity, err, "Transition not allowed from current status")
	case errors.Is(err, commands.ErrRejectionReasonNeed):
		httperr.Abort(c, http.StatusBadRequest, err, "Rejection requires a reason")
	case errors.Is(err, commands.ErrPriceUnavailable):
		httperr.Abort(c, http.StatusUnprocessableEntity, err, "No price configured for this service")
	default:
		httperr.Internal(c, err)
	}
}

func actorFromContext(c *gin.Context) (uuid.UUID, user.Role, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		return uuid.Nil, "", false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		return uuid.Nil, "", false
	}
	return id, role, true
}

// entityToResponse renders a freshly written entity without a second read.
func entityToResponse(req *domain.Request) *resdto.RequestResponse {
	var reason *string
	if rr := req.RejectionReason(); rr != nil {
		s := rr.String()
		reason = &s
	}
	return &resdto.RequestResponse{
		ID:               req.ID(),
		Variant:          req.Variant().String(),
		PatientID:        req.PatientID(),
		AssignedNurseID:  req.AssignedNurseID(),
		AssignedDoctorID: req.AssignedDoctorID(),
		Status:           req.Status().String(),
		Payload:          payloadJSON(req),
		PriceCents:       req.PriceCents(),
		RejectionReason:  reason,
		CreatedAt:        req.CreatedAt(),
		ClaimedAt:        req.ClaimedAt(),
		ApprovedAt:       req.ApprovedAt(),
		PaidAt:           req.PaidAt(),
		SignedAt:         req.SignedAt(),
		DeliveredAt:      req.DeliveredAt(),
	}
}

func payloadJSON(req *domain.Request) json.RawMessage {
	raw, err := json.Marshal(req.Payload())
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}
