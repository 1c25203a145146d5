package api

import (
	"errors"
	"net/http"

	"renovecare/internal/domain/user"
	"renovecare/internal/handler/dto/request"
	"renovecare/internal/handler/dto/response"
	"renovecare/internal/handler/httperr"
	"renovecare/internal/handler/middleware"
	"renovecare/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth commands.AuthCommands
}

func NewAuthHandler(auth commands.AuthCommands) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.LoginRequest true "Credentials"
// @Success 200 {object} response.LoginResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Invalid request format")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrAuthentication), errors.Is(err, commands.ErrUserInactive):
			httperr.Abort(c, http.StatusUnauthorized, err, "Invalid email or password")
		default:
			httperr.Internal(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, response.LoginResponse{
		Token: result.Token,
		User:  response.FromUser(result.User),
	})
}

// @Summary Current user
// @Description Return the authenticated user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.UserResponse
// @Failure 401 {object} httperr.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.Internal(c, errors.New("missing user in context"))
		return
	}

	u, err := h.auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, commands.ErrAuthentication) {
			httperr.Abort(c, http.StatusUnauthorized, err, "Invalid or expired token")
			return
		}
		httperr.Internal(c, err)
		return
	}

	c.JSON(http.StatusOK, response.FromUser(u))
}

// @Summary Register user
// @Description Create a new user account (admin only)
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body request.RegisterRequest true "New user"
// @Success 201 {object} response.UserResponse
// @Failure 400 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req request.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Abort(c, http.StatusBadRequest, err, "Invalid request format")
		return
	}

	u, err := h.auth.Register(c.Request.Context(), commands.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     user.Role(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrEmailTaken):
			httperr.Abort(c, http.StatusConflict, err, "Email is already registered")
		case errors.Is(err, commands.ErrInvalidPayload):
			httperr.Abort(c, http.StatusBadRequest, err, "Invalid user data")
		default:
			httperr.Internal(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, response.FromUser(u))
}
