//go:build unit

package api_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"renovecare/internal/handler/api"
	resdto "renovecare/internal/handler/dto/response"
	"renovecare/internal/usecase/commands"
	"renovecare/tests/common/builder"
	"renovecare/tests/common/httptest"
	"renovecare/tests/common/testutil"
	commandsmock "renovecare/tests/mock/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type AuthHandlerTestSuite struct {
	suite.Suite
	router   *gin.Engine
	mockCtrl *gomock.Controller
	mockAuth *commandsmock.MockAuthCommands
	handler  *api.AuthHandler

	currentUserID uuid.UUID
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}

func (s *AuthHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockAuth = commandsmock.NewMockAuthCommands(s.mockCtrl)
	s.handler = api.NewAuthHandler(s.mockAuth)
	s.currentUserID = uuid.New()

	s.router.POST("/auth/login", s.handler.Login)
	s.router.GET("/auth/me", func(c *gin.Context) {
		// stand-in for the auth middleware
		if c.GetHeader("Authorization") != "" {
			c.Set("user_id", s.currentUserID)
		}
		s.handler.Me(c)
	})
	s.router.POST("/auth/register", s.handler.Register)
}

func (s *AuthHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *AuthHandlerTestSuite) TestLogin() {
	url := "/auth/login"
	returnUser := builder.NewUserBuilder().BuildDomain()
	reqBody := map[string]any{"email": returnUser.Email().String(), "password": "renovecare-dev"}

	s.Run("success: returns 200 OK with a token", func() {
		s.mockAuth.EXPECT().Login(gomock.Any(), returnUser.Email().String(), "renovecare-dev").
			Return(&commands.LoginResult{Token: "test-jwt-token", User: returnUser}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")

		var response resdto.LoginResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal("test-jwt-token", response.Token)
		s.Equal(returnUser.Email().String(), response.User.Email)
	})

	s.Run("error: 400 Bad Request on validation errors", func() {
		cases := []struct {
			name   string
			mutate func(map[string]any)
		}{
			{name: "missing email", mutate: testutil.Field("email", nil)},
			{name: "missing password", mutate: testutil.Field("password", nil)},
			{name: "malformed email", mutate: testutil.Field("email", "not-an-email")},
		}
		for _, tc := range cases {
			s.Run(tc.name, func() {
				body := testutil.DtoMap(s.T(), reqBody, tc.mutate)
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, "")
				httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "")
			})
		}
	})

	s.Run("error: bad credentials and inactive accounts both read as 401", func() {
		for _, cmdErr := range []error{commands.ErrAuthentication, commands.ErrUserInactive} {
			s.mockAuth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, cmdErr).Times(1)

			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")
			httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Invalid email or password")
		}
	})

	s.Run("error: unexpected failure is a 500", func() {
		s.mockAuth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("database down")).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusInternalServerError, "")
	})
}

func (s *AuthHandlerTestSuite) TestMe() {
	url := "/auth/me"

	s.Run("success: returns the caller's profile", func() {
		u := builder.NewUserBuilder().BuildDomain()
		s.mockAuth.EXPECT().CurrentUser(gomock.Any(), s.currentUserID).Return(u, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "some-token")

		var response resdto.UserResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &response)
		s.Equal(u.ID(), response.ID)
		s.Equal(u.Role().String(), response.Role)
	})

	s.Run("error: stale token maps to 401", func() {
		s.mockAuth.EXPECT().CurrentUser(gomock.Any(), s.currentUserID).
			Return(nil, commands.ErrAuthentication).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "some-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "")
	})
}

func (s *AuthHandlerTestSuite) TestRegister() {
	url := "/auth/register"
	reqBody := map[string]any{
		"email":    "nova@renovecare.dev",
		"password": "super-secret",
		"name":     "Nova Enfermeira",
		"role":     "nurse",
	}

	s.Run("success: returns 201 Created", func() {
		created := builder.NewUserBuilder().WithEmail("nova@renovecare.dev").BuildDomain()
		s.mockAuth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(created, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")

		var response resdto.UserResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &response)
		s.Equal("nova@renovecare.dev", response.Email)
	})

	s.Run("error: short password fails binding", func() {
		body := testutil.DtoMap(s.T(), reqBody, testutil.Field("password", strings.Repeat("a", 7)))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "")
	})

	s.Run("error: unknown role fails binding", func() {
		body := testutil.DtoMap(s.T(), reqBody, testutil.Field("role", "superuser"))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, body, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "")
	})

	s.Run("error: duplicate email maps to 409", func() {
		s.mockAuth.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, commands.ErrEmailTaken).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "already registered")
	})
}
