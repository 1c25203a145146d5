//go:build e2e

package helper

import (
	"net/http"
	"testing"
	"time"

	"renovecare/internal/domain/user"
	"renovecare/internal/handler/dto/request"
	"renovecare/internal/handler/dto/response"
	"renovecare/internal/pkg/config"
	"renovecare/internal/pkg/jwt"
	"renovecare/tests/common/dbtest"
	apitest "renovecare/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// TestPassword matches the bcrypt hash dbtest.CreateTestUser seeds.
const TestPassword = "password123"

type AuthHelper struct {
	pool *pgxpool.Pool
	cfg  config.JWTConfig
}

func NewAuthHelper(pool *pgxpool.Pool, cfg config.JWTConfig) *AuthHelper {
	return &AuthHelper{pool: pool, cfg: cfg}
}

func (h *AuthHelper) CreateTestUser(t *testing.T, email, role string) uuid.UUID {
	return h.CreateTestUserWithDB(t, h.pool, email, role)
}

func (h *AuthHelper) CreateTestUserWithDB(t *testing.T, db dbtest.DBLike, email, role string) uuid.UUID {
	t.Helper()
	return dbtest.CreateTestUser(t, db, email, role)
}

func (h *AuthHelper) LoginUser(t *testing.T, router *gin.Engine, email, password string) string {
	t.Helper()

	w := apitest.PerformRequest(t, router, http.MethodPost, "/api/auth/login",
		request.LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var loginRes response.LoginResponse
	apitest.DecodeResponseBody(t, w.Body, &loginRes)
	require.NotEmpty(t, loginRes.Token, "token missing from login response")

	return loginRes.Token
}

func (h *AuthHelper) CreateAndLogin(t *testing.T, router *gin.Engine, email, role string) string {
	t.Helper()
	h.CreateTestUserWithDB(t, h.pool, email, role)
	return h.LoginUser(t, router, email, TestPassword)
}

func (h *AuthHelper) CreateAndLoginWithDB(t *testing.T, db dbtest.DBLike, router *gin.Engine, email, role string) string {
	t.Helper()
	h.CreateTestUserWithDB(t, db, email, role)
	return h.LoginUser(t, router, email, TestPassword)
}

func (h *AuthHelper) GenerateToken(t *testing.T, userID uuid.UUID, role user.Role) string {
	t.Helper()
	duration, err := time.ParseDuration(h.cfg.Duration)
	require.NoError(t, err)
	service := jwt.NewService(h.cfg.Secret, duration)
	token, err := service.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

func (h *AuthHelper) CreateExpiredToken(t *testing.T, userID uuid.UUID, role user.Role) string {
	t.Helper()
	service := jwt.NewService(h.cfg.Secret, 1*time.Millisecond)
	token, err := service.GenerateToken(userID, role)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	return token
}
