package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/pkg/logger"
)

type mockAccountService struct {
	registerErr error
	loginErr    error
	profile     *entities.Profile
}

func (m *mockAccountService) Register(ctx context.Context, req *entities.RegisterRequest) (*entities.Account, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &entities.Account{
		Contact:      entities.NormalizeContact(req.Email),
		ReferralCode: "ROYAL-12345",
	}, nil
}

func (m *mockAccountService) Login(ctx context.Context, req *entities.LoginRequest) (*entities.LoginResponse, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &entities.LoginResponse{
		Message:  "Login successful",
		Email:    entities.NormalizeContact(req.Contact),
		Username: "alice",
		Balance:  decimal.RequireFromString("12.5"),
		Token:    "token",
	}, nil
}

func (m *mockAccountService) GetProfile(ctx context.Context, contact string) (*entities.Profile, error) {
	if m.profile != nil {
		return m.profile, nil
	}
	return entities.ZeroProfile(entities.NormalizeContact(contact)), nil
}

func setupAccountRouter(svc AccountService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAccountHandlers(svc, logger.NewNop())
	r := gin.New()
	r.POST("/api/register", h.Register)
	r.POST("/api/login", h.Login)
	r.GET("/api/user/:email", h.GetUser)
	return r
}

func TestRegisterEndpoint(t *testing.T) {
	router := setupAccountRouter(&mockAccountService{})

	body, _ := json.Marshal(map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ROYAL-12345", resp["referralCode"])
	assert.Equal(t, "alice@example.com", resp["email"])
}

func TestRegisterDuplicateReturns400(t *testing.T) {
	router := setupAccountRouter(&mockAccountService{
		registerErr: domainerrors.AlreadyExistsError("account"),
	})

	body, _ := json.Marshal(map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginBadCredentialsReturns400(t *testing.T) {
	router := setupAccountRouter(&mockAccountService{
		loginErr: domainerrors.UnauthorizedError("invalid credentials"),
	})

	body, _ := json.Marshal(map[string]string{
		"contact":  "alice@example.com",
		"password": "wrong",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp entities.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeInvalidCredentials, resp.Code)
}

func TestGetUserUnknownContactReturnsPlaceholder(t *testing.T) {
	router := setupAccountRouter(&mockAccountService{})

	req := httptest.NewRequest(http.MethodGet, "/api/user/ghost@example.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var profile entities.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "ghost@example.com", profile.Email)
	assert.Equal(t, "User", profile.Username)
	assert.True(t, profile.Balance.IsZero())
	assert.Equal(t, int64(0), profile.EUSDT)
}
