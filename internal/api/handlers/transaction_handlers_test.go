package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/pkg/logger"
)

type mockLedgerService struct {
	depositID    uuid.UUID
	withdrawalID uuid.UUID
	proofURL     string
}

func (m *mockLedgerService) RequestDeposit(ctx context.Context, contact string, amount decimal.Decimal, method, proofURL string) (uuid.UUID, error) {
	m.proofURL = proofURL
	return m.depositID, nil
}

func (m *mockLedgerService) RequestWithdrawal(ctx context.Context, contact string, amount decimal.Decimal, method string) (uuid.UUID, error) {
	return m.withdrawalID, nil
}

type mockLifecycleService struct {
	completed     []uuid.UUID
	cancelled     []uuid.UUID
	rescheduledAt time.Time
	err           error
}

func (m *mockLifecycleService) Reschedule(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.rescheduledAt = at
	return nil
}

func (m *mockLifecycleService) CompleteNow(ctx context.Context, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.completed = append(m.completed, id)
	return nil
}

func (m *mockLifecycleService) Cancel(ctx context.Context, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.cancelled = append(m.cancelled, id)
	return nil
}

type mockProofStore struct {
	err   error
	calls int
}

func (m *mockProofStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "/uploads/123-" + originalName, nil
}

func setupTransactionRouter(ledger *mockLedgerService, lifecycle *mockLifecycleService) *gin.Engine {
	return setupTransactionRouterWithStore(ledger, lifecycle, &mockProofStore{})
}

func setupTransactionRouterWithStore(ledger *mockLedgerService, lifecycle *mockLifecycleService, store *mockProofStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTransactionHandlers(ledger, lifecycle, nil, nil, store, logger.NewNop())
	r := gin.New()
	r.POST("/api/transactions", h.Submit)
	r.POST("/api/admin/transactions/:id/complete", h.Complete)
	r.POST("/api/admin/transactions/:id/reschedule", h.Reschedule)
	r.POST("/api/admin/transactions/:id/cancel", h.Cancel)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake image"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestSubmitDepositWithScreenshot(t *testing.T) {
	ledger := &mockLedgerService{depositID: uuid.New()}
	router := setupTransactionRouter(ledger, &mockLifecycleService{})

	body, contentType := multipartBody(t, map[string]string{
		"email":      "alice@example.com",
		"type":       "deposit",
		"method":     "bank",
		"userNumber": "0123456789",
		"amount":     "100",
	}, "screenshot", "receipt.png")

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp entities.SubmitTransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ledger.depositID, resp.TransactionID)
	assert.Equal(t, "/uploads/123-receipt.png", ledger.proofURL)
}

func TestSubmitDepositWithoutScreenshotRejected(t *testing.T) {
	router := setupTransactionRouter(&mockLedgerService{}, &mockLifecycleService{})

	body, contentType := multipartBody(t, map[string]string{
		"email":  "alice@example.com",
		"type":   "deposit",
		"method": "bank",
		"amount": "100",
	}, "", "")

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitDepositStorageOutageReturns503(t *testing.T) {
	store := &mockProofStore{err: errors.New("disk full")}
	router := setupTransactionRouterWithStore(&mockLedgerService{}, &mockLifecycleService{}, store)

	body, contentType := multipartBody(t, map[string]string{
		"email":  "alice@example.com",
		"type":   "deposit",
		"method": "bank",
		"amount": "100",
	}, "screenshot", "receipt.png")

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp entities.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeServiceUnavailable, resp.Code)

	// The flaky store was replayed before the outage was surfaced.
	assert.Greater(t, store.calls, 1)
}

func TestSubmitWithdrawalNeedsNoScreenshot(t *testing.T) {
	ledger := &mockLedgerService{withdrawalID: uuid.New()}
	router := setupTransactionRouter(ledger, &mockLifecycleService{})

	body, contentType := multipartBody(t, map[string]string{
		"email":  "alice@example.com",
		"type":   "withdraw",
		"method": "bank",
		"amount": "40",
	}, "", "")

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp entities.SubmitTransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ledger.withdrawalID, resp.TransactionID)
}

func TestSubmitRejectsUnknownType(t *testing.T) {
	router := setupTransactionRouter(&mockLedgerService{}, &mockLifecycleService{})

	body, contentType := multipartBody(t, map[string]string{
		"email":  "alice@example.com",
		"type":   "investment",
		"method": "bank",
		"amount": "40",
	}, "", "")

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCompleteAndCancel(t *testing.T) {
	lifecycle := &mockLifecycleService{}
	router := setupTransactionRouter(&mockLedgerService{}, lifecycle)

	id := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/transactions/"+id.String()+"/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, lifecycle.completed, 1)
	assert.Equal(t, id, lifecycle.completed[0])

	req = httptest.NewRequest(http.MethodPost, "/api/admin/transactions/"+id.String()+"/cancel", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, lifecycle.cancelled, 1)
}

func TestAdminRescheduleMovesSettlement(t *testing.T) {
	lifecycle := &mockLifecycleService{}
	router := setupTransactionRouter(&mockLedgerService{}, lifecycle)

	at := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	body, err := json.Marshal(entities.RescheduleTransactionRequest{SettleAfter: at})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/transactions/"+uuid.New().String()+"/reschedule", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, lifecycle.rescheduledAt.Equal(at))
}

func TestAdminCompleteAlreadySettledReturns409(t *testing.T) {
	lifecycle := &mockLifecycleService{err: domainerrors.AlreadySettledError("x")}
	router := setupTransactionRouter(&mockLedgerService{}, lifecycle)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/transactions/"+uuid.New().String()+"/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminCompleteInvalidIDReturns400(t *testing.T) {
	router := setupTransactionRouter(&mockLedgerService{}, &mockLifecycleService{})

	req := httptest.NewRequest(http.MethodPost, "/api/admin/transactions/not-a-uuid/complete", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
