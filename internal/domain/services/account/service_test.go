package account

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
)

// mockAccountRepo implements repositories.AccountRepository in memory.
type mockAccountRepo struct {
	accounts map[string]*entities.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[string]*entities.Account)}
}

func (m *mockAccountRepo) Create(ctx context.Context, a *entities.Account) error {
	if _, ok := m.accounts[a.Contact]; ok {
		return domainerrors.AlreadyExistsError("account")
	}
	m.accounts[a.Contact] = a
	return nil
}

func (m *mockAccountRepo) GetByContact(ctx context.Context, contact string) (*entities.Account, error) {
	if a, ok := m.accounts[contact]; ok {
		return a, nil
	}
	return nil, domainerrors.NotFoundError("account")
}

func (m *mockAccountRepo) GetByReferralCode(ctx context.Context, code string) (*entities.Account, error) {
	for _, a := range m.accounts {
		if a.ReferralCode == code {
			return a, nil
		}
	}
	return nil, domainerrors.NotFoundError("account")
}

func (m *mockAccountRepo) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	_, err := m.GetByReferralCode(ctx, code)
	return err == nil, nil
}

func (m *mockAccountRepo) ListContactsReferredBy(ctx context.Context, contacts []string) ([]string, error) {
	return nil, nil
}

func newTestService(repo *mockAccountRepo) *Service {
	return NewService(repo, nil, Config{
		JWTSecret: "test-secret",
		JWTIssuer: "club_service",
		JWTTTL:    time.Hour,
	}, zap.NewNop())
}

func TestRegisterGeneratesReferralCode(t *testing.T) {
	repo := newMockAccountRepo()
	svc := newTestService(repo)

	account, err := svc.Register(context.Background(), &entities.RegisterRequest{
		Email:    " Alice@Example.COM ",
		Password: "hunter22",
		Country:  "NG",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", account.Contact)
	assert.True(t, strings.HasPrefix(account.ReferralCode, "ROYAL-"))
	assert.Len(t, account.ReferralCode, len("ROYAL-")+5)
	assert.True(t, account.Balance.IsZero())
	assert.Nil(t, account.ReferredBy)
	assert.NotEqual(t, "hunter22", account.PasswordHash)
}

func TestRegisterLinksReferrer(t *testing.T) {
	repo := newMockAccountRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	referrer, err := svc.Register(ctx, &entities.RegisterRequest{
		Email:    "bob@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)

	referred, err := svc.Register(ctx, &entities.RegisterRequest{
		Email:        "alice@example.com",
		Password:     "hunter22",
		ReferralCode: referrer.ReferralCode,
	})
	require.NoError(t, err)

	require.NotNil(t, referred.ReferredBy)
	assert.Equal(t, "bob@example.com", *referred.ReferredBy)
}

func TestRegisterIgnoresUnknownReferralCode(t *testing.T) {
	repo := newMockAccountRepo()
	svc := newTestService(repo)

	account, err := svc.Register(context.Background(), &entities.RegisterRequest{
		Email:        "alice@example.com",
		Password:     "hunter22",
		ReferralCode: "ROYAL-99999",
	})
	require.NoError(t, err)
	assert.Nil(t, account.ReferredBy)
}

func TestRegisterDuplicateContact(t *testing.T) {
	repo := newMockAccountRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, &entities.RegisterRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &entities.RegisterRequest{Email: "ALICE@example.com", Password: "hunter22"})
	require.Error(t, err)
	assert.True(t, domainerrors.IsAlreadyExists(err))
}

func TestLoginAndVerifyToken(t *testing.T) {
	repo := newMockAccountRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, &entities.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "hunter22",
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &entities.LoginRequest{Contact: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.Equal(t, "alice", resp.Username)
	require.NotEmpty(t, resp.Token)

	subject, err := svc.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newMockAccountRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, &entities.RegisterRequest{Email: "alice@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &entities.LoginRequest{Contact: "alice@example.com", Password: "wrong"})
	assert.True(t, domainerrors.IsUnauthorized(err))

	_, err = svc.Login(ctx, &entities.LoginRequest{Contact: "nobody@example.com", Password: "hunter22"})
	assert.True(t, domainerrors.IsUnauthorized(err))
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	repo := newMockAccountRepo()
	svc := newTestService(repo)

	_, err := svc.VerifyToken("not-a-token")
	assert.True(t, domainerrors.IsUnauthorized(err))
}

func TestGetProfileUnknownContactReturnsPlaceholder(t *testing.T) {
	repo := newMockAccountRepo()
	svc := newTestService(repo)

	profile, err := svc.GetProfile(context.Background(), "ghost@example.com")
	require.NoError(t, err)

	assert.Equal(t, "ghost@example.com", profile.Email)
	assert.Equal(t, "User", profile.Username)
	assert.True(t, profile.Balance.IsZero())
	assert.Equal(t, int64(0), profile.EUSDT)
}

func TestGetProfileDerivesEUSDT(t *testing.T) {
	repo := newMockAccountRepo()
	repo.accounts["alice@example.com"] = &entities.Account{
		Contact: "alice@example.com",
		Balance: decimal.RequireFromString("12.37"),
	}
	svc := newTestService(repo)

	profile, err := svc.GetProfile(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(123), profile.EUSDT)

	// Username falls back to the local part of the contact.
	assert.Equal(t, "alice", profile.Username)
}
