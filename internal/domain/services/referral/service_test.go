package referral

import (
	"context"
	"testing"

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

func (m *mockAccountRepo) add(contact, code string, earning decimal.Decimal, referredBy *string) {
	m.accounts[contact] = &entities.Account{
		Contact:         contact,
		ReferralCode:    code,
		ReferralEarning: earning,
		ReferredBy:      referredBy,
	}
}

func (m *mockAccountRepo) Create(ctx context.Context, a *entities.Account) error {
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
	set := make(map[string]bool, len(contacts))
	for _, c := range contacts {
		set[c] = true
	}
	var out []string
	for _, a := range m.accounts {
		if a.ReferredBy != nil && set[*a.ReferredBy] {
			out = append(out, a.Contact)
		}
	}
	return out, nil
}

func ref(s string) *string { return &s }

func TestReportGroupsDownlineByLevel(t *testing.T) {
	repo := newMockAccountRepo()
	repo.add("root@example.com", "ROYAL-00001", decimal.RequireFromString("4.2"), nil)
	repo.add("l1a@example.com", "ROYAL-00002", decimal.Zero, ref("root@example.com"))
	repo.add("l1b@example.com", "ROYAL-00003", decimal.Zero, ref("root@example.com"))
	repo.add("l2@example.com", "ROYAL-00004", decimal.Zero, ref("l1a@example.com"))
	repo.add("l3@example.com", "ROYAL-00005", decimal.Zero, ref("l2@example.com"))
	repo.add("l4@example.com", "ROYAL-00006", decimal.Zero, ref("l3@example.com"))

	svc := NewService(repo, 3, zap.NewNop())

	report, err := svc.Report(context.Background(), "root@example.com")
	require.NoError(t, err)

	assert.Equal(t, "ROYAL-00001", report.ReferralCode)
	assert.Equal(t, "4.2", report.ReferralEarning.String())
	assert.Len(t, report.Levels.Level1, 2)
	assert.Len(t, report.Levels.Level2, 1)
	assert.Len(t, report.Levels.Level3, 1)

	// Level 4 is beyond the report horizon.
	emails := map[string]bool{}
	for _, m := range append(append(report.Levels.Level1, report.Levels.Level2...), report.Levels.Level3...) {
		emails[m.Email] = true
	}
	assert.False(t, emails["l4@example.com"])
}

func TestReportUnknownContactIsEmpty(t *testing.T) {
	svc := NewService(newMockAccountRepo(), 3, zap.NewNop())

	report, err := svc.Report(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, report.ReferralCode)
	assert.Empty(t, report.Levels.Level1)
}

func TestReportTerminatesOnCycle(t *testing.T) {
	repo := newMockAccountRepo()
	repo.add("a@example.com", "ROYAL-00001", decimal.Zero, ref("b@example.com"))
	repo.add("b@example.com", "ROYAL-00002", decimal.Zero, ref("a@example.com"))

	svc := NewService(repo, 3, zap.NewNop())

	report, err := svc.Report(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.Len(t, report.Levels.Level1, 1)
	assert.Equal(t, "b@example.com", report.Levels.Level1[0].Email)
	assert.Empty(t, report.Levels.Level2)
}

func TestResolveUplineWalksReferrers(t *testing.T) {
	repo := newMockAccountRepo()
	repo.add("root@example.com", "ROYAL-00001", decimal.Zero, nil)
	repo.add("mid@example.com", "ROYAL-00002", decimal.Zero, ref("root@example.com"))
	repo.add("leaf@example.com", "ROYAL-00003", decimal.Zero, ref("mid@example.com"))

	svc := NewService(repo, 3, zap.NewNop())

	upline, err := svc.ResolveUpline(context.Background(), "leaf@example.com")
	require.NoError(t, err)
	require.Len(t, upline, 2)
	assert.Equal(t, "mid@example.com", upline[0].Contact)
	assert.Equal(t, "root@example.com", upline[1].Contact)
}

func TestResolveUplineBreaksCycle(t *testing.T) {
	repo := newMockAccountRepo()
	repo.add("a@example.com", "ROYAL-00001", decimal.Zero, ref("b@example.com"))
	repo.add("b@example.com", "ROYAL-00002", decimal.Zero, ref("a@example.com"))

	svc := NewService(repo, 3, zap.NewNop())

	upline, err := svc.ResolveUpline(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.Len(t, upline, 1)
	assert.Equal(t, "b@example.com", upline[0].Contact)
}
