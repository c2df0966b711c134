// Package referral builds the downline report and resolves upline chains.
package referral

import (
	"context"

	"go.uber.org/zap"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/internal/domain/repositories"
)

// Service answers referral queries. All bonus money movement lives in the
// ledger; this service is read-only.
type Service struct {
	repo      repositories.AccountRepository
	maxLevels int
	logger    *zap.Logger
}

// NewService creates a new referral service.
func NewService(repo repositories.AccountRepository, maxLevels int, logger *zap.Logger) *Service {
	if maxLevels <= 0 {
		maxLevels = 3
	}
	return &Service{
		repo:      repo,
		maxLevels: maxLevels,
		logger:    logger,
	}
}

// Report returns an account's referral code, accumulated bonus earnings, and
// the downline grouped by level. Unknown contacts get an empty report so the
// dashboard keeps rendering.
func (s *Service) Report(ctx context.Context, contact string) (*entities.ReferralReport, error) {
	contact = entities.NormalizeContact(contact)

	account, err := s.repo.GetByContact(ctx, contact)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return &entities.ReferralReport{}, nil
		}
		return nil, err
	}

	report := &entities.ReferralReport{
		ReferralCode:    account.ReferralCode,
		ReferralEarning: account.ReferralEarning,
	}

	frontier := []string{contact}
	seen := map[string]bool{contact: true}

	for level := 1; level <= s.maxLevels; level++ {
		next, err := s.repo.ListContactsReferredBy(ctx, frontier)
		if err != nil {
			return nil, err
		}

		// Drop anything already visited so a referral cycle cannot loop the
		// walk forever.
		members := make([]entities.ReferralLevelMember, 0, len(next))
		frontier = frontier[:0]
		for _, c := range next {
			if seen[c] {
				continue
			}
			seen[c] = true
			members = append(members, entities.ReferralLevelMember{Email: c})
			frontier = append(frontier, c)
		}

		switch level {
		case 1:
			report.Levels.Level1 = members
		case 2:
			report.Levels.Level2 = members
		case 3:
			report.Levels.Level3 = members
		}

		if len(frontier) == 0 {
			break
		}
	}

	return report, nil
}

// ResolveUpline walks the referred_by chain upward, at most maxLevels hops,
// breaking on cycles. The first element is the direct referrer.
func (s *Service) ResolveUpline(ctx context.Context, contact string) ([]*entities.Account, error) {
	contact = entities.NormalizeContact(contact)
	seen := map[string]bool{contact: true}

	var upline []*entities.Account
	current := contact

	for len(upline) < s.maxLevels {
		account, err := s.repo.GetByContact(ctx, current)
		if err != nil {
			if domainerrors.IsNotFound(err) {
				break
			}
			return nil, err
		}

		if account.ReferredBy == nil || *account.ReferredBy == "" {
			break
		}

		next := *account.ReferredBy
		if seen[next] {
			s.logger.Warn("Referral cycle detected", zap.String("contact", contact), zap.String("at", next))
			break
		}
		seen[next] = true

		referrer, err := s.repo.GetByContact(ctx, next)
		if err != nil {
			if domainerrors.IsNotFound(err) {
				break
			}
			return nil, err
		}

		upline = append(upline, referrer)
		current = next
	}

	return upline, nil
}
