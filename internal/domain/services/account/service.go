// Package account handles registration, authentication, and the cached
// profile view.
package account

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/royal-empire/club_service/internal/domain/entities"
	domainerrors "github.com/royal-empire/club_service/internal/domain/errors"
	"github.com/royal-empire/club_service/internal/domain/repositories"
	"github.com/royal-empire/club_service/internal/infrastructure/cache"
)

const (
	referralCodePrefix   = "ROYAL-"
	referralCodeAttempts = 5
	profileCacheTTL      = 30 * time.Second
)

// Config carries token signing parameters.
type Config struct {
	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration
}

// Service manages club member accounts.
type Service struct {
	repo     repositories.AccountRepository
	cache    cache.RedisClient
	validate *validator.Validate
	cfg      Config
	logger   *zap.Logger
}

// NewService creates a new account service. cache may be nil, in which case
// profile reads always hit the database.
func NewService(repo repositories.AccountRepository, cacheClient cache.RedisClient, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cacheClient,
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Register creates a new account with a fresh referral code. A referral code
// in the request links the account to its referrer; an unknown code is
// ignored rather than rejected, matching the client's fire-and-forget form.
func (s *Service) Register(ctx context.Context, req *entities.RegisterRequest) (*entities.Account, error) {
	req.Email = entities.NormalizeContact(req.Email)
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, domainerrors.ValidationError(fieldErrs[0].Field(), "invalid value")
		}
		return nil, domainerrors.ValidationError("request", "invalid registration payload")
	}

	contact := req.Email

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domainerrors.InternalError("failed to hash password", err)
	}

	code, err := s.generateReferralCode(ctx)
	if err != nil {
		return nil, err
	}

	var referredBy *string
	if req.ReferralCode != "" {
		referrer, err := s.repo.GetByReferralCode(ctx, req.ReferralCode)
		switch {
		case err == nil:
			if referrer.Contact != contact {
				referredBy = &referrer.Contact
			}
		case domainerrors.IsNotFound(err):
			s.logger.Warn("Unknown referral code at registration",
				zap.String("contact", contact),
				zap.String("referral_code", req.ReferralCode))
		default:
			return nil, err
		}
	}

	username := req.Username
	if username == "" {
		username = req.Name
	}

	now := time.Now().UTC()
	account := &entities.Account{
		ID:              uuid.New(),
		Contact:         contact,
		Username:        username,
		PasswordHash:    string(hash),
		Country:         req.Country,
		Balance:         decimal.Zero,
		TotalInvestment: decimal.Zero,
		TotalEarning:    decimal.Zero,
		ReferralEarning: decimal.Zero,
		ReferralCode:    code,
		ReferredBy:      referredBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account registered",
		zap.String("contact", contact),
		zap.String("referral_code", code),
		zap.Bool("referred", referredBy != nil))

	return account, nil
}

// Login verifies credentials and mints an access token.
func (s *Service) Login(ctx context.Context, req *entities.LoginRequest) (*entities.LoginResponse, error) {
	contact := entities.NormalizeContact(req.Contact)

	account, err := s.repo.GetByContact(ctx, contact)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return nil, domainerrors.UnauthorizedError("invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domainerrors.UnauthorizedError("invalid credentials")
	}

	token, err := s.issueToken(account)
	if err != nil {
		return nil, err
	}

	return &entities.LoginResponse{
		Message:  "Login successful",
		Email:    account.Contact,
		Username: account.Username,
		Balance:  account.Balance,
		Token:    token,
	}, nil
}

// GetProfile returns the unified wallet view for a contact, serving from
// cache when fresh. Unknown contacts get a zeroed placeholder, not an error.
func (s *Service) GetProfile(ctx context.Context, contact string) (*entities.Profile, error) {
	contact = entities.NormalizeContact(contact)

	if s.cache != nil {
		var cached entities.Profile
		if err := s.cache.Get(ctx, profileCacheKey(contact), &cached); err == nil {
			return &cached, nil
		} else if err != cache.ErrCacheMiss {
			s.logger.Warn("Profile cache read failed", zap.Error(err), zap.String("contact", contact))
		}
	}

	account, err := s.repo.GetByContact(ctx, contact)
	if err != nil {
		if domainerrors.IsNotFound(err) {
			return entities.ZeroProfile(contact), nil
		}
		return nil, err
	}

	profile := entities.ProfileFromAccount(account)

	if s.cache != nil {
		if err := s.cache.Set(ctx, profileCacheKey(contact), profile, profileCacheTTL); err != nil {
			s.logger.Warn("Profile cache write failed", zap.Error(err), zap.String("contact", contact))
		}
	}

	return profile, nil
}

// InvalidateProfile drops the cached profile after a balance mutation. It
// satisfies the ledger service's cache hook.
func (s *Service) InvalidateProfile(ctx context.Context, contact string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, profileCacheKey(entities.NormalizeContact(contact))); err != nil {
		s.logger.Warn("Profile cache invalidation failed", zap.Error(err), zap.String("contact", contact))
	}
}

// VerifyToken validates an access token and returns the subject contact.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", domainerrors.UnauthorizedError("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domainerrors.UnauthorizedError("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", domainerrors.UnauthorizedError("invalid token subject")
	}

	return sub, nil
}

func (s *Service) issueToken(account *entities.Account) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": account.Contact,
		"iss": s.cfg.JWTIssuer,
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.JWTTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", domainerrors.InternalError("failed to sign token", err)
	}

	return signed, nil
}

// generateReferralCode mints a ROYAL-XXXXX code, retrying on the rare
// collision.
func (s *Service) generateReferralCode(ctx context.Context) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(100000))
		if err != nil {
			return "", domainerrors.InternalError("failed to generate referral code", err)
		}

		code := fmt.Sprintf("%s%05d", referralCodePrefix, n.Int64())
		exists, err := s.repo.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}

	return "", domainerrors.InternalError("referral code space exhausted", nil)
}

func profileCacheKey(contact string) string {
	return "profile:" + contact
}
