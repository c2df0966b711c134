package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EUSDTRate converts balance into the derived secondary unit: $1 = 10 eUSDT.
var EUSDTRate = decimal.NewFromInt(10)

// Account is a club member's wallet record. Balance is the single source of
// truth; the eUSDT figure is always derived from it, never stored.
type Account struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	Contact         string          `db:"contact" json:"email"`
	Username        string          `db:"username" json:"username"`
	PasswordHash    string          `db:"password_hash" json:"-"`
	Country         string          `db:"country" json:"country,omitempty"`
	Balance         decimal.Decimal `db:"balance" json:"balance"`
	TotalInvestment decimal.Decimal `db:"total_investment" json:"totalInvestment"`
	TotalEarning    decimal.Decimal `db:"total_earning" json:"totalEarning"`
	ReferralEarning decimal.Decimal `db:"referral_earning" json:"referralEarning"`
	ReferralCode    string          `db:"referral_code" json:"referralCode"`
	ReferredBy      *string         `db:"referred_by" json:"referredBy,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}

// EUSDT returns floor(balance * 10).
func (a *Account) EUSDT() int64 {
	return a.Balance.Mul(EUSDTRate).Floor().IntPart()
}

// NormalizeContact canonicalizes a contact identifier. Every lookup and every
// stored contact goes through this exact form.
func NormalizeContact(contact string) string {
	return strings.ToLower(strings.TrimSpace(contact))
}

// RegisterRequest is the payload for POST /api/register.
type RegisterRequest struct {
	Name         string `json:"name" validate:"max=100"`
	Username     string `json:"username" validate:"max=100"`
	Email        string `json:"email" binding:"required" validate:"required,email"`
	Password     string `json:"password" binding:"required" validate:"required,min=6"`
	Country      string `json:"country" validate:"max=100"`
	ReferralCode string `json:"referralCode" validate:"max=32"`
}

// LoginRequest is the payload for POST /api/login.
type LoginRequest struct {
	Contact  string `json:"contact" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Message  string          `json:"message"`
	Email    string          `json:"email"`
	Username string          `json:"username"`
	Balance  decimal.Decimal `json:"balance"`
	Token    string          `json:"token"`
}

// Profile is the unified user view served by GET /api/user/:email. Unknown
// contacts get a zeroed Profile rather than an error so stale clients keep
// rendering.
type Profile struct {
	Email           string          `json:"email"`
	Username        string          `json:"username"`
	Balance         decimal.Decimal `json:"balance"`
	TotalEarning    decimal.Decimal `json:"totalEarning"`
	ReferralEarning decimal.Decimal `json:"referralEarning"`
	TotalInvestment decimal.Decimal `json:"totalInvestment"`
	EUSDT           int64           `json:"eusdt"`
}

// ZeroProfile returns the placeholder record for an unknown contact.
func ZeroProfile(contact string) *Profile {
	return &Profile{
		Email:           contact,
		Username:        "User",
		Balance:         decimal.Zero,
		TotalEarning:    decimal.Zero,
		ReferralEarning: decimal.Zero,
		TotalInvestment: decimal.Zero,
		EUSDT:           0,
	}
}

// ProfileFromAccount builds the client view of an account.
func ProfileFromAccount(a *Account) *Profile {
	username := a.Username
	if username == "" {
		if at := strings.IndexByte(a.Contact, '@'); at > 0 {
			username = a.Contact[:at]
		} else {
			username = a.Contact
		}
	}
	return &Profile{
		Email:           a.Contact,
		Username:        username,
		Balance:         a.Balance,
		TotalEarning:    a.TotalEarning,
		ReferralEarning: a.ReferralEarning,
		TotalInvestment: a.TotalInvestment,
		EUSDT:           a.EUSDT(),
	}
}
