package entities

import "github.com/shopspring/decimal"

// ReferralLevelMember is one downline account in the referral report.
type ReferralLevelMember struct {
	Email string `json:"email"`
}

// ReferralLevels groups the downline by distance from the account.
type ReferralLevels struct {
	Level1 []ReferralLevelMember `json:"level1"`
	Level2 []ReferralLevelMember `json:"level2"`
	Level3 []ReferralLevelMember `json:"level3"`
}

// ReferralReport is served by GET /api/referrals/:email.
type ReferralReport struct {
	ReferralCode    string          `json:"referralCode"`
	ReferralEarning decimal.Decimal `json:"referralEarning"`
	Levels          ReferralLevels  `json:"levels"`
}
