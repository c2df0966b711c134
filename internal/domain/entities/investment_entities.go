package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvestmentStatus represents the lifecycle of a purchased package
type InvestmentStatus string

const (
	InvestmentStatusActive InvestmentStatus = "active"
	InvestmentStatusClosed InvestmentStatus = "closed"
)

// Investment is a purchased package generating recurring daily profit.
// NextAccrualAt is the durable schedule: the accrual worker reads it from the
// database, so nothing is lost on restart and replicas cannot double-pay.
type Investment struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	AccountID     uuid.UUID        `db:"account_id" json:"-"`
	PackageName   string           `db:"package_name" json:"packageName"`
	Amount        decimal.Decimal  `db:"amount" json:"amount"`
	DailyProfit   decimal.Decimal  `db:"daily_profit" json:"dailyProfit"`
	Status        InvestmentStatus `db:"status" json:"status"`
	LastAccrualAt *time.Time       `db:"last_accrual_at" json:"lastAccrualAt,omitempty"`
	NextAccrualAt time.Time        `db:"next_accrual_at" json:"nextAccrualAt"`
	CreatedAt     time.Time        `db:"created_at" json:"createdAt"`
}
