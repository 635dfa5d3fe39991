package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type TransactionType string

const (
	TransactionCommission      TransactionType = "COMMISSION"
	TransactionIncentiveReward TransactionType = "INCENTIVE_REWARD"
	TransactionAdjustment      TransactionType = "ADJUSTMENT"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionCommission, TransactionIncentiveReward, TransactionAdjustment:
		return true
	}
	return false
}

// Transaction is one earned amount owed to a promoter. Amounts are minor
// units; adjustments may be negative. PayoutID is set once the row is
// swept into a payout.
type Transaction struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	VenueID    snowflake.ID      `gorm:"not null;index" json:"venue_id"`
	PromoterID snowflake.ID      `gorm:"not null;index" json:"promoter_id"`
	BookingID  *snowflake.ID     `gorm:"index" json:"booking_id,omitempty"`
	Type       TransactionType   `gorm:"type:text;not null" json:"type"`
	Amount     int64             `gorm:"not null" json:"amount"`
	Currency   string            `gorm:"not null;default:'USD'" json:"currency"`
	OccurredAt time.Time         `gorm:"not null;index" json:"occurred_at"`
	PayoutID   *snowflake.ID     `gorm:"index" json:"payout_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }

type PayoutStatus string

const (
	PayoutPending PayoutStatus = "PENDING"
	PayoutOnHold  PayoutStatus = "ON_HOLD"
	PayoutPaid    PayoutStatus = "PAID"
)

// Payout sweeps a promoter's unassigned transactions for a period.
// NetAmount is always GrossAmount minus the sum of active holds.
type Payout struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	VenueID     snowflake.ID `gorm:"not null;index" json:"venue_id"`
	PromoterID  snowflake.ID `gorm:"not null;index" json:"promoter_id"`
	Reference   string       `gorm:"not null;uniqueIndex" json:"reference"`
	PeriodStart time.Time    `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time    `gorm:"not null" json:"period_end"`
	GrossAmount int64        `gorm:"not null" json:"gross_amount"`
	HoldAmount  int64        `gorm:"not null;default:0" json:"hold_amount"`
	NetAmount   int64        `gorm:"not null" json:"net_amount"`
	Currency    string       `gorm:"not null;default:'USD'" json:"currency"`
	Status      PayoutStatus `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	PaidAt      *time.Time   `json:"paid_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Payout) TableName() string { return "payouts" }

type HoldStatus string

const (
	HoldActive   HoldStatus = "ACTIVE"
	HoldReleased HoldStatus = "RELEASED"
)

type PayoutHold struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	VenueID    snowflake.ID `gorm:"not null;index" json:"venue_id"`
	PayoutID   snowflake.ID `gorm:"not null;index" json:"payout_id"`
	Amount     int64        `gorm:"not null" json:"amount"`
	Reason     string       `gorm:"not null" json:"reason"`
	Status     HoldStatus   `gorm:"type:text;not null;default:'ACTIVE'" json:"status"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ReleasedAt *time.Time   `json:"released_at,omitempty"`
}

func (PayoutHold) TableName() string { return "payout_holds" }
