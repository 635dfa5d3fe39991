package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierPremium  Tier = "PREMIUM"
	TierVIP      Tier = "VIP"
)

func (t Tier) Valid() bool {
	switch t {
	case TierStandard, TierPremium, TierVIP:
		return true
	}
	return false
}

type Promoter struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	VenueID   snowflake.ID      `gorm:"not null;index" json:"venue_id"`
	Name      string            `gorm:"not null" json:"name"`
	Email     string            `gorm:"not null" json:"email"`
	Phone     string            `json:"phone,omitempty"`
	Tier      Tier              `gorm:"type:text;not null;default:'STANDARD'" json:"tier"`
	Active    bool              `gorm:"not null;default:true" json:"active"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Promoter) TableName() string { return "promoters" }

// Stats is a rollup-maintained snapshot of a promoter's booking
// performance. Amounts are minor units.
type Stats struct {
	PromoterID        snowflake.ID `gorm:"primaryKey" json:"promoter_id"`
	VenueID           snowflake.ID `gorm:"not null;index" json:"venue_id"`
	TotalBookings     int64        `gorm:"not null;default:0" json:"total_bookings"`
	ConfirmedBookings int64        `gorm:"not null;default:0" json:"confirmed_bookings"`
	CancelledBookings int64        `gorm:"not null;default:0" json:"cancelled_bookings"`
	NoShowBookings    int64        `gorm:"not null;default:0" json:"no_show_bookings"`
	TotalCovers       int64        `gorm:"not null;default:0" json:"total_covers"`
	TotalRevenue      int64        `gorm:"not null;default:0" json:"total_revenue"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Stats) TableName() string { return "promoter_stats" }

// ConversionRate is confirmed over total bookings.
func (s Stats) ConversionRate() float64 {
	if s.TotalBookings == 0 {
		return 0
	}
	return float64(s.ConfirmedBookings) / float64(s.TotalBookings)
}
