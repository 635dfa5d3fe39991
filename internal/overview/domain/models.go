package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DailyStat is the rollup-maintained per-day snapshot a venue's overview
// reads from. Status counts reflect current booking statuses; realized
// aggregates cover bookings that are currently CONFIRMED, so completion,
// cancellation and no-show all reverse them.
type DailyStat struct {
	VenueID snowflake.ID `gorm:"primaryKey" json:"venue_id"`
	Date    string       `gorm:"primaryKey;type:text" json:"date"`

	PendingCount   int64 `gorm:"not null;default:0" json:"pending_count"`
	ConfirmedCount int64 `gorm:"not null;default:0" json:"confirmed_count"`
	CancelledCount int64 `gorm:"not null;default:0" json:"cancelled_count"`
	NoShowCount    int64 `gorm:"not null;default:0" json:"no_show_count"`
	CompletedCount int64 `gorm:"not null;default:0" json:"completed_count"`

	RealizedBookings int64 `gorm:"not null;default:0" json:"realized_bookings"`
	RealizedCovers   int64 `gorm:"not null;default:0" json:"realized_covers"`
	PrimeBookings    int64 `gorm:"not null;default:0" json:"prime_bookings"`
	PrimeRevenue     int64 `gorm:"not null;default:0" json:"prime_revenue"`
	NonPrimeRevenue  int64 `gorm:"not null;default:0" json:"non_prime_revenue"`
	PlatformFees     int64 `gorm:"not null;default:0" json:"platform_fees"`

	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DailyStat) TableName() string { return "venue_daily_stats" }
