package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type VenueType string

const (
	VenueTypeRestaurant VenueType = "RESTAURANT"
	VenueTypeClub       VenueType = "CLUB"
	VenueTypeBar        VenueType = "BAR"
	VenueTypeLounge     VenueType = "LOUNGE"
)

func (t VenueType) Valid() bool {
	switch t {
	case VenueTypeRestaurant, VenueTypeClub, VenueTypeBar, VenueTypeLounge:
		return true
	}
	return false
}

type Venue struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name         string            `gorm:"not null" json:"name"`
	Slug         string            `gorm:"not null;uniqueIndex" json:"slug"`
	Type         VenueType         `gorm:"type:text;not null" json:"type"`
	Capacity     int               `gorm:"not null" json:"capacity"`
	MinPartySize int               `gorm:"not null;default:1" json:"min_party_size"`
	MaxPartySize int               `gorm:"not null" json:"max_party_size"`
	Currency     string            `gorm:"not null;default:'USD'" json:"currency"`
	Timezone     string            `gorm:"not null;default:'UTC'" json:"timezone"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Venue) TableName() string { return "venues" }

// PricingConfig holds the per-cover fees charged to a venue. Amounts are
// minor units (cents).
type PricingConfig struct {
	VenueID             snowflake.ID `gorm:"primaryKey" json:"venue_id"`
	PrimeFeePerCover    int64        `gorm:"not null" json:"prime_fee_per_cover"`
	NonPrimeFeePerCover int64        `gorm:"not null" json:"non_prime_fee_per_cover"`
	PlatformFeeRate     float64      `gorm:"not null" json:"platform_fee_rate"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (PricingConfig) TableName() string { return "venue_pricing_configs" }
