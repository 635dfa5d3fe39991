package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Model string

const (
	// ModelPerCover pays a fixed amount per seated cover. RateValue is
	// minor units per cover.
	ModelPerCover Model = "PER_COVER"
	// ModelPercentOfSpend pays a fraction of the booking fee. RateValue
	// is a fraction in [0, 1).
	ModelPercentOfSpend Model = "PERCENT_OF_SPEND"
)

func (m Model) Valid() bool {
	switch m {
	case ModelPerCover, ModelPercentOfSpend:
		return true
	}
	return false
}

type Rate struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	VenueID   snowflake.ID `gorm:"not null;index" json:"venue_id"`
	Name      string       `gorm:"not null" json:"name"`
	Model     Model        `gorm:"type:text;not null" json:"model"`
	RateValue float64      `gorm:"not null" json:"rate_value"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Rate) TableName() string { return "commission_rates" }

// Assignment binds a promoter to a rate for an effective window. At most
// one assignment may be active for a promoter at any instant; a nil
// EffectiveTo means open-ended.
type Assignment struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	VenueID       snowflake.ID `gorm:"not null;index" json:"venue_id"`
	PromoterID    snowflake.ID `gorm:"not null;index" json:"promoter_id"`
	RateID        snowflake.ID `gorm:"not null;index" json:"rate_id"`
	EffectiveFrom time.Time    `gorm:"not null" json:"effective_from"`
	EffectiveTo   *time.Time   `json:"effective_to,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Assignment) TableName() string { return "commission_assignments" }

// ActiveAt reports whether the assignment window covers the instant.
func (a Assignment) ActiveAt(at time.Time) bool {
	if at.Before(a.EffectiveFrom) {
		return false
	}
	return a.EffectiveTo == nil || at.Before(*a.EffectiveTo)
}

// Overlaps reports whether two half-open windows [from, to) intersect.
func (a Assignment) Overlaps(from time.Time, to *time.Time) bool {
	if a.EffectiveTo != nil && !from.Before(*a.EffectiveTo) {
		return false
	}
	if to != nil && !a.EffectiveFrom.Before(*to) {
		return false
	}
	return true
}
