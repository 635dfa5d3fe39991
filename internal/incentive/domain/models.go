package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Metric string

const (
	MetricBookings Metric = "BOOKINGS"
	MetricCovers   Metric = "COVERS"
	MetricRevenue  Metric = "REVENUE"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricBookings, MetricCovers, MetricRevenue:
		return true
	}
	return false
}

type ProgramStatus string

const (
	ProgramDraft     ProgramStatus = "DRAFT"
	ProgramActive    ProgramStatus = "ACTIVE"
	ProgramCompleted ProgramStatus = "COMPLETED"
)

// Program is a time-boxed incentive: promoters who push the metric past
// the threshold inside the window earn the reward. Amounts are minor
// units.
type Program struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	VenueID      snowflake.ID  `gorm:"not null;index" json:"venue_id"`
	Name         string        `gorm:"not null" json:"name"`
	Metric       Metric        `gorm:"type:text;not null" json:"metric"`
	Threshold    int64         `gorm:"not null" json:"threshold"`
	RewardAmount int64         `gorm:"not null" json:"reward_amount"`
	Status       ProgramStatus `gorm:"type:text;not null;default:'DRAFT'" json:"status"`
	StartAt      time.Time     `gorm:"not null" json:"start_at"`
	EndAt        time.Time     `gorm:"not null" json:"end_at"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Program) TableName() string { return "incentive_programs" }

// Covers reports whether the program is active and its window covers the
// instant.
func (p Program) Covers(at time.Time) bool {
	if p.Status != ProgramActive {
		return false
	}
	return !at.Before(p.StartAt) && at.Before(p.EndAt)
}

// Progress tracks one promoter against one program. Attained flips once
// and stays set.
type Progress struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ProgramID  snowflake.ID `gorm:"not null;uniqueIndex:idx_progress_program_promoter" json:"program_id"`
	PromoterID snowflake.ID `gorm:"not null;uniqueIndex:idx_progress_program_promoter" json:"promoter_id"`
	VenueID    snowflake.ID `gorm:"not null;index" json:"venue_id"`
	Current    int64        `gorm:"not null;default:0" json:"current"`
	Attained   bool         `gorm:"not null;default:false" json:"attained"`
	AttainedAt *time.Time   `json:"attained_at,omitempty"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Progress) TableName() string { return "incentive_progress" }
