package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusNoShow, StatusCompleted:
		return true
	}
	return false
}

// transitions is the authoritative state machine. Absent entries are
// terminal states.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// CanTransition reports whether a booking may move from one status to
// another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status admits no further transitions.
func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}

type Booking struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	VenueID     snowflake.ID      `gorm:"not null;index" json:"venue_id"`
	PromoterID  *snowflake.ID     `gorm:"index" json:"promoter_id,omitempty"`
	GuestName   string            `gorm:"not null" json:"guest_name"`
	GuestEmail  string            `json:"guest_email,omitempty"`
	Diners      int               `gorm:"not null" json:"diners"`
	Prime       bool              `gorm:"not null;default:false" json:"prime"`
	BookingAt   time.Time         `gorm:"not null;index" json:"booking_at"`
	Status      Status            `gorm:"type:text;not null;index" json:"status"`
	FeeAmount   int64             `gorm:"not null" json:"fee_amount"`
	PlatformFee int64             `gorm:"not null" json:"platform_fee"`
	Currency    string            `gorm:"not null;default:'USD'" json:"currency"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// BookingNote is an append-only annotation. Notes may be added in any
// status, including terminal ones.
type BookingNote struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	BookingID snowflake.ID `gorm:"not null;index" json:"booking_id"`
	VenueID   snowflake.ID `gorm:"not null;index" json:"venue_id"`
	Author    string       `gorm:"not null" json:"author"`
	Note      string       `gorm:"not null" json:"note"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BookingNote) TableName() string { return "booking_notes" }
