package events

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Booking lifecycle events consumed by the rollup pipeline.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventBookingNoShow    = "booking.no_show"

	EventPricingUpdated      = "pricing.updated"
	EventPromoterTierChanged = "promoter.tier_changed"
)

// Cache tags. A tag names a family of derived read models that must be
// refreshed when the underlying data changes.
const (
	TagBookings   = "bookings"
	TagMetrics    = "metrics"
	TagFinance    = "finance"
	TagPromoters  = "promoters"
	TagIncentives = "incentives"
	TagPricing    = "pricing"
)

// invalidationMap declares which tags each event type refreshes.
var invalidationMap = map[string][]string{
	EventBookingCreated:   {TagBookings, TagMetrics},
	EventBookingConfirmed: {TagBookings, TagMetrics, TagFinance, TagPromoters, TagIncentives},
	EventBookingCancelled: {TagBookings, TagMetrics, TagPromoters},
	EventBookingCompleted: {TagBookings, TagMetrics},
	EventBookingNoShow:    {TagBookings, TagMetrics, TagPromoters},

	EventPricingUpdated:      {TagPricing, TagMetrics},
	EventPromoterTierChanged: {TagPromoters, TagFinance},
}

// InvalidatedTags returns the cache tags refreshed by an event type.
func InvalidatedTags(eventType string) []string {
	tags, ok := invalidationMap[eventType]
	if !ok {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// BookingEvent is the durable event record. Rows are written in the same
// transaction as the booking mutation and consumed idempotently by the
// rollup service.
type BookingEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	VenueID     snowflake.ID      `gorm:"not null;index" json:"venue_id"`
	EventType   string            `gorm:"type:text;not null;index" json:"event_type"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`
	Published   bool              `gorm:"not null;default:false;index" json:"published"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (BookingEvent) TableName() string { return "booking_events" }

// Emit appends an event inside the caller's transaction, stamped with
// the caller's clock.
func Emit(ctx context.Context, tx *gorm.DB, id, venueID snowflake.ID, eventType string, payload map[string]any, at time.Time) error {
	if payload == nil {
		payload = map[string]any{}
	}
	event := BookingEvent{
		ID:        id,
		VenueID:   venueID,
		EventType: eventType,
		Payload:   datatypes.JSONMap(payload),
		CreatedAt: at.UTC(),
	}
	return tx.WithContext(ctx).Create(&event).Error
}
