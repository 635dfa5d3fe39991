package venuectx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// VenueContextKey is the request context key for the active venue ID.
type VenueContextKey struct{}

// WithVenueID stores the venue ID in the context.
func WithVenueID(ctx context.Context, venueID int64) context.Context {
	return context.WithValue(ctx, VenueContextKey{}, venueID)
}

// VenueIDFromContext returns the venue ID from context, if set.
func VenueIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	value := ctx.Value(VenueContextKey{})
	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}
