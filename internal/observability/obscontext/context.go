package obscontext

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type venueIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

func WithVenueID(ctx context.Context, venueID string) context.Context {
	return context.WithValue(ctx, venueIDKey{}, strings.TrimSpace(venueID))
}

func VenueIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(venueIDKey{}).(string)
	return value
}
