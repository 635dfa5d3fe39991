package authorization

import (
	"context"
	"errors"
)

// Service answers "may this actor perform this action on this object
// inside this venue". Actors are "user:<id>", "api_key:<id>" or "system".
type Service interface {
	Authorize(ctx context.Context, actor string, venueID string, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidVenue  = errors.New("invalid_venue")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
