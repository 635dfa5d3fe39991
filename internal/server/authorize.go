package server

import (
	"github.com/gin-gonic/gin"
	apikeydomain "github.com/primetable/partnerboard/internal/apikey/domain"
	"github.com/primetable/partnerboard/internal/authorization"
	"github.com/primetable/partnerboard/internal/venuectx"
)

// authorizeVenueAction checks the resolved actor against the venue-scoped
// policy before the handler runs. API keys additionally need the scope the
// action falls under.
func (s *Server) authorizeVenueAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		actor, ok := actorFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		venueID, ok := venuectx.VenueIDFromContext(ctx)
		if !ok || venueID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if actor.Type == ActorAPIKey && !hasScope(actor.Scopes, requiredScope(action)) {
			AbortWithError(c, ErrForbidden)
			return
		}

		if err := s.authzSvc.Authorize(ctx, actor.subject(), venueID.String(), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// requiredScope maps a policy action onto the coarse API key scopes: reads
// fall under reports:read, writes under bookings:write.
func requiredScope(action string) string {
	switch action {
	case authorization.ActionVenueView,
		authorization.ActionBookingView,
		authorization.ActionOverviewView,
		authorization.ActionPromoterView,
		authorization.ActionCommissionView,
		authorization.ActionIncentiveView,
		authorization.ActionFinanceView,
		authorization.ActionFinanceStatement,
		authorization.ActionTeamView,
		authorization.ActionAPIKeyView,
		authorization.ActionAuditLogView:
		return apikeydomain.ScopeReportsRead
	default:
		return apikeydomain.ScopeBookingsWrite
	}
}

func hasScope(scopes []string, required string) bool {
	for _, scope := range scopes {
		if scope == required {
			return true
		}
	}
	return false
}
