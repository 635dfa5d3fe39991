package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/primetable/partnerboard/internal/apikey/domain"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	"github.com/primetable/partnerboard/internal/authorization"
	bookingdomain "github.com/primetable/partnerboard/internal/booking/domain"
	commissiondomain "github.com/primetable/partnerboard/internal/commission/domain"
	financedomain "github.com/primetable/partnerboard/internal/finance/domain"
	incentivedomain "github.com/primetable/partnerboard/internal/incentive/domain"
	overviewdomain "github.com/primetable/partnerboard/internal/overview/domain"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	teamdomain "github.com/primetable/partnerboard/internal/team/domain"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

// APIError is one entry in the response envelope errors array.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data"`
	Meta      any        `json:"meta,omitempty"`
	Errors    []APIError `json:"errors,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate_limited")
	ErrInvalidBody  = errors.New("invalid_request")
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func respondPage(c *gin.Context, data any, page pagination.PageInfo) {
	c.JSON(http.StatusOK, envelope{
		Success:   true,
		Data:      data,
		Meta:      gin.H{"pagination": page},
		Timestamp: time.Now().UTC(),
	})
}

// ErrorHandlingMiddleware converts errors collected on the gin context into
// the JSON envelope. Handlers report failures through AbortWithError and
// never write error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, apiErrors := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, envelope{
			Success:   false,
			Errors:    apiErrors,
			Timestamp: time.Now().UTC(),
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, []APIError) {
	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, []APIError{{
			Code:    "AUTH_REQUIRED",
			Message: "authentication required",
		}}
	case isForbiddenError(err):
		return http.StatusForbidden, []APIError{{
			Code:    "FORBIDDEN",
			Message: "forbidden",
		}}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, []APIError{{
			Code:    "RATE_LIMITED",
			Message: "rate limit exceeded",
		}}
	case isValidationError(err):
		return http.StatusBadRequest, []APIError{{
			Code:    "VALIDATION_ERROR",
			Message: strings.ReplaceAll(err.Error(), "_", " "),
			Field:   validationField(err.Error()),
		}}
	case isConflictError(err):
		return http.StatusConflict, []APIError{{
			Code:    "CONFLICT",
			Message: strings.ReplaceAll(err.Error(), "_", " "),
		}}
	case isNotFoundError(err):
		return http.StatusNotFound, []APIError{{
			Code:    notFoundCode(err),
			Message: "not found",
		}}
	default:
		return http.StatusInternalServerError, []APIError{{
			Code:    "INTERNAL_ERROR",
			Message: "internal server error",
		}}
	}
}

// classifyErrorForLog feeds the request logger error_type / error_code
// fields without leaking internals into the response path.
func classifyErrorForLog(err error) (string, string) {
	status, apiErrors := mapError(err)
	code := ""
	if len(apiErrors) > 0 {
		code = apiErrors[0].Code
	}
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", code
	case status == http.StatusTooManyRequests:
		return "rate_limit", code
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return "auth", code
	default:
		return "client", code
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidBody),
		errors.Is(err, authorization.ErrInvalidVenue),
		errors.Is(err, financedomain.ErrNothingToSweep):
		return true
	case isVenueValidationError(err),
		isBookingValidationError(err),
		isOverviewValidationError(err),
		isPromoterValidationError(err),
		isCommissionValidationError(err),
		isIncentiveValidationError(err),
		isFinanceValidationError(err),
		isTeamValidationError(err),
		isAPIKeyValidationError(err),
		isAuditValidationError(err):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, bookingdomain.ErrInvalidTransition),
		errors.Is(err, bookingdomain.ErrConflict),
		errors.Is(err, venuedomain.ErrSlugTaken),
		errors.Is(err, promoterdomain.ErrEmailTaken),
		errors.Is(err, commissiondomain.ErrOverlappingWindow),
		errors.Is(err, incentivedomain.ErrNotDraft),
		errors.Is(err, incentivedomain.ErrConflict),
		errors.Is(err, financedomain.ErrPayoutNotOpen),
		errors.Is(err, financedomain.ErrPayoutOnHold),
		errors.Is(err, financedomain.ErrHoldNotActive),
		errors.Is(err, teamdomain.ErrAlreadyMember),
		errors.Is(err, teamdomain.ErrLastOwner):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	return notFoundCode(err) != ""
}

func notFoundCode(err error) string {
	switch {
	case errors.Is(err, bookingdomain.ErrNotFound):
		return "BOOKING_NOT_FOUND"
	case errors.Is(err, venuedomain.ErrNotFound):
		return "VENUE_NOT_FOUND"
	case errors.Is(err, venuedomain.ErrPricingNotFound),
		errors.Is(err, bookingdomain.ErrPricingNotFound):
		return "PRICING_NOT_FOUND"
	case errors.Is(err, promoterdomain.ErrNotFound),
		errors.Is(err, bookingdomain.ErrPromoterNotFound):
		return "PROMOTER_NOT_FOUND"
	case errors.Is(err, commissiondomain.ErrRateNotFound):
		return "COMMISSION_RATE_NOT_FOUND"
	case errors.Is(err, commissiondomain.ErrNotFound):
		return "COMMISSION_ASSIGNMENT_NOT_FOUND"
	case errors.Is(err, commissiondomain.ErrNoActiveAssignment):
		return "COMMISSION_ASSIGNMENT_NOT_FOUND"
	case errors.Is(err, incentivedomain.ErrNotFound):
		return "INCENTIVE_NOT_FOUND"
	case errors.Is(err, financedomain.ErrNotFound):
		return "PAYOUT_NOT_FOUND"
	case errors.Is(err, teamdomain.ErrNotFound):
		return "MEMBER_NOT_FOUND"
	case errors.Is(err, apikeydomain.ErrNotFound):
		return "API_KEY_NOT_FOUND"
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "NOT_FOUND"
	default:
		return ""
	}
}

// validationField derives the offending field from the sentinel name:
// invalid_guest_name reports field guest_name.
func validationField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func isVenueValidationError(err error) bool {
	switch err {
	case venuedomain.ErrInvalidName,
		venuedomain.ErrInvalidType,
		venuedomain.ErrInvalidCapacity,
		venuedomain.ErrInvalidPartySize,
		venuedomain.ErrInvalidID,
		venuedomain.ErrInvalidPricing:
		return true
	default:
		return false
	}
}

func isBookingValidationError(err error) bool {
	switch err {
	case bookingdomain.ErrInvalidVenue,
		bookingdomain.ErrInvalidID,
		bookingdomain.ErrInvalidGuestName,
		bookingdomain.ErrInvalidDiners,
		bookingdomain.ErrInvalidBookingAt,
		bookingdomain.ErrInvalidStatus,
		bookingdomain.ErrInvalidNote,
		bookingdomain.ErrEmptyBulkRequest,
		bookingdomain.ErrBulkTooLarge:
		return true
	default:
		return false
	}
}

func isOverviewValidationError(err error) bool {
	switch err {
	case overviewdomain.ErrInvalidVenue,
		overviewdomain.ErrInvalidRange:
		return true
	default:
		return false
	}
}

func isPromoterValidationError(err error) bool {
	switch err {
	case promoterdomain.ErrInvalidVenue,
		promoterdomain.ErrInvalidID,
		promoterdomain.ErrInvalidName,
		promoterdomain.ErrInvalidEmail,
		promoterdomain.ErrInvalidTier:
		return true
	default:
		return false
	}
}

func isCommissionValidationError(err error) bool {
	switch err {
	case commissiondomain.ErrInvalidVenue,
		commissiondomain.ErrInvalidID,
		commissiondomain.ErrInvalidName,
		commissiondomain.ErrInvalidModel,
		commissiondomain.ErrInvalidRateValue,
		commissiondomain.ErrInvalidWindow:
		return true
	default:
		return false
	}
}

func isIncentiveValidationError(err error) bool {
	switch err {
	case incentivedomain.ErrInvalidVenue,
		incentivedomain.ErrInvalidID,
		incentivedomain.ErrInvalidName,
		incentivedomain.ErrInvalidMetric,
		incentivedomain.ErrInvalidThreshold,
		incentivedomain.ErrInvalidReward,
		incentivedomain.ErrInvalidWindow,
		incentivedomain.ErrInvalidStatus:
		return true
	default:
		return false
	}
}

func isFinanceValidationError(err error) bool {
	switch err {
	case financedomain.ErrInvalidVenue,
		financedomain.ErrInvalidID,
		financedomain.ErrInvalidType,
		financedomain.ErrInvalidStatus,
		financedomain.ErrInvalidPeriod,
		financedomain.ErrInvalidAmount,
		financedomain.ErrInvalidReason:
		return true
	default:
		return false
	}
}

func isTeamValidationError(err error) bool {
	switch err {
	case teamdomain.ErrInvalidVenue,
		teamdomain.ErrInvalidID,
		teamdomain.ErrInvalidEmail,
		teamdomain.ErrInvalidRole:
		return true
	default:
		return false
	}
}

func isAPIKeyValidationError(err error) bool {
	switch err {
	case apikeydomain.ErrInvalidVenue,
		apikeydomain.ErrInvalidName,
		apikeydomain.ErrInvalidKeyID:
		return true
	default:
		return false
	}
}

func isAuditValidationError(err error) bool {
	switch err {
	case auditdomain.ErrInvalidVenue,
		auditdomain.ErrInvalidAction,
		auditdomain.ErrInvalidTimeRange:
		return true
	default:
		return false
	}
}
