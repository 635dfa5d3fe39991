package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/primetable/partnerboard/internal/booking/domain"
	commissiondomain "github.com/primetable/partnerboard/internal/commission/domain"
	financedomain "github.com/primetable/partnerboard/internal/finance/domain"
	teamdomain "github.com/primetable/partnerboard/internal/team/domain"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{name: "unauthorized", err: ErrUnauthorized, status: http.StatusUnauthorized, code: "AUTH_REQUIRED"},
		{name: "forbidden", err: ErrForbidden, status: http.StatusForbidden, code: "FORBIDDEN"},
		{name: "rate limited", err: ErrRateLimited, status: http.StatusTooManyRequests, code: "RATE_LIMITED"},
		{name: "bad body", err: ErrInvalidBody, status: http.StatusBadRequest, code: "VALIDATION_ERROR", field: "request"},
		{name: "field validation", err: bookingdomain.ErrInvalidGuestName, status: http.StatusBadRequest, code: "VALIDATION_ERROR", field: "guest_name"},
		{name: "diners validation", err: bookingdomain.ErrInvalidDiners, status: http.StatusBadRequest, code: "VALIDATION_ERROR", field: "diners"},
		{name: "transition conflict", err: bookingdomain.ErrInvalidTransition, status: http.StatusConflict, code: "CONFLICT"},
		{name: "overlap conflict", err: commissiondomain.ErrOverlappingWindow, status: http.StatusConflict, code: "CONFLICT"},
		{name: "last owner conflict", err: teamdomain.ErrLastOwner, status: http.StatusConflict, code: "CONFLICT"},
		{name: "booking not found", err: bookingdomain.ErrNotFound, status: http.StatusNotFound, code: "BOOKING_NOT_FOUND"},
		{name: "venue not found", err: venuedomain.ErrNotFound, status: http.StatusNotFound, code: "VENUE_NOT_FOUND"},
		{name: "payout not found", err: financedomain.ErrNotFound, status: http.StatusNotFound, code: "PAYOUT_NOT_FOUND"},
		{name: "nothing to sweep is a client error", err: financedomain.ErrNothingToSweep, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, apiErrors := mapError(tc.err)
			if status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, status)
			}
			if len(apiErrors) != 1 {
				t.Fatalf("expected 1 error, got %d", len(apiErrors))
			}
			if apiErrors[0].Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, apiErrors[0].Code)
			}
			if tc.field != "" && apiErrors[0].Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, apiErrors[0].Field)
			}
		})
	}
}

func TestErrorHandlingMiddlewareRendersEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	engine.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, bookingdomain.ErrNotFound)
	})
	engine.GET("/ok", func(c *gin.Context) {
		respond(c, http.StatusOK, gin.H{"hello": "world"})
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var failure struct {
		Success   bool       `json:"success"`
		Errors    []APIError `json:"errors"`
		Timestamp string     `json:"timestamp"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("unmarshal failure envelope: %v", err)
	}
	if failure.Success {
		t.Fatal("expected success=false")
	}
	if len(failure.Errors) != 1 || failure.Errors[0].Code != "BOOKING_NOT_FOUND" {
		t.Fatalf("unexpected errors: %+v", failure.Errors)
	}
	if failure.Timestamp == "" {
		t.Fatal("expected timestamp set")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var success struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &success); err != nil {
		t.Fatalf("unmarshal success envelope: %v", err)
	}
	if !success.Success || success.Data["hello"] != "world" {
		t.Fatalf("unexpected success envelope: %+v", success)
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(SecurityHeaders())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	headers := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for name, want := range headers {
		if got := rec.Header().Get(name); got != want {
			t.Fatalf("expected %s=%q, got %q", name, want, got)
		}
	}
}

func TestParseOptionalTime(t *testing.T) {
	if got, err := parseOptionalTime("", false); err != nil || got != nil {
		t.Fatalf("expected nil for empty, got %v %v", got, err)
	}

	got, err := parseOptionalTime("2024-03-15T10:30:00Z", false)
	if err != nil || got == nil {
		t.Fatalf("rfc3339 parse: %v", err)
	}
	if got.Hour() != 10 || got.Minute() != 30 {
		t.Fatalf("unexpected time %v", got)
	}

	got, err = parseOptionalTime("2024-03-15", true)
	if err != nil || got == nil {
		t.Fatalf("date-only parse: %v", err)
	}
	if got.Hour() != 23 || got.Minute() != 59 || got.Second() != 59 {
		t.Fatalf("expected end of day, got %v", got)
	}

	if _, err := parseOptionalTime("not-a-date", false); err == nil {
		t.Fatal("expected error for garbage input")
	}
}
