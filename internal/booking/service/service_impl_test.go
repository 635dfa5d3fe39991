package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	auditrepo "github.com/primetable/partnerboard/internal/audit/repository"
	auditservice "github.com/primetable/partnerboard/internal/audit/service"
	"github.com/primetable/partnerboard/internal/booking/domain"
	bookingrepo "github.com/primetable/partnerboard/internal/booking/repository"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/events"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	promoterrepo "github.com/primetable/partnerboard/internal/promoter/repository"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
	venuerepo "github.com/primetable/partnerboard/internal/venue/repository"
	"github.com/primetable/partnerboard/internal/venuectx"
	"github.com/primetable/partnerboard/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type bookingFixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	svc     domain.Service
	venueID snowflake.ID
	ctx     context.Context
}

func setupBookingService(t *testing.T) *bookingFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&venuedomain.Venue{},
		&venuedomain.PricingConfig{},
		&promoterdomain.Promoter{},
		&domain.Booking{},
		&domain.BookingNote{},
		&events.BookingEvent{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	audit := auditservice.NewService(auditservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  auditrepo.Provide(),
	})
	svc := New(Params{
		DB:           dbConn,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fake,
		Repo:         bookingrepo.Provide(),
		VenueRepo:    venuerepo.Provide(),
		PromoterRepo: promoterrepo.Provide(),
		Audit:        audit,
	})

	venueID := node.Generate()
	venue := venuedomain.Venue{
		ID:           venueID,
		Name:         "Test Venue",
		Slug:         "test-venue",
		Type:         venuedomain.VenueTypeRestaurant,
		Capacity:     100,
		MinPartySize: 1,
		MaxPartySize: 10,
		Currency:     "USD",
		Timezone:     "UTC",
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    fake.Now(),
		UpdatedAt:    fake.Now(),
	}
	if err := dbConn.Create(&venue).Error; err != nil {
		t.Fatalf("insert venue: %v", err)
	}
	pricing := venuedomain.PricingConfig{
		VenueID:             venueID,
		PrimeFeePerCover:    2500,
		NonPrimeFeePerCover: 1500,
		PlatformFeeRate:     0.10,
		CreatedAt:           fake.Now(),
		UpdatedAt:           fake.Now(),
	}
	if err := dbConn.Create(&pricing).Error; err != nil {
		t.Fatalf("insert pricing: %v", err)
	}

	return &bookingFixture{
		db:      dbConn,
		node:    node,
		clock:   fake,
		svc:     svc,
		venueID: venueID,
		ctx:     venuectx.WithVenueID(context.Background(), int64(venueID)),
	}
}

func (f *bookingFixture) createBooking(t *testing.T, diners int, prime bool) domain.Booking {
	t.Helper()
	booking, err := f.svc.Create(f.ctx, domain.CreateBookingRequest{
		GuestName: "Ada Lovelace",
		Diners:    diners,
		Prime:     prime,
		BookingAt: f.clock.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return booking
}

func TestCreateBookingComputesFees(t *testing.T) {
	f := setupBookingService(t)

	booking := f.createBooking(t, 4, true)

	if booking.Status != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", booking.Status)
	}
	if booking.FeeAmount != 10000 {
		t.Fatalf("expected fee 10000, got %d", booking.FeeAmount)
	}
	if booking.PlatformFee != 1000 {
		t.Fatalf("expected platform fee 1000, got %d", booking.PlatformFee)
	}

	var eventCount int64
	if err := f.db.Model(&events.BookingEvent{}).
		Where("venue_id = ? AND event_type = ?", f.venueID, events.EventBookingCreated).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 created event, got %d", eventCount)
	}

	var event events.BookingEvent
	if err := f.db.First(&event, "venue_id = ? AND event_type = ?", f.venueID, events.EventBookingCreated).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if !event.CreatedAt.Equal(f.clock.Now()) {
		t.Fatalf("expected event stamped %v, got %v", f.clock.Now(), event.CreatedAt)
	}
}

func TestCreateBookingRejectsPartySizeOutOfRange(t *testing.T) {
	f := setupBookingService(t)

	_, err := f.svc.Create(f.ctx, domain.CreateBookingRequest{
		GuestName: "Grace Hopper",
		Diners:    11,
		BookingAt: f.clock.Now().Add(time.Hour),
	})
	if err != domain.ErrInvalidDiners {
		t.Fatalf("expected ErrInvalidDiners, got %v", err)
	}
}

func TestCreateBookingRequiresVenueContext(t *testing.T) {
	f := setupBookingService(t)

	_, err := f.svc.Create(context.Background(), domain.CreateBookingRequest{
		GuestName: "No Venue",
		Diners:    2,
		BookingAt: f.clock.Now().Add(time.Hour),
	})
	if err != domain.ErrInvalidVenue {
		t.Fatalf("expected ErrInvalidVenue, got %v", err)
	}
}

func TestUpdateStatusFollowsStateMachine(t *testing.T) {
	f := setupBookingService(t)
	booking := f.createBooking(t, 2, false)

	confirmed, err := f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{
		ID:     booking.ID.String(),
		Status: domain.StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != domain.StatusConfirmed {
		t.Fatalf("expected CONFIRMED, got %s", confirmed.Status)
	}

	// PENDING is no longer the current status, so re-confirming conflicts.
	if _, err := f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{
		ID:     booking.ID.String(),
		Status: domain.StatusConfirmed,
	}); err != domain.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	completed, err := f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{
		ID:     booking.ID.String(),
		Status: domain.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", completed.Status)
	}

	// COMPLETED is terminal.
	if _, err := f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{
		ID:     booking.ID.String(),
		Status: domain.StatusCancelled,
	}); err != domain.ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition from terminal, got %v", err)
	}
}

func TestUpdateStatusWritesAuditLog(t *testing.T) {
	f := setupBookingService(t)
	booking := f.createBooking(t, 2, false)

	if _, err := f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{
		ID:     booking.ID.String(),
		Status: domain.StatusConfirmed,
	}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	var entry auditdomain.AuditLog
	if err := f.db.First(&entry, "action = ?", "booking.status_changed").Error; err != nil {
		t.Fatalf("load audit log: %v", err)
	}
	if entry.TargetType != "booking" {
		t.Fatalf("expected target type booking, got %q", entry.TargetType)
	}
	if entry.TargetID == nil || *entry.TargetID != booking.ID.String() {
		t.Fatalf("unexpected target id %v", entry.TargetID)
	}
	if entry.Metadata["from"] != string(domain.StatusPending) || entry.Metadata["to"] != string(domain.StatusConfirmed) {
		t.Fatalf("unexpected metadata %v", entry.Metadata)
	}
}

func TestUpdateStatusRecordsNote(t *testing.T) {
	f := setupBookingService(t)
	booking := f.createBooking(t, 2, false)

	if _, err := f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{
		ID:     booking.ID.String(),
		Status: domain.StatusCancelled,
		Note:   "guest called to cancel",
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	notes, err := f.svc.ListNotes(f.ctx, booking.ID.String())
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	if notes[0].Note != "guest called to cancel" {
		t.Fatalf("unexpected note %q", notes[0].Note)
	}
}

func TestBulkUpdateStatusReportsPerItemOutcomes(t *testing.T) {
	f := setupBookingService(t)

	first := f.createBooking(t, 2, false)
	second := f.createBooking(t, 4, true)

	// Third booking is already cancelled, so confirming it must fail.
	third := f.createBooking(t, 3, false)
	if _, err := f.svc.UpdateStatus(f.ctx, domain.UpdateStatusRequest{
		ID:     third.ID.String(),
		Status: domain.StatusCancelled,
	}); err != nil {
		t.Fatalf("cancel third: %v", err)
	}

	ids := []string{first.ID.String(), second.ID.String(), third.ID.String(), "not-an-id"}
	resp, err := f.svc.BulkUpdateStatus(f.ctx, domain.BulkUpdateStatusRequest{
		IDs:    ids,
		Status: domain.StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("bulk update: %v", err)
	}

	if len(resp.Outcomes) != len(ids) {
		t.Fatalf("expected %d outcomes, got %d", len(ids), len(resp.Outcomes))
	}
	if resp.Updated != 2 {
		t.Fatalf("expected 2 updated, got %d", resp.Updated)
	}
	if resp.Failed != 2 {
		t.Fatalf("expected 2 failed, got %d", resp.Failed)
	}
	for i, outcome := range resp.Outcomes {
		if outcome.ID != ids[i] {
			t.Fatalf("outcome %d reports id %q, want %q", i, outcome.ID, ids[i])
		}
	}
	if resp.Outcomes[2].Success {
		t.Fatal("expected cancelled booking to fail confirmation")
	}
	if resp.Outcomes[3].Success {
		t.Fatal("expected malformed id to fail")
	}
}

func TestBulkUpdateStatusValidatesRequest(t *testing.T) {
	f := setupBookingService(t)

	if _, err := f.svc.BulkUpdateStatus(f.ctx, domain.BulkUpdateStatusRequest{
		Status: domain.StatusConfirmed,
	}); err != domain.ErrEmptyBulkRequest {
		t.Fatalf("expected ErrEmptyBulkRequest, got %v", err)
	}

	ids := make([]string, 101)
	for i := range ids {
		ids[i] = f.node.Generate().String()
	}
	if _, err := f.svc.BulkUpdateStatus(f.ctx, domain.BulkUpdateStatusRequest{
		IDs:    ids,
		Status: domain.StatusConfirmed,
	}); err != domain.ErrBulkTooLarge {
		t.Fatalf("expected ErrBulkTooLarge, got %v", err)
	}
}

func TestExpireStalePendingCancelsPassedSlots(t *testing.T) {
	f := setupBookingService(t)

	stale := f.createBooking(t, 2, false)
	fresh := f.createBooking(t, 2, false)

	// Move the stale booking's slot into the past, beyond the grace period.
	past := f.clock.Now().Add(-3 * time.Hour)
	if err := f.db.Model(&domain.Booking{}).
		Where("id = ?", stale.ID).
		Update("booking_at", past).Error; err != nil {
		t.Fatalf("backdate booking: %v", err)
	}

	expired, err := f.svc.ExpireStalePending(f.ctx, 2*time.Hour)
	if err != nil {
		t.Fatalf("expire stale pending: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired, got %d", expired)
	}

	var reloaded domain.Booking
	if err := f.db.First(&reloaded, "id = ?", stale.ID).Error; err != nil {
		t.Fatalf("reload stale: %v", err)
	}
	if reloaded.Status != domain.StatusCancelled {
		t.Fatalf("expected stale booking CANCELLED, got %s", reloaded.Status)
	}

	reloaded = domain.Booking{}
	if err := f.db.First(&reloaded, "id = ?", fresh.ID).Error; err != nil {
		t.Fatalf("reload fresh: %v", err)
	}
	if reloaded.Status != domain.StatusPending {
		t.Fatalf("expected fresh booking PENDING, got %s", reloaded.Status)
	}
}
