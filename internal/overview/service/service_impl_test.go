package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/primetable/partnerboard/internal/booking/domain"
	"github.com/primetable/partnerboard/internal/cache"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/overview/domain"
	overviewrepo "github.com/primetable/partnerboard/internal/overview/repository"
	"github.com/primetable/partnerboard/internal/venuectx"
	"github.com/primetable/partnerboard/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type overviewFixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	svc     domain.Service
	venueID snowflake.ID
	ctx     context.Context
}

func setupOverviewService(t *testing.T) *overviewFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.DailyStat{}, &bookingdomain.Booking{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(8)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		Clock: fake,
		Cache: cache.NewKPICache(),
		Repo:  overviewrepo.Provide(),
	})

	venueID := node.Generate()
	return &overviewFixture{
		db:      dbConn,
		node:    node,
		clock:   fake,
		svc:     svc,
		venueID: venueID,
		ctx:     venuectx.WithVenueID(context.Background(), int64(venueID)),
	}
}

func (f *overviewFixture) seedBooking(t *testing.T, status bookingdomain.Status, prime bool, diners int, fee, platformFee int64) {
	t.Helper()
	booking := bookingdomain.Booking{
		ID:          f.node.Generate(),
		VenueID:     f.venueID,
		GuestName:   "walk in",
		Diners:      diners,
		Prime:       prime,
		BookingAt:   f.clock.Now().Add(-24 * time.Hour),
		Status:      status,
		FeeAmount:   fee,
		PlatformFee: platformFee,
	}
	if err := f.db.Create(&booking).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

func TestGetKPIsComputesFromBookingsWithoutSnapshots(t *testing.T) {
	f := setupOverviewService(t)

	f.seedBooking(t, bookingdomain.StatusConfirmed, true, 4, 10000, 1000)
	f.seedBooking(t, bookingdomain.StatusConfirmed, false, 2, 3000, 300)
	f.seedBooking(t, bookingdomain.StatusCompleted, true, 3, 7500, 750)
	f.seedBooking(t, bookingdomain.StatusCancelled, false, 3, 4500, 450)

	resp, err := f.svc.GetKPIs(f.ctx, domain.GetKPIsRequest{})
	if err != nil {
		t.Fatalf("get kpis: %v", err)
	}

	report := resp.Report
	if report.TotalBookings != 4 {
		t.Fatalf("expected 4 bookings, got %d", report.TotalBookings)
	}
	if report.StatusBreakdown["CONFIRMED"] != 2 || report.StatusBreakdown["COMPLETED"] != 1 {
		t.Fatalf("unexpected breakdown: %+v", report.StatusBreakdown)
	}
	if report.TotalDiners != 6 {
		t.Fatalf("only confirmed diners count, got %d", report.TotalDiners)
	}
	if report.PrimeRevenue != 10000 || report.NonPrimeRevenue != 3000 || report.TotalRevenue != 13000 {
		t.Fatalf("unexpected revenue: %+v", report)
	}
	if report.PlatformFees != 1300 {
		t.Fatalf("expected platform fees 1300, got %d", report.PlatformFees)
	}
	if report.PrimeConversionRate != 0.5 {
		t.Fatalf("expected conversion 0.5, got %v", report.PrimeConversionRate)
	}
	if report.AvgPrimeSpend != 10000 {
		t.Fatalf("expected avg prime spend 10000, got %v", report.AvgPrimeSpend)
	}
}

func TestGetKPIsPrefersSnapshots(t *testing.T) {
	f := setupOverviewService(t)

	// A snapshot row and a stray booking that disagrees with it. The
	// report must come from the snapshot alone.
	stat := domain.DailyStat{
		VenueID:          f.venueID,
		Date:             f.clock.Now().Add(-24 * time.Hour).Format("2006-01-02"),
		ConfirmedCount:   5,
		RealizedBookings: 5,
		RealizedCovers:   20,
		PrimeBookings:    2,
		PrimeRevenue:     50000,
		NonPrimeRevenue:  30000,
		PlatformFees:     8000,
	}
	if err := f.db.Create(&stat).Error; err != nil {
		t.Fatalf("seed daily stat: %v", err)
	}
	f.seedBooking(t, bookingdomain.StatusConfirmed, true, 4, 10000, 1000)

	resp, err := f.svc.GetKPIs(f.ctx, domain.GetKPIsRequest{})
	if err != nil {
		t.Fatalf("get kpis: %v", err)
	}

	report := resp.Report
	if report.TotalBookings != 5 || report.TotalDiners != 20 {
		t.Fatalf("expected snapshot aggregates, got %+v", report)
	}
	if report.TotalRevenue != 80000 || report.PlatformFees != 8000 {
		t.Fatalf("unexpected revenue: %+v", report)
	}
	if report.PrimeConversionRate != 0.4 {
		t.Fatalf("expected conversion 0.4, got %v", report.PrimeConversionRate)
	}
}

func TestGetKPIsCachesReports(t *testing.T) {
	f := setupOverviewService(t)
	f.seedBooking(t, bookingdomain.StatusConfirmed, true, 4, 10000, 1000)

	first, err := f.svc.GetKPIs(f.ctx, domain.GetKPIsRequest{})
	if err != nil {
		t.Fatalf("first get: %v", err)
	}

	// Mutating the source data must not change a cached report.
	f.seedBooking(t, bookingdomain.StatusConfirmed, true, 6, 20000, 2000)

	second, err := f.svc.GetKPIs(f.ctx, domain.GetKPIsRequest{})
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if second.Report.TotalBookings != first.Report.TotalBookings {
		t.Fatalf("expected cached report, got %+v", second.Report)
	}
}

func TestGetKPIsValidatesRequest(t *testing.T) {
	f := setupOverviewService(t)

	now := f.clock.Now()
	_, err := f.svc.GetKPIs(f.ctx, domain.GetKPIsRequest{From: now, To: now.Add(-time.Hour)})
	if err != domain.ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}

	_, err = f.svc.GetKPIs(context.Background(), domain.GetKPIsRequest{})
	if err != domain.ErrInvalidVenue {
		t.Fatalf("expected ErrInvalidVenue, got %v", err)
	}
}
