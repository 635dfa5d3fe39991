package mockgen

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	bookingdomain "github.com/primetable/partnerboard/internal/booking/domain"
	"github.com/primetable/partnerboard/internal/cache"
	"github.com/primetable/partnerboard/internal/clock"
	commissiondomain "github.com/primetable/partnerboard/internal/commission/domain"
	commissionrepo "github.com/primetable/partnerboard/internal/commission/repository"
	"github.com/primetable/partnerboard/internal/config"
	"github.com/primetable/partnerboard/internal/events"
	financedomain "github.com/primetable/partnerboard/internal/finance/domain"
	financerepo "github.com/primetable/partnerboard/internal/finance/repository"
	incentivedomain "github.com/primetable/partnerboard/internal/incentive/domain"
	incentiverepo "github.com/primetable/partnerboard/internal/incentive/repository"
	overviewdomain "github.com/primetable/partnerboard/internal/overview/domain"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	"github.com/primetable/partnerboard/internal/rollup"
	teamdomain "github.com/primetable/partnerboard/internal/team/domain"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
	"github.com/primetable/partnerboard/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupGenerator(t *testing.T) (*Generator, *gorm.DB) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&venuedomain.Venue{},
		&venuedomain.PricingConfig{},
		&teamdomain.User{},
		&teamdomain.Member{},
		&promoterdomain.Promoter{},
		&promoterdomain.Stats{},
		&commissiondomain.Rate{},
		&commissiondomain.Assignment{},
		&incentivedomain.Program{},
		&incentivedomain.Progress{},
		&bookingdomain.Booking{},
		&bookingdomain.BookingNote{},
		&events.BookingEvent{},
		&financedomain.Transaction{},
		&financedomain.Payout{},
		&financedomain.PayoutHold{},
		&overviewdomain.DailyStat{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(6)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	rollupSvc := rollup.NewService(rollup.Params{
		DB:             dbConn,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          fake,
		KPICache:       cache.NewKPICache(),
		FinanceRepo:    financerepo.Provide(),
		CommissionRepo: commissionrepo.Provide(),
		IncentiveRepo:  incentiverepo.Provide(),
	})

	gen := New(Params{
		DB:     dbConn,
		Log:    zap.NewNop(),
		Clock:  fake,
		Cfg:    config.Config{Demo: config.DemoConfig{Seed: 42, HistoryDays: 7}},
		Rollup: rollupSvc,
	})
	return gen, dbConn
}

type bookingSnapshot struct {
	ID        snowflake.ID
	GuestName string
	Diners    int
	Prime     bool
	Status    bookingdomain.Status
	FeeAmount int64
}

func snapshotBookings(t *testing.T, dbConn *gorm.DB, venueID string) []bookingSnapshot {
	t.Helper()
	id := parseVenueID(t, venueID)
	var rows []bookingSnapshot
	if err := dbConn.Model(&bookingdomain.Booking{}).
		Select("id, guest_name, diners, prime, status, fee_amount").
		Where("venue_id = ?", id).
		Order("id asc").
		Find(&rows).Error; err != nil {
		t.Fatalf("snapshot bookings: %v", err)
	}
	return rows
}

func parseVenueID(t *testing.T, value string) snowflake.ID {
	t.Helper()
	id, err := snowflake.ParseString(value)
	if err != nil {
		t.Fatalf("parse venue id %q: %v", value, err)
	}
	return id
}

func TestGenerateSameSeedSameDataset(t *testing.T) {
	gen, dbConn := setupGenerator(t)
	ctx := context.Background()

	first, err := gen.Generate(ctx, GenerateRequest{Seed: 42, Days: 7})
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	firstBookings := snapshotBookings(t, dbConn, first.VenueID)
	if len(firstBookings) == 0 {
		t.Fatal("expected bookings generated")
	}
	if first.Promoters != promoterCount {
		t.Fatalf("expected %d promoters, got %d", promoterCount, first.Promoters)
	}

	second, err := gen.Generate(ctx, GenerateRequest{Seed: 42, Days: 7})
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if first != second {
		t.Fatalf("summaries differ: first %+v second %+v", first, second)
	}

	secondBookings := snapshotBookings(t, dbConn, second.VenueID)
	if len(firstBookings) != len(secondBookings) {
		t.Fatalf("booking counts differ: %d vs %d", len(firstBookings), len(secondBookings))
	}
	for i := range firstBookings {
		if firstBookings[i] != secondBookings[i] {
			t.Fatalf("booking %d differs: %+v vs %+v", i, firstBookings[i], secondBookings[i])
		}
	}

	// Regeneration replaces the dataset rather than appending to it.
	var venueCount int64
	if err := dbConn.Model(&venuedomain.Venue{}).Count(&venueCount).Error; err != nil {
		t.Fatalf("count venues: %v", err)
	}
	if venueCount != 1 {
		t.Fatalf("expected 1 venue, got %d", venueCount)
	}
}

func TestGenerateSeedAnchorsVenueID(t *testing.T) {
	gen, _ := setupGenerator(t)

	summary, err := gen.Generate(context.Background(), GenerateRequest{Seed: 7, Days: 3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if want := snowflake.ID(7*1_000_000 + 1).String(); summary.VenueID != want {
		t.Fatalf("expected venue id %s, got %s", want, summary.VenueID)
	}
}

func TestGenerateDrainsRollup(t *testing.T) {
	gen, dbConn := setupGenerator(t)

	summary, err := gen.Generate(context.Background(), GenerateRequest{Seed: 42, Days: 7})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var unpublished int64
	if err := dbConn.Model(&events.BookingEvent{}).
		Where("published = ?", false).
		Count(&unpublished).Error; err != nil {
		t.Fatalf("count unpublished: %v", err)
	}
	if unpublished != 0 {
		t.Fatalf("expected rollup drained, %d events remain", unpublished)
	}

	venueID := parseVenueID(t, summary.VenueID)
	var statDays int64
	if err := dbConn.Model(&overviewdomain.DailyStat{}).
		Where("venue_id = ?", venueID).
		Count(&statDays).Error; err != nil {
		t.Fatalf("count daily stats: %v", err)
	}
	if statDays == 0 {
		t.Fatal("expected daily stats materialized")
	}

	// Promoter-attributed confirmed bookings accrue commissions.
	var commissions int64
	if err := dbConn.Model(&financedomain.Transaction{}).
		Where("venue_id = ? AND type = ?", venueID, financedomain.TransactionCommission).
		Count(&commissions).Error; err != nil {
		t.Fatalf("count commissions: %v", err)
	}
	if commissions == 0 {
		t.Fatal("expected commission transactions accrued")
	}
}
