package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	auditrepo "github.com/primetable/partnerboard/internal/audit/repository"
	auditservice "github.com/primetable/partnerboard/internal/audit/service"
	bookingrepo "github.com/primetable/partnerboard/internal/booking/repository"
	bookingservice "github.com/primetable/partnerboard/internal/booking/service"
	"github.com/primetable/partnerboard/internal/cache"
	"github.com/primetable/partnerboard/internal/clock"
	commissionrepo "github.com/primetable/partnerboard/internal/commission/repository"
	"github.com/primetable/partnerboard/internal/events"
	financedomain "github.com/primetable/partnerboard/internal/finance/domain"
	financerepo "github.com/primetable/partnerboard/internal/finance/repository"
	financeservice "github.com/primetable/partnerboard/internal/finance/service"
	incentiverepo "github.com/primetable/partnerboard/internal/incentive/repository"
	incentiveservice "github.com/primetable/partnerboard/internal/incentive/service"
	pdfprovider "github.com/primetable/partnerboard/internal/providers/pdf"
	promoterrepo "github.com/primetable/partnerboard/internal/promoter/repository"
	"github.com/primetable/partnerboard/internal/rollup"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
	venuerepo "github.com/primetable/partnerboard/internal/venue/repository"
	"github.com/primetable/partnerboard/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type schedulerFixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	sched   *Scheduler
	venueID snowflake.ID
}

func setupScheduler(t *testing.T, cfg Config) *schedulerFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&venuedomain.Venue{},
		&events.BookingEvent{},
		&financedomain.Transaction{},
		&financedomain.Payout{},
		&financedomain.PayoutHold{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(5)
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
	bookingSvc := bookingservice.New(bookingservice.Params{
		DB:           dbConn,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fake,
		Repo:         bookingrepo.Provide(),
		VenueRepo:    venuerepo.Provide(),
		PromoterRepo: promoterrepo.Provide(),
		Audit:        audit,
	})
	incentiveSvc := incentiveservice.New(incentiveservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  incentiverepo.Provide(),
	})
	financeSvc := financeservice.New(financeservice.Params{
		DB:           dbConn,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fake,
		Repo:         financerepo.Provide(),
		VenueRepo:    venuerepo.Provide(),
		PromoterRepo: promoterrepo.Provide(),
		PDF:          &pdfprovider.NoOpProvider{},
		Audit:        audit,
	})
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

	sched, err := New(Params{
		DB:           dbConn,
		Log:          zap.NewNop(),
		Clock:        fake,
		BookingSvc:   bookingSvc,
		IncentiveSvc: incentiveSvc,
		FinanceSvc:   financeSvc,
		VenueRepo:    venuerepo.Provide(),
		RollupSvc:    rollupSvc,
		Config:       cfg,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	venue := venuedomain.Venue{
		ID:           node.Generate(),
		Name:         "Sweep Venue",
		Slug:         "sweep-venue",
		Type:         venuedomain.VenueTypeRestaurant,
		Capacity:     80,
		MinPartySize: 1,
		MaxPartySize: 8,
		Currency:     "USD",
		Timezone:     "UTC",
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    fake.Now(),
		UpdatedAt:    fake.Now(),
	}
	if err := dbConn.Create(&venue).Error; err != nil {
		t.Fatalf("insert venue: %v", err)
	}

	return &schedulerFixture{
		db:      dbConn,
		node:    node,
		clock:   fake,
		sched:   sched,
		venueID: venue.ID,
	}
}

func (f *schedulerFixture) seedCommission(t *testing.T, amount int64, occurredAt time.Time) {
	t.Helper()
	row := financedomain.Transaction{
		ID:         f.node.Generate(),
		VenueID:    f.venueID,
		PromoterID: f.node.Generate(),
		Type:       financedomain.TransactionCommission,
		Amount:     amount,
		Currency:   "USD",
		OccurredAt: occurredAt,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  f.clock.Now(),
	}
	if err := f.db.Create(&row).Error; err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
}

func (f *schedulerFixture) countPayouts(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&financedomain.Payout{}).
		Where("venue_id = ?", f.venueID).
		Count(&count).Error; err != nil {
		t.Fatalf("count payouts: %v", err)
	}
	return count
}

func TestRunOnceSweepsPayoutsOverTrailingWindow(t *testing.T) {
	f := setupScheduler(t, Config{EnabledJobs: []string{"sweep_payouts"}})

	// The clock sits at 2024-03-15 12:00, so the default weekly window
	// runs 2024-03-08 through 2024-03-15 midnight.
	inside := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
	before := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	f.seedCommission(t, 2400, inside)
	f.seedCommission(t, 9999, before)

	if err := f.sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if got := f.countPayouts(t); got != 1 {
		t.Fatalf("expected 1 payout, got %d", got)
	}
	var payout financedomain.Payout
	if err := f.db.First(&payout, "venue_id = ?", f.venueID).Error; err != nil {
		t.Fatalf("load payout: %v", err)
	}
	if payout.GrossAmount != 2400 {
		t.Fatalf("expected gross 2400, got %d", payout.GrossAmount)
	}

	var unswept int64
	if err := f.db.Model(&financedomain.Transaction{}).
		Where("venue_id = ? AND payout_id IS NULL", f.venueID).
		Count(&unswept).Error; err != nil {
		t.Fatalf("count unswept: %v", err)
	}
	if unswept != 1 {
		t.Fatalf("expected the out-of-window transaction left unswept, got %d", unswept)
	}
}

func TestRunOnceSweepIsIdempotent(t *testing.T) {
	f := setupScheduler(t, Config{EnabledJobs: []string{"sweep_payouts"}})
	f.seedCommission(t, 1200, time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC))

	if err := f.sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// Nothing left to sweep; the second run must not fail or duplicate.
	if err := f.sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := f.countPayouts(t); got != 1 {
		t.Fatalf("expected 1 payout after resweep, got %d", got)
	}
}

func TestRunOnceSkipsDisabledJobs(t *testing.T) {
	f := setupScheduler(t, Config{EnabledJobs: []string{"rollup_pending"}})
	f.seedCommission(t, 1200, time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC))

	if err := f.sched.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if got := f.countPayouts(t); got != 0 {
		t.Fatalf("expected no payouts with sweep disabled, got %d", got)
	}
}
