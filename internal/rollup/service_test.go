package rollup

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/cache"
	"github.com/primetable/partnerboard/internal/clock"
	commissiondomain "github.com/primetable/partnerboard/internal/commission/domain"
	commissionrepo "github.com/primetable/partnerboard/internal/commission/repository"
	"github.com/primetable/partnerboard/internal/events"
	financedomain "github.com/primetable/partnerboard/internal/finance/domain"
	financerepo "github.com/primetable/partnerboard/internal/finance/repository"
	incentivedomain "github.com/primetable/partnerboard/internal/incentive/domain"
	incentiverepo "github.com/primetable/partnerboard/internal/incentive/repository"
	overviewdomain "github.com/primetable/partnerboard/internal/overview/domain"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	"github.com/primetable/partnerboard/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type rollupFixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	svc     *Service
	venueID snowflake.ID
}

func setupRollup(t *testing.T) *rollupFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&events.BookingEvent{},
		&overviewdomain.DailyStat{},
		&promoterdomain.Stats{},
		&financedomain.Transaction{},
		&commissiondomain.Rate{},
		&commissiondomain.Assignment{},
		&incentivedomain.Program{},
		&incentivedomain.Progress{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:             dbConn,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          fake,
		KPICache:       cache.NewKPICache(),
		FinanceRepo:    financerepo.Provide(),
		CommissionRepo: commissionrepo.Provide(),
		IncentiveRepo:  incentiverepo.Provide(),
	})

	return &rollupFixture{
		db:      dbConn,
		node:    node,
		clock:   fake,
		svc:     svc,
		venueID: node.Generate(),
	}
}

func (f *rollupFixture) emit(t *testing.T, eventType string, payload map[string]any) {
	t.Helper()
	if err := events.Emit(context.Background(), f.db, f.node.Generate(), f.venueID, eventType, payload, f.clock.Now()); err != nil {
		t.Fatalf("emit %s: %v", eventType, err)
	}
}

func confirmedPayload(bookingID snowflake.ID, diners int, prime bool, feeAmount, platformFee int64) map[string]any {
	return map[string]any{
		"booking_id":      bookingID.String(),
		"diners":          diners,
		"prime":           prime,
		"fee_amount":      feeAmount,
		"platform_fee":    platformFee,
		"status":          "CONFIRMED",
		"previous_status": "PENDING",
		"booking_date":    "2024-03-15",
	}
}

func (f *rollupFixture) dailyStat(t *testing.T, date string) overviewdomain.DailyStat {
	t.Helper()
	var stat overviewdomain.DailyStat
	if err := f.db.First(&stat, "venue_id = ? AND date = ?", f.venueID, date).Error; err != nil {
		t.Fatalf("load daily stat: %v", err)
	}
	return stat
}

func TestRollupConfirmedUpdatesDailyStats(t *testing.T) {
	f := setupRollup(t)
	bookingID := f.node.Generate()

	f.emit(t, events.EventBookingCreated, map[string]any{
		"booking_id":   bookingID.String(),
		"diners":       4,
		"prime":        true,
		"status":       "PENDING",
		"booking_date": "2024-03-15",
	})
	f.emit(t, events.EventBookingConfirmed, confirmedPayload(bookingID, 4, true, 10000, 1000))

	if err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	stat := f.dailyStat(t, "2024-03-15")
	if stat.PendingCount != 0 {
		t.Fatalf("expected pending 0, got %d", stat.PendingCount)
	}
	if stat.ConfirmedCount != 1 {
		t.Fatalf("expected confirmed 1, got %d", stat.ConfirmedCount)
	}
	if stat.RealizedBookings != 1 || stat.RealizedCovers != 4 {
		t.Fatalf("unexpected realized aggregates: %+v", stat)
	}
	if stat.PrimeRevenue != 10000 || stat.PlatformFees != 1000 {
		t.Fatalf("unexpected revenue aggregates: %+v", stat)
	}

	var unpublished int64
	if err := f.db.Model(&events.BookingEvent{}).
		Where("published = ?", false).
		Count(&unpublished).Error; err != nil {
		t.Fatalf("count unpublished: %v", err)
	}
	if unpublished != 0 {
		t.Fatalf("expected all events published, %d remain", unpublished)
	}
}

func TestRollupIsIdempotentAcrossRuns(t *testing.T) {
	f := setupRollup(t)
	bookingID := f.node.Generate()

	f.emit(t, events.EventBookingConfirmed, confirmedPayload(bookingID, 2, false, 3000, 300))

	if err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := f.dailyStat(t, "2024-03-15")

	// A second run sees no unpublished events and must change nothing.
	if err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := f.dailyStat(t, "2024-03-15")

	if first != second {
		t.Fatalf("stats changed on replay: first %+v second %+v", first, second)
	}
}

func TestRollupCancellationReversesRealizedAggregates(t *testing.T) {
	f := setupRollup(t)
	bookingID := f.node.Generate()

	f.emit(t, events.EventBookingConfirmed, confirmedPayload(bookingID, 3, true, 7500, 750))
	f.emit(t, events.EventBookingCancelled, map[string]any{
		"booking_id":      bookingID.String(),
		"diners":          3,
		"prime":           true,
		"fee_amount":      7500,
		"platform_fee":    750,
		"status":          "CANCELLED",
		"previous_status": "CONFIRMED",
		"booking_date":    "2024-03-15",
	})

	if err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	stat := f.dailyStat(t, "2024-03-15")
	if stat.ConfirmedCount != 0 || stat.CancelledCount != 1 {
		t.Fatalf("unexpected status counts: %+v", stat)
	}
	if stat.RealizedBookings != 0 || stat.RealizedCovers != 0 {
		t.Fatalf("expected realized aggregates reversed: %+v", stat)
	}
	if stat.PrimeRevenue != 0 || stat.PlatformFees != 0 {
		t.Fatalf("expected revenue reversed: %+v", stat)
	}
}

func TestRollupCompletionMovesRealizedAggregatesOut(t *testing.T) {
	f := setupRollup(t)
	bookingID := f.node.Generate()

	f.emit(t, events.EventBookingConfirmed, confirmedPayload(bookingID, 4, true, 10000, 1000))
	f.emit(t, events.EventBookingCompleted, map[string]any{
		"booking_id":      bookingID.String(),
		"diners":          4,
		"prime":           true,
		"fee_amount":      10000,
		"platform_fee":    1000,
		"status":          "COMPLETED",
		"previous_status": "CONFIRMED",
		"booking_date":    "2024-03-15",
	})

	if err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	stat := f.dailyStat(t, "2024-03-15")
	if stat.ConfirmedCount != 0 || stat.CompletedCount != 1 {
		t.Fatalf("unexpected status counts: %+v", stat)
	}
	if stat.RealizedBookings != 0 || stat.RealizedCovers != 0 {
		t.Fatalf("expected realized aggregates reversed on completion: %+v", stat)
	}
	if stat.PrimeBookings != 0 || stat.PrimeRevenue != 0 || stat.PlatformFees != 0 {
		t.Fatalf("expected revenue reversed on completion: %+v", stat)
	}
}

func TestRollupAccruesCommissionOnce(t *testing.T) {
	f := setupRollup(t)

	promoterID := f.node.Generate()
	rate := commissiondomain.Rate{
		ID:        f.node.Generate(),
		VenueID:   f.venueID,
		Name:      "Standard per-cover",
		Model:     commissiondomain.ModelPerCover,
		RateValue: 200,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	if err := f.db.Create(&rate).Error; err != nil {
		t.Fatalf("insert rate: %v", err)
	}
	assignment := commissiondomain.Assignment{
		ID:            f.node.Generate(),
		VenueID:       f.venueID,
		PromoterID:    promoterID,
		RateID:        rate.ID,
		EffectiveFrom: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:     f.clock.Now(),
	}
	if err := f.db.Create(&assignment).Error; err != nil {
		t.Fatalf("insert assignment: %v", err)
	}

	bookingID := f.node.Generate()
	payload := confirmedPayload(bookingID, 4, false, 6000, 600)
	payload["promoter_id"] = promoterID.String()

	f.emit(t, events.EventBookingConfirmed, payload)
	if err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	// A replayed confirmation for the same booking must not double-pay.
	f.emit(t, events.EventBookingConfirmed, payload)
	if err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("replay run: %v", err)
	}

	var transactions []financedomain.Transaction
	if err := f.db.Where("venue_id = ? AND type = ?", f.venueID, financedomain.TransactionCommission).
		Find(&transactions).Error; err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected 1 commission transaction, got %d", len(transactions))
	}
	if transactions[0].Amount != 800 {
		t.Fatalf("expected 4 covers at 200 = 800, got %d", transactions[0].Amount)
	}
	if transactions[0].PromoterID != promoterID {
		t.Fatalf("commission booked to wrong promoter")
	}
}

func TestRollupGrantsIncentiveRewardOnThreshold(t *testing.T) {
	f := setupRollup(t)

	promoterID := f.node.Generate()
	program := incentivedomain.Program{
		ID:           f.node.Generate(),
		VenueID:      f.venueID,
		Name:         "March covers push",
		Metric:       incentivedomain.MetricCovers,
		Threshold:    6,
		RewardAmount: 5000,
		Status:       incentivedomain.ProgramActive,
		StartAt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EndAt:        time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	if err := f.db.Create(&program).Error; err != nil {
		t.Fatalf("insert program: %v", err)
	}

	emitConfirmed := func(diners int) {
		payload := confirmedPayload(f.node.Generate(), diners, false, int64(diners)*1500, 0)
		payload["promoter_id"] = promoterID.String()
		f.emit(t, events.EventBookingConfirmed, payload)
	}

	emitConfirmed(4)
	if err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	var rewards int64
	countRewards := func() int64 {
		if err := f.db.Model(&financedomain.Transaction{}).
			Where("venue_id = ? AND type = ?", f.venueID, financedomain.TransactionIncentiveReward).
			Count(&rewards).Error; err != nil {
			t.Fatalf("count rewards: %v", err)
		}
		return rewards
	}
	if countRewards() != 0 {
		t.Fatal("reward granted before threshold")
	}

	emitConfirmed(3)
	if err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("second booking: %v", err)
	}
	if countRewards() != 1 {
		t.Fatalf("expected 1 reward after crossing threshold, got %d", rewards)
	}

	// Further progress past the threshold must not grant again.
	emitConfirmed(2)
	if err := f.svc.ProcessPending(context.Background(), 0); err != nil {
		t.Fatalf("third booking: %v", err)
	}
	if countRewards() != 1 {
		t.Fatalf("expected reward granted once, got %d", rewards)
	}

	var progress incentivedomain.Progress
	if err := f.db.First(&progress, "program_id = ? AND promoter_id = ?", program.ID, promoterID).Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if progress.Current != 9 {
		t.Fatalf("expected progress 9 covers, got %d", progress.Current)
	}
	if !progress.Attained {
		t.Fatal("expected progress marked attained")
	}
}
