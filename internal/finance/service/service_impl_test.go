package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	auditrepo "github.com/primetable/partnerboard/internal/audit/repository"
	auditservice "github.com/primetable/partnerboard/internal/audit/service"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/finance/domain"
	financerepo "github.com/primetable/partnerboard/internal/finance/repository"
	pdfprovider "github.com/primetable/partnerboard/internal/providers/pdf"
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

type financeFixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	svc     domain.Service
	venueID snowflake.ID
	ctx     context.Context
}

func setupFinanceService(t *testing.T) *financeFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&venuedomain.Venue{},
		&promoterdomain.Promoter{},
		&domain.Transaction{},
		&domain.Payout{},
		&domain.PayoutHold{},
		&auditdomain.AuditLog{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC))
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
		Repo:         financerepo.Provide(),
		VenueRepo:    venuerepo.Provide(),
		PromoterRepo: promoterrepo.Provide(),
		PDF:          &pdfprovider.NoOpProvider{},
		Audit:        audit,
	})

	venueID := node.Generate()
	return &financeFixture{
		db:      dbConn,
		node:    node,
		clock:   fake,
		svc:     svc,
		venueID: venueID,
		ctx:     venuectx.WithVenueID(context.Background(), int64(venueID)),
	}
}

func (f *financeFixture) seedTransaction(t *testing.T, promoterID snowflake.ID, amount int64, occurredAt time.Time) snowflake.ID {
	t.Helper()
	row := domain.Transaction{
		ID:         f.node.Generate(),
		VenueID:    f.venueID,
		PromoterID: promoterID,
		Type:       domain.TransactionCommission,
		Amount:     amount,
		Currency:   "USD",
		OccurredAt: occurredAt,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  f.clock.Now(),
	}
	if err := f.db.Create(&row).Error; err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	return row.ID
}

func TestGeneratePayoutsSweepsPerPromoter(t *testing.T) {
	f := setupFinanceService(t)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	alice := f.node.Generate()
	bob := f.node.Generate()
	f.seedTransaction(t, alice, 800, start.Add(24*time.Hour))
	f.seedTransaction(t, alice, 1200, start.Add(48*time.Hour))
	f.seedTransaction(t, bob, 500, start.Add(72*time.Hour))
	// Outside the period, must not be swept.
	f.seedTransaction(t, alice, 9999, end.Add(time.Hour))

	resp, err := f.svc.GeneratePayouts(f.ctx, domain.GeneratePayoutsRequest{
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		t.Fatalf("generate payouts: %v", err)
	}
	if len(resp.Payouts) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(resp.Payouts))
	}

	byPromoter := make(map[snowflake.ID]domain.Payout)
	for _, payout := range resp.Payouts {
		byPromoter[payout.PromoterID] = payout
	}
	if byPromoter[alice].GrossAmount != 2000 {
		t.Fatalf("expected alice gross 2000, got %d", byPromoter[alice].GrossAmount)
	}
	if byPromoter[alice].NetAmount != 2000 {
		t.Fatalf("expected alice net equal to gross, got %d", byPromoter[alice].NetAmount)
	}
	if byPromoter[bob].GrossAmount != 500 {
		t.Fatalf("expected bob gross 500, got %d", byPromoter[bob].GrossAmount)
	}

	// Swept transactions are tied to their payout; a second sweep over the
	// same period finds nothing.
	var swept int64
	if err := f.db.Model(&domain.Transaction{}).
		Where("venue_id = ? AND payout_id IS NOT NULL", f.venueID).
		Count(&swept).Error; err != nil {
		t.Fatalf("count swept: %v", err)
	}
	if swept != 3 {
		t.Fatalf("expected 3 swept transactions, got %d", swept)
	}
	if _, err := f.svc.GeneratePayouts(f.ctx, domain.GeneratePayoutsRequest{
		PeriodStart: start,
		PeriodEnd:   end,
	}); err != domain.ErrNothingToSweep {
		t.Fatalf("expected ErrNothingToSweep on resweep, got %v", err)
	}
}

func TestGeneratePayoutsRejectsBadPeriod(t *testing.T) {
	f := setupFinanceService(t)

	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.GeneratePayouts(f.ctx, domain.GeneratePayoutsRequest{
		PeriodStart: start,
		PeriodEnd:   start,
	}); err != domain.ErrInvalidPeriod {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func generateSinglePayout(t *testing.T, f *financeFixture) domain.Payout {
	t.Helper()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	f.seedTransaction(t, f.node.Generate(), 5000, start.Add(time.Hour))

	resp, err := f.svc.GeneratePayouts(f.ctx, domain.GeneratePayoutsRequest{
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		t.Fatalf("generate payouts: %v", err)
	}
	if len(resp.Payouts) != 1 {
		t.Fatalf("expected 1 payout, got %d", len(resp.Payouts))
	}
	return resp.Payouts[0]
}

func TestHoldLifecycleRecomputesNet(t *testing.T) {
	f := setupFinanceService(t)
	payout := generateSinglePayout(t, f)

	hold, err := f.svc.PlaceHold(f.ctx, domain.PlaceHoldRequest{
		PayoutID: payout.ID.String(),
		Amount:   1500,
		Reason:   "disputed booking under review",
	})
	if err != nil {
		t.Fatalf("place hold: %v", err)
	}

	detail, err := f.svc.GetPayout(f.ctx, domain.GetPayoutRequest{ID: payout.ID.String()})
	if err != nil {
		t.Fatalf("get payout: %v", err)
	}
	if detail.Payout.Status != domain.PayoutOnHold {
		t.Fatalf("expected ON_HOLD, got %s", detail.Payout.Status)
	}
	if detail.Payout.HoldAmount != 1500 || detail.Payout.NetAmount != 3500 {
		t.Fatalf("expected hold 1500 net 3500, got hold %d net %d", detail.Payout.HoldAmount, detail.Payout.NetAmount)
	}

	// A held payout cannot be paid.
	if _, err := f.svc.MarkPaid(f.ctx, domain.MarkPaidRequest{PayoutID: payout.ID.String()}); err != domain.ErrPayoutOnHold {
		t.Fatalf("expected ErrPayoutOnHold, got %v", err)
	}

	var entry auditdomain.AuditLog
	if err := f.db.First(&entry, "action = ?", "finance.hold_placed").Error; err != nil {
		t.Fatalf("load audit log: %v", err)
	}
	if entry.TargetID == nil || *entry.TargetID != payout.ID.String() {
		t.Fatalf("unexpected audit target %v", entry.TargetID)
	}

	released, err := f.svc.ReleaseHold(f.ctx, domain.ReleaseHoldRequest{HoldID: hold.ID.String()})
	if err != nil {
		t.Fatalf("release hold: %v", err)
	}
	if released.Status != domain.HoldReleased {
		t.Fatalf("expected RELEASED, got %s", released.Status)
	}

	detail, err = f.svc.GetPayout(f.ctx, domain.GetPayoutRequest{ID: payout.ID.String()})
	if err != nil {
		t.Fatalf("get payout after release: %v", err)
	}
	if detail.Payout.Status != domain.PayoutPending {
		t.Fatalf("expected PENDING after release, got %s", detail.Payout.Status)
	}
	if detail.Payout.HoldAmount != 0 || detail.Payout.NetAmount != detail.Payout.GrossAmount {
		t.Fatalf("expected net back to gross, got hold %d net %d", detail.Payout.HoldAmount, detail.Payout.NetAmount)
	}

	// Releasing twice fails.
	if _, err := f.svc.ReleaseHold(f.ctx, domain.ReleaseHoldRequest{HoldID: hold.ID.String()}); err != domain.ErrHoldNotActive {
		t.Fatalf("expected ErrHoldNotActive, got %v", err)
	}
}

func TestMarkPaidIsTerminal(t *testing.T) {
	f := setupFinanceService(t)
	payout := generateSinglePayout(t, f)

	paid, err := f.svc.MarkPaid(f.ctx, domain.MarkPaidRequest{PayoutID: payout.ID.String()})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != domain.PayoutPaid {
		t.Fatalf("expected PAID, got %s", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Fatal("expected paid_at set")
	}

	if _, err := f.svc.MarkPaid(f.ctx, domain.MarkPaidRequest{PayoutID: payout.ID.String()}); err != domain.ErrPayoutNotOpen {
		t.Fatalf("expected ErrPayoutNotOpen, got %v", err)
	}

	// Paid payouts no longer accept holds.
	if _, err := f.svc.PlaceHold(f.ctx, domain.PlaceHoldRequest{
		PayoutID: payout.ID.String(),
		Amount:   100,
		Reason:   "late dispute",
	}); err != domain.ErrPayoutNotOpen {
		t.Fatalf("expected ErrPayoutNotOpen for hold on paid payout, got %v", err)
	}
}
