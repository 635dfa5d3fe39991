package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/commission/domain"
	commissionrepo "github.com/primetable/partnerboard/internal/commission/repository"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	promoterrepo "github.com/primetable/partnerboard/internal/promoter/repository"
	"github.com/primetable/partnerboard/internal/venuectx"
	"github.com/primetable/partnerboard/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type commissionFixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	clock      *clock.FakeClock
	svc        domain.Service
	venueID    snowflake.ID
	promoterID snowflake.ID
	ctx        context.Context
}

func setupCommissionService(t *testing.T) *commissionFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&promoterdomain.Promoter{},
		&domain.Rate{},
		&domain.Assignment{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:           dbConn,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fake,
		Repo:         commissionrepo.Provide(),
		PromoterRepo: promoterrepo.Provide(),
	})

	venueID := node.Generate()
	promoter := promoterdomain.Promoter{
		ID:        node.Generate(),
		VenueID:   venueID,
		Name:      "Sam Promoter",
		Email:     "sam@example.com",
		Tier:      promoterdomain.TierStandard,
		Active:    true,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: fake.Now(),
		UpdatedAt: fake.Now(),
	}
	if err := dbConn.Create(&promoter).Error; err != nil {
		t.Fatalf("insert promoter: %v", err)
	}

	return &commissionFixture{
		db:         dbConn,
		node:       node,
		clock:      fake,
		svc:        svc,
		venueID:    venueID,
		promoterID: promoter.ID,
		ctx:        venuectx.WithVenueID(context.Background(), int64(venueID)),
	}
}

func (f *commissionFixture) createRate(t *testing.T) domain.Rate {
	t.Helper()
	rate, err := f.svc.CreateRate(f.ctx, domain.CreateRateRequest{
		Name:      "Standard per-cover",
		Model:     domain.ModelPerCover,
		RateValue: 200,
	})
	if err != nil {
		t.Fatalf("create rate: %v", err)
	}
	return rate
}

func TestCreateRateValidatesModel(t *testing.T) {
	f := setupCommissionService(t)

	if _, err := f.svc.CreateRate(f.ctx, domain.CreateRateRequest{
		Name:      "Flat",
		Model:     domain.Model("FLAT"),
		RateValue: 100,
	}); err != domain.ErrInvalidModel {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}

	// Percent rates are fractions; 1.0 or more makes no sense.
	if _, err := f.svc.CreateRate(f.ctx, domain.CreateRateRequest{
		Name:      "Too generous",
		Model:     domain.ModelPercentOfSpend,
		RateValue: 1.5,
	}); err != domain.ErrInvalidRateValue {
		t.Fatalf("expected ErrInvalidRateValue, got %v", err)
	}
}

func TestAssignRejectsOverlappingWindows(t *testing.T) {
	f := setupCommissionService(t)
	rate := f.createRate(t)

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	may := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	if _, err := f.svc.Assign(f.ctx, domain.AssignRequest{
		PromoterID:    f.promoterID.String(),
		RateID:        rate.ID.String(),
		EffectiveFrom: march,
		EffectiveTo:   &april,
	}); err != nil {
		t.Fatalf("first assign: %v", err)
	}

	// Window starting inside the existing one.
	mid := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.Assign(f.ctx, domain.AssignRequest{
		PromoterID:    f.promoterID.String(),
		RateID:        rate.ID.String(),
		EffectiveFrom: mid,
		EffectiveTo:   &may,
	}); err != domain.ErrOverlappingWindow {
		t.Fatalf("expected ErrOverlappingWindow, got %v", err)
	}

	// Open-ended window starting before the existing one.
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.Assign(f.ctx, domain.AssignRequest{
		PromoterID:    f.promoterID.String(),
		RateID:        rate.ID.String(),
		EffectiveFrom: feb,
	}); err != domain.ErrOverlappingWindow {
		t.Fatalf("expected ErrOverlappingWindow for open-ended, got %v", err)
	}

	// Half-open windows: a new window starting exactly at the old end is
	// allowed.
	if _, err := f.svc.Assign(f.ctx, domain.AssignRequest{
		PromoterID:    f.promoterID.String(),
		RateID:        rate.ID.String(),
		EffectiveFrom: april,
		EffectiveTo:   &may,
	}); err != nil {
		t.Fatalf("adjacent assign: %v", err)
	}
}

func TestAssignLocksPromoterRow(t *testing.T) {
	f := setupCommissionService(t)
	rate := f.createRate(t)

	f.clock.Advance(time.Hour)
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.Assign(f.ctx, domain.AssignRequest{
		PromoterID:    f.promoterID.String(),
		RateID:        rate.ID.String(),
		EffectiveFrom: march,
	}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// The assign transaction touches the promoter row before scanning
	// for overlaps, serializing concurrent assigns on that row.
	var promoter promoterdomain.Promoter
	if err := f.db.First(&promoter, "id = ?", f.promoterID).Error; err != nil {
		t.Fatalf("reload promoter: %v", err)
	}
	if !promoter.UpdatedAt.Equal(f.clock.Now().UTC()) {
		t.Fatalf("expected promoter touched at %v, got %v", f.clock.Now().UTC(), promoter.UpdatedAt)
	}
}

func TestAssignRejectsInvertedWindow(t *testing.T) {
	f := setupCommissionService(t)
	rate := f.createRate(t)

	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.Assign(f.ctx, domain.AssignRequest{
		PromoterID:    f.promoterID.String(),
		RateID:        rate.ID.String(),
		EffectiveFrom: from,
		EffectiveTo:   &to,
	}); err != domain.ErrInvalidWindow {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestResolveRateUsesActiveWindow(t *testing.T) {
	f := setupCommissionService(t)
	rate := f.createRate(t)

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.Assign(f.ctx, domain.AssignRequest{
		PromoterID:    f.promoterID.String(),
		RateID:        rate.ID.String(),
		EffectiveFrom: march,
		EffectiveTo:   &april,
	}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	resolved, err := f.svc.ResolveRate(f.ctx, f.promoterID.String(), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Rate.ID != rate.ID {
		t.Fatalf("resolved wrong rate: %s", resolved.Rate.ID)
	}

	if _, err := f.svc.ResolveRate(f.ctx, f.promoterID.String(), time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)); err != domain.ErrNoActiveAssignment {
		t.Fatalf("expected ErrNoActiveAssignment after window, got %v", err)
	}
}

func TestCloseAssignmentEndsOpenWindow(t *testing.T) {
	f := setupCommissionService(t)
	rate := f.createRate(t)

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assignment, err := f.svc.Assign(f.ctx, domain.AssignRequest{
		PromoterID:    f.promoterID.String(),
		RateID:        rate.ID.String(),
		EffectiveFrom: march,
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	closed, err := f.svc.CloseAssignment(f.ctx, domain.CloseAssignmentRequest{ID: assignment.ID.String()})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.EffectiveTo == nil || !closed.EffectiveTo.Equal(f.clock.Now().UTC()) {
		t.Fatalf("expected window closed at now, got %v", closed.EffectiveTo)
	}

	// The promoter can be re-assigned after the close.
	later := f.clock.Now().UTC().Add(time.Hour)
	if _, err := f.svc.Assign(f.ctx, domain.AssignRequest{
		PromoterID:    f.promoterID.String(),
		RateID:        rate.ID.String(),
		EffectiveFrom: later,
	}); err != nil {
		t.Fatalf("reassign after close: %v", err)
	}
}
