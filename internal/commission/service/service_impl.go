package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/commission/domain"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	"github.com/primetable/partnerboard/internal/venuectx"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	PromoterRepo promoterdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	promoterRepo promoterdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("commission.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		promoterRepo: p.PromoterRepo,
	}
}

func (s *Service) CreateRate(ctx context.Context, req domain.CreateRateRequest) (domain.Rate, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Rate{}, domain.ErrInvalidVenue
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Rate{}, domain.ErrInvalidName
	}
	if !req.Model.Valid() {
		return domain.Rate{}, domain.ErrInvalidModel
	}
	if req.RateValue <= 0 {
		return domain.Rate{}, domain.ErrInvalidRateValue
	}
	if req.Model == domain.ModelPercentOfSpend && req.RateValue >= 1 {
		return domain.Rate{}, domain.ErrInvalidRateValue
	}

	now := s.clock.Now().UTC()
	rate := domain.Rate{
		ID:        s.genID.Generate(),
		VenueID:   venueID,
		Name:      name,
		Model:     req.Model,
		RateValue: req.RateValue,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertRate(ctx, s.db, &rate); err != nil {
		return domain.Rate{}, err
	}

	s.log.Info("commission rate created",
		zap.String("rate_id", rate.ID.String()),
		zap.String("model", string(rate.Model)),
		zap.Float64("rate_value", rate.RateValue),
	)
	return rate, nil
}

func (s *Service) ListRates(ctx context.Context, req domain.ListRateRequest) (domain.ListRateResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ListRateResponse{}, domain.ErrInvalidVenue
	}

	page := req.Page.Normalize()
	items, total, err := s.repo.ListRates(ctx, s.db, venueID, page)
	if err != nil {
		return domain.ListRateResponse{}, err
	}

	rates := make([]domain.Rate, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rates = append(rates, *item)
	}

	return domain.ListRateResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Rates:    rates,
	}, nil
}

func (s *Service) Assign(ctx context.Context, req domain.AssignRequest) (domain.Assignment, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Assignment{}, domain.ErrInvalidVenue
	}

	promoterID, err := s.parseID(req.PromoterID)
	if err != nil {
		return domain.Assignment{}, err
	}
	rateID, err := s.parseID(req.RateID)
	if err != nil {
		return domain.Assignment{}, err
	}

	from := req.EffectiveFrom.UTC()
	if from.IsZero() {
		return domain.Assignment{}, domain.ErrInvalidWindow
	}
	var to *time.Time
	if req.EffectiveTo != nil {
		utc := req.EffectiveTo.UTC()
		if !from.Before(utc) {
			return domain.Assignment{}, domain.ErrInvalidWindow
		}
		to = &utc
	}

	promoter, err := s.promoterRepo.FindByID(ctx, s.db, venueID, promoterID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if promoter == nil {
		return domain.Assignment{}, domain.ErrNotFound
	}

	rate, err := s.repo.FindRateByID(ctx, s.db, venueID, rateID)
	if err != nil {
		return domain.Assignment{}, err
	}
	if rate == nil {
		return domain.Assignment{}, domain.ErrRateNotFound
	}

	assignment := domain.Assignment{
		ID:            s.genID.Generate(),
		VenueID:       venueID,
		PromoterID:    promoterID,
		RateID:        rateID,
		EffectiveFrom: from,
		EffectiveTo:   to,
		CreatedAt:     s.clock.Now().UTC(),
	}

	// The promoter row update takes its row lock for the rest of the
	// transaction, so concurrent assigns for the same promoter run the
	// overlap scan one at a time.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		touch := tx.WithContext(ctx).
			Model(&promoterdomain.Promoter{}).
			Where("venue_id = ? AND id = ?", venueID, promoterID).
			Update("updated_at", s.clock.Now().UTC())
		if touch.Error != nil {
			return touch.Error
		}
		if touch.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		existing, err := s.repo.FindAssignmentsForPromoter(ctx, tx, venueID, promoterID)
		if err != nil {
			return err
		}
		for _, candidate := range existing {
			if candidate.Overlaps(from, to) {
				return domain.ErrOverlappingWindow
			}
		}
		return s.repo.InsertAssignment(ctx, tx, &assignment)
	})
	if err != nil {
		return domain.Assignment{}, err
	}

	s.log.Info("commission assigned",
		zap.String("promoter_id", promoterID.String()),
		zap.String("rate_id", rateID.String()),
	)
	return assignment, nil
}

func (s *Service) CloseAssignment(ctx context.Context, req domain.CloseAssignmentRequest) (domain.Assignment, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Assignment{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Assignment{}, err
	}

	filter := domain.ListAssignmentFilter{}
	assignments, _, err := s.repo.ListAssignments(ctx, s.db, venueID, filter, pagination.Pagination{Page: 1, Size: pagination.MaxPageSize})
	if err != nil {
		return domain.Assignment{}, err
	}

	var target *domain.Assignment
	for _, candidate := range assignments {
		if candidate != nil && candidate.ID == id {
			target = candidate
			break
		}
	}
	if target == nil {
		return domain.Assignment{}, domain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	if target.EffectiveTo != nil && target.EffectiveTo.Before(now) {
		return *target, nil
	}
	if err := s.repo.CloseAssignment(ctx, s.db, venueID, id, now); err != nil {
		return domain.Assignment{}, err
	}

	target.EffectiveTo = &now
	return *target, nil
}

func (s *Service) ListAssignments(ctx context.Context, req domain.ListAssignmentRequest) (domain.ListAssignmentResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ListAssignmentResponse{}, domain.ErrInvalidVenue
	}

	page := req.Page.Normalize()
	filter := domain.ListAssignmentFilter{PromoterID: strings.TrimSpace(req.PromoterID)}
	items, total, err := s.repo.ListAssignments(ctx, s.db, venueID, filter, page)
	if err != nil {
		return domain.ListAssignmentResponse{}, err
	}

	assignments := make([]domain.Assignment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		assignments = append(assignments, *item)
	}

	return domain.ListAssignmentResponse{
		PageInfo:    pagination.BuildPageInfo(page, total),
		Assignments: assignments,
	}, nil
}

func (s *Service) ResolveRate(ctx context.Context, promoterID string, at time.Time) (domain.ResolvedRate, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ResolvedRate{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(promoterID)
	if err != nil {
		return domain.ResolvedRate{}, err
	}

	assignment, err := s.repo.FindActiveAssignment(ctx, s.db, venueID, id, at.UTC())
	if err != nil {
		return domain.ResolvedRate{}, err
	}
	if assignment == nil {
		return domain.ResolvedRate{}, domain.ErrNoActiveAssignment
	}

	rate, err := s.repo.FindRateByID(ctx, s.db, venueID, assignment.RateID)
	if err != nil {
		return domain.ResolvedRate{}, err
	}
	if rate == nil {
		return domain.ResolvedRate{}, domain.ErrRateNotFound
	}

	return domain.ResolvedRate{Assignment: *assignment, Rate: *rate}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
