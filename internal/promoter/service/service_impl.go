package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/events"
	"github.com/primetable/partnerboard/internal/promoter/domain"
	"github.com/primetable/partnerboard/internal/venuectx"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	audit auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("promoter.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePromoterRequest) (domain.Promoter, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Promoter{}, domain.ErrInvalidVenue
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Promoter{}, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Promoter{}, domain.ErrInvalidEmail
	}

	tier := domain.TierStandard
	if raw := strings.ToUpper(strings.TrimSpace(req.Tier)); raw != "" {
		tier = domain.Tier(raw)
		if !tier.Valid() {
			return domain.Promoter{}, domain.ErrInvalidTier
		}
	}

	existing, err := s.repo.FindByEmail(ctx, s.db, venueID, email)
	if err != nil {
		return domain.Promoter{}, err
	}
	if existing != nil {
		return domain.Promoter{}, domain.ErrEmailTaken
	}

	now := s.clock.Now().UTC()
	promoter := domain.Promoter{
		ID:        s.genID.Generate(),
		VenueID:   venueID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Tier:      tier,
		Active:    true,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &promoter); err != nil {
		return domain.Promoter{}, err
	}

	s.log.Info("promoter onboarded",
		zap.String("promoter_id", promoter.ID.String()),
		zap.String("venue_id", venueID.String()),
		zap.String("tier", string(promoter.Tier)),
	)
	return promoter, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetPromoterRequest) (domain.PromoterView, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.PromoterView{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.PromoterView{}, err
	}

	promoter, err := s.repo.FindByID(ctx, s.db, venueID, id)
	if err != nil {
		return domain.PromoterView{}, err
	}
	if promoter == nil {
		return domain.PromoterView{}, domain.ErrNotFound
	}

	stats, err := s.repo.FindStats(ctx, s.db, venueID, []snowflake.ID{id})
	if err != nil {
		return domain.PromoterView{}, err
	}

	return buildView(*promoter, stats[id]), nil
}

func (s *Service) List(ctx context.Context, req domain.ListPromoterRequest) (domain.ListPromoterResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ListPromoterResponse{}, domain.ErrInvalidVenue
	}

	filter := domain.ListPromoterFilter{Active: req.Active}
	if raw := strings.ToUpper(strings.TrimSpace(req.Tier)); raw != "" {
		tier := domain.Tier(raw)
		if !tier.Valid() {
			return domain.ListPromoterResponse{}, domain.ErrInvalidTier
		}
		filter.Tier = tier
	}

	page := req.Page.Normalize()
	items, total, err := s.repo.List(ctx, s.db, venueID, filter, page)
	if err != nil {
		return domain.ListPromoterResponse{}, err
	}

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if item != nil {
			ids = append(ids, item.ID)
		}
	}
	stats, err := s.repo.FindStats(ctx, s.db, venueID, ids)
	if err != nil {
		return domain.ListPromoterResponse{}, err
	}

	views := make([]domain.PromoterView, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		views = append(views, buildView(*item, stats[item.ID]))
	}

	return domain.ListPromoterResponse{
		PageInfo:  pagination.BuildPageInfo(page, total),
		Promoters: views,
	}, nil
}

func (s *Service) ChangeTier(ctx context.Context, req domain.ChangeTierRequest) (domain.Promoter, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Promoter{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Promoter{}, err
	}
	if !req.Tier.Valid() {
		return domain.Promoter{}, domain.ErrInvalidTier
	}

	promoter, err := s.repo.FindByID(ctx, s.db, venueID, id)
	if err != nil {
		return domain.Promoter{}, err
	}
	if promoter == nil {
		return domain.Promoter{}, domain.ErrNotFound
	}
	if promoter.Tier == req.Tier {
		return *promoter, nil
	}

	now := s.clock.Now().UTC()
	previous := promoter.Tier
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateTier(ctx, tx, venueID, id, req.Tier, now); err != nil {
			return err
		}
		return events.Emit(ctx, tx, s.genID.Generate(), venueID, events.EventPromoterTierChanged, map[string]any{
			"promoter_id": id.String(),
			"from":        string(previous),
			"to":          string(req.Tier),
		}, now)
	})
	if err != nil {
		return domain.Promoter{}, err
	}

	promoterID := id.String()
	s.audit.AuditLog(ctx, &venueID, "", nil, "promoter.tier_changed", "promoter", &promoterID, map[string]any{
		"from": string(previous),
		"to":   string(req.Tier),
	})

	promoter.Tier = req.Tier
	promoter.UpdatedAt = now
	s.log.Info("promoter tier changed",
		zap.String("promoter_id", id.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(req.Tier)),
	)
	return *promoter, nil
}

func (s *Service) SetActive(ctx context.Context, req domain.SetActiveRequest) (domain.Promoter, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Promoter{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Promoter{}, err
	}

	promoter, err := s.repo.FindByID(ctx, s.db, venueID, id)
	if err != nil {
		return domain.Promoter{}, err
	}
	if promoter == nil {
		return domain.Promoter{}, domain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	if err := s.repo.SetActive(ctx, s.db, venueID, id, req.Active, now); err != nil {
		return domain.Promoter{}, err
	}

	promoter.Active = req.Active
	promoter.UpdatedAt = now
	return *promoter, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func buildView(p domain.Promoter, stats domain.Stats) domain.PromoterView {
	stats.PromoterID = p.ID
	stats.VenueID = p.VenueID
	return domain.PromoterView{
		Promoter:       p,
		Stats:          stats,
		ConversionRate: stats.ConversionRate(),
	}
}
