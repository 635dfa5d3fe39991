package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/events"
	"github.com/primetable/partnerboard/internal/venue/domain"
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
		log:   p.Log.Named("venue.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateVenueRequest) (domain.Venue, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Venue{}, domain.ErrInvalidName
	}
	if !req.Type.Valid() {
		return domain.Venue{}, domain.ErrInvalidType
	}
	if req.Capacity <= 0 {
		return domain.Venue{}, domain.ErrInvalidCapacity
	}

	minParty := req.MinPartySize
	if minParty <= 0 {
		minParty = 1
	}
	maxParty := req.MaxPartySize
	if maxParty <= 0 {
		maxParty = req.Capacity
	}
	if maxParty < minParty {
		return domain.Venue{}, domain.ErrInvalidPartySize
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}

	venueSlug, err := s.resolveSlug(ctx, name)
	if err != nil {
		return domain.Venue{}, err
	}

	now := s.clock.Now().UTC()
	venue := domain.Venue{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         venueSlug,
		Type:         req.Type,
		Capacity:     req.Capacity,
		MinPartySize: minParty,
		MaxPartySize: maxParty,
		Currency:     currency,
		Timezone:     timezone,
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &venue); err != nil {
		return domain.Venue{}, err
	}

	s.log.Info("venue created",
		zap.String("venue_id", venue.ID.String()),
		zap.String("slug", venue.Slug),
	)
	return venue, nil
}

// resolveSlug derives a unique slug from the venue name, suffixing a
// counter on collision.
func (s *Service) resolveSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	candidate := base
	for i := 2; ; i++ {
		existing, err := s.repo.FindBySlug(ctx, s.db, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		if i > 50 {
			return "", domain.ErrSlugTaken
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *Service) List(ctx context.Context, req domain.ListVenueRequest) (domain.ListVenueResponse, error) {
	page := req.Page.Normalize()
	filter := domain.ListVenueFilter{
		Type: strings.ToUpper(strings.TrimSpace(req.Type)),
		Name: strings.TrimSpace(req.Name),
	}

	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListVenueResponse{}, err
	}

	venues := make([]domain.Venue, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		venues = append(venues, *item)
	}

	return domain.ListVenueResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Venues:   venues,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetVenueRequest) (domain.Venue, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Venue{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Venue{}, err
	}
	if item == nil {
		return domain.Venue{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetPricing(ctx context.Context, venueID string) (domain.PricingConfig, error) {
	id, err := s.parseID(venueID)
	if err != nil {
		return domain.PricingConfig{}, err
	}

	pricing, err := s.repo.FindPricing(ctx, s.db, id)
	if err != nil {
		return domain.PricingConfig{}, err
	}
	if pricing == nil {
		return domain.PricingConfig{}, domain.ErrPricingNotFound
	}
	return *pricing, nil
}

func (s *Service) UpdatePricing(ctx context.Context, req domain.UpdatePricingRequest) (domain.PricingConfig, error) {
	id, err := s.parseID(req.VenueID)
	if err != nil {
		return domain.PricingConfig{}, err
	}
	if req.PrimeFeePerCover < 0 || req.NonPrimeFeePerCover < 0 {
		return domain.PricingConfig{}, domain.ErrInvalidPricing
	}
	if req.PlatformFeeRate < 0 || req.PlatformFeeRate >= 1 {
		return domain.PricingConfig{}, domain.ErrInvalidPricing
	}

	venue, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.PricingConfig{}, err
	}
	if venue == nil {
		return domain.PricingConfig{}, domain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	pricing := domain.PricingConfig{
		VenueID:             id,
		PrimeFeePerCover:    req.PrimeFeePerCover,
		NonPrimeFeePerCover: req.NonPrimeFeePerCover,
		PlatformFeeRate:     req.PlatformFeeRate,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpsertPricing(ctx, tx, &pricing); err != nil {
			return err
		}
		return events.Emit(ctx, tx, s.genID.Generate(), id, events.EventPricingUpdated, map[string]any{
			"prime_fee_per_cover":     pricing.PrimeFeePerCover,
			"non_prime_fee_per_cover": pricing.NonPrimeFeePerCover,
			"platform_fee_rate":       pricing.PlatformFeeRate,
		}, now)
	})
	if err != nil {
		return domain.PricingConfig{}, err
	}

	venueIDStr := id.String()
	s.audit.AuditLog(ctx, &id, "", nil, "venue.pricing_updated", "venue", &venueIDStr, map[string]any{
		"prime_fee_per_cover":     pricing.PrimeFeePerCover,
		"non_prime_fee_per_cover": pricing.NonPrimeFeePerCover,
		"platform_fee_rate":       pricing.PlatformFeeRate,
	})

	s.log.Info("pricing updated", zap.String("venue_id", id.String()))
	return pricing, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
