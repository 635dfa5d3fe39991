package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/incentive/domain"
	"github.com/primetable/partnerboard/internal/venuectx"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("incentive.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProgramRequest) (domain.Program, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Program{}, domain.ErrInvalidVenue
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Program{}, domain.ErrInvalidName
	}
	if !req.Metric.Valid() {
		return domain.Program{}, domain.ErrInvalidMetric
	}
	if req.Threshold <= 0 {
		return domain.Program{}, domain.ErrInvalidThreshold
	}
	if req.RewardAmount <= 0 {
		return domain.Program{}, domain.ErrInvalidReward
	}
	if req.StartAt.IsZero() || req.EndAt.IsZero() || !req.StartAt.Before(req.EndAt) {
		return domain.Program{}, domain.ErrInvalidWindow
	}

	now := s.clock.Now().UTC()
	program := domain.Program{
		ID:           s.genID.Generate(),
		VenueID:      venueID,
		Name:         name,
		Metric:       req.Metric,
		Threshold:    req.Threshold,
		RewardAmount: req.RewardAmount,
		Status:       domain.ProgramDraft,
		StartAt:      req.StartAt.UTC(),
		EndAt:        req.EndAt.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.InsertProgram(ctx, s.db, &program); err != nil {
		return domain.Program{}, err
	}

	s.log.Info("incentive program created",
		zap.String("program_id", program.ID.String()),
		zap.String("metric", string(program.Metric)),
		zap.Int64("threshold", program.Threshold),
	)
	return program, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetProgramRequest) (domain.Program, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Program{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Program{}, err
	}

	program, err := s.repo.FindProgramByID(ctx, s.db, venueID, id)
	if err != nil {
		return domain.Program{}, err
	}
	if program == nil {
		return domain.Program{}, domain.ErrNotFound
	}
	return *program, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProgramRequest) (domain.ListProgramResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ListProgramResponse{}, domain.ErrInvalidVenue
	}

	filter := domain.ListProgramFilter{}
	if raw := strings.ToUpper(strings.TrimSpace(req.Status)); raw != "" {
		status := domain.ProgramStatus(raw)
		switch status {
		case domain.ProgramDraft, domain.ProgramActive, domain.ProgramCompleted:
			filter.Status = status
		default:
			return domain.ListProgramResponse{}, domain.ErrInvalidStatus
		}
	}

	page := req.Page.Normalize()
	items, total, err := s.repo.ListPrograms(ctx, s.db, venueID, filter, page)
	if err != nil {
		return domain.ListProgramResponse{}, err
	}

	programs := make([]domain.Program, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		programs = append(programs, *item)
	}

	return domain.ListProgramResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Programs: programs,
	}, nil
}

func (s *Service) Activate(ctx context.Context, req domain.ActivateProgramRequest) (domain.Program, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Program{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Program{}, err
	}

	program, err := s.repo.FindProgramByID(ctx, s.db, venueID, id)
	if err != nil {
		return domain.Program{}, err
	}
	if program == nil {
		return domain.Program{}, domain.ErrNotFound
	}
	if program.Status != domain.ProgramDraft {
		return domain.Program{}, domain.ErrNotDraft
	}

	now := s.clock.Now().UTC()
	swapped, err := s.repo.UpdateProgramStatus(ctx, s.db, venueID, id, domain.ProgramDraft, domain.ProgramActive, now)
	if err != nil {
		return domain.Program{}, err
	}
	if !swapped {
		return domain.Program{}, domain.ErrConflict
	}

	program.Status = domain.ProgramActive
	program.UpdatedAt = now
	s.log.Info("incentive program activated", zap.String("program_id", id.String()))
	return *program, nil
}

func (s *Service) ListProgress(ctx context.Context, req domain.ListProgressRequest) (domain.ListProgressResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ListProgressResponse{}, domain.ErrInvalidVenue
	}

	programID, err := s.parseID(req.ProgramID)
	if err != nil {
		return domain.ListProgressResponse{}, err
	}

	program, err := s.repo.FindProgramByID(ctx, s.db, venueID, programID)
	if err != nil {
		return domain.ListProgressResponse{}, err
	}
	if program == nil {
		return domain.ListProgressResponse{}, domain.ErrNotFound
	}

	page := req.Page.Normalize()
	items, total, err := s.repo.ListProgress(ctx, s.db, venueID, programID, page)
	if err != nil {
		return domain.ListProgressResponse{}, err
	}

	progress := make([]domain.Progress, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		progress = append(progress, *item)
	}

	return domain.ListProgressResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Progress: progress,
	}, nil
}

func (s *Service) CompleteExpired(ctx context.Context) (int, error) {
	now := s.clock.Now().UTC()
	expired, err := s.repo.FindExpiredActive(ctx, s.db, now, 100)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, program := range expired {
		swapped, err := s.repo.UpdateProgramStatus(ctx, s.db, program.VenueID, program.ID, domain.ProgramActive, domain.ProgramCompleted, now)
		if err != nil {
			s.log.Warn("complete program failed",
				zap.String("program_id", program.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if swapped {
			completed++
		}
	}
	return completed, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
