package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/audit/domain"
	"github.com/primetable/partnerboard/internal/audit/masking"
	"github.com/primetable/partnerboard/internal/auditctx"
	"github.com/primetable/partnerboard/internal/clock"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) AuditLog(ctx context.Context, venueID *snowflake.ID, actorType string, actorID *string, action, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return domain.ErrInvalidAction
	}
	if targetType = strings.TrimSpace(targetType); targetType == "" {
		targetType = "unknown"
	}

	resolvedVenueID := venueID
	if resolvedVenueID == nil {
		if ctxVenueID, ok := venuectx.VenueIDFromContext(ctx); ok && ctxVenueID != 0 {
			resolvedVenueID = &ctxVenueID
		}
	}

	resolvedActorType, resolvedActorID := actorType, actorID
	if resolvedActorType == "" {
		ctxType, ctxID := auditctx.ActorFromContext(ctx)
		resolvedActorType = ctxType
		if ctxID != "" {
			resolvedActorID = &ctxID
		}
	}
	if resolvedActorType == "" {
		resolvedActorType = string(domain.ActorTypeSystem)
	}

	payload := masking.MaskMetadata(metadata)
	if payload == nil {
		payload = map[string]any{}
	}
	if requestID := auditctx.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := domain.AuditLog{
		ID:         s.genID.Generate(),
		VenueID:    resolvedVenueID,
		ActorType:  resolvedActorType,
		ActorID:    resolvedActorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   datatypes.JSONMap(payload),
		IPAddress:  auditctx.IPAddressFromContext(ctx),
		UserAgent:  auditctx.UserAgentFromContext(ctx),
		CreatedAt:  s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		// Audit writes never fail the calling operation.
		s.log.Warn("audit log write failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListAuditLogRequest) (domain.ListAuditLogResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ListAuditLogResponse{}, domain.ErrInvalidVenue
	}

	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return domain.ListAuditLogResponse{}, domain.ErrInvalidTimeRange
	}

	filter := domain.ListAuditLogFilter{
		Action:     strings.TrimSpace(req.Action),
		TargetType: strings.TrimSpace(req.TargetType),
		ActorType:  strings.TrimSpace(req.ActorType),
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
	}

	page := req.Page.Normalize()
	items, total, err := s.repo.List(ctx, s.db, venueID, filter, page)
	if err != nil {
		return domain.ListAuditLogResponse{}, err
	}

	logs := make([]domain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	return domain.ListAuditLogResponse{
		PageInfo:  pagination.BuildPageInfo(page, total),
		AuditLogs: logs,
	}, nil
}
