package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/team/domain"
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
		log:   p.Log.Named("team.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Invite(ctx context.Context, req domain.InviteRequest) (domain.MemberView, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.MemberView{}, domain.ErrInvalidVenue
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.MemberView{}, domain.ErrInvalidEmail
	}

	role := domain.Role(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	if role == "" {
		role = domain.RoleMember
	}
	if !role.Valid() {
		return domain.MemberView{}, domain.ErrInvalidRole
	}

	now := s.clock.Now().UTC()

	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		return domain.MemberView{}, err
	}

	var member domain.Member
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if user == nil {
			displayName := strings.TrimSpace(req.DisplayName)
			if displayName == "" {
				displayName = email[:strings.Index(email, "@")]
			}
			user = &domain.User{
				ID:          s.genID.Generate(),
				Email:       email,
				DisplayName: displayName,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.repo.InsertUser(ctx, tx, user); err != nil {
				return err
			}
		}

		existing, err := s.repo.FindMemberByUser(ctx, tx, venueID, user.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyMember
		}

		member = domain.Member{
			ID:        s.genID.Generate(),
			VenueID:   venueID,
			UserID:    user.ID,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.repo.InsertMember(ctx, tx, &member)
	})
	if err != nil {
		return domain.MemberView{}, err
	}

	memberID := member.ID.String()
	s.audit.AuditLog(ctx, &venueID, "", nil, "team.member_invited", "venue_member", &memberID, map[string]any{
		"email": email,
		"role":  string(role),
	})

	s.log.Info("member invited",
		zap.Int64("venue_id", int64(venueID)),
		zap.String("member_id", memberID),
		zap.String("role", string(role)),
	)

	return domain.MemberView{
		Member:      member,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListMemberRequest) (domain.ListMemberResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ListMemberResponse{}, domain.ErrInvalidVenue
	}

	page := req.Page.Normalize()
	members, total, err := s.repo.ListMembers(ctx, s.db, venueID, page)
	if err != nil {
		return domain.ListMemberResponse{}, err
	}

	return domain.ListMemberResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Members:  members,
	}, nil
}

func (s *Service) ChangeRole(ctx context.Context, req domain.ChangeRoleRequest) (domain.Member, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Member{}, domain.ErrInvalidVenue
	}

	memberID, err := snowflake.ParseString(req.MemberID)
	if err != nil {
		return domain.Member{}, domain.ErrInvalidID
	}

	role := domain.Role(strings.ToUpper(strings.TrimSpace(string(req.Role))))
	if !role.Valid() {
		return domain.Member{}, domain.ErrInvalidRole
	}

	member, err := s.repo.FindMember(ctx, s.db, venueID, memberID)
	if err != nil {
		return domain.Member{}, err
	}
	if member == nil {
		return domain.Member{}, domain.ErrNotFound
	}
	if member.Role == role {
		return *member, nil
	}

	if member.Role == domain.RoleOwner {
		if err := s.requireAnotherOwner(ctx, venueID); err != nil {
			return domain.Member{}, err
		}
	}

	now := s.clock.Now().UTC()
	if err := s.repo.UpdateRole(ctx, s.db, venueID, memberID, role, now); err != nil {
		return domain.Member{}, err
	}

	idStr := memberID.String()
	s.audit.AuditLog(ctx, &venueID, "", nil, "team.role_changed", "venue_member", &idStr, map[string]any{
		"from": string(member.Role),
		"to":   string(role),
	})

	member.Role = role
	member.UpdatedAt = now
	return *member, nil
}

func (s *Service) Revoke(ctx context.Context, req domain.RevokeRequest) error {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ErrInvalidVenue
	}

	memberID, err := snowflake.ParseString(req.MemberID)
	if err != nil {
		return domain.ErrInvalidID
	}

	member, err := s.repo.FindMember(ctx, s.db, venueID, memberID)
	if err != nil {
		return err
	}
	if member == nil {
		return domain.ErrNotFound
	}

	if member.Role == domain.RoleOwner {
		if err := s.requireAnotherOwner(ctx, venueID); err != nil {
			return err
		}
	}

	if err := s.repo.DeleteMember(ctx, s.db, venueID, memberID); err != nil {
		return err
	}

	idStr := memberID.String()
	s.audit.AuditLog(ctx, &venueID, "", nil, "team.member_revoked", "venue_member", &idStr, map[string]any{
		"role": string(member.Role),
	})

	return nil
}

// requireAnotherOwner blocks demoting or removing the only OWNER of a venue.
func (s *Service) requireAnotherOwner(ctx context.Context, venueID snowflake.ID) error {
	owners, err := s.repo.CountByRole(ctx, s.db, venueID, domain.RoleOwner)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return domain.ErrLastOwner
	}
	return nil
}
