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
	"github.com/primetable/partnerboard/internal/team/domain"
	teamrepo "github.com/primetable/partnerboard/internal/team/repository"
	"github.com/primetable/partnerboard/internal/venuectx"
	"github.com/primetable/partnerboard/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type teamFixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     domain.Service
	venueID snowflake.ID
	ctx     context.Context
}

func setupTeamService(t *testing.T) *teamFixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("new test db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&domain.User{},
		&domain.Member{},
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
	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  teamrepo.Provide(),
		Audit: audit,
	})

	venueID := node.Generate()
	return &teamFixture{
		db:      dbConn,
		node:    node,
		svc:     svc,
		venueID: venueID,
		ctx:     venuectx.WithVenueID(context.Background(), int64(venueID)),
	}
}

func (f *teamFixture) invite(t *testing.T, email, role string) domain.MemberView {
	t.Helper()
	member, err := f.svc.Invite(f.ctx, domain.InviteRequest{Email: email, Role: role})
	if err != nil {
		t.Fatalf("invite %s: %v", email, err)
	}
	return member
}

func TestInviteCreatesUserAndMembership(t *testing.T) {
	f := setupTeamService(t)

	member := f.invite(t, "Owner@Example.com", "OWNER")
	if member.Role != domain.RoleOwner {
		t.Fatalf("expected OWNER, got %s", member.Role)
	}
	if member.Email != "owner@example.com" {
		t.Fatalf("expected lowercased email, got %q", member.Email)
	}
	if member.DisplayName != "owner" {
		t.Fatalf("expected display name derived from email, got %q", member.DisplayName)
	}

	// Re-inviting the same address to the same venue fails.
	if _, err := f.svc.Invite(f.ctx, domain.InviteRequest{Email: "owner@example.com"}); err != domain.ErrAlreadyMember {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestInviteDefaultsToMemberRole(t *testing.T) {
	f := setupTeamService(t)

	member := f.invite(t, "staff@example.com", "")
	if member.Role != domain.RoleMember {
		t.Fatalf("expected MEMBER default, got %s", member.Role)
	}

	if _, err := f.svc.Invite(f.ctx, domain.InviteRequest{Email: "not-an-email"}); err != domain.ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := f.svc.Invite(f.ctx, domain.InviteRequest{Email: "x@example.com", Role: "SUPERUSER"}); err != domain.ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestSoleOwnerCannotBeDemotedOrRevoked(t *testing.T) {
	f := setupTeamService(t)

	owner := f.invite(t, "owner@example.com", "OWNER")
	f.invite(t, "admin@example.com", "ADMIN")

	if _, err := f.svc.ChangeRole(f.ctx, domain.ChangeRoleRequest{
		MemberID: owner.ID.String(),
		Role:     domain.RoleMember,
	}); err != domain.ErrLastOwner {
		t.Fatalf("expected ErrLastOwner on demote, got %v", err)
	}

	if err := f.svc.Revoke(f.ctx, domain.RevokeRequest{MemberID: owner.ID.String()}); err != domain.ErrLastOwner {
		t.Fatalf("expected ErrLastOwner on revoke, got %v", err)
	}
}

func TestOwnerCanStepDownWhenAnotherOwnerExists(t *testing.T) {
	f := setupTeamService(t)

	first := f.invite(t, "first@example.com", "OWNER")
	f.invite(t, "second@example.com", "OWNER")

	changed, err := f.svc.ChangeRole(f.ctx, domain.ChangeRoleRequest{
		MemberID: first.ID.String(),
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("demote with second owner present: %v", err)
	}
	if changed.Role != domain.RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", changed.Role)
	}

	// Now second is the sole owner and is locked in place.
	members, err := f.svc.List(f.ctx, domain.ListMemberRequest{})
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	var second domain.MemberView
	for _, m := range members.Members {
		if m.Role == domain.RoleOwner {
			second = m
		}
	}
	if second.ID == 0 {
		t.Fatal("expected one remaining owner")
	}
	if err := f.svc.Revoke(f.ctx, domain.RevokeRequest{MemberID: second.ID.String()}); err != domain.ErrLastOwner {
		t.Fatalf("expected ErrLastOwner, got %v", err)
	}
}

func TestRevokeRemovesMembership(t *testing.T) {
	f := setupTeamService(t)

	f.invite(t, "owner@example.com", "OWNER")
	staff := f.invite(t, "staff@example.com", "MEMBER")

	if err := f.svc.Revoke(f.ctx, domain.RevokeRequest{MemberID: staff.ID.String()}); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	members, err := f.svc.List(f.ctx, domain.ListMemberRequest{})
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members.Members) != 1 {
		t.Fatalf("expected 1 member left, got %d", len(members.Members))
	}

	// Audit trail records the revocation.
	var count int64
	if err := f.db.Model(&auditdomain.AuditLog{}).
		Where("action = ?", "team.member_revoked").
		Count(&count).Error; err != nil {
		t.Fatalf("count audit logs: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 audit entry, got %d", count)
	}
}
