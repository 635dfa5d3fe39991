package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectVenue      = "venue"
	ObjectBooking    = "booking"
	ObjectOverview   = "overview"
	ObjectPromoter   = "promoter"
	ObjectCommission = "commission"
	ObjectIncentive  = "incentive"
	ObjectFinance    = "finance"
	ObjectTeam       = "team"
	ObjectAPIKey     = "api_key"
	ObjectAuditLog   = "audit_log"
	ObjectDemo       = "demo"
)

const (
	ActionVenueView   = "venue.view"
	ActionVenueCreate = "venue.create"
	ActionVenueUpdate = "venue.update"

	ActionBookingView       = "booking.view"
	ActionBookingCreate     = "booking.create"
	ActionBookingTransition = "booking.transition"
	ActionBookingBulk       = "booking.bulk_transition"

	ActionOverviewView = "overview.view"

	ActionPromoterView       = "promoter.view"
	ActionPromoterCreate     = "promoter.create"
	ActionPromoterChangeTier = "promoter.change_tier"

	ActionCommissionView   = "commission.view"
	ActionCommissionCreate = "commission.create"
	ActionCommissionAssign = "commission.assign"

	ActionIncentiveView     = "incentive.view"
	ActionIncentiveCreate   = "incentive.create"
	ActionIncentiveActivate = "incentive.activate"

	ActionFinanceView      = "finance.view"
	ActionFinancePayout    = "finance.generate_payouts"
	ActionFinanceMarkPaid  = "finance.mark_paid"
	ActionFinanceHold      = "finance.hold"
	ActionFinanceStatement = "finance.statement"

	ActionTeamView       = "team.view"
	ActionTeamInvite     = "team.invite"
	ActionTeamChangeRole = "team.change_role"
	ActionTeamRevoke     = "team.revoke"

	ActionAPIKeyView   = "api_key.view"
	ActionAPIKeyCreate = "api_key.create"
	ActionAPIKeyRevoke = "api_key.revoke"

	ActionAuditLogView = "audit_log.view"

	ActionDemoGenerate = "demo.generate"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, venueID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	venueID = strings.TrimSpace(venueID)
	if venueID == "" {
		return ErrInvalidVenue
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(ctx, actor, venueID)
	if err != nil {
		s.auditDenied(ctx, actorType, actorID, venueID, object, action)
		return err
	}

	domain := fmt.Sprintf("venue:%s", venueID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorType, actorID, venueID, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditGranted(ctx, actorType, actorID, venueID, object, action)
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, venueID string) (string, string, string, *string, error) {
	if actor == "system" {
		return actor, "role:system", "system", nil, nil
	}
	if strings.HasPrefix(actor, "api_key:") {
		// API keys act with the system role.
		apiKeyIDRaw := strings.TrimPrefix(actor, "api_key:")
		apiKeyID, err := snowflake.ParseString(apiKeyIDRaw)
		if err != nil || apiKeyID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		apiKeyIDStr := apiKeyID.String()
		return actor, "role:system", "api_key", &apiKeyIDStr, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		userIDStr := userID.String()
		parsedVenueID, err := snowflake.ParseString(venueID)
		if err != nil || parsedVenueID == 0 {
			return actor, "", "user", &userIDStr, ErrInvalidVenue
		}
		role, err := s.roleForUser(ctx, parsedVenueID, userID)
		if err != nil {
			return actor, "", "user", &userIDStr, err
		}
		roleName := fmt.Sprintf("role:%s", strings.ToLower(role))
		return actor, roleName, "user", &userIDStr, nil
	}
	return "", "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, venueID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM venue_members
		 WHERE venue_id = ? AND user_id = ?
		 LIMIT 1`,
		venueID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, venueID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedVenueID, err := snowflake.ParseString(venueID)
	if err != nil || parsedVenueID == 0 {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, &parsedVenueID, actorType, actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object":   object,
		"action":   action,
		"actor":    actorType,
		"venue_id": venueID,
		"subject":  actorSubject(actorType, actorID),
	})
}

func (s *ServiceImpl) auditGranted(ctx context.Context, actorType string, actorID *string, venueID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedVenueID, err := snowflake.ParseString(venueID)
	if err != nil || parsedVenueID == 0 {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, &parsedVenueID, actorType, actorID, "authorization.granted", "authorization", &targetID, map[string]any{
		"object":   object,
		"action":   action,
		"actor":    actorType,
		"venue_id": venueID,
		"subject":  actorSubject(actorType, actorID),
	})
}

func actorSubject(actorType string, actorID *string) string {
	switch actorType {
	case "system":
		return "system"
	case "user":
		if actorID != nil && strings.TrimSpace(*actorID) != "" {
			return fmt.Sprintf("user:%s", strings.TrimSpace(*actorID))
		}
	}
	return ""
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionFinanceMarkPaid, ActionAPIKeyRevoke, ActionTeamRevoke:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	viewPolicies := func(role string) [][]string {
		return [][]string{
			{role, ObjectVenue, ActionVenueView},
			{role, ObjectBooking, ActionBookingView},
			{role, ObjectOverview, ActionOverviewView},
			{role, ObjectPromoter, ActionPromoterView},
			{role, ObjectCommission, ActionCommissionView},
			{role, ObjectIncentive, ActionIncentiveView},
			{role, ObjectFinance, ActionFinanceView},
			{role, ObjectTeam, ActionTeamView},
		}
	}

	policies := viewPolicies("role:member")

	// Admins run day-to-day operations.
	policies = append(policies, viewPolicies("role:admin")...)
	policies = append(policies, [][]string{
		{"role:admin", ObjectVenue, ActionVenueCreate},
		{"role:admin", ObjectVenue, ActionVenueUpdate},
		{"role:admin", ObjectBooking, ActionBookingCreate},
		{"role:admin", ObjectBooking, ActionBookingTransition},
		{"role:admin", ObjectBooking, ActionBookingBulk},
		{"role:admin", ObjectPromoter, ActionPromoterCreate},
		{"role:admin", ObjectPromoter, ActionPromoterChangeTier},
		{"role:admin", ObjectCommission, ActionCommissionCreate},
		{"role:admin", ObjectCommission, ActionCommissionAssign},
		{"role:admin", ObjectIncentive, ActionIncentiveCreate},
		{"role:admin", ObjectIncentive, ActionIncentiveActivate},
		{"role:admin", ObjectFinance, ActionFinancePayout},
		{"role:admin", ObjectFinance, ActionFinanceHold},
		{"role:admin", ObjectFinance, ActionFinanceStatement},
		{"role:admin", ObjectTeam, ActionTeamInvite},
		{"role:admin", ObjectAPIKey, ActionAPIKeyView},
		{"role:admin", ObjectAPIKey, ActionAPIKeyCreate},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
		{"role:admin", ObjectDemo, ActionDemoGenerate},
	}...)

	// Owners additionally control money movement and membership.
	policies = append(policies, viewPolicies("role:owner")...)
	policies = append(policies, [][]string{
		{"role:owner", ObjectVenue, ActionVenueCreate},
		{"role:owner", ObjectVenue, ActionVenueUpdate},
		{"role:owner", ObjectBooking, ActionBookingCreate},
		{"role:owner", ObjectBooking, ActionBookingTransition},
		{"role:owner", ObjectBooking, ActionBookingBulk},
		{"role:owner", ObjectPromoter, ActionPromoterCreate},
		{"role:owner", ObjectPromoter, ActionPromoterChangeTier},
		{"role:owner", ObjectCommission, ActionCommissionCreate},
		{"role:owner", ObjectCommission, ActionCommissionAssign},
		{"role:owner", ObjectIncentive, ActionIncentiveCreate},
		{"role:owner", ObjectIncentive, ActionIncentiveActivate},
		{"role:owner", ObjectFinance, ActionFinancePayout},
		{"role:owner", ObjectFinance, ActionFinanceMarkPaid},
		{"role:owner", ObjectFinance, ActionFinanceHold},
		{"role:owner", ObjectFinance, ActionFinanceStatement},
		{"role:owner", ObjectTeam, ActionTeamInvite},
		{"role:owner", ObjectTeam, ActionTeamChangeRole},
		{"role:owner", ObjectTeam, ActionTeamRevoke},
		{"role:owner", ObjectAPIKey, ActionAPIKeyView},
		{"role:owner", ObjectAPIKey, ActionAPIKeyCreate},
		{"role:owner", ObjectAPIKey, ActionAPIKeyRevoke},
		{"role:owner", ObjectAuditLog, ActionAuditLogView},
		{"role:owner", ObjectDemo, ActionDemoGenerate},
	}...)

	// System role covers API keys and scheduler jobs.
	policies = append(policies, viewPolicies("role:system")...)
	policies = append(policies, [][]string{
		{"role:system", ObjectVenue, ActionVenueCreate},
		{"role:system", ObjectVenue, ActionVenueUpdate},
		{"role:system", ObjectBooking, ActionBookingCreate},
		{"role:system", ObjectBooking, ActionBookingTransition},
		{"role:system", ObjectBooking, ActionBookingBulk},
		{"role:system", ObjectPromoter, ActionPromoterCreate},
		{"role:system", ObjectPromoter, ActionPromoterChangeTier},
		{"role:system", ObjectCommission, ActionCommissionCreate},
		{"role:system", ObjectCommission, ActionCommissionAssign},
		{"role:system", ObjectIncentive, ActionIncentiveCreate},
		{"role:system", ObjectIncentive, ActionIncentiveActivate},
		{"role:system", ObjectFinance, ActionFinancePayout},
		{"role:system", ObjectFinance, ActionFinanceMarkPaid},
		{"role:system", ObjectFinance, ActionFinanceHold},
		{"role:system", ObjectFinance, ActionFinanceStatement},
		{"role:system", ObjectAPIKey, ActionAPIKeyView},
		{"role:system", ObjectAuditLog, ActionAuditLogView},
		{"role:system", ObjectDemo, ActionDemoGenerate},
	}...)

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
