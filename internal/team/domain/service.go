package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type InviteRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type ListMemberRequest struct {
	Page pagination.Pagination
}

type ListMemberResponse struct {
	pagination.PageInfo
	Members []MemberView `json:"members"`
}

type ChangeRoleRequest struct {
	MemberID string
	Role     Role `json:"role"`
}

type RevokeRequest struct {
	MemberID string
}

type Repository interface {
	InsertUser(ctx context.Context, db *gorm.DB, user *User) error
	FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)

	InsertMember(ctx context.Context, db *gorm.DB, member *Member) error
	FindMember(ctx context.Context, db *gorm.DB, venueID, memberID snowflake.ID) (*Member, error)
	FindMemberByUser(ctx context.Context, db *gorm.DB, venueID, userID snowflake.ID) (*Member, error)
	ListMembers(ctx context.Context, db *gorm.DB, venueID snowflake.ID, page pagination.Pagination) ([]MemberView, int64, error)
	UpdateRole(ctx context.Context, db *gorm.DB, venueID, memberID snowflake.ID, role Role, at time.Time) error
	DeleteMember(ctx context.Context, db *gorm.DB, venueID, memberID snowflake.ID) error
	CountByRole(ctx context.Context, db *gorm.DB, venueID snowflake.ID, role Role) (int64, error)
}

type Service interface {
	Invite(context.Context, InviteRequest) (MemberView, error)
	List(context.Context, ListMemberRequest) (ListMemberResponse, error)
	ChangeRole(context.Context, ChangeRoleRequest) (Member, error)
	Revoke(context.Context, RevokeRequest) error
}

var (
	ErrInvalidVenue  = errors.New("invalid_venue")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrAlreadyMember = errors.New("already_member")
	ErrLastOwner     = errors.New("last_owner")
	ErrNotFound      = errors.New("not_found")
)
