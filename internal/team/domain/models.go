package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

type User struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Email       string       `gorm:"not null;uniqueIndex" json:"email"`
	DisplayName string       `gorm:"not null" json:"display_name"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Member struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	VenueID   snowflake.ID `gorm:"not null;uniqueIndex:idx_member_venue_user" json:"venue_id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:idx_member_venue_user" json:"user_id"`
	Role      Role         `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Member) TableName() string { return "venue_members" }

// MemberView joins a membership with its user record.
type MemberView struct {
	Member
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
