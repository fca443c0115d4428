package model

import "time"

type MemberRole string

const (
	RoleParent MemberRole = "parent"
	RoleChild  MemberRole = "child"
)

type FamilyMember struct {
	ID          int64      `json:"id"`
	FamilyID    int64      `json:"family_id"`
	Name        string     `json:"name"`
	Role        MemberRole `json:"role"`
	Color       string     `json:"color"`
	AvatarEmoji string     `json:"avatar_emoji"`
	HasPIN      bool       `json:"has_pin"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
