package models

import (
	"time"

	"github.com/google/uuid"
)

// GlobalRole is the platform-wide account type. It is fixed at signup
// (or by the owner seed) and is distinct from per-room roles, which are
// derived from the membership row.
type GlobalRole string

const (
	RoleOwner   GlobalRole = "OWNER"
	RoleAdmin   GlobalRole = "ADMIN"
	RoleTeacher GlobalRole = "TEACHER"
	RoleStudent GlobalRole = "STUDENT"
)

// User is a platform account.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	UserName     string     `json:"user_name"`
	FullName     string     `json:"full_name"`
	Avatar       string     `json:"avatar"`
	PasswordHash string     `json:"-"`
	Role         GlobalRole `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserSummary is the public slice of a user embedded in listings
// (room creator, member rows, post authors).
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	UserName string    `json:"user_name"`
	FullName string    `json:"full_name"`
	Avatar   string    `json:"avatar"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, UserName: u.UserName, FullName: u.FullName, Avatar: u.Avatar}
}

// RoomSettings are the per-room toggles the creator/admin controls.
type RoomSettings struct {
	AllowMemberPosting bool `json:"allow_member_posting"`
	AllowComments      bool `json:"allow_comments"`
}

// Room is a named group gating posting and membership behind a join code.
//
// JoinCode is a capability token: it never appears in a serialized Room.
// Members and the creator receive it through the meta object instead.
//
// MembersCount counts accepted (non-pending) memberships. It is maintained
// by atomic increments alongside ledger mutations, never recomputed on the
// hot path; ReconcileCounters is the repair path.
type Room struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	CoverImage   string       `json:"cover_image"`
	RoomType     string       `json:"room_type"`
	JoinCode     string       `json:"-"`
	CreatorID    uuid.UUID    `json:"creator_id"`
	IsArchived   bool         `json:"is_archived"`
	IsDeleted    bool         `json:"-"`
	MembersCount int          `json:"members_count"`
	PostsCount   int          `json:"posts_count"`
	Settings     RoomSettings `json:"settings"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Membership is the relationship between exactly one room and one user.
// At most one row exists per (room, user) pair; the store enforces it.
type Membership struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	IsPending bool      `json:"is_pending"`
	IsCR      bool      `json:"is_cr"`
	IsAdmin   bool      `json:"is_admin"`
	IsHidden  bool      `json:"is_hidden"`
	CreatedAt time.Time `json:"created_at"`
}

// RoomRole is the computed per-room role label. It is never stored:
// CREATOR wins over room-ADMIN over CR over MEMBER.
type RoomRole string

const (
	RoomRoleCreator RoomRole = "CREATOR"
	RoomRoleAdmin   RoomRole = "ADMIN"
	RoomRoleCR      RoomRole = "CR"
	RoomRoleMember  RoomRole = "MEMBER"
)

// ResolveRoomRole computes the room-scoped role for a user. membership may
// be nil (a creator under the owner policy holds no membership row).
func ResolveRoomRole(room *Room, membership *Membership, userID uuid.UUID) RoomRole {
	if room.CreatorID == userID {
		return RoomRoleCreator
	}
	if membership != nil && membership.IsAdmin {
		return RoomRoleAdmin
	}
	if membership != nil && membership.IsCR {
		return RoomRoleCR
	}
	return RoomRoleMember
}

// Post is a content item owned by the content collaborator. The room
// service only ever addresses posts through (room, id).
type Post struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// PageRequest is the uniform pagination input for every listing operation.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps a raw page request to {page>=1, limit in [1,100]}.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination is the uniform listing envelope returned next to items.
type Pagination struct {
	TotalDocs   int64 `json:"totalDocs"`
	Limit       int   `json:"limit"`
	Page        int   `json:"page"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func NewPagination(total int64, req PageRequest) Pagination {
	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return Pagination{
		TotalDocs:   total,
		Limit:       req.Limit,
		Page:        req.Page,
		TotalPages:  totalPages,
		HasNextPage: req.Page < totalPages,
		HasPrevPage: req.Page > 1,
	}
}
