package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/talimuddin/roomhub/internal/models"
)

// Sentinel errors stores translate storage-level failures into. The service
// layer maps them onto the user-facing taxonomy.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// RoomPatch is a partial update of room fields. Nil means "leave as is";
// settings merge shallowly.
type RoomPatch struct {
	Name               *string
	Description        *string
	RoomType           *string
	AllowMemberPosting *bool
	AllowComments      *bool
}

// RoomRepository owns room entities and their status fields. It carries no
// authorization logic; callers authorize before mutating.
type RoomRepository interface {
	// Create inserts the room, filling ID, CreatedAt and UpdatedAt.
	// A join-code collision surfaces as ErrDuplicateEntry.
	Create(ctx context.Context, room *models.Room) error

	// GetByID returns nil, nil when the room is absent. Soft-deleted rooms
	// ARE returned; visibility is the caller's decision (the deletion path
	// needs to see them).
	GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error)

	// GetByJoinCode returns nil, nil when no room carries the code.
	GetByJoinCode(ctx context.Context, code string) (*models.Room, error)

	// JoinCodeExists is the pre-insert collision check for the generator.
	JoinCodeExists(ctx context.Context, code string) (bool, error)

	// UpdateFields applies a partial update and returns the updated room.
	UpdateFields(ctx context.Context, id uuid.UUID, patch RoomPatch) (*models.Room, error)

	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	SetCoverImage(ctx context.Context, id uuid.UUID, url string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// AddCounts atomically adjusts members_count/posts_count by deltas.
	AddCounts(ctx context.Context, id uuid.UUID, members, posts int) error

	// ReconcileCounters recomputes both counters from the ledger and
	// content tables and returns the corrected room.
	ReconcileCounters(ctx context.Context, id uuid.UUID) (*models.Room, error)
}

// MemberRecord is a membership joined with its user, for member listings.
type MemberRecord struct {
	Membership models.Membership
	User       models.UserSummary
}

// RoomMembershipRecord is a membership joined with its room and the room's
// creator, for per-user room listings.
type RoomMembershipRecord struct {
	Membership models.Membership
	Room       models.Room
	Creator    models.UserSummary
}

// UserRoomFilter narrows ListByUser. Nil pointers mean "don't filter".
// Deleted rooms are always excluded.
type UserRoomFilter struct {
	Pending  *bool
	Hidden   *bool
	Archived *bool
}

// MembershipRepository owns the per-(room,user) relationship ledger,
// including pending requests.
type MembershipRepository interface {
	// Find returns nil, nil when no row exists for the pair.
	Find(ctx context.Context, roomID, userID uuid.UUID) (*models.Membership, error)

	// FindAnyByUser returns the user's sole membership under the
	// single-room policy, or nil, nil.
	FindAnyByUser(ctx context.Context, userID uuid.UUID) (*models.Membership, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error)

	// Create inserts the row, filling ID and CreatedAt. exclusive enforces
	// the single-room invariant: the insert only lands when the user holds
	// no membership anywhere. Both the pair constraint and the exclusive
	// guard surface as ErrDuplicateEntry.
	Create(ctx context.Context, m *models.Membership, exclusive bool) error

	// Accept flips is_pending to false. ErrNotFound when the row is
	// missing or already accepted; never accepts twice.
	Accept(ctx context.Context, id uuid.UUID) error

	Delete(ctx context.Context, id uuid.UUID) error

	SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error
	SetFlags(ctx context.Context, id uuid.UUID, isAdmin, isCR *bool) error

	// ListByRoom returns members newest-first with their users, plus the
	// unpaginated total. pendingOnly nil lists every state.
	ListByRoom(ctx context.Context, roomID uuid.UUID, pendingOnly *bool, page models.PageRequest) ([]MemberRecord, int64, error)

	// ListByUser returns the user's memberships newest-first joined with
	// their (non-deleted) rooms and creators.
	ListByUser(ctx context.Context, userID uuid.UUID, filter UserRoomFilter, page models.PageRequest) ([]RoomMembershipRecord, int64, error)
}

// UserRepository is the identity lookup: user ids to role attributes.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	FindByRole(ctx context.Context, role models.GlobalRole) (*models.User, error)
}

// PostRecord is a post joined with its author.
type PostRecord struct {
	Post   models.Post
	Author models.UserSummary
}

// PostRepository backs the content collaborator.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	ListByRoom(ctx context.Context, roomID uuid.UUID, page models.PageRequest) ([]PostRecord, int64, error)

	// ReadMap reports which of postIDs the viewer has read.
	ReadMap(ctx context.Context, viewerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)

	// MarkRead records a read; idempotent. ErrNotFound when the post does
	// not exist in the given room or is deleted.
	MarkRead(ctx context.Context, roomID, postID, viewerID uuid.UUID) error
}
