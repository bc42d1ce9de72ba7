// Package authz derives the effective capability set for a (room, user)
// pair. It is the single place permissions are computed; every orchestrator
// action and every meta blob handed to clients consumes it instead of
// re-deriving roles inline.
package authz

import (
	"github.com/google/uuid"

	"github.com/talimuddin/roomhub/internal/models"
	"github.com/talimuddin/roomhub/internal/policy"
)

// Capabilities is the precomputed flag set returned alongside results so
// presentation layers need no authorization logic of their own.
type Capabilities struct {
	CanJoin            bool `json:"canJoin"`
	CanPost            bool `json:"canPost"`
	CanModerate        bool `json:"canModerate"`
	CanDelete          bool `json:"canDelete"`
	CanApproveRequests bool `json:"canApproveRequests"`

	// VisibleJoinCode is empty unless the caller is a member or the
	// creator. The join code is itself a capability token.
	VisibleJoinCode string `json:"joinCode,omitempty"`
}

// Evaluate is side-effect free and computes the caller's capabilities.
// membership may be nil. room must be non-deleted; deleted rooms never
// reach the evaluator.
func Evaluate(pol policy.Policy, role models.GlobalRole, room *models.Room, membership *models.Membership, userID uuid.UUID) Capabilities {
	isCreator := room.CreatorID == userID
	isRoomAdmin := membership != nil && membership.IsAdmin
	accepted := membership != nil && !membership.IsPending

	caps := Capabilities{}

	// Room management: creator or room-admin. Deleting the room itself is
	// the one terminal action reserved to the creator.
	caps.CanModerate = isCreator || isRoomAdmin
	caps.CanDelete = isCreator

	// Approvals: platform owner/admin anywhere; teachers only in rooms
	// where they hold an accepted membership.
	caps.CanApproveRequests = role == models.RoleOwner || role == models.RoleAdmin ||
		(role == models.RoleTeacher && accepted)

	// Posting: accepted members only, subject to the member-posting
	// setting (academic staff post regardless) and the archive state.
	caps.CanPost = accepted &&
		(room.Settings.AllowMemberPosting || role != models.RoleStudent) &&
		!(pol.SupportsArchive && room.IsArchived)

	// Joining: no existing membership, and not a role that is implicitly
	// a member of every room.
	caps.CanJoin = membership == nil && !isCreator &&
		role != models.RoleOwner && role != models.RoleAdmin

	if membership != nil || isCreator {
		caps.VisibleJoinCode = room.JoinCode
	}

	return caps
}
