// Package policy holds the deployment-selected room rules. Two variants
// exist in production; everything that differs between them lives in this
// one struct so the orchestrator and evaluator stay variant-free.
package policy

import (
	"fmt"

	"github.com/talimuddin/roomhub/internal/models"
)

type Policy struct {
	// Name of the preset, for logging.
	Name string

	// CreatorRoles are the global roles allowed to create rooms.
	CreatorRoles []models.GlobalRole

	// AutoEnrollCreator makes the creator an accepted member at creation
	// and starts MembersCount at 1.
	AutoEnrollCreator bool

	// SupportsArchive enables the ACTIVE<->ARCHIVED toggle.
	SupportsArchive bool

	// SupportsHide enables the per-user personal hide flag.
	SupportsHide bool

	// JoinCreatesPending makes joinByCode create a PENDING request that
	// an approver must accept; otherwise joins are accepted immediately.
	JoinCreatesPending bool

	// SingleRoomPerUser limits each user to one membership (pending or
	// accepted) across all rooms.
	SingleRoomPerUser bool
}

// Teacher is the open variant: any teacher creates rooms and is enrolled in
// them, joins are immediate, users hold many memberships.
func Teacher() Policy {
	return Policy{
		Name:               "teacher",
		CreatorRoles:       []models.GlobalRole{models.RoleTeacher},
		AutoEnrollCreator:  true,
		SupportsArchive:    true,
		SupportsHide:       true,
		JoinCreatesPending: false,
		SingleRoomPerUser:  false,
	}
}

// Owner is the gated variant: only the platform owner creates rooms (and
// stays out of the ledger), joins await approval, one room per user.
func Owner() Policy {
	return Policy{
		Name:               "owner",
		CreatorRoles:       []models.GlobalRole{models.RoleOwner},
		AutoEnrollCreator:  false,
		SupportsArchive:    false,
		SupportsHide:       false,
		JoinCreatesPending: true,
		SingleRoomPerUser:  true,
	}
}

func FromName(name string) (Policy, error) {
	switch name {
	case "teacher":
		return Teacher(), nil
	case "owner":
		return Owner(), nil
	default:
		return Policy{}, fmt.Errorf("unknown room policy %q", name)
	}
}

// AllowsCreation reports whether the given global role may create rooms.
func (p Policy) AllowsCreation(role models.GlobalRole) bool {
	for _, r := range p.CreatorRoles {
		if r == role {
			return true
		}
	}
	return false
}
