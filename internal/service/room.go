package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talimuddin/roomhub/internal/assets"
	"github.com/talimuddin/roomhub/internal/authz"
	"github.com/talimuddin/roomhub/internal/joincode"
	"github.com/talimuddin/roomhub/internal/models"
	"github.com/talimuddin/roomhub/internal/policy"
	"github.com/talimuddin/roomhub/internal/repository"
)

// defaultCoverImage is applied when a creator supplies no cover.
const defaultCoverImage = "https://images.unsplash.com/photo-1497633762265-9d179a990aa6?w=800&h=400&fit=crop"

// createRetries bounds re-generation when a join-code insert loses the
// check-then-insert race against a concurrent creator.
const createRetries = 3

// ContentService is the post collaborator. The orchestrator confirms
// membership, then delegates; content-level fields are the collaborator's
// concern.
type ContentService interface {
	CreatePost(ctx context.Context, roomID, authorID uuid.UUID, body string) (*models.Post, error)
	ListPosts(ctx context.Context, roomID uuid.UUID, page models.PageRequest) ([]repository.PostRecord, int64, error)
	ReadMap(ctx context.Context, viewerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	MarkRead(ctx context.Context, roomID, postID, viewerID uuid.UUID) error
}

// JoinCodeCache is an optional lookaside for join-code lookups. A nil
// cache disables it; misses and failures fall through to the registry.
type JoinCodeCache interface {
	GetRoomID(ctx context.Context, code string) (uuid.UUID, bool)
	SetRoomID(ctx context.Context, code string, roomID uuid.UUID)
	Invalidate(ctx context.Context, code string)
}

// RoomService orchestrates the room lifecycle: it consults the identity
// lookup and the capability evaluator, then mutates the registry and the
// ledger, keeping counters consistent.
type RoomService struct {
	rooms       repository.RoomRepository
	memberships repository.MembershipRepository
	users       repository.UserRepository
	content     ContentService
	assets      assets.Storage
	cache       JoinCodeCache
	pol         policy.Policy
	logger      *zap.Logger
}

func NewRoomService(
	rooms repository.RoomRepository,
	memberships repository.MembershipRepository,
	users repository.UserRepository,
	content ContentService,
	assetStorage assets.Storage,
	cache JoinCodeCache,
	pol policy.Policy,
	logger *zap.Logger,
) *RoomService {
	return &RoomService{
		rooms:       rooms,
		memberships: memberships,
		users:       users,
		content:     content,
		assets:      assetStorage,
		cache:       cache,
		pol:         pol,
		logger:      logger,
	}
}

// RoomMeta is the capability blob returned next to room payloads so the
// presentation layer needs no authorization logic of its own.
type RoomMeta struct {
	IsMember  bool            `json:"isMember"`
	IsPending bool            `json:"isPending"`
	IsCreator bool            `json:"isCreator"`
	IsCR      bool            `json:"isCR"`
	IsHidden  bool            `json:"isHidden"`
	Role      models.RoomRole `json:"role"`
	authz.Capabilities
}

func (s *RoomService) buildMeta(room *models.Room, membership *models.Membership, user *models.User) RoomMeta {
	return RoomMeta{
		IsMember:     membership != nil && !membership.IsPending,
		IsPending:    membership != nil && membership.IsPending,
		IsCreator:    room.CreatorID == user.ID,
		IsCR:         membership != nil && membership.IsCR,
		IsHidden:     membership != nil && membership.IsHidden,
		Role:         models.ResolveRoomRole(room, membership, user.ID),
		Capabilities: authz.Evaluate(s.pol, user.Role, room, membership, user.ID),
	}
}

// visibleRoom fetches a room for any operation other than deletion.
// Soft-deleted rooms are invisible everywhere else.
func (s *RoomService) visibleRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil || room.IsDeleted {
		return nil, NotFound("Room not found")
	}
	return room, nil
}

func (s *RoomService) identity(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NotFound("User not found")
	}
	return user, nil
}

// caller loads the room, the caller's identity and membership, and the
// resulting capability set. This is the preamble shared by every
// authorized operation.
func (s *RoomService) caller(ctx context.Context, roomID, userID uuid.UUID) (*models.Room, *models.User, *models.Membership, authz.Capabilities, error) {
	room, err := s.visibleRoom(ctx, roomID)
	if err != nil {
		return nil, nil, nil, authz.Capabilities{}, err
	}
	user, err := s.identity(ctx, userID)
	if err != nil {
		return nil, nil, nil, authz.Capabilities{}, err
	}
	membership, err := s.memberships.Find(ctx, roomID, userID)
	if err != nil {
		return nil, nil, nil, authz.Capabilities{}, err
	}
	caps := authz.Evaluate(s.pol, user.Role, room, membership, userID)
	return room, user, membership, caps, nil
}

type CreateRoomInput struct {
	Name               string
	Description        string
	RoomType           string
	CoverImage         string
	AllowMemberPosting *bool
	AllowComments      *bool
}

// CreateRoom validates the creator's global role against the deployment
// policy, assigns a unique join code, and (policy permitting) enrolls the
// creator as the first accepted member.
func (s *RoomService) CreateRoom(ctx context.Context, creatorID uuid.UUID, in CreateRoomInput) (*models.Room, RoomMeta, error) {
	user, err := s.identity(ctx, creatorID)
	if err != nil {
		return nil, RoomMeta{}, err
	}
	if !s.pol.AllowsCreation(user.Role) {
		return nil, RoomMeta{}, Forbidden("You are not allowed to create rooms")
	}

	if strings.TrimSpace(in.Name) == "" {
		return nil, RoomMeta{}, Invalid("Room name is required")
	}
	if strings.TrimSpace(in.RoomType) == "" {
		return nil, RoomMeta{}, Invalid("Room type is required")
	}
	cover := in.CoverImage
	if cover == "" {
		cover = defaultCoverImage
	}

	settings := models.RoomSettings{AllowMemberPosting: true, AllowComments: true}
	if in.AllowMemberPosting != nil {
		settings.AllowMemberPosting = *in.AllowMemberPosting
	}
	if in.AllowComments != nil {
		settings.AllowComments = *in.AllowComments
	}

	membersCount := 0
	if s.pol.AutoEnrollCreator {
		membersCount = 1
	}

	var room *models.Room
	for attempt := 0; ; attempt++ {
		code, err := joincode.Unique(ctx, s.rooms.JoinCodeExists)
		if err != nil {
			return nil, RoomMeta{}, err
		}

		room = &models.Room{
			Name:         strings.TrimSpace(in.Name),
			Description:  in.Description,
			CoverImage:   cover,
			RoomType:     in.RoomType,
			JoinCode:     code,
			CreatorID:    creatorID,
			MembersCount: membersCount,
			Settings:     settings,
		}

		err = s.rooms.Create(ctx, room)
		if err == nil {
			break
		}
		// The generator's exists check races with concurrent creators;
		// the registry's unique constraint is authoritative. Regenerate.
		if errors.Is(err, repository.ErrDuplicateEntry) && attempt < createRetries {
			s.logger.Warn("join code collided at insert, regenerating",
				zap.String("join_code", code), zap.Int("attempt", attempt+1))
			continue
		}
		return nil, RoomMeta{}, fmt.Errorf("create room: %w", err)
	}

	var membership *models.Membership
	if s.pol.AutoEnrollCreator {
		membership = &models.Membership{
			RoomID:    room.ID,
			UserID:    creatorID,
			IsPending: false,
		}
		if err := s.memberships.Create(ctx, membership, s.pol.SingleRoomPerUser); err != nil {
			// A room without its creator enrolled is half-created;
			// retire it so the failure leaves no visible state.
			if derr := s.rooms.SoftDelete(ctx, room.ID); derr != nil {
				s.logger.Error("failed to retire room after enrollment failure",
					zap.String("room_id", room.ID.String()), zap.Error(derr))
			}
			return nil, RoomMeta{}, fmt.Errorf("enroll creator: %w", err)
		}
	}

	s.logger.Info("room created",
		zap.String("room_id", room.ID.String()),
		zap.String("creator_id", creatorID.String()),
		zap.String("policy", s.pol.Name))

	return room, s.buildMeta(room, membership, user), nil
}

type JoinResult struct {
	RoomID   uuid.UUID `json:"room_id"`
	RoomName string    `json:"room_name"`
	Pending  bool      `json:"pending"`
	Message  string    `json:"message"`
}

// JoinByCode resolves a join code to a room and creates the membership,
// pending or accepted per policy. The ledger's uniqueness constraints are
// the authoritative guard against duplicate and multi-room joins.
func (s *RoomService) JoinByCode(ctx context.Context, userID uuid.UUID, code string) (*JoinResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, Invalid("Join code is required")
	}

	room, err := s.roomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if room == nil || room.IsDeleted {
		return nil, NotFound("Invalid join code")
	}
	if s.pol.SupportsArchive && room.IsArchived {
		return nil, Forbidden("Cannot join archived room")
	}

	// Advisory pre-checks for a precise message; the insert below remains
	// the authoritative check.
	if s.pol.SingleRoomPerUser {
		existing, err := s.memberships.FindAnyByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, s.singleRoomConflict(ctx, existing)
		}
	} else {
		existing, err := s.memberships.Find(ctx, room.ID, userID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, Conflict("Already a member of this room")
		}
	}

	membership := &models.Membership{
		RoomID:    room.ID,
		UserID:    userID,
		IsPending: s.pol.JoinCreatesPending,
	}
	if err := s.memberships.Create(ctx, membership, s.pol.SingleRoomPerUser); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			if s.pol.SingleRoomPerUser {
				if existing, ferr := s.memberships.FindAnyByUser(ctx, userID); ferr == nil && existing != nil {
					return nil, s.singleRoomConflict(ctx, existing)
				}
			}
			return nil, Conflict("Already a member of this room")
		}
		return nil, fmt.Errorf("join room: %w", err)
	}

	result := &JoinResult{RoomID: room.ID, RoomName: room.Name, Pending: membership.IsPending}
	if membership.IsPending {
		result.Message = "Join request sent successfully. Waiting for approval."
	} else {
		// Immediate admission counts toward membersCount right away. If
		// the increment fails the membership is removed again, so the
		// reported failure matches the persisted state.
		if err := s.rooms.AddCounts(ctx, room.ID, 1, 0); err != nil {
			if derr := s.memberships.Delete(ctx, membership.ID); derr != nil {
				s.logger.Error("failed to remove membership after counter failure",
					zap.String("membership_id", membership.ID.String()), zap.Error(derr))
			}
			return nil, fmt.Errorf("increment members count: %w", err)
		}
		result.Message = "Joined room successfully"
	}
	return result, nil
}

func (s *RoomService) roomByCode(ctx context.Context, code string) (*models.Room, error) {
	if s.cache != nil {
		if roomID, ok := s.cache.GetRoomID(ctx, code); ok {
			room, err := s.rooms.GetByID(ctx, roomID)
			if err != nil {
				return nil, err
			}
			// Guard against a stale mapping after a code reassignment.
			if room != nil && room.JoinCode == code {
				return room, nil
			}
			s.cache.Invalidate(ctx, code)
		}
	}

	room, err := s.rooms.GetByJoinCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if room != nil && !room.IsDeleted && s.cache != nil {
		s.cache.SetRoomID(ctx, code, room.ID)
	}
	return room, nil
}

// singleRoomConflict names the room blocking a join under the single-room
// policy.
func (s *RoomService) singleRoomConflict(ctx context.Context, existing *models.Membership) error {
	state := "a member of"
	if existing.IsPending {
		state = "requesting to join"
	}
	name := "another room"
	if room, err := s.rooms.GetByID(ctx, existing.RoomID); err == nil && room != nil {
		name = fmt.Sprintf("%q", room.Name)
	}
	return Conflict(fmt.Sprintf("You are already %s %s. Please leave that room first.", state, name))
}

// LeaveRoom deletes the caller's membership. A pending departure never
// touches membersCount.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	room, err := s.visibleRoom(ctx, roomID)
	if err != nil {
		return err
	}

	membership, err := s.memberships.Find(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if membership == nil {
		return NotFound("You are not a member of this room")
	}

	if err := s.memberships.Delete(ctx, membership.ID); err != nil {
		return fmt.Errorf("leave room: %w", err)
	}
	if !membership.IsPending {
		// The departure is committed; counter drift is repaired by
		// ReconcileCounters, not by failing a leave that happened.
		if err := s.rooms.AddCounts(ctx, room.ID, -1, 0); err != nil {
			s.logger.Warn("members count decrement failed, counter will drift until reconciled",
				zap.String("room_id", room.ID.String()), zap.Error(err))
		}
	}
	return nil
}

// pendingRequest loads and validates the target of an approve/reject after
// the approver has been authorized.
func (s *RoomService) pendingRequest(ctx context.Context, roomID, membershipID uuid.UUID) (*models.Membership, error) {
	membership, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, NotFound("Join request not found")
	}
	if membership.RoomID != roomID {
		return nil, Invalid("Invalid request")
	}
	if !membership.IsPending {
		return nil, InvalidState("This request has already been accepted")
	}
	return membership, nil
}

// ApproveRequest transitions a pending membership to accepted and
// increments membersCount. Approvers are platform owners/admins anywhere,
// or teachers holding an accepted membership in the room.
func (s *RoomService) ApproveRequest(ctx context.Context, roomID, membershipID, approverID uuid.UUID) error {
	_, _, _, caps, err := s.caller(ctx, roomID, approverID)
	if err != nil {
		return err
	}
	if !caps.CanApproveRequests {
		return Forbidden("Only teachers who are members, admins, or owners can approve join requests")
	}

	membership, err := s.pendingRequest(ctx, roomID, membershipID)
	if err != nil {
		return err
	}

	if err := s.memberships.Accept(ctx, membership.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost a race with another approver; the counter was already
			// incremented by the winner.
			return InvalidState("This request has already been accepted")
		}
		return fmt.Errorf("accept request: %w", err)
	}
	// The acceptance is committed and one-way; counter drift is repaired
	// by ReconcileCounters, not by failing an approval that happened.
	if err := s.rooms.AddCounts(ctx, roomID, 1, 0); err != nil {
		s.logger.Warn("members count increment failed, counter will drift until reconciled",
			zap.String("room_id", roomID.String()), zap.Error(err))
	}
	return nil
}

// RejectRequest deletes a pending membership outright.
func (s *RoomService) RejectRequest(ctx context.Context, roomID, membershipID, approverID uuid.UUID) error {
	_, _, _, caps, err := s.caller(ctx, roomID, approverID)
	if err != nil {
		return err
	}
	if !caps.CanApproveRequests {
		return Forbidden("Only teachers who are members, admins, or owners can reject join requests")
	}

	membership, err := s.pendingRequest(ctx, roomID, membershipID)
	if err != nil {
		return err
	}

	if err := s.memberships.Delete(ctx, membership.ID); err != nil {
		return fmt.Errorf("reject request: %w", err)
	}
	return nil
}

type JoinRequest struct {
	ID          uuid.UUID          `json:"id"`
	User        models.UserSummary `json:"user"`
	RequestedAt time.Time          `json:"requested_at"`
}

func (s *RoomService) ListPendingRequests(ctx context.Context, roomID, userID uuid.UUID, page models.PageRequest) ([]JoinRequest, models.Pagination, error) {
	page = page.Normalize()

	_, _, _, caps, err := s.caller(ctx, roomID, userID)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	if !caps.CanApproveRequests {
		return nil, models.Pagination{}, Forbidden("Only teachers who are members, admins, or owners can view join requests")
	}

	pending := true
	records, total, err := s.memberships.ListByRoom(ctx, roomID, &pending, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	requests := make([]JoinRequest, 0, len(records))
	for _, rec := range records {
		requests = append(requests, JoinRequest{
			ID:          rec.Membership.ID,
			User:        rec.User,
			RequestedAt: rec.Membership.CreatedAt,
		})
	}
	return requests, models.NewPagination(total, page), nil
}

// ToggleArchive flips the room between ACTIVE and ARCHIVED.
func (s *RoomService) ToggleArchive(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	if !s.pol.SupportsArchive {
		return false, Forbidden("Archiving is not supported")
	}

	room, _, _, caps, err := s.caller(ctx, roomID, userID)
	if err != nil {
		return false, err
	}
	if !caps.CanModerate {
		return false, Forbidden("Only room creator or admin can archive/unarchive room")
	}

	archived := !room.IsArchived
	if err := s.rooms.SetArchived(ctx, roomID, archived); err != nil {
		return false, fmt.Errorf("toggle archive: %w", err)
	}
	if archived && s.cache != nil {
		s.cache.Invalidate(ctx, room.JoinCode)
	}
	return archived, nil
}

// DeleteRoom soft-deletes; terminal and creator-only. This is the one path
// allowed to see an already-deleted room, to report the distinct state.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return NotFound("Room not found")
	}
	if room.IsDeleted {
		return NotFound("Room already deleted")
	}
	if room.CreatorID != userID {
		return Forbidden("Only room creator can delete room")
	}

	if err := s.rooms.SoftDelete(ctx, roomID); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, room.JoinCode)
	}
	return nil
}

// ToggleHide flips the caller's personal hide flag on their membership.
func (s *RoomService) ToggleHide(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	if !s.pol.SupportsHide {
		return false, Forbidden("Hiding rooms is not supported")
	}

	if _, err := s.visibleRoom(ctx, roomID); err != nil {
		return false, err
	}
	membership, err := s.memberships.Find(ctx, roomID, userID)
	if err != nil {
		return false, err
	}
	if membership == nil {
		return false, Forbidden("You are not a member of this room")
	}

	hidden := !membership.IsHidden
	if err := s.memberships.SetHidden(ctx, membership.ID, hidden); err != nil {
		return false, fmt.Errorf("toggle hide: %w", err)
	}
	return hidden, nil
}

// UpdateRoom applies a partial field update; settings merge shallowly.
func (s *RoomService) UpdateRoom(ctx context.Context, roomID, userID uuid.UUID, patch repository.RoomPatch) (*models.Room, error) {
	_, _, _, caps, err := s.caller(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !caps.CanModerate {
		return nil, Forbidden("Only room creator or admin can update room details")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, Invalid("Room name cannot be empty")
	}

	room, err := s.rooms.UpdateFields(ctx, roomID, patch)
	if err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	return room, nil
}

// UpdateCoverImage uploads the new asset, swaps the reference, then
// best-effort deletes the old one. An old-asset cleanup failure is logged,
// never propagated.
func (s *RoomService) UpdateCoverImage(ctx context.Context, roomID, userID uuid.UUID, file io.Reader, filename, contentType string) (*models.Room, error) {
	if file == nil {
		return nil, Invalid("Cover image missing")
	}

	room, _, _, caps, err := s.caller(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !caps.CanModerate {
		return nil, Forbidden("Permission denied")
	}

	url, err := s.assets.Upload(ctx, file, filename, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload cover image: %w", err)
	}

	old := room.CoverImage
	if err := s.rooms.SetCoverImage(ctx, roomID, url); err != nil {
		return nil, fmt.Errorf("set cover image: %w", err)
	}

	if old != "" && old != defaultCoverImage {
		if err := s.assets.Delete(ctx, old); err != nil {
			s.logger.Warn("failed to delete previous cover image",
				zap.String("room_id", roomID.String()), zap.Error(err))
		}
	}

	room.CoverImage = url
	return room, nil
}

// GetRoomDetails returns the room and the caller's capability meta.
func (s *RoomService) GetRoomDetails(ctx context.Context, roomID, userID uuid.UUID) (*models.Room, RoomMeta, error) {
	room, user, membership, _, err := s.caller(ctx, roomID, userID)
	if err != nil {
		return nil, RoomMeta{}, err
	}
	return room, s.buildMeta(room, membership, user), nil
}

// RoomListItem is one row of a per-user room listing. The join code is
// included: every row corresponds to a membership.
type RoomListItem struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	CoverImage   string             `json:"cover_image"`
	RoomType     string             `json:"room_type"`
	Creator      models.UserSummary `json:"creator"`
	MembersCount int                `json:"members_count"`
	PostsCount   int                `json:"posts_count"`
	JoinCode     string             `json:"join_code"`
	IsCR         bool               `json:"is_cr"`
	IsArchived   bool               `json:"is_archived"`
	CreatedAt    time.Time          `json:"created_at"`
}

func (s *RoomService) listUserRooms(ctx context.Context, userID uuid.UUID, filter repository.UserRoomFilter, page models.PageRequest) ([]RoomListItem, models.Pagination, error) {
	page = page.Normalize()

	records, total, err := s.memberships.ListByUser(ctx, userID, filter, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	items := make([]RoomListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, RoomListItem{
			ID:           rec.Room.ID,
			Name:         rec.Room.Name,
			Description:  rec.Room.Description,
			CoverImage:   rec.Room.CoverImage,
			RoomType:     rec.Room.RoomType,
			Creator:      rec.Creator,
			MembersCount: rec.Room.MembersCount,
			PostsCount:   rec.Room.PostsCount,
			JoinCode:     rec.Room.JoinCode,
			IsCR:         rec.Membership.IsCR,
			IsArchived:   rec.Room.IsArchived,
			CreatedAt:    rec.Room.CreatedAt,
		})
	}
	return items, models.NewPagination(total, page), nil
}

// MyRooms lists the caller's accepted, visible memberships.
func (s *RoomService) MyRooms(ctx context.Context, userID uuid.UUID, page models.PageRequest) ([]RoomListItem, models.Pagination, error) {
	filter := repository.UserRoomFilter{Pending: boolPtr(false)}
	if s.pol.SupportsHide {
		filter.Hidden = boolPtr(false)
	}
	if s.pol.SupportsArchive {
		filter.Archived = boolPtr(false)
	}
	return s.listUserRooms(ctx, userID, filter, page)
}

func (s *RoomService) HiddenRooms(ctx context.Context, userID uuid.UUID, page models.PageRequest) ([]RoomListItem, models.Pagination, error) {
	if !s.pol.SupportsHide {
		return nil, models.Pagination{}, Forbidden("Hiding rooms is not supported")
	}
	filter := repository.UserRoomFilter{
		Pending:  boolPtr(false),
		Hidden:   boolPtr(true),
		Archived: boolPtr(false),
	}
	return s.listUserRooms(ctx, userID, filter, page)
}

func (s *RoomService) ArchivedRooms(ctx context.Context, userID uuid.UUID, page models.PageRequest) ([]RoomListItem, models.Pagination, error) {
	if !s.pol.SupportsArchive {
		return nil, models.Pagination{}, Forbidden("Archiving is not supported")
	}
	filter := repository.UserRoomFilter{
		Pending:  boolPtr(false),
		Archived: boolPtr(true),
	}
	return s.listUserRooms(ctx, userID, filter, page)
}

type Member struct {
	User models.UserSummary `json:"user"`
	Meta MemberMeta         `json:"meta"`
}

type MemberMeta struct {
	MemberID  uuid.UUID       `json:"member_id"`
	Role      models.RoomRole `json:"role"`
	IsSelf    bool            `json:"isSelf"`
	IsCR      bool            `json:"isCR"`
	IsAdmin   bool            `json:"isAdmin"`
	IsCreator bool            `json:"isCreator"`
	IsPending bool            `json:"isPending"`
}

type MembersMeta struct {
	CurrentUserRole models.RoomRole `json:"currentUserRole"`
}

// ListMembers lists room members with their computed roles. Visible to
// members and the creator.
func (s *RoomService) ListMembers(ctx context.Context, roomID, userID uuid.UUID, page models.PageRequest) ([]Member, models.Pagination, MembersMeta, error) {
	page = page.Normalize()

	room, _, membership, _, err := s.caller(ctx, roomID, userID)
	if err != nil {
		return nil, models.Pagination{}, MembersMeta{}, err
	}
	if membership == nil && room.CreatorID != userID {
		return nil, models.Pagination{}, MembersMeta{}, Forbidden("You are not a member of this room")
	}

	accepted := false
	records, total, err := s.memberships.ListByRoom(ctx, roomID, &accepted, page)
	if err != nil {
		return nil, models.Pagination{}, MembersMeta{}, err
	}

	members := make([]Member, 0, len(records))
	for _, rec := range records {
		m := rec.Membership
		members = append(members, Member{
			User: rec.User,
			Meta: MemberMeta{
				MemberID:  m.ID,
				Role:      models.ResolveRoomRole(room, &m, m.UserID),
				IsSelf:    m.UserID == userID,
				IsCR:      m.IsCR,
				IsAdmin:   m.IsAdmin,
				IsCreator: room.CreatorID == m.UserID,
				IsPending: m.IsPending,
			},
		})
	}

	meta := MembersMeta{CurrentUserRole: models.ResolveRoomRole(room, membership, userID)}
	return members, models.NewPagination(total, page), meta, nil
}

// PromoteMember adjusts a member's room-scoped flags (isAdmin, isCR).
func (s *RoomService) PromoteMember(ctx context.Context, roomID, membershipID, userID uuid.UUID, isAdmin, isCR *bool) error {
	_, _, _, caps, err := s.caller(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !caps.CanModerate {
		return Forbidden("Only room creator or admin can manage member roles")
	}

	target, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if target == nil || target.RoomID != roomID {
		return NotFound("Member not found")
	}
	if target.IsPending {
		return InvalidState("Cannot promote a pending member")
	}

	if err := s.memberships.SetFlags(ctx, membershipID, isAdmin, isCR); err != nil {
		return fmt.Errorf("set member flags: %w", err)
	}
	return nil
}

type PostWithMeta struct {
	Post   models.Post        `json:"post"`
	Author models.UserSummary `json:"author"`
	Meta   PostMeta           `json:"meta"`
}

type PostMeta struct {
	IsMine    bool `json:"isMine"`
	IsRead    bool `json:"isRead"`
	CanDelete bool `json:"canDelete"`
}

// CreateRoomPost confirms the caller may post, delegates to the content
// collaborator, then bumps postsCount.
func (s *RoomService) CreateRoomPost(ctx context.Context, roomID, userID uuid.UUID, body string) (*models.Post, error) {
	if strings.TrimSpace(body) == "" {
		return nil, Invalid("Post body is required")
	}

	room, user, membership, caps, err := s.caller(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !caps.CanPost {
		switch {
		case s.pol.SupportsArchive && room.IsArchived:
			return nil, Forbidden("Cannot post in archived room")
		case membership == nil || membership.IsPending:
			return nil, Forbidden("You must be a member to post in this room")
		case user.Role == models.RoleStudent && !room.Settings.AllowMemberPosting:
			return nil, Forbidden("Member posting is disabled in this room")
		default:
			return nil, Forbidden("You cannot post in this room")
		}
	}

	post, err := s.content.CreatePost(ctx, roomID, userID, body)
	if err != nil {
		return nil, err
	}
	// The post is committed; counter drift is repaired by
	// ReconcileCounters.
	if err := s.rooms.AddCounts(ctx, roomID, 0, 1); err != nil {
		s.logger.Warn("posts count increment failed, counter will drift until reconciled",
			zap.String("room_id", roomID.String()), zap.Error(err))
	}
	return post, nil
}

// ListRoomPosts returns posts newest-first with viewer meta.
func (s *RoomService) ListRoomPosts(ctx context.Context, roomID, userID uuid.UUID, page models.PageRequest) ([]PostWithMeta, models.Pagination, error) {
	page = page.Normalize()

	_, _, membership, caps, err := s.caller(ctx, roomID, userID)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	if membership == nil && !caps.CanModerate {
		return nil, models.Pagination{}, Forbidden("You are not a member of this room")
	}

	records, total, err := s.content.ListPosts(ctx, roomID, page)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	postIDs := make([]uuid.UUID, 0, len(records))
	for _, rec := range records {
		postIDs = append(postIDs, rec.Post.ID)
	}
	readMap, err := s.content.ReadMap(ctx, userID, postIDs)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	posts := make([]PostWithMeta, 0, len(records))
	for _, rec := range records {
		mine := rec.Post.AuthorID == userID
		posts = append(posts, PostWithMeta{
			Post:   rec.Post,
			Author: rec.Author,
			Meta: PostMeta{
				IsMine:    mine,
				IsRead:    readMap[rec.Post.ID],
				CanDelete: mine || caps.CanModerate,
			},
		})
	}
	return posts, models.NewPagination(total, page), nil
}

// MarkPostRead records that the caller has read a post in a room they
// belong to.
func (s *RoomService) MarkPostRead(ctx context.Context, roomID, postID, userID uuid.UUID) error {
	if _, err := s.visibleRoom(ctx, roomID); err != nil {
		return err
	}
	membership, err := s.memberships.Find(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if membership == nil || membership.IsPending {
		return Forbidden("You are not a member of this room")
	}
	if err := s.content.MarkRead(ctx, roomID, postID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("Post not found")
		}
		return fmt.Errorf("mark post read: %w", err)
	}
	return nil
}

// ReconcileCounters recomputes membersCount/postsCount from their source
// tables, repairing drift from failed requests.
func (s *RoomService) ReconcileCounters(ctx context.Context, roomID, userID uuid.UUID) (*models.Room, error) {
	_, _, _, caps, err := s.caller(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !caps.CanModerate {
		return nil, Forbidden("Only room creator or admin can reconcile counters")
	}

	room, err := s.rooms.ReconcileCounters(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("reconcile counters: %w", err)
	}
	return room, nil
}

func boolPtr(b bool) *bool { return &b }
