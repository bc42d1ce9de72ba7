package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talimuddin/roomhub/internal/models"
	"github.com/talimuddin/roomhub/internal/policy"
	"github.com/talimuddin/roomhub/internal/repository"
	"github.com/talimuddin/roomhub/internal/repository/mocks"
	"github.com/talimuddin/roomhub/internal/service"
)

type contentMock struct {
	mock.Mock
}

func (m *contentMock) CreatePost(ctx context.Context, roomID, authorID uuid.UUID, body string) (*models.Post, error) {
	args := m.Called(ctx, roomID, authorID, body)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *contentMock) ListPosts(ctx context.Context, roomID uuid.UUID, page models.PageRequest) ([]repository.PostRecord, int64, error) {
	args := m.Called(ctx, roomID, page)
	records, _ := args.Get(0).([]repository.PostRecord)
	return records, args.Get(1).(int64), args.Error(2)
}

func (m *contentMock) ReadMap(ctx context.Context, viewerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, viewerID, postIDs)
	readMap, _ := args.Get(0).(map[uuid.UUID]bool)
	return readMap, args.Error(1)
}

func (m *contentMock) MarkRead(ctx context.Context, roomID, postID, viewerID uuid.UUID) error {
	args := m.Called(ctx, roomID, postID, viewerID)
	return args.Error(0)
}

type fixture struct {
	rooms       *mocks.RoomRepository
	memberships *mocks.MembershipRepository
	users       *mocks.UserRepository
	content     *contentMock
	svc         *service.RoomService
}

func newFixture(t *testing.T, pol policy.Policy) *fixture {
	t.Helper()
	f := &fixture{
		rooms:       new(mocks.RoomRepository),
		memberships: new(mocks.MembershipRepository),
		users:       new(mocks.UserRepository),
		content:     new(contentMock),
	}
	f.svc = service.NewRoomService(f.rooms, f.memberships, f.users, f.content, nil, nil, pol, zap.NewNop())
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.rooms.AssertExpectations(t)
	f.memberships.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.content.AssertExpectations(t)
}

func teacherUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "t@school.edu", Role: models.RoleTeacher}
}

func studentUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "s@school.edu", Role: models.RoleStudent}
}

func testRoom(creatorID uuid.UUID) *models.Room {
	return &models.Room{
		ID:           uuid.New(),
		Name:         "Algorithms 101",
		RoomType:     "course",
		JoinCode:     "ABC234",
		CreatorID:    creatorID,
		MembersCount: 1,
		Settings:     models.RoomSettings{AllowMemberPosting: true, AllowComments: true},
	}
}

func assertKind(t *testing.T, err error, want service.Kind) {
	t.Helper()
	require.Error(t, err)
	kind, ok := service.KindOf(err)
	require.True(t, ok, "expected a service error, got %v", err)
	assert.Equal(t, want, kind)
}

func TestCreateRoom_TeacherPolicy(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	creator := teacherUser()

	f.users.On("GetByID", ctx, creator.ID).Return(creator, nil).Once()
	f.rooms.On("JoinCodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	f.rooms.On("Create", ctx, mock.MatchedBy(func(r *models.Room) bool {
		return r.Name == "Data Structures" && r.MembersCount == 1 && len(r.JoinCode) == 6
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Room).ID = uuid.New()
	}).Return(nil).Once()
	f.memberships.On("Create", ctx, mock.MatchedBy(func(m *models.Membership) bool {
		return m.UserID == creator.ID && !m.IsPending
	}), false).Return(nil).Once()

	room, meta, err := f.svc.CreateRoom(ctx, creator.ID, service.CreateRoomInput{
		Name:     "Data Structures",
		RoomType: "course",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, room.MembersCount)
	assert.True(t, meta.IsCreator)
	assert.True(t, meta.IsMember)
	assert.Equal(t, models.RoomRoleCreator, meta.Role)
	assert.Equal(t, room.JoinCode, meta.VisibleJoinCode)
	f.assertExpectations(t)
}

func TestCreateRoom_OwnerPolicy_NoAutoEnroll(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOwner}

	f.users.On("GetByID", ctx, owner.ID).Return(owner, nil).Once()
	f.rooms.On("JoinCodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	f.rooms.On("Create", ctx, mock.MatchedBy(func(r *models.Room) bool {
		return r.MembersCount == 0
	})).Return(nil).Once()

	room, _, err := f.svc.CreateRoom(ctx, owner.ID, service.CreateRoomInput{
		Name:     "Batch 2026",
		RoomType: "cohort",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, room.MembersCount)
	f.memberships.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestCreateRoom_RoleNotAllowed(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	student := studentUser()

	f.users.On("GetByID", ctx, student.ID).Return(student, nil).Once()

	_, _, err := f.svc.CreateRoom(ctx, student.ID, service.CreateRoomInput{
		Name:     "My Room",
		RoomType: "course",
	})

	assertKind(t, err, service.KindForbidden)
	f.rooms.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateRoom_MissingName(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	creator := teacherUser()

	f.users.On("GetByID", ctx, creator.ID).Return(creator, nil).Once()

	_, _, err := f.svc.CreateRoom(ctx, creator.ID, service.CreateRoomInput{RoomType: "course"})
	assertKind(t, err, service.KindValidation)
}

func TestCreateRoom_RegeneratesCodeOnInsertCollision(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	creator := teacherUser()

	f.users.On("GetByID", ctx, creator.ID).Return(creator, nil).Once()
	f.rooms.On("JoinCodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Twice()
	f.rooms.On("Create", ctx, mock.AnythingOfType("*models.Room")).
		Return(repository.ErrDuplicateEntry).Once()
	f.rooms.On("Create", ctx, mock.AnythingOfType("*models.Room")).
		Return(nil).Once()
	f.memberships.On("Create", ctx, mock.AnythingOfType("*models.Membership"), false).Return(nil).Once()

	_, _, err := f.svc.CreateRoom(ctx, creator.ID, service.CreateRoomInput{
		Name:     "Data Structures",
		RoomType: "course",
	})

	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestJoinByCode_ImmediateAdmission(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()

	f.rooms.On("GetByJoinCode", ctx, "ABC234").Return(room, nil).Once()
	f.memberships.On("Find", ctx, room.ID, userID).Return(nil, nil).Once()
	f.memberships.On("Create", ctx, mock.MatchedBy(func(m *models.Membership) bool {
		return m.RoomID == room.ID && m.UserID == userID && !m.IsPending
	}), false).Return(nil).Once()
	f.rooms.On("AddCounts", ctx, room.ID, 1, 0).Return(nil).Once()

	// Codes are matched case-insensitively.
	result, err := f.svc.JoinByCode(ctx, userID, " abc234 ")

	require.NoError(t, err)
	assert.False(t, result.Pending)
	assert.Equal(t, room.ID, result.RoomID)
	f.assertExpectations(t)
}

func TestJoinByCode_PendingUnderOwnerPolicy(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	room := testRoom(uuid.New())
	room.MembersCount = 0
	userID := uuid.New()

	f.rooms.On("GetByJoinCode", ctx, "ABC234").Return(room, nil).Once()
	f.memberships.On("FindAnyByUser", ctx, userID).Return(nil, nil).Once()
	f.memberships.On("Create", ctx, mock.MatchedBy(func(m *models.Membership) bool {
		return m.IsPending
	}), true).Return(nil).Once()

	result, err := f.svc.JoinByCode(ctx, userID, "ABC234")

	require.NoError(t, err)
	assert.True(t, result.Pending)
	// A pending request never touches membersCount.
	f.rooms.AssertNotCalled(t, "AddCounts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestJoinByCode_InvalidCode(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()

	f.rooms.On("GetByJoinCode", ctx, "ZZZZZZ").Return(nil, nil).Once()

	_, err := f.svc.JoinByCode(ctx, uuid.New(), "ZZZZZZ")

	assertKind(t, err, service.KindNotFound)
	assert.EqualError(t, err, "Invalid join code")
}

func TestJoinByCode_ArchivedRoom(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	room.IsArchived = true

	f.rooms.On("GetByJoinCode", ctx, "ABC234").Return(room, nil).Once()

	_, err := f.svc.JoinByCode(ctx, uuid.New(), "ABC234")

	assertKind(t, err, service.KindForbidden)
	assert.EqualError(t, err, "Cannot join archived room")
}

func TestJoinByCode_AlreadyMember(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()

	f.rooms.On("GetByJoinCode", ctx, "ABC234").Return(room, nil).Once()
	f.memberships.On("Find", ctx, room.ID, userID).
		Return(&models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: userID}, nil).Once()

	_, err := f.svc.JoinByCode(ctx, userID, "ABC234")

	assertKind(t, err, service.KindConflict)
}

func TestJoinByCode_SingleRoomConflictNamesBlockingRoom(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()

	blocking := testRoom(uuid.New())
	blocking.Name = "Chemistry Cohort"
	existing := &models.Membership{ID: uuid.New(), RoomID: blocking.ID, UserID: userID, IsPending: true}

	f.rooms.On("GetByJoinCode", ctx, "ABC234").Return(room, nil).Once()
	f.memberships.On("FindAnyByUser", ctx, userID).Return(existing, nil).Once()
	f.rooms.On("GetByID", ctx, blocking.ID).Return(blocking, nil).Once()

	_, err := f.svc.JoinByCode(ctx, userID, "ABC234")

	assertKind(t, err, service.KindConflict)
	assert.Contains(t, err.Error(), "Chemistry Cohort")
	assert.Contains(t, err.Error(), "requesting to join")
	f.memberships.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveRequest(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOwner}
	room := testRoom(uuid.New())
	room.MembersCount = 0
	pending := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: uuid.New(), IsPending: true}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, owner.ID).Return(owner, nil).Once()
	f.memberships.On("Find", ctx, room.ID, owner.ID).Return(nil, nil).Once()
	f.memberships.On("GetByID", ctx, pending.ID).Return(pending, nil).Once()
	f.memberships.On("Accept", ctx, pending.ID).Return(nil).Once()
	f.rooms.On("AddCounts", ctx, room.ID, 1, 0).Return(nil).Once()

	err := f.svc.ApproveRequest(ctx, room.ID, pending.ID, owner.ID)

	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestApproveRequest_AlreadyAccepted(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOwner}
	room := testRoom(uuid.New())
	accepted := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: uuid.New()}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, owner.ID).Return(owner, nil).Once()
	f.memberships.On("Find", ctx, room.ID, owner.ID).Return(nil, nil).Once()
	f.memberships.On("GetByID", ctx, accepted.ID).Return(accepted, nil).Once()

	err := f.svc.ApproveRequest(ctx, room.ID, accepted.ID, owner.ID)

	assertKind(t, err, service.KindInvalidState)
	assert.EqualError(t, err, "This request has already been accepted")
	// The counter must not move for a no-op approval.
	f.rooms.AssertNotCalled(t, "AddCounts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.memberships.AssertNotCalled(t, "Accept", mock.Anything, mock.Anything)
}

func TestApproveRequest_StudentForbidden(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	student := studentUser()
	room := testRoom(uuid.New())

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, student.ID).Return(student, nil).Once()
	f.memberships.On("Find", ctx, room.ID, student.ID).
		Return(&models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: student.ID}, nil).Once()

	err := f.svc.ApproveRequest(ctx, room.ID, uuid.New(), student.ID)

	assertKind(t, err, service.KindForbidden)
}

func TestApproveRequest_WrongRoom(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOwner}
	room := testRoom(uuid.New())
	other := &models.Membership{ID: uuid.New(), RoomID: uuid.New(), UserID: uuid.New(), IsPending: true}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, owner.ID).Return(owner, nil).Once()
	f.memberships.On("Find", ctx, room.ID, owner.ID).Return(nil, nil).Once()
	f.memberships.On("GetByID", ctx, other.ID).Return(other, nil).Once()

	err := f.svc.ApproveRequest(ctx, room.ID, other.ID, owner.ID)

	assertKind(t, err, service.KindValidation)
}

func TestRejectRequest_DeletesPendingRow(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOwner}
	room := testRoom(uuid.New())
	pending := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: uuid.New(), IsPending: true}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, owner.ID).Return(owner, nil).Once()
	f.memberships.On("Find", ctx, room.ID, owner.ID).Return(nil, nil).Once()
	f.memberships.On("GetByID", ctx, pending.ID).Return(pending, nil).Once()
	f.memberships.On("Delete", ctx, pending.ID).Return(nil).Once()

	err := f.svc.RejectRequest(ctx, room.ID, pending.ID, owner.ID)

	require.NoError(t, err)
	f.rooms.AssertNotCalled(t, "AddCounts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestLeaveRoom_AcceptedMemberDecrementsCounter(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()
	membership := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: userID}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.memberships.On("Find", ctx, room.ID, userID).Return(membership, nil).Once()
	f.memberships.On("Delete", ctx, membership.ID).Return(nil).Once()
	f.rooms.On("AddCounts", ctx, room.ID, -1, 0).Return(nil).Once()

	require.NoError(t, f.svc.LeaveRoom(ctx, room.ID, userID))
	f.assertExpectations(t)
}

func TestLeaveRoom_PendingMemberKeepsCounter(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()
	membership := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: userID, IsPending: true}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.memberships.On("Find", ctx, room.ID, userID).Return(membership, nil).Once()
	f.memberships.On("Delete", ctx, membership.ID).Return(nil).Once()

	require.NoError(t, f.svc.LeaveRoom(ctx, room.ID, userID))
	f.rooms.AssertNotCalled(t, "AddCounts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestLeaveRoom_NotAMember(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.memberships.On("Find", ctx, room.ID, userID).Return(nil, nil).Once()

	err := f.svc.LeaveRoom(ctx, room.ID, userID)

	assertKind(t, err, service.KindNotFound)
	f.memberships.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestToggleArchive_RoundTrip(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	creator := teacherUser()
	room := testRoom(creator.ID)
	membership := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: creator.ID}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Twice()
	f.users.On("GetByID", ctx, creator.ID).Return(creator, nil).Twice()
	f.memberships.On("Find", ctx, room.ID, creator.ID).Return(membership, nil).Twice()
	f.rooms.On("SetArchived", ctx, room.ID, true).Return(nil).Once()
	f.rooms.On("SetArchived", ctx, room.ID, false).Return(nil).Once()

	archived, err := f.svc.ToggleArchive(ctx, room.ID, creator.ID)
	require.NoError(t, err)
	assert.True(t, archived)

	room.IsArchived = true
	archived, err = f.svc.ToggleArchive(ctx, room.ID, creator.ID)
	require.NoError(t, err)
	assert.False(t, archived)
	f.assertExpectations(t)
}

func TestToggleArchive_UnsupportedByPolicy(t *testing.T) {
	f := newFixture(t, policy.Owner())

	_, err := f.svc.ToggleArchive(context.Background(), uuid.New(), uuid.New())

	assertKind(t, err, service.KindForbidden)
	f.rooms.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestDeleteRoom(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	creatorID := uuid.New()
	room := testRoom(creatorID)

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.rooms.On("SoftDelete", ctx, room.ID).Return(nil).Once()

	require.NoError(t, f.svc.DeleteRoom(ctx, room.ID, creatorID))
	f.assertExpectations(t)
}

func TestDeleteRoom_AlreadyDeleted(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	creatorID := uuid.New()
	room := testRoom(creatorID)
	room.IsDeleted = true

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()

	err := f.svc.DeleteRoom(ctx, room.ID, creatorID)

	assertKind(t, err, service.KindNotFound)
	assert.EqualError(t, err, "Room already deleted")
	f.rooms.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything)
}

func TestDeleteRoom_NotCreator(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()

	err := f.svc.DeleteRoom(ctx, room.ID, uuid.New())

	assertKind(t, err, service.KindForbidden)
}

func TestToggleHide(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()
	membership := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: userID}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.memberships.On("Find", ctx, room.ID, userID).Return(membership, nil).Once()
	f.memberships.On("SetHidden", ctx, membership.ID, true).Return(nil).Once()

	hidden, err := f.svc.ToggleHide(ctx, room.ID, userID)

	require.NoError(t, err)
	assert.True(t, hidden)
	f.assertExpectations(t)
}

func TestToggleHide_UnsupportedByPolicy(t *testing.T) {
	f := newFixture(t, policy.Owner())

	_, err := f.svc.ToggleHide(context.Background(), uuid.New(), uuid.New())

	assertKind(t, err, service.KindForbidden)
}

func TestCreateRoomPost_MemberPostIncrementsCounter(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	author := studentUser()
	membership := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: author.ID}
	post := &models.Post{ID: uuid.New(), RoomID: room.ID, AuthorID: author.ID, Body: "hello"}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, author.ID).Return(author, nil).Once()
	f.memberships.On("Find", ctx, room.ID, author.ID).Return(membership, nil).Once()
	f.content.On("CreatePost", ctx, room.ID, author.ID, "hello").Return(post, nil).Once()
	f.rooms.On("AddCounts", ctx, room.ID, 0, 1).Return(nil).Once()

	got, err := f.svc.CreateRoomPost(ctx, room.ID, author.ID, "hello")

	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	f.assertExpectations(t)
}

func TestCreateRoomPost_NonMemberForbidden(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	user := studentUser()

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
	f.memberships.On("Find", ctx, room.ID, user.ID).Return(nil, nil).Once()

	_, err := f.svc.CreateRoomPost(ctx, room.ID, user.ID, "hello")

	assertKind(t, err, service.KindForbidden)
	f.content.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRoomPost_MemberPostingDisabled(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	room.Settings.AllowMemberPosting = false
	user := studentUser()
	membership := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: user.ID}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
	f.memberships.On("Find", ctx, room.ID, user.ID).Return(membership, nil).Once()

	_, err := f.svc.CreateRoomPost(ctx, room.ID, user.ID, "hello")

	assertKind(t, err, service.KindForbidden)
	assert.EqualError(t, err, "Member posting is disabled in this room")
}

func TestReconcileCounters_RequiresModerator(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	user := studentUser()
	membership := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: user.ID}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, user.ID).Return(user, nil).Once()
	f.memberships.On("Find", ctx, room.ID, user.ID).Return(membership, nil).Once()

	_, err := f.svc.ReconcileCounters(ctx, room.ID, user.ID)

	assertKind(t, err, service.KindForbidden)
	f.rooms.AssertNotCalled(t, "ReconcileCounters", mock.Anything, mock.Anything)
}

func TestReconcileCounters(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	creator := teacherUser()
	room := testRoom(creator.ID)
	repaired := *room
	repaired.MembersCount = 7

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, creator.ID).Return(creator, nil).Once()
	f.memberships.On("Find", ctx, room.ID, creator.ID).Return(nil, nil).Once()
	f.rooms.On("ReconcileCounters", ctx, room.ID).Return(&repaired, nil).Once()

	got, err := f.svc.ReconcileCounters(ctx, room.ID, creator.ID)

	require.NoError(t, err)
	assert.Equal(t, 7, got.MembersCount)
	f.assertExpectations(t)
}

func TestCreateRoom_EnrollmentFailureRetiresRoom(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	creator := teacherUser()
	roomID := uuid.New()

	f.users.On("GetByID", ctx, creator.ID).Return(creator, nil).Once()
	f.rooms.On("JoinCodeExists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	f.rooms.On("Create", ctx, mock.AnythingOfType("*models.Room")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Room).ID = roomID
		}).Return(nil).Once()
	f.memberships.On("Create", ctx, mock.AnythingOfType("*models.Membership"), false).
		Return(errors.New("connection reset")).Once()
	f.rooms.On("SoftDelete", ctx, roomID).Return(nil).Once()

	_, _, err := f.svc.CreateRoom(ctx, creator.ID, service.CreateRoomInput{
		Name:     "Data Structures",
		RoomType: "course",
	})

	require.Error(t, err)
	f.assertExpectations(t)
}

func TestJoinByCode_CounterFailureRemovesMembership(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()
	membershipID := uuid.New()

	f.rooms.On("GetByJoinCode", ctx, "ABC234").Return(room, nil).Once()
	f.memberships.On("Find", ctx, room.ID, userID).Return(nil, nil).Once()
	f.memberships.On("Create", ctx, mock.AnythingOfType("*models.Membership"), false).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Membership).ID = membershipID
		}).Return(nil).Once()
	f.rooms.On("AddCounts", ctx, room.ID, 1, 0).Return(errors.New("connection reset")).Once()
	f.memberships.On("Delete", ctx, membershipID).Return(nil).Once()

	_, err := f.svc.JoinByCode(ctx, userID, "ABC234")

	// A failed join must not leave the user enrolled.
	require.Error(t, err)
	f.assertExpectations(t)
}

func TestJoinByCode_SingleRoomRaceLostAtInsert(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()

	blocking := testRoom(uuid.New())
	blocking.Name = "Chemistry Cohort"
	existing := &models.Membership{ID: uuid.New(), RoomID: blocking.ID, UserID: userID}

	// The advisory pre-check sees nothing; a concurrent join wins the
	// store's exclusive guard between the check and the insert.
	f.rooms.On("GetByJoinCode", ctx, "ABC234").Return(room, nil).Once()
	f.memberships.On("FindAnyByUser", ctx, userID).Return(nil, nil).Once()
	f.memberships.On("Create", ctx, mock.AnythingOfType("*models.Membership"), true).
		Return(repository.ErrDuplicateEntry).Once()
	f.memberships.On("FindAnyByUser", ctx, userID).Return(existing, nil).Once()
	f.rooms.On("GetByID", ctx, blocking.ID).Return(blocking, nil).Once()

	_, err := f.svc.JoinByCode(ctx, userID, "ABC234")

	assertKind(t, err, service.KindConflict)
	assert.Contains(t, err.Error(), "Chemistry Cohort")
	f.assertExpectations(t)
}

func TestApproveRequest_CounterFailureStillApproves(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOwner}
	room := testRoom(uuid.New())
	pending := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: uuid.New(), IsPending: true}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, owner.ID).Return(owner, nil).Once()
	f.memberships.On("Find", ctx, room.ID, owner.ID).Return(nil, nil).Once()
	f.memberships.On("GetByID", ctx, pending.ID).Return(pending, nil).Once()
	f.memberships.On("Accept", ctx, pending.ID).Return(nil).Once()
	f.rooms.On("AddCounts", ctx, room.ID, 1, 0).Return(errors.New("connection reset")).Once()

	// The acceptance committed; the drifted counter is ReconcileCounters'
	// problem, not a reason to report a failed approval.
	err := f.svc.ApproveRequest(ctx, room.ID, pending.ID, owner.ID)

	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestMarkPostRead_PostOutsideRoom(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()
	postID := uuid.New()
	membership := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: userID}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.memberships.On("Find", ctx, room.ID, userID).Return(membership, nil).Once()
	f.content.On("MarkRead", ctx, room.ID, postID, userID).Return(repository.ErrNotFound).Once()

	err := f.svc.MarkPostRead(ctx, room.ID, postID, userID)

	assertKind(t, err, service.KindNotFound)
	assert.EqualError(t, err, "Post not found")
	f.assertExpectations(t)
}

func TestMarkPostRead(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	userID := uuid.New()
	postID := uuid.New()
	membership := &models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: userID}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.memberships.On("Find", ctx, room.ID, userID).Return(membership, nil).Once()
	f.content.On("MarkRead", ctx, room.ID, postID, userID).Return(nil).Once()

	require.NoError(t, f.svc.MarkPostRead(ctx, room.ID, postID, userID))
	f.assertExpectations(t)
}

func TestListPendingRequests(t *testing.T) {
	f := newFixture(t, policy.Owner())
	ctx := context.Background()
	owner := &models.User{ID: uuid.New(), Role: models.RoleOwner}
	room := testRoom(uuid.New())
	requester := studentUser()
	pending := models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: requester.ID, IsPending: true}

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()
	f.users.On("GetByID", ctx, owner.ID).Return(owner, nil).Once()
	f.memberships.On("Find", ctx, room.ID, owner.ID).Return(nil, nil).Once()
	f.memberships.On("ListByRoom", ctx, room.ID, mock.MatchedBy(func(p *bool) bool {
		return p != nil && *p
	}), models.PageRequest{Page: 1, Limit: 10}).
		Return([]repository.MemberRecord{{Membership: pending, User: requester.Summary()}}, int64(1), nil).Once()

	requests, pagination, err := f.svc.ListPendingRequests(ctx, room.ID, owner.ID, models.PageRequest{})

	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, pending.ID, requests[0].ID)
	assert.Equal(t, requester.ID, requests[0].User.ID)
	assert.Equal(t, int64(1), pagination.TotalDocs)
	f.assertExpectations(t)
}

func TestMyRooms_TeacherPolicyFilters(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	userID := uuid.New()
	room := testRoom(uuid.New())
	record := repository.RoomMembershipRecord{
		Membership: models.Membership{ID: uuid.New(), RoomID: room.ID, UserID: userID, IsCR: true},
		Room:       *room,
		Creator:    models.UserSummary{ID: room.CreatorID, UserName: "prof"},
	}

	f.memberships.On("ListByUser", ctx, userID, mock.MatchedBy(func(filter repository.UserRoomFilter) bool {
		// Pending, hidden and archived rooms stay out of the main listing.
		return filter.Pending != nil && !*filter.Pending &&
			filter.Hidden != nil && !*filter.Hidden &&
			filter.Archived != nil && !*filter.Archived
	}), models.PageRequest{Page: 1, Limit: 10}).
		Return([]repository.RoomMembershipRecord{record}, int64(1), nil).Once()

	items, pagination, err := f.svc.MyRooms(ctx, userID, models.PageRequest{})

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, room.ID, items[0].ID)
	assert.Equal(t, room.JoinCode, items[0].JoinCode)
	assert.True(t, items[0].IsCR)
	assert.Equal(t, "prof", items[0].Creator.UserName)
	assert.Equal(t, int64(1), pagination.TotalDocs)
	f.assertExpectations(t)
}

func TestGetRoomDetails_DeletedRoomHidden(t *testing.T) {
	f := newFixture(t, policy.Teacher())
	ctx := context.Background()
	room := testRoom(uuid.New())
	room.IsDeleted = true

	f.rooms.On("GetByID", ctx, room.ID).Return(room, nil).Once()

	_, _, err := f.svc.GetRoomDetails(ctx, room.ID, uuid.New())

	assertKind(t, err, service.KindNotFound)
	assert.EqualError(t, err, "Room not found")
}
