// Package mocks provides testify mocks for the repository interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/talimuddin/roomhub/internal/models"
	"github.com/talimuddin/roomhub/internal/repository"
)

type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	args := m.Called(ctx, id)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *RoomRepository) GetByJoinCode(ctx context.Context, code string) (*models.Room, error) {
	args := m.Called(ctx, code)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *RoomRepository) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *RoomRepository) UpdateFields(ctx context.Context, id uuid.UUID, patch repository.RoomPatch) (*models.Room, error) {
	args := m.Called(ctx, id, patch)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *RoomRepository) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	args := m.Called(ctx, id, archived)
	return args.Error(0)
}

func (m *RoomRepository) SetCoverImage(ctx context.Context, id uuid.UUID, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}

func (m *RoomRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RoomRepository) AddCounts(ctx context.Context, id uuid.UUID, members, posts int) error {
	args := m.Called(ctx, id, members, posts)
	return args.Error(0)
}

func (m *RoomRepository) ReconcileCounters(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	args := m.Called(ctx, id)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

type MembershipRepository struct {
	mock.Mock
}

func (m *MembershipRepository) Find(ctx context.Context, roomID, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, roomID, userID)
	membership, _ := args.Get(0).(*models.Membership)
	return membership, args.Error(1)
}

func (m *MembershipRepository) FindAnyByUser(ctx context.Context, userID uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, userID)
	membership, _ := args.Get(0).(*models.Membership)
	return membership, args.Error(1)
}

func (m *MembershipRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	args := m.Called(ctx, id)
	membership, _ := args.Get(0).(*models.Membership)
	return membership, args.Error(1)
}

func (m *MembershipRepository) Create(ctx context.Context, membership *models.Membership, exclusive bool) error {
	args := m.Called(ctx, membership, exclusive)
	return args.Error(0)
}

func (m *MembershipRepository) Accept(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MembershipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MembershipRepository) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	args := m.Called(ctx, id, hidden)
	return args.Error(0)
}

func (m *MembershipRepository) SetFlags(ctx context.Context, id uuid.UUID, isAdmin, isCR *bool) error {
	args := m.Called(ctx, id, isAdmin, isCR)
	return args.Error(0)
}

func (m *MembershipRepository) ListByRoom(ctx context.Context, roomID uuid.UUID, pendingOnly *bool, page models.PageRequest) ([]repository.MemberRecord, int64, error) {
	args := m.Called(ctx, roomID, pendingOnly, page)
	records, _ := args.Get(0).([]repository.MemberRecord)
	return records, args.Get(1).(int64), args.Error(2)
}

func (m *MembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID, filter repository.UserRoomFilter, page models.PageRequest) ([]repository.RoomMembershipRecord, int64, error) {
	args := m.Called(ctx, userID, filter, page)
	records, _ := args.Get(0).([]repository.RoomMembershipRecord)
	return records, args.Get(1).(int64), args.Error(2)
}

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) FindByRole(ctx context.Context, role models.GlobalRole) (*models.User, error) {
	args := m.Called(ctx, role)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

type PostRepository struct {
	mock.Mock
}

func (m *PostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *PostRepository) ListByRoom(ctx context.Context, roomID uuid.UUID, page models.PageRequest) ([]repository.PostRecord, int64, error) {
	args := m.Called(ctx, roomID, page)
	records, _ := args.Get(0).([]repository.PostRecord)
	return records, args.Get(1).(int64), args.Error(2)
}

func (m *PostRepository) ReadMap(ctx context.Context, viewerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, viewerID, postIDs)
	readMap, _ := args.Get(0).(map[uuid.UUID]bool)
	return readMap, args.Error(1)
}

func (m *PostRepository) MarkRead(ctx context.Context, roomID, postID, viewerID uuid.UUID) error {
	args := m.Called(ctx, roomID, postID, viewerID)
	return args.Error(0)
}
