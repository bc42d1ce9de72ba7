package models_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talimuddin/roomhub/internal/models"
)

func TestResolveRoomRole_Precedence(t *testing.T) {
	creatorID := uuid.New()
	userID := uuid.New()
	room := &models.Room{ID: uuid.New(), CreatorID: creatorID}

	// Creator wins even over a membership that is also admin and CR.
	m := &models.Membership{RoomID: room.ID, UserID: creatorID, IsAdmin: true, IsCR: true}
	assert.Equal(t, models.RoomRoleCreator, models.ResolveRoomRole(room, m, creatorID))

	m = &models.Membership{RoomID: room.ID, UserID: userID, IsAdmin: true, IsCR: true}
	assert.Equal(t, models.RoomRoleAdmin, models.ResolveRoomRole(room, m, userID))

	m = &models.Membership{RoomID: room.ID, UserID: userID, IsCR: true}
	assert.Equal(t, models.RoomRoleCR, models.ResolveRoomRole(room, m, userID))

	m = &models.Membership{RoomID: room.ID, UserID: userID}
	assert.Equal(t, models.RoomRoleMember, models.ResolveRoomRole(room, m, userID))
}

func TestResolveRoomRole_NilMembership(t *testing.T) {
	creatorID := uuid.New()
	room := &models.Room{ID: uuid.New(), CreatorID: creatorID}

	assert.Equal(t, models.RoomRoleCreator, models.ResolveRoomRole(room, nil, creatorID))
	assert.Equal(t, models.RoomRoleMember, models.ResolveRoomRole(room, nil, uuid.New()))
}

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   models.PageRequest
		want models.PageRequest
	}{
		{"zero value", models.PageRequest{}, models.PageRequest{Page: 1, Limit: 10}},
		{"negative page", models.PageRequest{Page: -3, Limit: 20}, models.PageRequest{Page: 1, Limit: 20}},
		{"limit over cap", models.PageRequest{Page: 2, Limit: 500}, models.PageRequest{Page: 2, Limit: 100}},
		{"already valid", models.PageRequest{Page: 4, Limit: 25}, models.PageRequest{Page: 4, Limit: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestNewPagination(t *testing.T) {
	p := models.NewPagination(45, models.PageRequest{Page: 2, Limit: 10})

	assert.Equal(t, int64(45), p.TotalDocs)
	assert.Equal(t, 5, p.TotalPages)
	assert.True(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)

	p = models.NewPagination(45, models.PageRequest{Page: 5, Limit: 10})
	assert.False(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)

	p = models.NewPagination(0, models.PageRequest{Page: 1, Limit: 10})
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.False(t, p.HasPrevPage)
}

func TestRoomSerialization_OmitsSecrets(t *testing.T) {
	room := models.Room{
		ID:       uuid.New(),
		Name:     "Physics",
		JoinCode: "XYZ789",
	}

	raw, err := json.Marshal(room)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "XYZ789")
	assert.NotContains(t, string(raw), "is_deleted")
}

func TestUserSerialization_OmitsPasswordHash(t *testing.T) {
	user := models.User{ID: uuid.New(), Email: "a@b.c", PasswordHash: "bcrypt-hash"}

	raw, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "bcrypt-hash")
}
