// Package content is the post collaborator. The room service hands it a
// (room, author) target after membership is confirmed and never touches
// post storage directly.
package content

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/talimuddin/roomhub/internal/models"
	"github.com/talimuddin/roomhub/internal/repository"
)

type Service struct {
	posts repository.PostRepository
}

func NewService(posts repository.PostRepository) *Service {
	return &Service{posts: posts}
}

func (s *Service) CreatePost(ctx context.Context, roomID, authorID uuid.UUID, body string) (*models.Post, error) {
	post := &models.Post{
		RoomID:   roomID,
		AuthorID: authorID,
		Body:     body,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (s *Service) ListPosts(ctx context.Context, roomID uuid.UUID, page models.PageRequest) ([]repository.PostRecord, int64, error) {
	return s.posts.ListByRoom(ctx, roomID, page)
}

func (s *Service) ReadMap(ctx context.Context, viewerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	return s.posts.ReadMap(ctx, viewerID, postIDs)
}

// MarkRead records a read mark for a post that belongs to the given room.
func (s *Service) MarkRead(ctx context.Context, roomID, postID, viewerID uuid.UUID) error {
	return s.posts.MarkRead(ctx, roomID, postID, viewerID)
}
