package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talimuddin/roomhub/internal/models"
	"github.com/talimuddin/roomhub/internal/repository"
)

type PostStore struct {
	pool *pgxpool.Pool
}

func NewPostStore(pool *pgxpool.Pool) *PostStore {
	return &PostStore{pool: pool}
}

func (s *PostStore) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, room_id, author_id, body, is_deleted, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, false, now())
		RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, query, post.RoomID, post.AuthorID, post.Body).
		Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *PostStore) ListByRoom(ctx context.Context, roomID uuid.UUID, page models.PageRequest) ([]repository.PostRecord, int64, error) {
	query := `
		SELECT p.id, p.room_id, p.author_id, p.body, p.is_deleted, p.created_at,
		       u.id, u.user_name, u.full_name, u.avatar
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.room_id = $1 AND NOT p.is_deleted
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, roomID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	records := make([]repository.PostRecord, 0)
	for rows.Next() {
		var rec repository.PostRecord
		if err := rows.Scan(
			&rec.Post.ID,
			&rec.Post.RoomID,
			&rec.Post.AuthorID,
			&rec.Post.Body,
			&rec.Post.IsDeleted,
			&rec.Post.CreatedAt,
			&rec.Author.ID,
			&rec.Author.UserName,
			&rec.Author.FullName,
			&rec.Author.Avatar,
		); err != nil {
			return nil, 0, fmt.Errorf("scan post: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate posts: %w", err)
	}

	var total int64
	countQuery := `SELECT count(*) FROM posts WHERE room_id = $1 AND NOT is_deleted`
	if err := s.pool.QueryRow(ctx, countQuery, roomID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	return records, total, nil
}

func (s *PostStore) ReadMap(ctx context.Context, viewerID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	read := make(map[uuid.UUID]bool, len(postIDs))
	if len(postIDs) == 0 {
		return read, nil
	}

	query := `SELECT post_id FROM post_reads WHERE user_id = $1 AND post_id = ANY($2)`

	rows, err := s.pool.Query(ctx, query, viewerID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load read marks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan read mark: %w", err)
		}
		read[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate read marks: %w", err)
	}

	return read, nil
}

func (s *PostStore) MarkRead(ctx context.Context, roomID, postID, viewerID uuid.UUID) error {
	// The post must live in the given room; read marks never cross rooms.
	var exists bool
	existsQuery := `
		SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1 AND room_id = $2 AND NOT is_deleted)`
	if err := s.pool.QueryRow(ctx, existsQuery, postID, roomID).Scan(&exists); err != nil {
		return fmt.Errorf("check post: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}

	// ON CONFLICT DO NOTHING: marking a post read twice is a no-op.
	query := `
		INSERT INTO post_reads (post_id, user_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (post_id, user_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, postID, viewerID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}
