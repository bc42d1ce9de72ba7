package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talimuddin/roomhub/internal/models"
	"github.com/talimuddin/roomhub/internal/repository"
)

const roomColumns = `id, name, description, cover_image, room_type, join_code, creator_id,
	is_archived, is_deleted, members_count, posts_count,
	allow_member_posting, allow_comments, created_at, updated_at`

type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r models.Room
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.Description,
		&r.CoverImage,
		&r.RoomType,
		&r.JoinCode,
		&r.CreatorID,
		&r.IsArchived,
		&r.IsDeleted,
		&r.MembersCount,
		&r.PostsCount,
		&r.Settings.AllowMemberPosting,
		&r.Settings.AllowComments,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RoomStore) Create(ctx context.Context, room *models.Room) error {
	query := `
		INSERT INTO rooms (id, name, description, cover_image, room_type, join_code, creator_id,
			is_archived, is_deleted, members_count, posts_count,
			allow_member_posting, allow_comments, created_at, updated_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, $7, false, $8, 0, $9, $10, now(), now())
		RETURNING id, created_at, updated_at`

	err := s.pool.QueryRow(ctx, query,
		room.Name,
		room.Description,
		room.CoverImage,
		room.RoomType,
		room.JoinCode,
		room.CreatorID,
		room.IsArchived,
		room.MembersCount,
		room.Settings.AllowMemberPosting,
		room.Settings.AllowComments,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (s *RoomStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`

	room, err := scanRoom(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

func (s *RoomStore) GetByJoinCode(ctx context.Context, code string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE join_code = $1`

	room, err := scanRoom(s.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get room by join code: %w", err)
	}
	return room, nil
}

func (s *RoomStore) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM rooms WHERE join_code = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check join code: %w", err)
	}
	return exists, nil
}

// UpdateFields applies the non-nil fields of patch. Settings merge
// shallowly: an omitted toggle keeps its current value.
func (s *RoomStore) UpdateFields(ctx context.Context, id uuid.UUID, patch repository.RoomPatch) (*models.Room, error) {
	query := `
		UPDATE rooms SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			room_type = COALESCE($4, room_type),
			allow_member_posting = COALESCE($5, allow_member_posting),
			allow_comments = COALESCE($6, allow_comments),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + roomColumns

	room, err := scanRoom(s.pool.QueryRow(ctx, query, id,
		patch.Name, patch.Description, patch.RoomType,
		patch.AllowMemberPosting, patch.AllowComments,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update room: %w", err)
	}
	return room, nil
}

func (s *RoomStore) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	return s.setFlag(ctx, id, "is_archived", archived)
}

func (s *RoomStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return s.setFlag(ctx, id, "is_deleted", true)
}

func (s *RoomStore) setFlag(ctx context.Context, id uuid.UUID, column string, value bool) error {
	// column comes from the two callers above, never from input.
	query := fmt.Sprintf(`UPDATE rooms SET %s = $2, updated_at = now() WHERE id = $1`, column)

	tag, err := s.pool.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *RoomStore) SetCoverImage(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE rooms SET cover_image = $2, updated_at = now() WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, url)
	if err != nil {
		return fmt.Errorf("set cover image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddCounts is an atomic relative update; read-modify-write from the app
// would lose increments under concurrency.
func (s *RoomStore) AddCounts(ctx context.Context, id uuid.UUID, members, posts int) error {
	query := `
		UPDATE rooms
		SET members_count = members_count + $2,
		    posts_count = posts_count + $3,
		    updated_at = now()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, members, posts)
	if err != nil {
		return fmt.Errorf("adjust counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ReconcileCounters recomputes both counters from their source tables in a
// single statement. Increment/decrement remains the hot path; this repairs
// drift accumulated by crashed requests.
func (s *RoomStore) ReconcileCounters(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	query := `
		UPDATE rooms r SET
			members_count = (SELECT count(*) FROM memberships m
				WHERE m.room_id = r.id AND NOT m.is_pending),
			posts_count = (SELECT count(*) FROM posts p
				WHERE p.room_id = r.id AND NOT p.is_deleted),
			updated_at = now()
		WHERE r.id = $1
		RETURNING ` + roomColumns

	room, err := scanRoom(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("reconcile counters: %w", err)
	}
	return room, nil
}
