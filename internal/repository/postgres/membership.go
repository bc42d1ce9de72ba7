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

const membershipColumns = `id, room_id, user_id, is_pending, is_cr, is_admin, is_hidden, created_at`

type MembershipStore struct {
	pool *pgxpool.Pool
}

func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

func scanMembership(row pgx.Row) (*models.Membership, error) {
	var m models.Membership
	err := row.Scan(
		&m.ID,
		&m.RoomID,
		&m.UserID,
		&m.IsPending,
		&m.IsCR,
		&m.IsAdmin,
		&m.IsHidden,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MembershipStore) Find(ctx context.Context, roomID, userID uuid.UUID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE room_id = $1 AND user_id = $2`

	m, err := scanMembership(s.pool.QueryRow(ctx, query, roomID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return m, nil
}

func (s *MembershipStore) FindAnyByUser(ctx context.Context, userID uuid.UUID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE user_id = $1 LIMIT 1`

	m, err := scanMembership(s.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find membership by user: %w", err)
	}
	return m, nil
}

func (s *MembershipStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1`

	m, err := scanMembership(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// Create inserts the ledger row. With exclusive set, the insert only lands
// when the user holds no membership anywhere: the check and the insert run
// in one transaction behind a per-user advisory lock, so two concurrent
// joins for the same user into different rooms serialize instead of both
// passing a snapshot-level NOT EXISTS. The (room, user) pair constraint
// still guards same-room duplicates on both paths.
func (s *MembershipStore) Create(ctx context.Context, m *models.Membership, exclusive bool) error {
	if !exclusive {
		query := `
			INSERT INTO memberships (id, room_id, user_id, is_pending, is_cr, is_admin, is_hidden, created_at)
			VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, now())
			RETURNING id, created_at`

		err := s.pool.QueryRow(ctx, query,
			m.RoomID, m.UserID, m.IsPending, m.IsCR, m.IsAdmin, m.IsHidden,
		).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicateEntry
			}
			return fmt.Errorf("insert membership: %w", err)
		}
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin membership insert: %w", err)
	}
	defer tx.Rollback(ctx)

	// The lock key is derived from the user id alone, so all exclusive
	// inserts for one user queue behind each other regardless of room.
	// xact-scoped: released at commit/rollback, never leaked.
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1::text))`, m.UserID); err != nil {
		return fmt.Errorf("lock user ledger: %w", err)
	}

	query := `
		INSERT INTO memberships (id, room_id, user_id, is_pending, is_cr, is_admin, is_hidden, created_at)
		SELECT uuid_generate_v4(), $1, $2, $3, $4, $5, $6, now()
		WHERE NOT EXISTS (SELECT 1 FROM memberships WHERE user_id = $2)
		RETURNING id, created_at`

	err = tx.QueryRow(ctx, query,
		m.RoomID, m.UserID, m.IsPending, m.IsCR, m.IsAdmin, m.IsHidden,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		// Zero rows means the user already holds a membership somewhere;
		// a 23505 means the (room, user) pair already exists.
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("insert membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit membership insert: %w", err)
	}
	return nil
}

// Accept flips pending to accepted. The is_pending predicate makes the
// transition one-way: a second accept affects zero rows.
func (s *MembershipStore) Accept(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE memberships SET is_pending = false WHERE id = $1 AND is_pending`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("accept membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *MembershipStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *MembershipStore) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE memberships SET is_hidden = $2 WHERE id = $1`, id, hidden)
	if err != nil {
		return fmt.Errorf("set hidden: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *MembershipStore) SetFlags(ctx context.Context, id uuid.UUID, isAdmin, isCR *bool) error {
	query := `
		UPDATE memberships
		SET is_admin = COALESCE($2, is_admin),
		    is_cr = COALESCE($3, is_cr)
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, isAdmin, isCR)
	if err != nil {
		return fmt.Errorf("set flags: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *MembershipStore) ListByRoom(ctx context.Context, roomID uuid.UUID, pendingOnly *bool, page models.PageRequest) ([]repository.MemberRecord, int64, error) {
	query := `
		SELECT m.id, m.room_id, m.user_id, m.is_pending, m.is_cr, m.is_admin, m.is_hidden, m.created_at,
		       u.id, u.user_name, u.full_name, u.avatar
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1 AND ($2::bool IS NULL OR m.is_pending = $2)
		ORDER BY m.created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := s.pool.Query(ctx, query, roomID, pendingOnly, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	records := make([]repository.MemberRecord, 0)
	for rows.Next() {
		var rec repository.MemberRecord
		if err := rows.Scan(
			&rec.Membership.ID,
			&rec.Membership.RoomID,
			&rec.Membership.UserID,
			&rec.Membership.IsPending,
			&rec.Membership.IsCR,
			&rec.Membership.IsAdmin,
			&rec.Membership.IsHidden,
			&rec.Membership.CreatedAt,
			&rec.User.ID,
			&rec.User.UserName,
			&rec.User.FullName,
			&rec.User.Avatar,
		); err != nil {
			return nil, 0, fmt.Errorf("scan member: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate members: %w", err)
	}

	var total int64
	countQuery := `
		SELECT count(*) FROM memberships
		WHERE room_id = $1 AND ($2::bool IS NULL OR is_pending = $2)`
	if err := s.pool.QueryRow(ctx, countQuery, roomID, pendingOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}

	return records, total, nil
}

func (s *MembershipStore) ListByUser(ctx context.Context, userID uuid.UUID, filter repository.UserRoomFilter, page models.PageRequest) ([]repository.RoomMembershipRecord, int64, error) {
	query := `
		SELECT m.id, m.room_id, m.user_id, m.is_pending, m.is_cr, m.is_admin, m.is_hidden, m.created_at,
		       r.id, r.name, r.description, r.cover_image, r.room_type, r.join_code, r.creator_id,
		       r.is_archived, r.is_deleted, r.members_count, r.posts_count,
		       r.allow_member_posting, r.allow_comments, r.created_at, r.updated_at,
		       c.id, c.user_name, c.full_name, c.avatar
		FROM memberships m
		JOIN rooms r ON r.id = m.room_id AND NOT r.is_deleted
		JOIN users c ON c.id = r.creator_id
		WHERE m.user_id = $1
		  AND ($2::bool IS NULL OR m.is_pending = $2)
		  AND ($3::bool IS NULL OR m.is_hidden = $3)
		  AND ($4::bool IS NULL OR r.is_archived = $4)
		ORDER BY m.created_at DESC
		LIMIT $5 OFFSET $6`

	rows, err := s.pool.Query(ctx, query, userID,
		filter.Pending, filter.Hidden, filter.Archived,
		page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list rooms by user: %w", err)
	}
	defer rows.Close()

	records := make([]repository.RoomMembershipRecord, 0)
	for rows.Next() {
		var rec repository.RoomMembershipRecord
		if err := rows.Scan(
			&rec.Membership.ID,
			&rec.Membership.RoomID,
			&rec.Membership.UserID,
			&rec.Membership.IsPending,
			&rec.Membership.IsCR,
			&rec.Membership.IsAdmin,
			&rec.Membership.IsHidden,
			&rec.Membership.CreatedAt,
			&rec.Room.ID,
			&rec.Room.Name,
			&rec.Room.Description,
			&rec.Room.CoverImage,
			&rec.Room.RoomType,
			&rec.Room.JoinCode,
			&rec.Room.CreatorID,
			&rec.Room.IsArchived,
			&rec.Room.IsDeleted,
			&rec.Room.MembersCount,
			&rec.Room.PostsCount,
			&rec.Room.Settings.AllowMemberPosting,
			&rec.Room.Settings.AllowComments,
			&rec.Room.CreatedAt,
			&rec.Room.UpdatedAt,
			&rec.Creator.ID,
			&rec.Creator.UserName,
			&rec.Creator.FullName,
			&rec.Creator.Avatar,
		); err != nil {
			return nil, 0, fmt.Errorf("scan room by user: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rooms by user: %w", err)
	}

	var total int64
	countQuery := `
		SELECT count(*)
		FROM memberships m
		JOIN rooms r ON r.id = m.room_id AND NOT r.is_deleted
		WHERE m.user_id = $1
		  AND ($2::bool IS NULL OR m.is_pending = $2)
		  AND ($3::bool IS NULL OR m.is_hidden = $3)
		  AND ($4::bool IS NULL OR r.is_archived = $4)`
	if err := s.pool.QueryRow(ctx, countQuery, userID,
		filter.Pending, filter.Hidden, filter.Archived).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rooms by user: %w", err)
	}

	return records, total, nil
}
