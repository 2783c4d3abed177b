package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-micropost/internal/model"
)

type RelationshipRepository struct {
	pool *pgxpool.Pool
}

func NewRelationshipRepository(pool *pgxpool.Pool) *RelationshipRepository {
	return &RelationshipRepository{pool: pool}
}

func (r *RelationshipRepository) Create(ctx context.Context, followerID int64, followedID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO relationships (follower_id, followed_id, created_at)
		 VALUES ($1, $2, $3)`,
		followerID, followedID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrAlreadyFollowing
		}
		return fmt.Errorf("create relationship: %w", err)
	}
	return nil
}

func (r *RelationshipRepository) Delete(ctx context.Context, followerID int64, followedID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM relationships WHERE follower_id = $1 AND followed_id = $2`,
		followerID, followedID)
	if err != nil {
		return fmt.Errorf("delete relationship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFollowing
	}
	return nil
}

func (r *RelationshipRepository) Exists(ctx context.Context, followerID int64, followedID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM relationships WHERE follower_id = $1 AND followed_id = $2)`,
		followerID, followedID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check relationship: %w", err)
	}
	return exists, nil
}

func (r *RelationshipRepository) Followers(ctx context.Context, userID int64, limit int, offset int) ([]model.Profile, int, error) {
	return r.listEdge(ctx,
		`SELECT COUNT(*) FROM relationships WHERE followed_id = $1`,
		`SELECT u.id, u.email, u.name, u.avatar_path <> '', u.created_at
		 FROM relationships r
		 JOIN users u ON u.id = r.follower_id
		 WHERE r.followed_id = $1
		 ORDER BY r.created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
}

func (r *RelationshipRepository) Following(ctx context.Context, userID int64, limit int, offset int) ([]model.Profile, int, error) {
	return r.listEdge(ctx,
		`SELECT COUNT(*) FROM relationships WHERE follower_id = $1`,
		`SELECT u.id, u.email, u.name, u.avatar_path <> '', u.created_at
		 FROM relationships r
		 JOIN users u ON u.id = r.followed_id
		 WHERE r.follower_id = $1
		 ORDER BY r.created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
}

func (r *RelationshipRepository) MostFollowed(ctx context.Context, limit int) ([]model.FollowedRank, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, COUNT(r.follower_id) AS follower_count
		 FROM users u
		 JOIN relationships r ON r.followed_id = u.id
		 GROUP BY u.id
		 ORDER BY follower_count DESC, u.id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("most followed: %w", err)
	}
	defer rows.Close()

	ranks := make([]model.FollowedRank, 0, limit)
	for rows.Next() {
		var rank model.FollowedRank
		if err := rows.Scan(&rank.UserID, &rank.Name, &rank.FollowerCount); err != nil {
			return nil, fmt.Errorf("scan followed rank: %w", err)
		}
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

func (r *RelationshipRepository) listEdge(ctx context.Context, countSQL string, listSQL string, userID int64, limit int, offset int) ([]model.Profile, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count relationships: %w", err)
	}

	rows, err := r.pool.Query(ctx, listSQL, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	users := make([]model.Profile, 0)
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.HasAvatar, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan profile: %w", err)
		}
		users = append(users, p)
	}
	return users, total, rows.Err()
}
