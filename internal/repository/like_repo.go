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

type LikeRepository struct {
	pool *pgxpool.Pool
}

func NewLikeRepository(pool *pgxpool.Pool) *LikeRepository {
	return &LikeRepository{pool: pool}
}

func (r *LikeRepository) Create(ctx context.Context, userID int64, micropostID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO likes (user_id, micropost_id, created_at) VALUES ($1, $2, $3)`,
		userID, micropostID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrAlreadyLiked
		}
		return fmt.Errorf("create like: %w", err)
	}
	return nil
}

func (r *LikeRepository) Delete(ctx context.Context, userID int64, micropostID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND micropost_id = $2`,
		userID, micropostID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotLiked
	}
	return nil
}
