package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-micropost/internal/model"
)

type MicropostRepository struct {
	pool *pgxpool.Pool
}

func NewMicropostRepository(pool *pgxpool.Pool) *MicropostRepository {
	return &MicropostRepository{pool: pool}
}

const micropostColumns = `
	m.id, m.user_id, u.name, m.content, m.image_path, m.created_at,
	(SELECT COUNT(*) FROM likes l WHERE l.micropost_id = m.id),
	(SELECT COUNT(*) FROM comments c WHERE c.micropost_id = m.id),
	EXISTS(SELECT 1 FROM likes l WHERE l.micropost_id = m.id AND l.user_id = $1)`

func (r *MicropostRepository) Create(ctx context.Context, post model.Micropost) (model.Micropost, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO microposts (user_id, content, image_path, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		post.UserID, post.Content, post.ImagePath, post.CreatedAt).Scan(&post.ID)
	if err != nil {
		return model.Micropost{}, fmt.Errorf("create micropost: %w", err)
	}
	post.HasImage = post.ImagePath != ""
	return post, nil
}

// FindByID loads a post with counts; viewerID drives the liked_by_me flag.
func (r *MicropostRepository) FindByID(ctx context.Context, viewerID int64, id int64) (model.Micropost, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+micropostColumns+`
		 FROM microposts m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.id = $2`, viewerID, id)

	post, err := scanMicropost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Micropost{}, model.ErrMicropostNotFound
	}
	if err != nil {
		return model.Micropost{}, fmt.Errorf("find micropost: %w", err)
	}
	return post, nil
}

func (r *MicropostRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM microposts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete micropost: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrMicropostNotFound
	}
	return nil
}

func (r *MicropostRepository) ListByUser(ctx context.Context, viewerID int64, userID int64, limit int, offset int) ([]model.Micropost, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM microposts WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count user microposts: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+micropostColumns+`
		 FROM microposts m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.user_id = $2
		 ORDER BY m.created_at DESC, m.id DESC
		 LIMIT $3 OFFSET $4`, viewerID, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list user microposts: %w", err)
	}
	defer rows.Close()

	posts, err := collectMicroposts(rows)
	return posts, total, err
}

// Feed returns the viewer's own posts plus posts from followed users,
// newest first.
func (r *MicropostRepository) Feed(ctx context.Context, viewerID int64, limit int, offset int) ([]model.Micropost, int, error) {
	const feedFilter = `
		m.user_id = $1
		OR m.user_id IN (SELECT followed_id FROM relationships WHERE follower_id = $1)`

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM microposts m WHERE `+feedFilter, viewerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feed: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+micropostColumns+`
		 FROM microposts m
		 JOIN users u ON u.id = m.user_id
		 WHERE `+feedFilter+`
		 ORDER BY m.created_at DESC, m.id DESC
		 LIMIT $2 OFFSET $3`, viewerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	posts, err := collectMicroposts(rows)
	return posts, total, err
}

func (r *MicropostRepository) TopPosters(ctx context.Context, limit int) ([]model.PosterRank, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.name, COUNT(m.id) AS post_count
		 FROM users u
		 JOIN microposts m ON m.user_id = u.id
		 GROUP BY u.id
		 ORDER BY post_count DESC, u.id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top posters: %w", err)
	}
	defer rows.Close()

	ranks := make([]model.PosterRank, 0, limit)
	for rows.Next() {
		var rank model.PosterRank
		if err := rows.Scan(&rank.UserID, &rank.Name, &rank.PostCount); err != nil {
			return nil, fmt.Errorf("scan poster rank: %w", err)
		}
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

func (r *MicropostRepository) MostLiked(ctx context.Context, limit int) ([]model.LikedPostRank, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.content, u.name, COUNT(l.user_id) AS like_count
		 FROM microposts m
		 JOIN users u ON u.id = m.user_id
		 JOIN likes l ON l.micropost_id = m.id
		 GROUP BY m.id, u.name
		 ORDER BY like_count DESC, m.id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("most liked: %w", err)
	}
	defer rows.Close()

	ranks := make([]model.LikedPostRank, 0, limit)
	for rows.Next() {
		var rank model.LikedPostRank
		if err := rows.Scan(&rank.MicropostID, &rank.Content, &rank.UserName, &rank.LikeCount); err != nil {
			return nil, fmt.Errorf("scan liked rank: %w", err)
		}
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

func scanMicropost(row pgx.Row) (model.Micropost, error) {
	var post model.Micropost
	err := row.Scan(&post.ID, &post.UserID, &post.UserName, &post.Content, &post.ImagePath,
		&post.CreatedAt, &post.LikeCount, &post.CommentCount, &post.LikedByMe)
	if err != nil {
		return model.Micropost{}, err
	}
	post.HasImage = post.ImagePath != ""
	return post, nil
}

func collectMicroposts(rows pgx.Rows) ([]model.Micropost, error) {
	posts := make([]model.Micropost, 0)
	for rows.Next() {
		post, err := scanMicropost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan micropost: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
