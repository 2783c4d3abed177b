package model

import "time"

// Micropost is a short message posted by a user, optionally carrying an
// image attachment stored in the media store.
type Micropost struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	UserName     string    `json:"user_name"`
	Content      string    `json:"content"`
	ImagePath    string    `json:"-"`
	HasImage     bool      `json:"has_image"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	LikedByMe    bool      `json:"liked_by_me"`
	CreatedAt    time.Time `json:"created_at"`
}

type Comment struct {
	ID          int64     `json:"id"`
	MicropostID int64     `json:"micropost_id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ranking rows for the admin dashboard.
type PosterRank struct {
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	PostCount int    `json:"post_count"`
}

type LikedPostRank struct {
	MicropostID int64  `json:"micropost_id"`
	Content     string `json:"content"`
	UserName    string `json:"user_name"`
	LikeCount   int    `json:"like_count"`
}

type FollowedRank struct {
	UserID        int64  `json:"user_id"`
	Name          string `json:"name"`
	FollowerCount int    `json:"follower_count"`
}

type Rankings struct {
	TopPosters   []PosterRank    `json:"top_posters"`
	MostLiked    []LikedPostRank `json:"most_liked"`
	MostFollowed []FollowedRank  `json:"most_followed"`
}

// AuditEntry records an admin action for later review.
type AuditEntry struct {
	ID        int64     `json:"id"`
	ActorID   int64     `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Action    string    `json:"action"`
	TargetID  int64     `json:"target_id"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
