package event

type Type string

const (
	TypePostCreated  Type = "post.created"
	TypePostDeleted  Type = "post.deleted"
	TypePostLiked    Type = "post.liked"
	TypePostUnliked  Type = "post.unliked"
	TypeCommentAdded Type = "comment.added"
	TypeUserFollowed Type = "user.followed"
	TypeUserJoined   Type = "user.joined"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   int64  `json:"actor_id,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
