package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-micropost/internal/event"
	"go-micropost/internal/model"
	"go-micropost/internal/storage"
)

type fakePostStore struct {
	posts  map[int64]model.Micropost
	nextID int64
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: make(map[int64]model.Micropost), nextID: 1}
}

func (s *fakePostStore) Create(_ context.Context, post model.Micropost) (model.Micropost, error) {
	post.ID = s.nextID
	s.nextID++
	s.posts[post.ID] = post
	return post, nil
}

func (s *fakePostStore) FindByID(_ context.Context, _ int64, id int64) (model.Micropost, error) {
	post, ok := s.posts[id]
	if !ok {
		return model.Micropost{}, model.ErrMicropostNotFound
	}
	return post, nil
}

func (s *fakePostStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.posts[id]; !ok {
		return model.ErrMicropostNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *fakePostStore) ListByUser(_ context.Context, _ int64, userID int64, _ int, _ int) ([]model.Micropost, int, error) {
	var out []model.Micropost
	for _, post := range s.posts {
		if post.UserID == userID {
			out = append(out, post)
		}
	}
	return out, len(out), nil
}

func (s *fakePostStore) Feed(_ context.Context, _ int64, _ int, _ int) ([]model.Micropost, int, error) {
	var out []model.Micropost
	for _, post := range s.posts {
		out = append(out, post)
	}
	return out, len(out), nil
}

type fakeLikeStore struct {
	liked map[[2]int64]bool
}

func newFakeLikeStore() *fakeLikeStore {
	return &fakeLikeStore{liked: make(map[[2]int64]bool)}
}

func (s *fakeLikeStore) Create(_ context.Context, userID int64, micropostID int64) error {
	key := [2]int64{userID, micropostID}
	if s.liked[key] {
		return model.ErrAlreadyLiked
	}
	s.liked[key] = true
	return nil
}

func (s *fakeLikeStore) Delete(_ context.Context, userID int64, micropostID int64) error {
	key := [2]int64{userID, micropostID}
	if !s.liked[key] {
		return model.ErrNotLiked
	}
	delete(s.liked, key)
	return nil
}

type fakeCommentStore struct {
	comments map[int64]model.Comment
	nextID   int64
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: make(map[int64]model.Comment), nextID: 1}
}

func (s *fakeCommentStore) Create(_ context.Context, c model.Comment) (model.Comment, error) {
	c.ID = s.nextID
	s.nextID++
	s.comments[c.ID] = c
	return c, nil
}

func (s *fakeCommentStore) FindByID(_ context.Context, id int64) (model.Comment, error) {
	c, ok := s.comments[id]
	if !ok {
		return model.Comment{}, model.ErrCommentNotFound
	}
	return c, nil
}

func (s *fakeCommentStore) ListByMicropost(_ context.Context, micropostID int64, _ int, _ int) ([]model.Comment, int, error) {
	var out []model.Comment
	for _, c := range s.comments {
		if c.MicropostID == micropostID {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (s *fakeCommentStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.comments[id]; !ok {
		return model.ErrCommentNotFound
	}
	delete(s.comments, id)
	return nil
}

func claimsFor(id int64, name string, roles ...model.Role) *model.Claims {
	if len(roles) == 0 {
		roles = []model.Role{model.RoleGeneral}
	}
	return &model.Claims{UserID: id, Name: name, Roles: model.NewRoleSet(roles...)}
}

func newMicropostService(t *testing.T) (*MicropostService, *fakePostStore, *fakeCommentStore) {
	t.Helper()
	media, err := storage.New(t.TempDir())
	require.NoError(t, err)

	posts := newFakePostStore()
	comments := newFakeCommentStore()
	svc := NewMicropostService(posts, newFakeLikeStore(), comments, media, event.NewBus())
	return svc, posts, comments
}

func TestMicropostService_Create(t *testing.T) {
	svc, _, _ := newMicropostService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, claimsFor(1, "Alice"), "  hello world  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", post.Content)
	assert.Equal(t, int64(1), post.UserID)
	assert.Equal(t, "Alice", post.UserName)
}

func TestMicropostService_Create_Validation(t *testing.T) {
	svc, _, _ := newMicropostService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, claimsFor(1, "Alice"), "   ", nil)
	assertStatus(t, err, 400)

	_, err = svc.Create(ctx, claimsFor(1, "Alice"), strings.Repeat("a", contentMaxChars+1), nil)
	assertStatus(t, err, 400)

	// Exactly at the limit is fine.
	_, err = svc.Create(ctx, claimsFor(1, "Alice"), strings.Repeat("a", contentMaxChars), nil)
	assert.NoError(t, err)
}

func TestMicropostService_Create_RejectsNonImage(t *testing.T) {
	svc, _, _ := newMicropostService(t)

	_, err := svc.Create(context.Background(), claimsFor(1, "Alice"), "hello",
		strings.NewReader("definitely not an image"))
	assertStatus(t, err, 415)
}

func TestMicropostService_Delete_Authorization(t *testing.T) {
	svc, posts, _ := newMicropostService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, claimsFor(1, "Alice"), "mine", nil)
	require.NoError(t, err)

	t.Run("stranger denied", func(t *testing.T) {
		err := svc.Delete(ctx, claimsFor(2, "Bob"), post.ID)
		assertStatus(t, err, 403)
	})

	t.Run("admin allowed", func(t *testing.T) {
		err := svc.Delete(ctx, claimsFor(3, "Root", model.RoleAdmin), post.ID)
		require.NoError(t, err)
		assert.Empty(t, posts.posts)
	})

	t.Run("missing post", func(t *testing.T) {
		err := svc.Delete(ctx, claimsFor(1, "Alice"), 999)
		assert.ErrorIs(t, err, model.ErrMicropostNotFound)
	})
}

func TestMicropostService_Delete_Author(t *testing.T) {
	svc, posts, _ := newMicropostService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, claimsFor(1, "Alice"), "mine", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, claimsFor(1, "Alice"), post.ID))
	assert.Empty(t, posts.posts)
}

func TestMicropostService_LikeUnlike(t *testing.T) {
	svc, _, _ := newMicropostService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, claimsFor(1, "Alice"), "likeable", nil)
	require.NoError(t, err)

	bob := claimsFor(2, "Bob")
	require.NoError(t, svc.Like(ctx, bob, post.ID))

	// Liking twice is a conflict, not a no-op.
	err = svc.Like(ctx, bob, post.ID)
	assertStatus(t, err, 409)

	require.NoError(t, svc.Unlike(ctx, bob, post.ID))
	err = svc.Unlike(ctx, bob, post.ID)
	assertStatus(t, err, 404)
}

func TestMicropostService_Like_MissingPost(t *testing.T) {
	svc, _, _ := newMicropostService(t)

	err := svc.Like(context.Background(), claimsFor(1, "Alice"), 999)
	assert.ErrorIs(t, err, model.ErrMicropostNotFound)
}

func TestMicropostService_Comments(t *testing.T) {
	svc, _, _ := newMicropostService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, claimsFor(1, "Alice"), "post", nil)
	require.NoError(t, err)

	comment, err := svc.AddComment(ctx, claimsFor(2, "Bob"), post.ID, "nice one")
	require.NoError(t, err)
	assert.Equal(t, "nice one", comment.Content)
	assert.Equal(t, int64(2), comment.UserID)

	listed, total, err := svc.ListComments(ctx, post.ID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listed, 1)

	_, err = svc.AddComment(ctx, claimsFor(2, "Bob"), 999, "orphan")
	assert.ErrorIs(t, err, model.ErrMicropostNotFound)
}

func TestMicropostService_DeleteComment_Permissions(t *testing.T) {
	svc, _, comments := newMicropostService(t)
	ctx := context.Background()

	post, err := svc.Create(ctx, claimsFor(1, "Alice"), "post", nil)
	require.NoError(t, err)

	addComment := func(t *testing.T) model.Comment {
		t.Helper()
		c, err := svc.AddComment(ctx, claimsFor(2, "Bob"), post.ID, "hi")
		require.NoError(t, err)
		return c
	}

	t.Run("comment author allowed", func(t *testing.T) {
		c := addComment(t)
		require.NoError(t, svc.DeleteComment(ctx, claimsFor(2, "Bob"), c.ID))
	})

	t.Run("post author allowed", func(t *testing.T) {
		c := addComment(t)
		require.NoError(t, svc.DeleteComment(ctx, claimsFor(1, "Alice"), c.ID))
	})

	t.Run("admin allowed", func(t *testing.T) {
		c := addComment(t)
		require.NoError(t, svc.DeleteComment(ctx, claimsFor(3, "Root", model.RoleAdmin), c.ID))
	})

	t.Run("stranger denied", func(t *testing.T) {
		c := addComment(t)
		err := svc.DeleteComment(ctx, claimsFor(4, "Mallory"), c.ID)
		assertStatus(t, err, 403)
		_, err = comments.FindByID(ctx, c.ID)
		assert.NoError(t, err)
	})
}
