package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-micropost/internal/event"
	"go-micropost/internal/model"
)

type fakeRelationshipStore struct {
	edges map[[2]int64]bool
}

func newFakeRelationshipStore() *fakeRelationshipStore {
	return &fakeRelationshipStore{edges: make(map[[2]int64]bool)}
}

func (s *fakeRelationshipStore) Create(_ context.Context, followerID int64, followedID int64) error {
	key := [2]int64{followerID, followedID}
	if s.edges[key] {
		return model.ErrAlreadyFollowing
	}
	s.edges[key] = true
	return nil
}

func (s *fakeRelationshipStore) Delete(_ context.Context, followerID int64, followedID int64) error {
	key := [2]int64{followerID, followedID}
	if !s.edges[key] {
		return model.ErrNotFollowing
	}
	delete(s.edges, key)
	return nil
}

func (s *fakeRelationshipStore) Exists(_ context.Context, followerID int64, followedID int64) (bool, error) {
	return s.edges[[2]int64{followerID, followedID}], nil
}

func (s *fakeRelationshipStore) Followers(_ context.Context, userID int64, _ int, _ int) ([]model.Profile, int, error) {
	var out []model.Profile
	for key := range s.edges {
		if key[1] == userID {
			out = append(out, model.Profile{ID: key[0]})
		}
	}
	return out, len(out), nil
}

func (s *fakeRelationshipStore) Following(_ context.Context, userID int64, _ int, _ int) ([]model.Profile, int, error) {
	var out []model.Profile
	for key := range s.edges {
		if key[0] == userID {
			out = append(out, model.Profile{ID: key[1]})
		}
	}
	return out, len(out), nil
}

func newRelationshipService(users *fakeUserStore) *RelationshipService {
	return NewRelationshipService(newFakeRelationshipStore(), users, event.NewBus())
}

func seedUsers(store *fakeUserStore, names ...string) []model.User {
	out := make([]model.User, 0, len(names))
	for _, name := range names {
		u, _ := store.Create(context.Background(), model.User{
			Name:  name,
			Email: name + "@example.com",
			Roles: model.NewRoleSet(model.RoleGeneral),
		})
		out = append(out, u)
	}
	return out
}

func TestRelationshipService_Follow(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "alice", "bob")
	svc := newRelationshipService(users)
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, seeded[0].ID, seeded[1].ID))

	following, err := svc.IsFollowing(ctx, seeded[0].ID, seeded[1].ID)
	require.NoError(t, err)
	assert.True(t, following)

	// The edge is directed.
	reverse, err := svc.IsFollowing(ctx, seeded[1].ID, seeded[0].ID)
	require.NoError(t, err)
	assert.False(t, reverse)
}

func TestRelationshipService_Follow_Self(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "alice")
	svc := newRelationshipService(users)

	err := svc.Follow(context.Background(), seeded[0].ID, seeded[0].ID)
	assertStatus(t, err, 400)
}

func TestRelationshipService_Follow_MissingTarget(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "alice")
	svc := newRelationshipService(users)

	err := svc.Follow(context.Background(), seeded[0].ID, 999)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestRelationshipService_Follow_Duplicate(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "alice", "bob")
	svc := newRelationshipService(users)
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, seeded[0].ID, seeded[1].ID))
	err := svc.Follow(ctx, seeded[0].ID, seeded[1].ID)
	assertStatus(t, err, 409)
}

func TestRelationshipService_Unfollow(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "alice", "bob")
	svc := newRelationshipService(users)
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, seeded[0].ID, seeded[1].ID))
	require.NoError(t, svc.Unfollow(ctx, seeded[0].ID, seeded[1].ID))

	err := svc.Unfollow(ctx, seeded[0].ID, seeded[1].ID)
	assertStatus(t, err, 404)
}

func TestRelationshipService_Listings(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "alice", "bob", "carol")
	svc := newRelationshipService(users)
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, seeded[0].ID, seeded[2].ID))
	require.NoError(t, svc.Follow(ctx, seeded[1].ID, seeded[2].ID))

	followers, total, err := svc.Followers(ctx, seeded[2].ID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, followers, 2)

	following, total, err := svc.Following(ctx, seeded[0].ID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, following, 1)

	_, _, err = svc.Followers(ctx, 999, 20, 0)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}
