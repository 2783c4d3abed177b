package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-micropost/internal/model"
)

func (s *fakeUserStore) ReplaceRoles(_ context.Context, id int64, roles model.RoleSet) error {
	u, ok := s.byID[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.Roles = roles
	s.byID[id] = u
	s.byEmail[u.Email] = u
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id int64) error {
	u, ok := s.byID[id]
	if !ok {
		return model.ErrUserNotFound
	}
	delete(s.byID, id)
	delete(s.byEmail, u.Email)
	return nil
}

func (s *fakeUserStore) List(_ context.Context, _ int, _ int) ([]model.Profile, int, error) {
	var out []model.Profile
	for _, u := range s.byID {
		out = append(out, u.Profile())
	}
	return out, len(out), nil
}

type fakeRankingStore struct{}

func (fakeRankingStore) TopPosters(_ context.Context, _ int) ([]model.PosterRank, error) {
	return []model.PosterRank{{UserID: 1, Name: "Alice", PostCount: 3}}, nil
}

func (fakeRankingStore) MostLiked(_ context.Context, _ int) ([]model.LikedPostRank, error) {
	return nil, nil
}

type fakeFollowRankStore struct{}

func (fakeFollowRankStore) MostFollowed(_ context.Context, _ int) ([]model.FollowedRank, error) {
	return []model.FollowedRank{{UserID: 1, Name: "Alice", FollowerCount: 2}}, nil
}

type fakeAuditStore struct {
	entries []model.AuditEntry
}

func (s *fakeAuditStore) Append(_ context.Context, entry model.AuditEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeAuditStore) List(_ context.Context, _ int, _ int) ([]model.AuditEntry, int, error) {
	return s.entries, len(s.entries), nil
}

func adminClaims(id int64, name string) *model.Claims {
	return &model.Claims{UserID: id, Name: name, Roles: model.NewRoleSet(model.RoleGeneral, model.RoleAdmin)}
}

func newAdminService(users *fakeUserStore) (*AdminService, *fakeAuditStore) {
	audit := &fakeAuditStore{}
	return NewAdminService(users, fakeRankingStore{}, fakeFollowRankStore{}, audit), audit
}

func TestAdminService_ReplaceRoles(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "admin", "bob")
	svc, audit := newAdminService(users)
	ctx := context.Background()

	profile, err := svc.ReplaceRoles(ctx, adminClaims(seeded[0].ID, "admin"), seeded[1].ID, []string{"general", "admin"})
	require.NoError(t, err)
	assert.True(t, profile.Roles.Has(model.RoleAdmin))

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "roles.replace", audit.entries[0].Action)
	assert.Equal(t, seeded[1].ID, audit.entries[0].TargetID)
}

func TestAdminService_ReplaceRoles_UnknownRole(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "admin", "bob")
	svc, _ := newAdminService(users)

	_, err := svc.ReplaceRoles(context.Background(), adminClaims(seeded[0].ID, "admin"), seeded[1].ID, []string{"superuser"})
	assertStatus(t, err, 400)
}

func TestAdminService_ReplaceRoles_CannotDemoteSelf(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "admin")
	svc, audit := newAdminService(users)
	ctx := context.Background()
	actor := adminClaims(seeded[0].ID, "admin")

	_, err := svc.ReplaceRoles(ctx, actor, actor.UserID, []string{"general"})
	assertStatus(t, err, 403)
	assert.Empty(t, audit.entries)

	// Keeping admin while editing own roles is allowed.
	_, err = svc.ReplaceRoles(ctx, actor, actor.UserID, []string{"general", "admin"})
	assert.NoError(t, err)
}

func TestAdminService_DeleteUser(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "admin", "bob")
	svc, audit := newAdminService(users)
	ctx := context.Background()
	actor := adminClaims(seeded[0].ID, "admin")

	require.NoError(t, svc.DeleteUser(ctx, actor, seeded[1].ID))
	_, err := users.FindByID(ctx, seeded[1].ID)
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "user.delete", audit.entries[0].Action)
}

func TestAdminService_DeleteUser_Self(t *testing.T) {
	users := newFakeUserStore()
	seeded := seedUsers(users, "admin")
	svc, _ := newAdminService(users)
	actor := adminClaims(seeded[0].ID, "admin")

	err := svc.DeleteUser(context.Background(), actor, actor.UserID)
	assertStatus(t, err, 403)

	_, err = users.FindByID(context.Background(), actor.UserID)
	assert.NoError(t, err)
}

func TestAdminService_Rankings(t *testing.T) {
	users := newFakeUserStore()
	svc, _ := newAdminService(users)

	rankings, err := svc.Rankings(context.Background())
	require.NoError(t, err)
	assert.Len(t, rankings.TopPosters, 1)
	assert.Len(t, rankings.MostFollowed, 1)
	assert.Empty(t, rankings.MostLiked)
}
