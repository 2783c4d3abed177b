package service

import (
	"context"
	"errors"

	"go-micropost/internal/event"
	"go-micropost/internal/model"
	"go-micropost/pkg/apierror"
)

type relationshipStore interface {
	Create(ctx context.Context, followerID int64, followedID int64) error
	Delete(ctx context.Context, followerID int64, followedID int64) error
	Exists(ctx context.Context, followerID int64, followedID int64) (bool, error)
	Followers(ctx context.Context, userID int64, limit int, offset int) ([]model.Profile, int, error)
	Following(ctx context.Context, userID int64, limit int, offset int) ([]model.Profile, int, error)
}

type followTargetStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
}

type RelationshipService struct {
	relationships relationshipStore
	users         followTargetStore
	bus           event.Bus
}

func NewRelationshipService(relationships relationshipStore, users followTargetStore, bus event.Bus) *RelationshipService {
	return &RelationshipService{relationships: relationships, users: users, bus: bus}
}

func (s *RelationshipService) Follow(ctx context.Context, followerID int64, followedID int64) error {
	if followerID == followedID {
		return apierror.BadRequest("cannot follow yourself", "")
	}

	if _, err := s.users.FindByID(ctx, followedID); err != nil {
		return err
	}

	err := s.relationships.Create(ctx, followerID, followedID)
	if errors.Is(err, model.ErrAlreadyFollowing) {
		return apierror.Conflict("already following this user", "")
	}
	if err != nil {
		return err
	}

	s.bus.Publish(event.New(event.TypeUserFollowed, followerID, map[string]any{"followed_id": followedID}))
	return nil
}

func (s *RelationshipService) Unfollow(ctx context.Context, followerID int64, followedID int64) error {
	err := s.relationships.Delete(ctx, followerID, followedID)
	if errors.Is(err, model.ErrNotFollowing) {
		return apierror.NotFound("not following this user", "")
	}
	return err
}

func (s *RelationshipService) IsFollowing(ctx context.Context, followerID int64, followedID int64) (bool, error) {
	return s.relationships.Exists(ctx, followerID, followedID)
}

func (s *RelationshipService) Followers(ctx context.Context, userID int64, limit int, offset int) ([]model.Profile, int, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.relationships.Followers(ctx, userID, limit, offset)
}

func (s *RelationshipService) Following(ctx context.Context, userID int64, limit int, offset int) ([]model.Profile, int, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, 0, err
	}
	return s.relationships.Following(ctx, userID, limit, offset)
}
