package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-micropost/internal/model"
	"go-micropost/pkg/apierror"
)

const rankingLimit = 10

type adminUserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	ReplaceRoles(ctx context.Context, id int64, roles model.RoleSet) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit int, offset int) ([]model.Profile, int, error)
}

type rankingStore interface {
	TopPosters(ctx context.Context, limit int) ([]model.PosterRank, error)
	MostLiked(ctx context.Context, limit int) ([]model.LikedPostRank, error)
}

type followRankStore interface {
	MostFollowed(ctx context.Context, limit int) ([]model.FollowedRank, error)
}

type auditStore interface {
	Append(ctx context.Context, entry model.AuditEntry) error
	List(ctx context.Context, limit int, offset int) ([]model.AuditEntry, int, error)
}

// AdminService implements the admin-only surface: user management, role
// assignment, rankings and the audit trail of admin actions.
type AdminService struct {
	users     adminUserStore
	posts     rankingStore
	relations followRankStore
	audit     auditStore
}

func NewAdminService(users adminUserStore, posts rankingStore, relations followRankStore, audit auditStore) *AdminService {
	return &AdminService{users: users, posts: posts, relations: relations, audit: audit}
}

func (s *AdminService) ListUsers(ctx context.Context, limit int, offset int) ([]model.Profile, int, error) {
	return s.users.List(ctx, limit, offset)
}

// ReplaceRoles swaps a user's role set. Admins cannot strip their own
// admin role, which keeps at least one reachable admin account.
func (s *AdminService) ReplaceRoles(ctx context.Context, actor *model.Claims, userID int64, roleNames []string) (model.Profile, error) {
	roles := make([]model.Role, 0, len(roleNames))
	for _, name := range roleNames {
		role := model.ParseRole(name)
		if !role.Valid() {
			return model.Profile{}, apierror.BadRequest("unknown role", name)
		}
		roles = append(roles, role)
	}
	roleSet := model.NewRoleSet(roles...)

	if userID == actor.UserID && !roleSet.Has(model.RoleAdmin) {
		return model.Profile{}, apierror.Forbidden("cannot remove your own admin role")
	}

	if err := s.users.ReplaceRoles(ctx, userID, roleSet); err != nil {
		return model.Profile{}, err
	}

	s.record(ctx, actor, "roles.replace", userID, strings.Join(roleSet.Strings(), ","))

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	return user.Profile(), nil
}

func (s *AdminService) DeleteUser(ctx context.Context, actor *model.Claims, userID int64) error {
	if userID == actor.UserID {
		return apierror.Forbidden("cannot delete your own account")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	s.record(ctx, actor, "user.delete", userID, "")
	return nil
}

func (s *AdminService) Rankings(ctx context.Context) (model.Rankings, error) {
	topPosters, err := s.posts.TopPosters(ctx, rankingLimit)
	if err != nil {
		return model.Rankings{}, fmt.Errorf("load top posters: %w", err)
	}

	mostLiked, err := s.posts.MostLiked(ctx, rankingLimit)
	if err != nil {
		return model.Rankings{}, fmt.Errorf("load most liked: %w", err)
	}

	mostFollowed, err := s.relations.MostFollowed(ctx, rankingLimit)
	if err != nil {
		return model.Rankings{}, fmt.Errorf("load most followed: %w", err)
	}

	return model.Rankings{
		TopPosters:   topPosters,
		MostLiked:    mostLiked,
		MostFollowed: mostFollowed,
	}, nil
}

func (s *AdminService) AuditTrail(ctx context.Context, limit int, offset int) ([]model.AuditEntry, int, error) {
	return s.audit.List(ctx, limit, offset)
}

// record appends an audit entry; audit failures must not fail the admin
// action itself, they are logged by the repository caller instead.
func (s *AdminService) record(ctx context.Context, actor *model.Claims, action string, targetID int64, details string) {
	_ = s.audit.Append(ctx, model.AuditEntry{
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		Action:    action,
		TargetID:  targetID,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
}
