//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-micropost/internal/config"
	"go-micropost/internal/event"
	"go-micropost/internal/handler"
	"go-micropost/internal/middleware"
	"go-micropost/internal/model"
	"go-micropost/internal/router"
	"go-micropost/internal/service"
	"go-micropost/internal/storage"
	"go-micropost/internal/token"
	"go-micropost/internal/websocket"
)

// state is a single in-memory backing store shared by the per-concern
// adapters below, so the full HTTP stack can run without Postgres.
type state struct {
	mu sync.Mutex

	users     map[int64]model.User
	posts     map[int64]model.Micropost
	comments  map[int64]model.Comment
	likes     map[[2]int64]bool
	relations map[[2]int64]bool
	audit     []model.AuditEntry
	nextUser  int64
	nextPost  int64
	nextComm  int64
	nextAudit int64
}

func newState() *state {
	return &state{
		users:     make(map[int64]model.User),
		posts:     make(map[int64]model.Micropost),
		comments:  make(map[int64]model.Comment),
		likes:     make(map[[2]int64]bool),
		relations: make(map[[2]int64]bool),
		nextUser:  1,
		nextPost:  1,
		nextComm:  1,
		nextAudit: 1,
	}
}

type usersStore struct{ *state }

func (s usersStore) FindByID(_ context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s usersStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s usersStore) Create(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return model.User{}, model.ErrEmailTaken
		}
	}
	u.ID = s.nextUser
	s.nextUser++
	s.users[u.ID] = u
	return u, nil
}

func (s usersStore) UpdateName(_ context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.Name = name
	s.users[id] = u
	return nil
}

func (s usersStore) UpdateAvatarPath(_ context.Context, id int64, avatarPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.AvatarPath = avatarPath
	s.users[id] = u
	return nil
}

func (s usersStore) ReplaceRoles(_ context.Context, id int64, roles model.RoleSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.Roles = roles
	s.users[id] = u
	return nil
}

func (s usersStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s usersStore) List(_ context.Context, _ int, _ int) ([]model.Profile, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Profile, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Profile())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

type postsStore struct{ *state }

func (s postsStore) Create(_ context.Context, post model.Micropost) (model.Micropost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.ID = s.nextPost
	s.nextPost++
	post.HasImage = post.ImagePath != ""
	s.posts[post.ID] = post
	return post, nil
}

func (s postsStore) FindByID(_ context.Context, viewerID int64, id int64) (model.Micropost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return model.Micropost{}, model.ErrMicropostNotFound
	}
	return s.decorate(post, viewerID), nil
}

func (s postsStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return model.ErrMicropostNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s postsStore) ListByUser(_ context.Context, viewerID int64, userID int64, _ int, _ int) ([]model.Micropost, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Micropost
	for _, post := range s.posts {
		if post.UserID == userID {
			out = append(out, s.decorate(post, viewerID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (s postsStore) Feed(_ context.Context, viewerID int64, _ int, _ int) ([]model.Micropost, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Micropost
	for _, post := range s.posts {
		if post.UserID == viewerID || s.relations[[2]int64{viewerID, post.UserID}] {
			out = append(out, s.decorate(post, viewerID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (s postsStore) TopPosters(_ context.Context, limit int) ([]model.PosterRank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int64]int)
	for _, post := range s.posts {
		counts[post.UserID]++
	}
	var out []model.PosterRank
	for userID, count := range counts {
		out = append(out, model.PosterRank{UserID: userID, Name: s.users[userID].Name, PostCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostCount > out[j].PostCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s postsStore) MostLiked(_ context.Context, limit int) ([]model.LikedPostRank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LikedPostRank
	for id, post := range s.posts {
		likeCount := 0
		for key := range s.likes {
			if key[1] == id {
				likeCount++
			}
		}
		if likeCount > 0 {
			out = append(out, model.LikedPostRank{
				MicropostID: id,
				Content:     post.Content,
				UserName:    post.UserName,
				LikeCount:   likeCount,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LikeCount > out[j].LikeCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// decorate fills the viewer-dependent fields; callers hold the lock.
func (s postsStore) decorate(post model.Micropost, viewerID int64) model.Micropost {
	for key := range s.likes {
		if key[1] == post.ID {
			post.LikeCount++
			if key[0] == viewerID {
				post.LikedByMe = true
			}
		}
	}
	for _, c := range s.comments {
		if c.MicropostID == post.ID {
			post.CommentCount++
		}
	}
	return post
}

type likesStore struct{ *state }

func (s likesStore) Create(_ context.Context, userID int64, micropostID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int64{userID, micropostID}
	if s.likes[key] {
		return model.ErrAlreadyLiked
	}
	s.likes[key] = true
	return nil
}

func (s likesStore) Delete(_ context.Context, userID int64, micropostID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int64{userID, micropostID}
	if !s.likes[key] {
		return model.ErrNotLiked
	}
	delete(s.likes, key)
	return nil
}

type commentsStore struct{ *state }

func (s commentsStore) Create(_ context.Context, c model.Comment) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextComm
	s.nextComm++
	s.comments[c.ID] = c
	return c, nil
}

func (s commentsStore) FindByID(_ context.Context, id int64) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		return model.Comment{}, model.ErrCommentNotFound
	}
	return c, nil
}

func (s commentsStore) ListByMicropost(_ context.Context, micropostID int64, _ int, _ int) ([]model.Comment, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Comment
	for _, c := range s.comments {
		if c.MicropostID == micropostID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s commentsStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return model.ErrCommentNotFound
	}
	delete(s.comments, id)
	return nil
}

type relationsStore struct{ *state }

func (s relationsStore) Create(_ context.Context, followerID int64, followedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int64{followerID, followedID}
	if s.relations[key] {
		return model.ErrAlreadyFollowing
	}
	s.relations[key] = true
	return nil
}

func (s relationsStore) Delete(_ context.Context, followerID int64, followedID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]int64{followerID, followedID}
	if !s.relations[key] {
		return model.ErrNotFollowing
	}
	delete(s.relations, key)
	return nil
}

func (s relationsStore) Exists(_ context.Context, followerID int64, followedID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relations[[2]int64{followerID, followedID}], nil
}

func (s relationsStore) Followers(_ context.Context, userID int64, _ int, _ int) ([]model.Profile, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Profile
	for key := range s.relations {
		if key[1] == userID {
			out = append(out, s.users[key[0]].Profile())
		}
	}
	return out, len(out), nil
}

func (s relationsStore) Following(_ context.Context, userID int64, _ int, _ int) ([]model.Profile, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Profile
	for key := range s.relations {
		if key[0] == userID {
			out = append(out, s.users[key[1]].Profile())
		}
	}
	return out, len(out), nil
}

func (s relationsStore) MostFollowed(_ context.Context, limit int) ([]model.FollowedRank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int64]int)
	for key := range s.relations {
		counts[key[1]]++
	}
	var out []model.FollowedRank
	for userID, count := range counts {
		out = append(out, model.FollowedRank{UserID: userID, Name: s.users[userID].Name, FollowerCount: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FollowerCount > out[j].FollowerCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type auditLogStore struct{ *state }

func (s auditLogStore) Append(_ context.Context, entry model.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextAudit
	s.nextAudit++
	s.audit = append(s.audit, entry)
	return nil
}

func (s auditLogStore) List(_ context.Context, _ int, _ int) ([]model.AuditEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out, len(out), nil
}

type testEnv struct {
	server *httptest.Server
	state  *state
}

// newServer composes the real router, guard, handlers and services on
// top of the in-memory state.
func newServer(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Env:              "test",
		ServerPort:       "0",
		RequestTimeout:   10 * time.Second,
		JWTSecret:        "integration-secret",
		JWTTTL:           time.Hour,
		CookieName:       "jwt",
		MediaRoot:        t.TempDir(),
		MaxUploadSize:    5 << 20,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     10000,
		AuthRateLimitRPM: 10000,
		FeedPageSize:     20,
	}

	st := newState()
	media, err := storage.New(cfg.MediaRoot)
	require.NoError(t, err)

	tokens, err := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	require.NoError(t, err)

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go hub.Run()

	authSvc := service.NewAuthService(usersStore{st}, tokens, bus)
	userSvc := service.NewUserService(usersStore{st}, media)
	postSvc := service.NewMicropostService(postsStore{st}, likesStore{st}, commentsStore{st}, media, bus)
	relSvc := service.NewRelationshipService(relationsStore{st}, usersStore{st}, bus)
	adminSvc := service.NewAdminService(usersStore{st}, postsStore{st}, relationsStore{st}, auditLogStore{st})

	guard := middleware.NewAuthMiddleware(tokens, cfg.CookieName)
	handlers := router.Handlers{
		Health:       handler.NewHealthHandler(nil),
		Auth:         handler.NewAuthHandler(authSvc, cfg.CookieName, cfg.Production()),
		User:         handler.NewUserHandler(userSvc, cfg.MaxUploadSize),
		Micropost:    handler.NewMicropostHandler(postSvc, cfg.MaxUploadSize),
		Relationship: handler.NewRelationshipHandler(relSvc),
		Admin:        handler.NewAdminHandler(adminSvc),
		Docs:         handler.NewDocsHandler("../../docs/openapi.yaml"),
	}

	server := httptest.NewServer(router.New(cfg, guard, handlers, hub))
	t.Cleanup(server.Close)
	return &testEnv{server: server, state: st}
}

// registerUser creates an account through the API and returns the
// session cookie plus the created profile.
func (env *testEnv) registerUser(t *testing.T, email, name, password string) (*http.Cookie, model.Profile) {
	t.Helper()

	payload, err := json.Marshal(map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
	})
	require.NoError(t, err)

	resp, err := http.Post(env.server.URL+"/api/v1/auth/register", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var envelope struct {
		Data model.AuthResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))

	for _, c := range resp.Cookies() {
		if c.Name == "jwt" {
			return c, envelope.Data.User
		}
	}
	t.Fatal("register response did not set a session cookie")
	return nil, model.Profile{}
}

// promote flips a user to admin directly in the store, then issues a
// fresh session so the token carries the new role set.
func (env *testEnv) promote(t *testing.T, userID int64) {
	t.Helper()
	err := usersStore{env.state}.ReplaceRoles(context.Background(),
		userID, model.NewRoleSet(model.RoleGeneral, model.RoleAdmin))
	require.NoError(t, err)
}

func (env *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(env.server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == "jwt" {
			return c
		}
	}
	t.Fatal("login response did not set a session cookie")
	return nil
}

func (env *testEnv) do(t *testing.T, method, path string, cookie *http.Cookie, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, env.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeData[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data
}
