package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-micropost/internal/config"
	"go-micropost/internal/handler"
	"go-micropost/internal/middleware"
	"go-micropost/internal/websocket"
)

type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Micropost    *handler.MicropostHandler
	Relationship *handler.RelationshipHandler
	Admin        *handler.AdminHandler
	Docs         *handler.DocsHandler
}

func New(cfg *config.Config, guard *middleware.AuthMiddleware, h Handlers, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()
	rateLimit := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimit.Handler)

	// Public, unguarded routes.
	r.Get("/health", h.Health.Check)
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/swagger", h.Docs.SwaggerUI)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
			auth.With(guard.RequireAuth).Post("/logout", h.Auth.Logout)
			auth.With(guard.RequireAuth).Get("/me", h.Auth.Me)
		})

		api.With(guard.RequireAuth).Get("/feed", h.Micropost.Feed)

		api.Route("/microposts", func(posts chi.Router) {
			posts.With(guard.RequireAuth).Post("/", h.Micropost.Create)
			posts.With(guard.RequireAuth).Get("/{micropost_id}", h.Micropost.Get)
			posts.With(guard.RequireAuth).Delete("/{micropost_id}", h.Micropost.Delete)
			posts.With(guard.RequireAuth).Get("/{micropost_id}/image", h.Micropost.Image)
			posts.With(guard.RequireAuth).Post("/{micropost_id}/like", h.Micropost.Like)
			posts.With(guard.RequireAuth).Delete("/{micropost_id}/like", h.Micropost.Unlike)
			posts.With(guard.RequireAuth).Post("/{micropost_id}/comments", h.Micropost.AddComment)
			posts.With(guard.RequireAuth).Get("/{micropost_id}/comments", h.Micropost.ListComments)
		})

		api.With(guard.RequireAuth).Delete("/comments/{comment_id}", h.Micropost.DeleteComment)

		api.Route("/users", func(users chi.Router) {
			users.With(guard.RequireAuth).Put("/me", h.User.UpdateMe)
			users.With(guard.RequireAuth).Post("/me/avatar", h.User.UploadAvatar)
			users.With(guard.RequireAuth).Get("/{user_id}", h.User.Get)
			users.Get("/{user_id}/avatar", h.User.Avatar)
			users.With(guard.RequireAuth).Get("/{user_id}/microposts", h.Micropost.ListByUser)
			users.With(guard.RequireAuth).Post("/{user_id}/follow", h.Relationship.Follow)
			users.With(guard.RequireAuth).Delete("/{user_id}/follow", h.Relationship.Unfollow)
			users.With(guard.RequireAuth).Get("/{user_id}/followers", h.Relationship.Followers)
			users.With(guard.RequireAuth).Get("/{user_id}/following", h.Relationship.Following)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(guard.RequireAuth, guard.RequireAdmin)
			admin.Get("/welcome", h.Admin.Welcome)
			admin.Get("/users", h.Admin.ListUsers)
			admin.Put("/users/{user_id}/roles", h.Admin.ReplaceRoles)
			admin.Delete("/users/{user_id}", h.Admin.DeleteUser)
			admin.Get("/rankings", h.Admin.Rankings)
			admin.Get("/audit", h.Admin.AuditTrail)
		})
	})

	// Live feed; the guard runs before the upgrade.
	r.With(guard.RequireAuth).Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		websocket.ServeWS(hub, claims.UserID, w, r)
	})

	return r
}
