package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/FACorreiaa/go-blog-api/docs"
	"github.com/FACorreiaa/go-blog-api/internal/api/auth"
	"github.com/FACorreiaa/go-blog-api/internal/api/comment"
	"github.com/FACorreiaa/go-blog-api/internal/api/post"
	"github.com/FACorreiaa/go-blog-api/internal/api/user"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler    *auth.AuthHandler
	UserHandler    user.Handler
	PostHandler    *post.PostHandler
	CommentHandler *comment.CommentHandler
	// AuthenticateMiddleware resolves the session cookie into an identity.
	AuthenticateMiddleware func(http.Handler) http.Handler
	// GoogleOAuth mounts the server side redirect flow. Requires a
	// registered goth provider.
	GoogleOAuth bool
	// GoogleAssertion mounts the unverified POST /api/auth/google route.
	GoogleAssertion bool
	AllowedOrigins  []string
	Logger          *slog.Logger
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	requireAdmin := auth.RequireAdmin(cfg.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", cfg.AuthHandler.Signup)
			r.Post("/signin", cfg.AuthHandler.Signin)
			if cfg.GoogleAssertion {
				r.Post("/google", cfg.AuthHandler.Google)
			}
			if cfg.GoogleOAuth {
				r.Get("/google/begin", cfg.AuthHandler.GoogleBegin)
				r.Get("/google/callback", cfg.AuthHandler.GoogleCallback)
			}
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/{userId}", cfg.UserHandler.GetUser)

			r.Group(func(r chi.Router) {
				r.Use(cfg.AuthenticateMiddleware)
				r.Put("/update/{userId}", cfg.UserHandler.UpdateUser)
				r.Delete("/delete/{userId}", cfg.UserHandler.DeleteUser)
				r.Post("/signout", cfg.UserHandler.SignOut)
				r.With(requireAdmin).Get("/getusers", cfg.UserHandler.GetUsers)
			})
		})

		r.Route("/post", func(r chi.Router) {
			r.Get("/getposts", cfg.PostHandler.GetPosts)
			r.Get("/{slug}", cfg.PostHandler.GetPostBySlug)

			r.Group(func(r chi.Router) {
				r.Use(cfg.AuthenticateMiddleware)
				r.Post("/create", cfg.PostHandler.CreatePost)
				r.Put("/updatepost/{postId}/{userId}", cfg.PostHandler.UpdatePost)
				r.Delete("/deletepost/{postId}/{userId}", cfg.PostHandler.DeletePost)
			})
		})

		r.Route("/comment", func(r chi.Router) {
			r.Get("/getPostComments/{postId}", cfg.CommentHandler.GetPostComments)

			r.Group(func(r chi.Router) {
				r.Use(cfg.AuthenticateMiddleware)
				r.Post("/create", cfg.CommentHandler.CreateComment)
				r.Put("/likeComment/{commentId}", cfg.CommentHandler.LikeComment)
				r.Put("/editComment/{commentId}", cfg.CommentHandler.EditComment)
				r.Delete("/deleteComment/{commentId}", cfg.CommentHandler.DeleteComment)
				r.With(requireAdmin).Get("/getcomments", cfg.CommentHandler.GetComments)
			})
		})
	})

	return r
}
