package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-blog-api/app/db"
	"github.com/FACorreiaa/go-blog-api/app/observability/metrics"
	"github.com/FACorreiaa/go-blog-api/config"
	"github.com/FACorreiaa/go-blog-api/internal/api/auth"
	"github.com/FACorreiaa/go-blog-api/internal/api/comment"
	"github.com/FACorreiaa/go-blog-api/internal/api/post"
	"github.com/FACorreiaa/go-blog-api/internal/api/user"
	"github.com/FACorreiaa/go-blog-api/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	Pool           *pgxpool.Pool
	Metrics        *metrics.AppMetrics
	Tokens         *auth.TokenManager
	AuthHandler    *auth.AuthHandler
	UserHandler    *user.HandlerImpl
	PostHandler    *post.PostHandler
	CommentHandler *comment.CommentHandler
	Authenticate   func(http.Handler) http.Handler
}

// NewContainer wires repositories, services and handlers on top of db. db
// is usually the pool; pool may be nil when the caller manages the
// connection itself.
func NewContainer(cfg *config.Config, logger *slog.Logger, db database.DBTX, pool *pgxpool.Pool, m *metrics.AppMetrics) (*Container, error) {
	tokens, err := auth.NewTokenManager(cfg.JWT.SecretKey, cfg.JWT.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}
	hasher := auth.NewPasswordHasher(cfg.JWT.BcryptCost)
	cookie := auth.SessionCookie{Name: cfg.JWT.CookieName, Secure: cfg.JWT.CookieSecure}

	if cfg.Google.Enabled() {
		auth.UseGoogleProvider(cfg.Google, cfg.JWT.SecretKey, cfg.JWT.CookieSecure)
		logger.Info("Google OAuth redirect flow enabled", slog.String("callback", cfg.Google.CallbackURL))
	}
	if cfg.Google.AllowClientAssertion {
		logger.Warn("POST /api/auth/google trusts client supplied profiles; disable google.allowClientAssertion in production")
	}

	authRepo := auth.NewPostgresAuthRepo(db, logger, m)
	authService := auth.NewAuthService(authRepo, hasher, tokens, logger, m)
	authHandler := auth.NewAuthHandler(authService, cookie, logger)

	var resolver auth.IdentityResolver
	if cfg.JWT.Revalidate {
		resolver = authRepo
	}

	userRepo := user.NewPostgresUserRepo(db, logger, m)
	userService := user.NewUserService(userRepo, hasher, logger)
	userHandler := user.NewHandlerImpl(userService, cookie, logger)

	postRepo := post.NewPostgresPostRepo(db, logger, m)
	postService := post.NewPostService(postRepo, logger)
	postHandler := post.NewPostHandler(postService, logger)
	userService.OnDelete(postService.EvictAuthor)

	commentRepo := comment.NewPostgresCommentRepo(db, logger, m)
	commentService := comment.NewCommentService(commentRepo, logger)
	commentHandler := comment.NewCommentHandler(commentService, logger)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Pool:           pool,
		Metrics:        m,
		Tokens:         tokens,
		AuthHandler:    authHandler,
		UserHandler:    userHandler,
		PostHandler:    postHandler,
		CommentHandler: commentHandler,
		Authenticate:   auth.Authenticate(logger, tokens, cookie, resolver),
	}, nil
}

// Router mounts every handler held by the container.
func (c *Container) Router() http.Handler {
	return router.SetupRouter(&router.Config{
		AuthHandler:            c.AuthHandler,
		UserHandler:            c.UserHandler,
		PostHandler:            c.PostHandler,
		CommentHandler:         c.CommentHandler,
		AuthenticateMiddleware: c.Authenticate,
		GoogleOAuth:            c.Config.Google.Enabled(),
		GoogleAssertion:        c.Config.Google.AllowClientAssertion,
		AllowedOrigins:         c.Config.Server.AllowedOrigins,
		Logger:                 c.Logger,
	})
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger, c.Config.Repositories.Postgres.ConnectAttempts)
}
