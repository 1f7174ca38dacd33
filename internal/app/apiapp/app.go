package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/2Clight/Skill-Swap/internal/config"
	s3infra "github.com/2Clight/Skill-Swap/internal/infra/s3"
	pgrepo "github.com/2Clight/Skill-Swap/internal/repo/postgres"
	redrepo "github.com/2Clight/Skill-Swap/internal/repo/redis"
	authsvc "github.com/2Clight/Skill-Swap/internal/services/auth"
	channelssvc "github.com/2Clight/Skill-Swap/internal/services/channels"
	chatsvc "github.com/2Clight/Skill-Swap/internal/services/chat"
	matchsvc "github.com/2Clight/Skill-Swap/internal/services/match"
	mediasvc "github.com/2Clight/Skill-Swap/internal/services/media"
	moderationsvc "github.com/2Clight/Skill-Swap/internal/services/moderation"
	ratingssvc "github.com/2Clight/Skill-Swap/internal/services/ratings"
	userssvc "github.com/2Clight/Skill-Swap/internal/services/users"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

// New wires the whole service. Postgres and s3 failures at startup log a
// warning and leave the app in degraded mode so health checks and local
// smoke tests work without backing stores.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.MinConns); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	ratingCacheRepo := redrepo.NewRatingCacheRepo(redisClient)

	userRepo := pgrepo.NewUserRepo(pool)
	channelRepo := pgrepo.NewChannelRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	moderationRepo := pgrepo.NewModerationRepo(pool)
	ratingRepo := pgrepo.NewRatingRepo(pool)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	verifier := authsvc.NewVerifier(cfg.Auth.JWTSecret)
	userService := userssvc.NewService(userRepo)
	matchService := matchsvc.NewService(userService)
	channelService := channelssvc.NewService(channelRepo, userRepo)
	chatService := chatsvc.NewService(
		log,
		messageRepo,
		channelService,
		chatsvc.NewHub(cfg.Chat.SubscriberBuffer),
		rateRepo,
		cfg.Chat.PostMaxPerMinute,
		cfg.Chat.HistoryPageSize,
	)
	moderationService := moderationsvc.NewService(log, moderationRepo, userService)
	ratingService := ratingssvc.NewService(
		log,
		ratingRepo,
		ratingCacheRepo,
		cfg.Ratings.MinScore,
		cfg.Ratings.MaxScore,
		cfg.Ratings.CacheTTL,
	)
	mediaService := mediasvc.NewService(s3infra.NewStorage(s3Client, cfg.S3.Bucket))

	RegisterRoutes(r, Dependencies{
		Verifier:          verifier,
		UserService:       userService,
		MatchService:      matchService,
		ChannelService:    channelService,
		ChatService:       chatService,
		ModerationService: moderationService,
		RatingService:     ratingService,
		MediaService:      mediaService,
		Logger:            log,
		Config:            cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
