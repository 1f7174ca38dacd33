package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/2Clight/Skill-Swap/internal/config"
	authsvc "github.com/2Clight/Skill-Swap/internal/services/auth"
	channelssvc "github.com/2Clight/Skill-Swap/internal/services/channels"
	chatsvc "github.com/2Clight/Skill-Swap/internal/services/chat"
	matchsvc "github.com/2Clight/Skill-Swap/internal/services/match"
	mediasvc "github.com/2Clight/Skill-Swap/internal/services/media"
	moderationsvc "github.com/2Clight/Skill-Swap/internal/services/moderation"
	ratingssvc "github.com/2Clight/Skill-Swap/internal/services/ratings"
	userssvc "github.com/2Clight/Skill-Swap/internal/services/users"
	"github.com/2Clight/Skill-Swap/internal/transport/http/handlers"
)

type Dependencies struct {
	Verifier          *authsvc.Verifier
	UserService       *userssvc.Service
	MatchService      *matchsvc.Service
	ChannelService    *channelssvc.Service
	ChatService       *chatsvc.Service
	ModerationService *moderationsvc.Service
	RatingService     *ratingssvc.Service
	MediaService      *mediasvc.Service
	Logger            *zap.Logger
	Config            config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	usersHandler := handlers.NewUsersHandler(deps.UserService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	channelsHandler := handlers.NewChannelsHandler(deps.ChannelService)
	messagesHandler := handlers.NewMessagesHandler(deps.ChatService, deps.Config.Chat.HeartbeatInterval)
	moderationHandler := handlers.NewModerationHandler(deps.ModerationService)
	ratingsHandler := handlers.NewRatingsHandler(deps.RatingService)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)

	authMW := AuthMiddleware(deps.Verifier, deps.Logger)
	moderatorMW := RequireRole("OWNER", "MODERATOR")

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.With(authMW).Get("/me", usersHandler.Me)
		r.With(authMW).Put("/me", usersHandler.UpdateProfile)
		r.With(authMW).Put("/me/skills", usersHandler.UpdateSkills)
		r.With(authMW).Post("/me/activate", usersHandler.SetActive(true))
		r.With(authMW).Post("/me/deactivate", usersHandler.SetActive(false))

		r.With(authMW).Get("/users/{userID}", usersHandler.Get)
		r.With(authMW).Post("/users/{userID}/ratings", ratingsHandler.Submit)
		r.With(authMW).Get("/users/{userID}/ratings", ratingsHandler.Aggregate)

		r.With(authMW).Get("/matches", matchesHandler.List)

		r.With(authMW).Post("/channels", channelsHandler.Create)
		r.With(authMW).Get("/channels", channelsHandler.List)
		r.With(authMW).Get("/channels/{channelID}", channelsHandler.Get)
		r.With(authMW).Get("/channels/{channelID}/messages", messagesHandler.List)
		r.With(authMW).Post("/channels/{channelID}/messages", messagesHandler.Post)
		r.With(authMW).Get("/channels/{channelID}/stream", messagesHandler.Stream)

		r.With(authMW).Post("/media/certificate", mediaHandler.Upload(mediasvc.KindCertificate))
		r.With(authMW).Post("/media/avatar", mediaHandler.Upload(mediasvc.KindAvatar))

		r.Route("/moderation", func(r chi.Router) {
			r.Use(authMW)
			r.Get("/me", moderationHandler.MyState)
			r.Post("/submission", moderationHandler.Submit)

			r.Group(func(r chi.Router) {
				r.Use(moderatorMW)
				r.Get("/queue", moderationHandler.Queue)
				r.Get("/approved", moderationHandler.Approved)
				r.Get("/media/view", mediaHandler.ViewURL)
				r.Post("/{userID}/approve", moderationHandler.Approve)
				r.Post("/{userID}/reject", moderationHandler.Reject)
				r.Post("/{userID}/revoke", moderationHandler.Revoke)
				r.Delete("/{userID}", moderationHandler.DeleteUser)
			})
		})
	})
}
