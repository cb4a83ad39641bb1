package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/whisperwall/internal/config"
	"github.com/sujalbistaa/whisperwall/internal/ws"
)

const limiterPruneInterval = 10 * time.Minute

// SetupRoutes configures all application routes and middleware. Background
// helpers started here stop when ctx is done.
func SetupRoutes(ctx context.Context, router *gin.Engine, env *Env, cfg *config.Config) {

	// --- Middleware ---
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", headerUserID, headerWhisperSession, headerAdminToken},
		ExposeHeaders:    []string{"Content-Length", headerWhisperSession},
		AllowCredentials: cfg.CORSOrigin != "*",
	}))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(sessionCookie, store))

	// --- Rate Limiter Setup ---
	limiter := NewIPRateLimiter(cfg.RateEvery, cfg.RateBurst)
	go limiter.PruneEvery(ctx, limiterPruneInterval)
	limited := RateLimitMiddleware(limiter)

	router.GET("/healthz", env.Health)

	// --- API Routes ---
	api := router.Group("/api")
	api.POST("/users", limited, env.CreateUser)

	whisper := api.Group("/whisperwall", WhisperSession())
	{
		whisper.GET("", env.GetWhispers)
		whisper.POST("", limited, env.CreateWhisper)
		whisper.GET("/:postId", env.GetWhisper)
		whisper.DELETE("/:postId", env.HideWhisper)
		whisper.POST("/:postId/react", env.ReactToWhisper)
		whisper.DELETE("/:postId/react", env.UnreactWhisper)
		whisper.POST("/:postId/forward", limited, env.ForwardWhisper)
		whisper.GET("/:postId/comments", env.GetWhisperComments)
		whisper.POST("/:postId/comments", limited, env.AddWhisperComment)
	}

	authed := api.Group("", RequireUser(env.Svc))
	{
		authed.GET("/users/:userId", env.GetUser)
		authed.GET("/users/:userId/posts", env.GetUserPosts)
		authed.PUT("/users/me/preferences", env.SetPreferences)
		authed.POST("/users/:userId/echo", env.Echo)
		authed.DELETE("/users/:userId/echo", env.Unecho)
		authed.GET("/users/:userId/echoes", env.GetEchoers)
		authed.GET("/users/:userId/echoing", env.GetEchoing)

		authed.GET("/feed", WhisperSession(), env.GetFeed)

		authed.POST("/posts", limited, env.CreatePost)
		authed.GET("/posts/trending", env.GetTrendingPosts)
		authed.GET("/posts/:postId", env.GetPost)
		authed.DELETE("/posts/:postId", env.DeletePost)
		authed.POST("/posts/:postId/hide", env.HidePost)
		authed.GET("/posts/:postId/comments", env.GetComments)
		authed.POST("/posts/:postId/comments", limited, env.AddComment)

		authed.POST("/reactions/:postId", env.React)
		authed.DELETE("/reactions/:postId", env.Unreact)
		authed.GET("/reactions/:postId/users/:reactionType", env.GetReactors)
		authed.POST("/reactions/comments/:postId/:commentId", env.ReactToComment)
		authed.DELETE("/reactions/comments/:postId/:commentId", env.UnreactComment)

		authed.GET("/chat/conversations", env.GetConversations)
		authed.GET("/chat/messages/:peerId", env.GetMessages)
		authed.POST("/chat/messages/:peerId", limited, env.SendMessage)
		authed.PUT("/chat/messages/:peerId/:messageId", env.EditMessage)
		authed.DELETE("/chat/messages/:peerId/:messageId", env.DeleteMessage)
		authed.POST("/chat/messages/:peerId/:messageId/react", env.ReactToMessage)
		authed.POST("/chat/read/:peerId", env.MarkRead)

		authed.GET("/notifications", env.GetNotifications)
		authed.GET("/notifications/unread-count", env.GetUnreadCount)
		authed.POST("/notifications/:id/read", env.MarkNotificationRead)
		authed.POST("/notifications/read-all", env.MarkAllNotificationsRead)
	}

	admin := api.Group("/admin", AdminAuthMiddleware(cfg.AdminToken))
	{
		admin.DELETE("/posts/:postId", env.AdminHidePost)
		admin.DELETE("/whispers/:postId", env.AdminHideWhisper)
	}

	// --- WebSocket Route ---
	router.GET("/ws", env.ServeWs)
}

// ServeWs joins the socket to the caller's room. The room comes from the
// gateway header only; callers without it still receive broadcasts.
func (e *Env) ServeWs(c *gin.Context) {
	userID := c.GetHeader(headerUserID)
	if userID != "" {
		ok, err := e.Svc.UserExists(userID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !ok {
			abortJSON(c, http.StatusUnauthorized, codeUnauthorized, "Unauthorized: unknown user")
			return
		}
	}
	ws.ServeWs(e.Hub, c.Writer, c.Request, userID)
}
