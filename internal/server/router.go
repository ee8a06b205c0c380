package server

import (
  "strings"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/wishcord/wishcord-backend/internal/handlers"
  "github.com/wishcord/wishcord-backend/internal/middleware"
)

type RouterConfig struct {
  AllowOrigins     []string
  WalletMiddleware *middleware.WalletMiddleware
  WishHandler      *handlers.WishHandler
  ReplyHandler     *handlers.ReplyHandler
  ReactionHandler  *handlers.ReactionHandler
  MemberHandler    *handlers.MemberHandler
  VoiceHandler     *handlers.VoiceHandler
  SSEHandler       *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  origins := cfg.AllowOrigins
  if len(origins) == 0 {
    origins = []string{"http://localhost:3000", "http://localhost:5173"}
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     origins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Wallet-Address"},
    AllowCredentials: true,
  }))

  router.Use(cfg.WalletMiddleware.Identify())

  router.GET("/health", handlers.HealthCheck)
  router.GET("/sse/stream", cfg.SSEHandler.Stream)

  api := router.Group("/api")
  {
    // Wishes
    api.POST("/wish", cfg.WishHandler.CreateWish)
    api.POST("/wish/generate", cfg.WishHandler.GenerateWish)
    api.GET("/wishes", cfg.WishHandler.ListWishes)
    api.GET("/wishes/:id", cfg.WishHandler.GetWish)
    // Replies
    api.POST("/replies", cfg.ReplyHandler.CreateReply)
    api.GET("/replies", cfg.ReplyHandler.ListReplies)
    api.GET("/replies/:id", cfg.ReplyHandler.GetReply)
    // Reactions
    api.POST("/reactions", cfg.ReactionHandler.React)
    api.GET("/reactions", cfg.ReactionHandler.ListReactions)
    // Members
    api.POST("/members/activity", cfg.MemberHandler.RecordActivity)
    api.GET("/members", cfg.MemberHandler.ListMembers)
    // Voice
    api.POST("/voice/transcribe", cfg.VoiceHandler.Transcribe)
    api.POST("/voice/respond", cfg.VoiceHandler.Respond)
    // Personas
    api.GET("/personas", handlers.ListPersonas)
  }

  return router
}

// ParseOrigins splits a comma-separated CORS_ALLOW_ORIGINS value.
func ParseOrigins(raw string) []string {
  var out []string
  for _, o := range strings.Split(raw, ",") {
    o = strings.TrimSpace(o)
    if o != "" {
      out = append(out, o)
    }
  }
  return out
}
