package main

import (
  "context"
  "fmt"
  "os"

  "github.com/joho/godotenv"

  "github.com/wishcord/wishcord-backend/internal/clients/redis"
  "github.com/wishcord/wishcord-backend/internal/db"
  "github.com/wishcord/wishcord-backend/internal/handlers"
  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/middleware"
  "github.com/wishcord/wishcord-backend/internal/repos"
  "github.com/wishcord/wishcord-backend/internal/server"
  "github.com/wishcord/wishcord-backend/internal/services"
  "github.com/wishcord/wishcord-backend/internal/sse"
  "github.com/wishcord/wishcord-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  if err := godotenv.Load(); err != nil {
    log.Debug("No .env file loaded", "error", err)
  }

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Error("Postgres auto migration failed", "error", err)
    os.Exit(1)
  }
  thePG := postgresService.DB()

  // Repos
  log.Info("Setting up Repos from main...")
  wishRepo := repos.NewWishRepo(thePG, log)
  replyRepo := repos.NewReplyRepo(thePG, log)
  reactionRepo := repos.NewReactionRepo(thePG, log)
  memberRepo := repos.NewMemberRepo(thePG, log)
  jobRepo := repos.NewEnrichmentJobRepo(thePG, log)

  // SSE
  log.Info("Setting up SSE hub now...")
  sseHub := sse.NewSSEHub(log)

  var sseBus redis.SSEBus
  if os.Getenv("REDIS_ADDR") != "" {
    sseBus, err = redis.NewSSEBus(log)
    if err != nil {
      log.Warn("Could not init redis SSE bus; running single-instance", "error", err)
      sseBus = nil
    } else {
      if err := sseBus.StartForwarder(context.Background(), func(m sse.SSEMessage) {
        sseHub.Broadcast(m)
      }); err != nil {
        log.Warn("Could not start redis SSE forwarder", "error", err)
      }
    }
  }

  // Services
  log.Info("Setting up Services from main...")
  notifier := services.NewNotifier(log, sseHub, sseBus)
  bucketService, err := services.NewBucketService(log)
  if err != nil {
    log.Error("Could not init BucketService", "error", err)
    os.Exit(1)
  }
  aiClient, err := services.NewAIClient(log)
  if err != nil {
    log.Error("Could not init AIClient", "error", err)
    os.Exit(1)
  }
  voiceClient, err := services.NewVoiceClient(log)
  if err != nil {
    log.Error("Could not init VoiceClient", "error", err)
    os.Exit(1)
  }
  enrichmentService := services.NewEnrichmentService(thePG, log, wishRepo, replyRepo, jobRepo, aiClient, voiceClient, bucketService, notifier)
  enrichmentService.StartWorker(context.Background())
  wishService := services.NewWishService(thePG, log, wishRepo, jobRepo, enrichmentService, notifier)
  replyService := services.NewReplyService(thePG, log, wishRepo, replyRepo, enrichmentService, notifier)
  reactionService := services.NewReactionService(thePG, log, reactionRepo, notifier)
  memberService := services.NewMemberService(thePG, log, memberRepo)
  voiceService := services.NewVoiceService(log, voiceClient, aiClient, bucketService)

  // Handlers
  log.Info("Setting up handlers from main...")
  wishHandler := handlers.NewWishHandler(log, wishService, enrichmentService)
  replyHandler := handlers.NewReplyHandler(log, replyService)
  reactionHandler := handlers.NewReactionHandler(log, reactionService)
  memberHandler := handlers.NewMemberHandler(log, memberService)
  voiceHandler := handlers.NewVoiceHandler(log, voiceService)
  sseHandler := handlers.NewSSEHandler(log, sseHub)

  // Middleware
  walletMiddleware := middleware.NewWalletMiddleware(log)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    AllowOrigins:     server.ParseOrigins(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log)),
    WalletMiddleware: walletMiddleware,
    WishHandler:      wishHandler,
    ReplyHandler:     replyHandler,
    ReactionHandler:  reactionHandler,
    MemberHandler:    memberHandler,
    VoiceHandler:     voiceHandler,
    SSEHandler:       sseHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  fmt.Printf("Server listening on :%s\n", port)
  if err := router.Run(":" + port); err != nil {
    log.Error("Server failed", "error", err)
  }
}
