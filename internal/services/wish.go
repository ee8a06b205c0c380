package services

import (
  "context"
  "crypto/rand"
  "encoding/hex"
  "fmt"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/personas"
  "github.com/wishcord/wishcord-backend/internal/repos"
  "github.com/wishcord/wishcord-backend/internal/sse"
  "github.com/wishcord/wishcord-backend/internal/types"
)

type CreateWishInput struct {
  WishText      string
  Persona       string
  WalletAddress string
  Username      string
  Avatar        string
  ImageURL      string
  AudioURL      string
  AudioPath     string
}

type WishStatus struct {
  AIReply     *string `json:"ai_reply"`
  AIStatus    string  `json:"ai_status"`
  AIAudioURL  *string `json:"ai_audio_url"`
  AIAudioPath *string `json:"ai_audio_path"`
  AIError     string  `json:"ai_error,omitempty"`
}

type WishService interface {
  Create(ctx context.Context, input CreateWishInput) (*types.Wish, error)
  GetByID(ctx context.Context, id uuid.UUID) (*types.Wish, error)
  GetStatus(ctx context.Context, id uuid.UUID) (*WishStatus, error)
  List(ctx context.Context, limit, offset int) ([]*types.Wish, error)
}

type wishService struct {
  db  *gorm.DB
  log *logger.Logger

  wishRepo   repos.WishRepo
  jobRepo    repos.EnrichmentJobRepo
  enrichment EnrichmentService
  notifier   Notifier
}

func NewWishService(db *gorm.DB, log *logger.Logger, wishRepo repos.WishRepo, jobRepo repos.EnrichmentJobRepo, enrichment EnrichmentService, notifier Notifier) WishService {
  return &wishService{
    db:         db,
    log:        log.With("service", "WishService"),
    wishRepo:   wishRepo,
    jobRepo:    jobRepo,
    enrichment: enrichment,
    notifier:   notifier,
  }
}

// Create persists the wish immediately and, when a persona is addressed,
// writes it as pending with a queued enrichment job in the same transaction.
// The HTTP response never waits on generation.
func (ws *wishService) Create(ctx context.Context, input CreateWishInput) (*types.Wish, error) {
  text := strings.TrimSpace(input.WishText)
  if text == "" && input.ImageURL == "" && input.AudioURL == "" {
    return nil, fmt.Errorf("wishText is required")
  }

  personaID, addressed, err := ResolveWishPersona(text, input.Persona)
  if err != nil {
    return nil, err
  }

  wallet := strings.TrimSpace(input.WalletAddress)
  if wallet == "" {
    wallet = anonWallet()
  }
  username := strings.TrimSpace(input.Username)
  if username == "" {
    username = "anonymous"
  }

  wish := &types.Wish{
    ID:            uuid.New(),
    WalletAddress: wallet,
    Username:      username,
    Avatar:        input.Avatar,
    WishText:      text,
    Persona:       personaID,
  }
  if input.ImageURL != "" {
    wish.ImageURL = &input.ImageURL
  }
  if input.AudioURL != "" {
    wish.AudioURL = &input.AudioURL
  }
  if input.AudioPath != "" {
    wish.AudioPath = &input.AudioPath
  }
  if addressed {
    wish.AIStatus = types.AIStatusPending
  }

  err = ws.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if _, err := ws.wishRepo.Create(ctx, tx, []*types.Wish{wish}); err != nil {
      return fmt.Errorf("create wish: %w", err)
    }
    if addressed {
      if _, err := ws.enrichment.EnqueueWish(ctx, tx, wish); err != nil {
        return err
      }
    }
    return nil
  })
  if err != nil {
    return nil, err
  }

  ws.notifier.Broadcast(ctx, sse.SSEMessage{
    Channel: sse.FeedChannel,
    Event:   sse.SSEEventWishCreated,
    Data:    map[string]any{"wish": wish},
  })

  return wish, nil
}

func (ws *wishService) GetByID(ctx context.Context, id uuid.UUID) (*types.Wish, error) {
  return ws.wishRepo.GetByID(ctx, nil, id)
}

func (ws *wishService) GetStatus(ctx context.Context, id uuid.UUID) (*WishStatus, error) {
  wish, err := ws.wishRepo.GetByID(ctx, nil, id)
  if err != nil {
    return nil, err
  }
  status := &WishStatus{
    AIReply:     wish.AIReply,
    AIStatus:    wish.AIStatus,
    AIAudioURL:  wish.AIAudioURL,
    AIAudioPath: wish.AIAudioPath,
  }
  // A failed wish surfaces why, from the newest job row behind it.
  if wish.AIStatus == types.AIStatusFailed {
    job, jErr := ws.jobRepo.GetLatestByWishID(ctx, nil, id)
    if jErr != nil {
      ws.log.Warn("Failed to load latest enrichment job", "wishID", id, "error", jErr)
    } else if job != nil {
      status.AIError = job.Error
    }
  }
  return status, nil
}

func (ws *wishService) List(ctx context.Context, limit, offset int) ([]*types.Wish, error) {
  return ws.wishRepo.List(ctx, nil, limit, offset)
}

// ResolveWishPersona decides the wish's target persona and whether it is
// actually addressed (and therefore enriched). The first mention in text
// order wins over the explicit persona field; with neither present the
// default persona is used for attribution only.
func ResolveWishPersona(text, explicit string) (personaID string, addressed bool, err error) {
  if p, ok := personas.PrimaryPersona(text); ok {
    return p.ID, true, nil
  }
  explicit = strings.TrimSpace(explicit)
  if explicit != "" {
    if !personas.IsValid(explicit) {
      return "", false, fmt.Errorf("unknown persona %q", explicit)
    }
    p, _ := personas.Get(explicit)
    return p.ID, true, nil
  }
  return personas.DefaultPersonaID, false, nil
}

func anonWallet() string {
  b := make([]byte, 4)
  _, _ = rand.Read(b)
  return "anon_" + hex.EncodeToString(b)
}
