package services

import (
  "context"
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

type CreateReplyInput struct {
  WishID        uuid.UUID
  WalletAddress string
  Username      string
  Avatar        string
  ReplyText     string
}

type ReplyService interface {
  Create(ctx context.Context, input CreateReplyInput) (*types.Reply, error)
  GetByID(ctx context.Context, id uuid.UUID) (*types.Reply, error)
  ListByWish(ctx context.Context, wishID uuid.UUID) ([]*types.Reply, error)
}

type replyService struct {
  db  *gorm.DB
  log *logger.Logger

  wishRepo   repos.WishRepo
  replyRepo  repos.ReplyRepo
  enrichment EnrichmentService
  notifier   Notifier
}

func NewReplyService(db *gorm.DB, log *logger.Logger, wishRepo repos.WishRepo, replyRepo repos.ReplyRepo, enrichment EnrichmentService, notifier Notifier) ReplyService {
  return &replyService{
    db:         db,
    log:        log.With("service", "ReplyService"),
    wishRepo:   wishRepo,
    replyRepo:  replyRepo,
    enrichment: enrichment,
    notifier:   notifier,
  }
}

// Create persists the user's reply immediately. When the text mentions a
// persona, a reply enrichment job is queued in the same transaction; the
// persona's answer arrives later as a separate row.
func (rs *replyService) Create(ctx context.Context, input CreateReplyInput) (*types.Reply, error) {
  text := strings.TrimSpace(input.ReplyText)
  if text == "" {
    return nil, fmt.Errorf("reply_text is required")
  }
  if input.WishID == uuid.Nil {
    return nil, fmt.Errorf("wish_id is required")
  }
  wallet := strings.TrimSpace(input.WalletAddress)
  if wallet == "" {
    return nil, fmt.Errorf("wallet_address is required")
  }

  if _, err := rs.wishRepo.GetByID(ctx, nil, input.WishID); err != nil {
    return nil, fmt.Errorf("wish not found: %w", err)
  }

  username := strings.TrimSpace(input.Username)
  if username == "" {
    username = "anonymous"
  }

  reply := &types.Reply{
    ID:            uuid.New(),
    WishID:        input.WishID,
    WalletAddress: wallet,
    Username:      username,
    Avatar:        input.Avatar,
    ReplyText:     text,
    IsMod:         false,
  }

  // First mention wins; a reply addressing two personas triggers exactly
  // one generation.
  mentioned, hasMention := personas.PrimaryPersona(text)

  err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if _, err := rs.replyRepo.Create(ctx, tx, []*types.Reply{reply}); err != nil {
      return fmt.Errorf("create reply: %w", err)
    }
    if hasMention {
      if _, err := rs.enrichment.EnqueueReply(ctx, tx, reply, mentioned.ID); err != nil {
        return err
      }
    }
    return nil
  })
  if err != nil {
    return nil, err
  }

  rs.notifier.Broadcast(ctx, sse.SSEMessage{
    Channel: sse.WishChannel(reply.WishID),
    Event:   sse.SSEEventReplyCreated,
    Data:    map[string]any{"reply": reply},
  })

  return reply, nil
}

func (rs *replyService) GetByID(ctx context.Context, id uuid.UUID) (*types.Reply, error) {
  return rs.replyRepo.GetByID(ctx, nil, id)
}

func (rs *replyService) ListByWish(ctx context.Context, wishID uuid.UUID) ([]*types.Reply, error) {
  return rs.replyRepo.GetByWishID(ctx, nil, wishID)
}
