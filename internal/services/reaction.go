package services

import (
  "context"
  "errors"
  "fmt"
  "sort"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/repos"
  "github.com/wishcord/wishcord-backend/internal/sse"
  "github.com/wishcord/wishcord-backend/internal/types"
)

// ReactionGroup is the read shape: one emoji with its count and voters.
type ReactionGroup struct {
  Emoji string   `json:"emoji"`
  Count int      `json:"count"`
  Users []string `json:"users"`
}

type ReactionService interface {
  Add(ctx context.Context, wishID uuid.UUID, walletAddress, emoji string) (created bool, err error)
  Remove(ctx context.Context, wishID uuid.UUID, walletAddress, emoji string) error
  ListGrouped(ctx context.Context, wishID uuid.UUID) ([]ReactionGroup, error)
}

type reactionService struct {
  db  *gorm.DB
  log *logger.Logger

  reactionRepo repos.ReactionRepo
  notifier     Notifier
}

func NewReactionService(db *gorm.DB, log *logger.Logger, reactionRepo repos.ReactionRepo, notifier Notifier) ReactionService {
  return &reactionService{
    db:           db,
    log:          log.With("service", "ReactionService"),
    reactionRepo: reactionRepo,
    notifier:     notifier,
  }
}

// Add stores the (wish, wallet, emoji) triple. A duplicate submission is a
// benign no-op reported as created=false, never an error.
func (rs *reactionService) Add(ctx context.Context, wishID uuid.UUID, walletAddress, emoji string) (bool, error) {
  walletAddress = strings.TrimSpace(walletAddress)
  emoji = strings.TrimSpace(emoji)
  if wishID == uuid.Nil || walletAddress == "" || emoji == "" {
    return false, fmt.Errorf("wish_id, wallet_address and emoji are required")
  }

  reaction := &types.Reaction{
    ID:            uuid.New(),
    WishID:        wishID,
    WalletAddress: walletAddress,
    Emoji:         emoji,
  }
  if _, err := rs.reactionRepo.Create(ctx, nil, reaction); err != nil {
    if errors.Is(err, repos.ErrReactionExists) {
      return false, nil
    }
    return false, err
  }

  rs.broadcast(ctx, wishID)
  return true, nil
}

func (rs *reactionService) Remove(ctx context.Context, wishID uuid.UUID, walletAddress, emoji string) error {
  walletAddress = strings.TrimSpace(walletAddress)
  emoji = strings.TrimSpace(emoji)
  if wishID == uuid.Nil || walletAddress == "" || emoji == "" {
    return fmt.Errorf("wish_id, wallet_address and emoji are required")
  }
  if err := rs.reactionRepo.DeleteByTriple(ctx, nil, wishID, walletAddress, emoji); err != nil {
    return err
  }
  rs.broadcast(ctx, wishID)
  return nil
}

func (rs *reactionService) ListGrouped(ctx context.Context, wishID uuid.UUID) ([]ReactionGroup, error) {
  reactions, err := rs.reactionRepo.GetByWishID(ctx, nil, wishID)
  if err != nil {
    return nil, err
  }
  return GroupReactions(reactions), nil
}

func (rs *reactionService) broadcast(ctx context.Context, wishID uuid.UUID) {
  rs.notifier.Broadcast(ctx, sse.SSEMessage{
    Channel: sse.WishChannel(wishID),
    Event:   sse.SSEEventReactionChanged,
    Data:    map[string]any{"wish_id": wishID},
  })
}

// GroupReactions folds raw reaction rows into per-emoji groups. Voter order
// inside a group follows reaction creation order; groups are sorted by
// count descending, then emoji, for a stable payload.
func GroupReactions(reactions []*types.Reaction) []ReactionGroup {
  byEmoji := make(map[string]*ReactionGroup)
  order := []string{}
  for _, r := range reactions {
    if r == nil {
      continue
    }
    g, ok := byEmoji[r.Emoji]
    if !ok {
      g = &ReactionGroup{Emoji: r.Emoji}
      byEmoji[r.Emoji] = g
      order = append(order, r.Emoji)
    }
    g.Count++
    g.Users = append(g.Users, r.WalletAddress)
  }

  out := make([]ReactionGroup, 0, len(order))
  for _, e := range order {
    out = append(out, *byEmoji[e])
  }
  sort.SliceStable(out, func(i, j int) bool {
    if out[i].Count != out[j].Count {
      return out[i].Count > out[j].Count
    }
    return out[i].Emoji < out[j].Emoji
  })
  return out
}
