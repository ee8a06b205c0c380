package services

import (
  "context"
  "fmt"
  "strings"
  "time"

  "gorm.io/gorm"

  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/repos"
  "github.com/wishcord/wishcord-backend/internal/types"
)

// OnlineWindow is how recently a member must have pinged activity to count
// as online. Derived at read time, never stored.
const OnlineWindow = 5 * time.Minute

type MemberService interface {
  RecordActivity(ctx context.Context, walletAddress, username, avatar string) (*types.Member, error)
  List(ctx context.Context) ([]*types.Member, error)
}

type memberService struct {
  db  *gorm.DB
  log *logger.Logger

  memberRepo repos.MemberRepo
}

func NewMemberService(db *gorm.DB, log *logger.Logger, memberRepo repos.MemberRepo) MemberService {
  return &memberService{
    db:         db,
    log:        log.With("service", "MemberService"),
    memberRepo: memberRepo,
  }
}

func (ms *memberService) RecordActivity(ctx context.Context, walletAddress, username, avatar string) (*types.Member, error) {
  walletAddress = strings.TrimSpace(walletAddress)
  if walletAddress == "" {
    return nil, fmt.Errorf("wallet_address is required")
  }
  member := &types.Member{
    WalletAddress: walletAddress,
    Username:      strings.TrimSpace(username),
    Avatar:        avatar,
  }
  upserted, err := ms.memberRepo.UpsertActivity(ctx, nil, member)
  if err != nil {
    return nil, fmt.Errorf("upsert member activity: %w", err)
  }
  upserted.IsOnline = true
  return upserted, nil
}

func (ms *memberService) List(ctx context.Context) ([]*types.Member, error) {
  members, err := ms.memberRepo.List(ctx, nil)
  if err != nil {
    return nil, err
  }
  now := time.Now()
  for _, m := range members {
    if m == nil {
      continue
    }
    m.IsOnline = now.Sub(m.LastActive) < OnlineWindow
  }
  return members, nil
}
