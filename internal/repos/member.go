package repos

import (
  "context"
  "time"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/types"
)

type MemberRepo interface {
  UpsertActivity(ctx context.Context, tx *gorm.DB, member *types.Member) (*types.Member, error)
  List(ctx context.Context, tx *gorm.DB) ([]*types.Member, error)
}

type memberRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
  repoLog := baseLog.With("repo", "MemberRepo")
  return &memberRepo{db: db, log: repoLog}
}

func (r *memberRepo) UpsertActivity(ctx context.Context, tx *gorm.DB, member *types.Member) (*types.Member, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if member == nil || member.WalletAddress == "" {
    return nil, nil
  }

  now := time.Now()
  member.LastActive = now
  member.UpdatedAt = now

  if err := transaction.WithContext(ctx).
    Clauses(clause.OnConflict{
      Columns: []clause.Column{{Name: "wallet_address"}},
      DoUpdates: clause.AssignmentColumns([]string{"username", "avatar", "last_active", "updated_at"}),
    }).
    Create(member).Error; err != nil {
    return nil, err
  }
  return member, nil
}

func (r *memberRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Member, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Member
  if err := transaction.WithContext(ctx).
    Order("last_active DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
