package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/types"
)

type ReplyRepo interface {
  Create(ctx context.Context, tx *gorm.DB, replies []*types.Reply) ([]*types.Reply, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Reply, error)
  GetByWishID(ctx context.Context, tx *gorm.DB, wishID uuid.UUID) ([]*types.Reply, error)
}

type replyRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReplyRepo(db *gorm.DB, baseLog *logger.Logger) ReplyRepo {
  repoLog := baseLog.With("repo", "ReplyRepo")
  return &replyRepo{db: db, log: repoLog}
}

func (r *replyRepo) Create(ctx context.Context, tx *gorm.DB, replies []*types.Reply) ([]*types.Reply, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(replies) == 0 {
    return []*types.Reply{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&replies).Error; err != nil {
    return nil, err
  }
  return replies, nil
}

func (r *replyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Reply, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if id == uuid.Nil {
    return nil, gorm.ErrRecordNotFound
  }

  var reply types.Reply
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&reply).Error; err != nil {
    return nil, err
  }
  return &reply, nil
}

func (r *replyRepo) GetByWishID(ctx context.Context, tx *gorm.DB, wishID uuid.UUID) ([]*types.Reply, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Reply
  if wishID == uuid.Nil {
    return results, nil
  }

  if err := transaction.WithContext(ctx).
    Where("wish_id = ?", wishID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
