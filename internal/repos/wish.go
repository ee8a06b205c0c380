package repos

import (
  "context"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/types"
)

type WishRepo interface {
  Create(ctx context.Context, tx *gorm.DB, wishes []*types.Wish) ([]*types.Wish, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Wish, error)
  List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Wish, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type wishRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewWishRepo(db *gorm.DB, baseLog *logger.Logger) WishRepo {
  repoLog := baseLog.With("repo", "WishRepo")
  return &wishRepo{db: db, log: repoLog}
}

func (r *wishRepo) Create(ctx context.Context, tx *gorm.DB, wishes []*types.Wish) ([]*types.Wish, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if len(wishes) == 0 {
    return []*types.Wish{}, nil
  }

  if err := transaction.WithContext(ctx).Create(&wishes).Error; err != nil {
    return nil, err
  }
  return wishes, nil
}

func (r *wishRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Wish, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if id == uuid.Nil {
    return nil, gorm.ErrRecordNotFound
  }

  var wish types.Wish
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&wish).Error; err != nil {
    return nil, err
  }
  return &wish, nil
}

func (r *wishRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.Wish, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if limit <= 0 || limit > 100 {
    limit = 50
  }
  if offset < 0 {
    offset = 0
  }

  var results []*types.Wish
  if err := transaction.WithContext(ctx).
    Order("created_at DESC").
    Limit(limit).
    Offset(offset).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *wishRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  if updates == nil {
    updates = map[string]interface{}{}
  }
  if _, ok := updates["updated_at"]; !ok {
    updates["updated_at"] = gorm.Expr("now()")
  }
  return transaction.WithContext(ctx).
    Model(&types.Wish{}).
    Where("id = ?", id).
    Updates(updates).Error
}
