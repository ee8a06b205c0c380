package repos

import (
  "context"
  "errors"
  "github.com/google/uuid"
  "github.com/jackc/pgx/v5/pgconn"
  "gorm.io/gorm"
  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/types"
)

// ErrReactionExists signals that the (wish, wallet, emoji) triple is already
// stored. Callers treat it as a benign no-op, not a failure.
var ErrReactionExists = errors.New("reaction already exists")

type ReactionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, reaction *types.Reaction) (*types.Reaction, error)
  DeleteByTriple(ctx context.Context, tx *gorm.DB, wishID uuid.UUID, walletAddress, emoji string) error
  GetByWishID(ctx context.Context, tx *gorm.DB, wishID uuid.UUID) ([]*types.Reaction, error)
}

type reactionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewReactionRepo(db *gorm.DB, baseLog *logger.Logger) ReactionRepo {
  repoLog := baseLog.With("repo", "ReactionRepo")
  return &reactionRepo{db: db, log: repoLog}
}

func (r *reactionRepo) Create(ctx context.Context, tx *gorm.DB, reaction *types.Reaction) (*types.Reaction, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if reaction == nil {
    return nil, nil
  }

  if err := transaction.WithContext(ctx).Create(reaction).Error; err != nil {
    if isUniqueViolation(err) {
      return nil, ErrReactionExists
    }
    return nil, err
  }
  return reaction, nil
}

func (r *reactionRepo) DeleteByTriple(ctx context.Context, tx *gorm.DB, wishID uuid.UUID, walletAddress, emoji string) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  if wishID == uuid.Nil || walletAddress == "" || emoji == "" {
    return nil
  }

  return transaction.WithContext(ctx).
    Where("wish_id = ? AND wallet_address = ? AND emoji = ?", wishID, walletAddress, emoji).
    Delete(&types.Reaction{}).Error
}

func (r *reactionRepo) GetByWishID(ctx context.Context, tx *gorm.DB, wishID uuid.UUID) ([]*types.Reaction, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  var results []*types.Reaction
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

func isUniqueViolation(err error) bool {
  if errors.Is(err, gorm.ErrDuplicatedKey) {
    return true
  }
  var pgErr *pgconn.PgError
  if errors.As(err, &pgErr) {
    return pgErr.Code == "23505"
  }
  return false
}
