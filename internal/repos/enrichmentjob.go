package repos

import (
  "context"
  "errors"
  "time"
  "github.com/google/uuid"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  "github.com/wishcord/wishcord-backend/internal/logger"
  "github.com/wishcord/wishcord-backend/internal/types"
)

type EnrichmentJobRepo interface {
  Create(ctx context.Context, tx *gorm.DB, jobs []*types.EnrichmentJob) ([]*types.EnrichmentJob, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.EnrichmentJob, error)
  GetLatestByWishID(ctx context.Context, tx *gorm.DB, wishID uuid.UUID) (*types.EnrichmentJob, error)
  ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.EnrichmentJob, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type enrichmentJobRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewEnrichmentJobRepo(db *gorm.DB, baseLog *logger.Logger) EnrichmentJobRepo {
  repoLog := baseLog.With("repo", "EnrichmentJobRepo")
  return &enrichmentJobRepo{db: db, log: repoLog}
}

func (r *enrichmentJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.EnrichmentJob) ([]*types.EnrichmentJob, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(jobs) == 0 {
    return []*types.EnrichmentJob{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&jobs).Error; err != nil {
    return nil, err
  }
  return jobs, nil
}

func (r *enrichmentJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.EnrichmentJob, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil, gorm.ErrRecordNotFound
  }
  var job types.EnrichmentJob
  if err := transaction.WithContext(ctx).
    Where("id = ?", id).
    First(&job).Error; err != nil {
    return nil, err
  }
  return &job, nil
}

func (r *enrichmentJobRepo) GetLatestByWishID(ctx context.Context, tx *gorm.DB, wishID uuid.UUID) (*types.EnrichmentJob, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if wishID == uuid.Nil {
    return nil, nil
  }
  var job types.EnrichmentJob
  err := transaction.WithContext(ctx).
    Where("wish_id = ?", wishID).
    Order("created_at DESC").
    First(&job).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &job, nil
}

// ClaimNextRunnable picks the oldest job that is queued, failed with attempts
// left past the retry delay, or running with a stale heartbeat (the previous
// worker died mid-enrichment), and marks it running under a SKIP LOCKED row
// lock so concurrent workers never claim the same job.
func (r *enrichmentJobRepo) ClaimNextRunnable(
  ctx context.Context,
  tx *gorm.DB,
  maxAttempts int,
  retryDelay time.Duration,
  staleRunning time.Duration,
) (*types.EnrichmentJob, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }

  now := time.Now()
  retryCutoff := now.Add(-retryDelay)
  staleCutoff := now.Add(-staleRunning)

  var claimed *types.EnrichmentJob

  err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
    var job types.EnrichmentJob

    q := txx.
      Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
      Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < ?
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.EnrichmentJobStatusQueued, types.EnrichmentJobStatusFailed, maxAttempts, retryCutoff, types.EnrichmentJobStatusRunning, staleCutoff).
      Order("created_at ASC")

    qErr := q.First(&job).Error
    if errors.Is(qErr, gorm.ErrRecordNotFound) {
      return nil
    }
    if qErr != nil {
      return qErr
    }

    uErr := txx.Model(&types.EnrichmentJob{}).
      Where("id = ?", job.ID).
      Updates(map[string]interface{}{
        "status":       types.EnrichmentJobStatusRunning,
        "attempts":     gorm.Expr("attempts + 1"),
        "locked_at":    now,
        "heartbeat_at": now,
        "updated_at":   now,
      }).Error
    if uErr != nil {
      return uErr
    }

    claimed = &job
    return nil
  })

  if err != nil {
    return nil, err
  }
  return claimed, nil
}

func (r *enrichmentJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
    updates["updated_at"] = time.Now()
  }
  return transaction.WithContext(ctx).
    Model(&types.EnrichmentJob{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *enrichmentJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil {
    return nil
  }
  now := time.Now()
  return transaction.WithContext(ctx).
    Model(&types.EnrichmentJob{}).
    Where("id = ?", id).
    Updates(map[string]interface{}{
      "heartbeat_at": now,
      "updated_at":   now,
    }).Error
}
