package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

const (
  EnrichmentJobKindWish  = "wish"
  EnrichmentJobKindReply = "reply"
)

const (
  EnrichmentJobStatusQueued    = "queued"
  EnrichmentJobStatusRunning   = "running"
  EnrichmentJobStatusCompleted = "completed"
  EnrichmentJobStatusFailed    = "failed"
)

// EnrichmentJob is the durable queue: one row per requested enrichment,
// claimed and driven by the worker. A wish stuck in pending always has a
// job row behind it that the worker will eventually claim or fail.
type EnrichmentJob struct {
  ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Kind        string         `gorm:"column:kind;not null;index" json:"kind"`
  WishID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"wish_id"`
  ReplyID     *uuid.UUID     `gorm:"type:uuid;index" json:"reply_id,omitempty"`
  Persona     string         `gorm:"column:persona;not null" json:"persona"`
  Status      string         `gorm:"column:status;not null;default:'queued';index" json:"status"`
  Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
  Error       string         `gorm:"column:error;type:text" json:"error,omitempty"`
  Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
  LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
  HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
  LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
  CreatedAt   time.Time      `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (EnrichmentJob) TableName() string { return "enrichment_job" }
