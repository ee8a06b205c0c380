package types

import (
  "time"
  "github.com/google/uuid"
)

// Enrichment status values for a wish. An empty string means no persona was
// addressed and no enrichment was ever requested.
const (
  AIStatusPending   = "pending"
  AIStatusCompleted = "completed"
  AIStatusFailed    = "failed"
)

type Wish struct {
  ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  WalletAddress string    `gorm:"column:wallet_address;not null;index" json:"wallet_address"`
  Username      string    `gorm:"column:username" json:"username"`
  Avatar        string    `gorm:"column:avatar" json:"avatar"`
  WishText      string    `gorm:"column:wish_text;type:text" json:"wish_text"`
  ImageURL      *string   `gorm:"column:image_url" json:"image_url,omitempty"`
  AudioURL      *string   `gorm:"column:audio_url" json:"audio_url,omitempty"`
  AudioPath     *string   `gorm:"column:audio_path" json:"audio_path,omitempty"`
  Persona       string    `gorm:"column:persona;index" json:"persona"`
  AIReply       *string   `gorm:"column:ai_reply;type:text" json:"ai_reply"`
  AIStatus      string    `gorm:"column:ai_status;default:'';index" json:"ai_status"`
  AIAudioURL    *string   `gorm:"column:ai_audio_url" json:"ai_audio_url,omitempty"`
  AIAudioPath   *string   `gorm:"column:ai_audio_path" json:"ai_audio_path,omitempty"`
  CreatedAt     time.Time `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Wish) TableName() string { return "wish" }
