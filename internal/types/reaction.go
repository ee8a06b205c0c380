package types

import (
  "time"
  "github.com/google/uuid"
)

type Reaction struct {
  ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  WishID        uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_reaction_triple" json:"wish_id"`
  WalletAddress string    `gorm:"column:wallet_address;not null;uniqueIndex:uq_reaction_triple" json:"wallet_address"`
  Emoji         string    `gorm:"column:emoji;not null;uniqueIndex:uq_reaction_triple" json:"emoji"`
  CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Reaction) TableName() string { return "reaction" }
