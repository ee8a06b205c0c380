package types

import (
  "time"
  "github.com/google/uuid"
)

// A persona-authored reply is a finished artifact: it is inserted once the
// generation succeeded and never transitions state. Only user-authored
// replies can trigger enrichment, and the answer arrives as a new row.
type Reply struct {
  ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  WishID        uuid.UUID `gorm:"type:uuid;not null;index" json:"wish_id"`
  Wish          *Wish     `gorm:"constraint:OnDelete:CASCADE;foreignKey:WishID;references:ID" json:"wish,omitempty"`
  WalletAddress string    `gorm:"column:wallet_address;not null" json:"wallet_address"`
  Username      string    `gorm:"column:username" json:"username"`
  Avatar        string    `gorm:"column:avatar" json:"avatar"`
  ReplyText     string    `gorm:"column:reply_text;type:text;not null" json:"reply_text"`
  IsMod         bool      `gorm:"column:is_mod;default:false" json:"is_mod"`
  CreatedAt     time.Time `gorm:"not null;default:now();index" json:"created_at"`
  UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Reply) TableName() string { return "reply" }
