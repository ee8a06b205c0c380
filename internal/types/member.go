package types

import (
  "time"
)

// Member presence. IsOnline is derived at read time from LastActive and is
// never stored.
type Member struct {
  WalletAddress string    `gorm:"column:wallet_address;primaryKey" json:"wallet_address"`
  Username      string    `gorm:"column:username" json:"username"`
  Avatar        string    `gorm:"column:avatar" json:"avatar"`
  LastActive    time.Time `gorm:"column:last_active;not null;default:now();index" json:"last_active"`
  CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`

  IsOnline bool `gorm:"-" json:"is_online"`
}

func (Member) TableName() string { return "member" }
