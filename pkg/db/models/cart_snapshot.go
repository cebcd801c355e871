package models

import "time"

// CartSnapshot is the SQL mirror of one session's cart. Payload holds the
// JSON snapshot document exactly as the cart store encoded it.
type CartSnapshot struct {
	SessionKey string    `gorm:"column:session_key;primaryKey"`
	Payload    string    `gorm:"column:payload;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
