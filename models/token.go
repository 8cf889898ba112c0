package models

import "time"

// TokenStatus is derived from the stored flags, never persisted.
type TokenStatus string

const (
	TokenAvailable TokenStatus = "AVAILABLE"
	TokenUsed      TokenStatus = "USED"
	TokenExpired   TokenStatus = "EXPIRED"
)

// TokenCodeLength is the fixed length of every issued code.
const TokenCodeLength = 32

// Token authorizes the creation of exactly one establishment.
type Token struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Code      string     `json:"code" gorm:"size:32;uniqueIndex;not null"`
	IsUsed    bool       `json:"is_used" gorm:"not null;default:false;index"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null;index"`
	UsedByID  *uint      `json:"used_by_id"`
	UsedBy    *User      `json:"used_by,omitempty" gorm:"foreignKey:UsedByID;constraint:OnDelete:SET NULL"`
	UsedAt    *time.Time `json:"used_at"`
}

// StatusAt reports the token status at the given instant.
func (t *Token) StatusAt(now time.Time) TokenStatus {
	if t.IsUsed {
		return TokenUsed
	}
	if !now.Before(t.ExpiresAt) {
		return TokenExpired
	}
	return TokenAvailable
}
