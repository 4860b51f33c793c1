package model

import "time"

// RefreshToken is a long-lived, revocable credential persisted per login.
// Access tokens stay stateless; only refresh tokens are stored.
type RefreshToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Token     string    `json:"token" gorm:"uniqueIndex;size:500;not null"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	IsRevoked bool      `json:"is_revoked" gorm:"default:false"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// IsExpired reports whether the token is past its expiry.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().UTC().After(t.ExpiresAt)
}

// IsValid reports whether the token can still mint access tokens.
func (t *RefreshToken) IsValid() bool {
	return !t.IsRevoked && !t.IsExpired()
}
