package types

import "time"

// Session identity is an opaque 32-byte token issued by the transport,
// hex-encoded for storage. Not a uuid.UUID: it is an externally-issued
// opaque identifier, not an engine-generated id.
type Session struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	LastActiveAt time.Time `gorm:"column:last_active_at;not null;default:now()" json:"last_active_at"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
}

func (Session) TableName() string { return "session" }

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

const DefaultSessionTTL = 30 * 24 * time.Hour
