package repos

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

type SessionRepo interface {
	// Ensure creates the session row on first interaction with the default
	// expiry, or is a no-op if the session already exists.
	Ensure(ctx context.Context, tx *gorm.DB, sessionID string, now time.Time) error
	Touch(ctx context.Context, tx *gorm.DB, sessionID string, now time.Time) error
	GetByID(ctx context.Context, tx *gorm.DB, sessionID string) (*types.Session, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) Ensure(ctx context.Context, tx *gorm.DB, sessionID string, now time.Time) error {
	t := tx
	if t == nil {
		t = r.db
	}
	row := &types.Session{
		ID:           sessionID,
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(types.DefaultSessionTTL),
	}
	err := t.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error
	if err != nil {
		return wrapUnavailable(r.log, "ensure session", err)
	}
	return nil
}

func (r *sessionRepo) Touch(ctx context.Context, tx *gorm.DB, sessionID string, now time.Time) error {
	t := tx
	if t == nil {
		t = r.db
	}
	err := t.WithContext(ctx).Model(&types.Session{}).
		Where("id = ?", sessionID).
		Update("last_active_at", now).Error
	if err != nil {
		return wrapUnavailable(r.log, "touch session", err)
	}
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID string) (*types.Session, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var s types.Session
	if err := t.WithContext(ctx).Where("id = ?", sessionID).Limit(1).Find(&s).Error; err != nil {
		return nil, wrapUnavailable(r.log, "get session", err)
	}
	if s.ID == "" {
		return nil, nil
	}
	return &s, nil
}
