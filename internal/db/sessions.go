package db

import (
	"context"
	"time"

	"coursehub/internal/models"

	"gorm.io/gorm/clause"
)

func (db *DB) CreateSession(ctx context.Context, session *models.Session) error {
	return translate(db.WithContext(ctx).Omit(clause.Associations).Create(session).Error)
}

func (db *DB) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (db *DB) DeleteSession(ctx context.Context, sessionID string) error {
	return db.WithContext(ctx).Where("id = ?", sessionID).Delete(&models.Session{}).Error
}

// DeleteExpiredSessions removes every session that expired at or before now.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
