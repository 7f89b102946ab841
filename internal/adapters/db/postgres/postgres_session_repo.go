package postgres

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresSessionRepo keeps one row per account; saving replaces it.
type PostgresSessionRepo struct {
	db *gorm.DB
}

func NewPostgresSessionRepo(db *gorm.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

func (p *PostgresSessionRepo) Save(ctx context.Context, userID uuid.UUID, refreshToken string, expiresAt time.Time) error {
	s := model.Session{
		UserID:       userID,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	res := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"refresh_token", "expires_at", "updated_at"}),
	}).Create(&s)
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "SaveSession")
	}
	return nil
}

func (p *PostgresSessionRepo) GetByToken(ctx context.Context, refreshToken string) (model.Session, error) {
	if refreshToken == "" {
		return model.Session{}, customErrors.ErrNotFound
	}

	var s model.Session
	res := p.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).First(&s)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.Session{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.Session{}, customErrors.WrapInternal(err, "GetSessionByToken")
	}
	return s, nil
}

func (p *PostgresSessionRepo) Remove(ctx context.Context, userID uuid.UUID) error {
	res := p.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{})
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "RemoveSession")
	}
	return nil
}

func (p *PostgresSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := p.db.WithContext(ctx).Where("expires_at < ?", before.UTC()).Delete(&model.Session{})
	if err := res.Error; err != nil {
		return 0, customErrors.WrapInternal(err, "DeleteExpiredSessions")
	}
	return res.RowsAffected, nil
}
