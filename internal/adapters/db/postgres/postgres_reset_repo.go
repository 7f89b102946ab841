package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/app/auth/token"
	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresResetTokenRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPostgresResetTokenRepo(db *gorm.DB) *PostgresResetTokenRepo {
	return &PostgresResetTokenRepo{db: db, now: time.Now}
}

func (p *PostgresResetTokenRepo) Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (model.ResetToken, error) {
	tok, err := token.New()
	if err != nil {
		return model.ResetToken{}, err
	}

	now := p.now().UTC()
	rt := model.ResetToken{
		Token:          tok,
		UserID:         userID,
		ExpirationTime: now.Add(ttl),
		CreatedAt:      now,
	}
	if err := p.db.WithContext(ctx).Create(&rt).Error; err != nil {
		return model.ResetToken{}, customErrors.WrapInternal(err, "CreateResetToken")
	}
	return rt, nil
}

func (p *PostgresResetTokenRepo) FindByToken(ctx context.Context, tok string) (model.ResetToken, error) {
	if tok == "" {
		return model.ResetToken{}, customErrors.ErrNotFound
	}

	var rt model.ResetToken
	res := p.db.WithContext(ctx).Where("token = ?", tok).First(&rt)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.ResetToken{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.ResetToken{}, customErrors.WrapInternal(err, "FindResetToken")
	}
	return rt, nil
}

func (p *PostgresResetTokenRepo) Remove(ctx context.Context, tok string) error {
	if err := p.db.WithContext(ctx).Where("token = ?", tok).Delete(&model.ResetToken{}).Error; err != nil {
		return customErrors.WrapInternal(err, "RemoveResetToken")
	}
	return nil
}

func (p *PostgresResetTokenRepo) Consume(ctx context.Context, tok string, now time.Time) (model.ResetToken, error) {
	if tok == "" {
		return model.ResetToken{}, customErrors.ErrNotFound
	}

	var rt model.ResetToken
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token = ?", tok).First(&rt).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return customErrors.ErrNotFound
			}
			return err
		}

		// The conditional delete is the single-use guard: a concurrent
		// consumer sees zero rows affected once the first one commits.
		res := tx.Where("token = ? AND expiration_time >= ?", tok, now.UTC()).Delete(&model.ResetToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return customErrors.ErrNotFound
		}
		return nil
	})
	switch {
	case customErrors.IsNotFound(err):
		return model.ResetToken{}, customErrors.ErrNotFound
	case err != nil:
		return model.ResetToken{}, customErrors.WrapInternal(err, "ConsumeResetToken")
	}
	return rt, nil
}

func (p *PostgresResetTokenRepo) RemoveByUser(ctx context.Context, userID uuid.UUID) error {
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.ResetToken{}).Error; err != nil {
		return customErrors.WrapInternal(err, "RemoveResetTokensByUser")
	}
	return nil
}

func (p *PostgresResetTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := p.db.WithContext(ctx).Where("expiration_time < ?", before.UTC()).Delete(&model.ResetToken{})
	if err := res.Error; err != nil {
		return 0, customErrors.WrapInternal(err, "DeleteExpiredResetTokens")
	}
	return res.RowsAffected, nil
}
