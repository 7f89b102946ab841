package postgres

import (
	"context"
	"errors"
	"time"

	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User) (uuid.UUID, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	res := p.db.WithContext(ctx).Create(&user)
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, customErrors.ErrAlreadyExists
		}
		return uuid.Nil, customErrors.WrapInternal(err, "CreateUser")
	}
	return user.ID, nil
}

func (p *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return p.first(ctx, "GetUserByEmail", "email = ?", email)
}

func (p *PostgresUserRepo) GetUserByPhone(ctx context.Context, phone string) (model.User, error) {
	return p.first(ctx, "GetUserByPhone", "phone = ?", phone)
}

func (p *PostgresUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return p.first(ctx, "GetUserByID", "id = ?", id)
}

func (p *PostgresUserRepo) GetUserByIDAndEmail(ctx context.Context, id uuid.UUID, email string) (model.User, error) {
	return p.first(ctx, "GetUserByIDAndEmail", "id = ? AND email = ?", id, email)
}

func (p *PostgresUserRepo) GetUserByActivationToken(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, customErrors.ErrNotFound
	}
	return p.first(ctx, "GetUserByActivationToken", "activation_token = ?", token)
}

func (p *PostgresUserRepo) ClearActivationToken(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, customErrors.ErrNotFound
	}

	var u model.User
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("activation_token = ?", token).First(&u)
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return customErrors.ErrNotFound
		}
		if res.Error != nil {
			return customErrors.WrapInternal(res.Error, "ClearActivationToken")
		}

		// The token predicate makes a concurrent activation of the same row lose.
		now := time.Now().UTC()
		upd := tx.Model(&model.User{}).
			Where("id = ? AND activation_token = ?", u.ID, token).
			Updates(map[string]any{"activation_token": nil, "updated_at": now})
		if upd.Error != nil {
			return customErrors.WrapInternal(upd.Error, "ClearActivationToken")
		}
		if upd.RowsAffected == 0 {
			return customErrors.ErrNotFound
		}
		u.ActivationToken = nil
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (p *PostgresUserRepo) UpdateUser(ctx context.Context, user model.User) error {
	res := p.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"name":             user.Name,
			"email":            user.Email,
			"phone":            user.Phone,
			"password_hash":    user.PasswordHash,
			"activation_token": user.ActivationToken,
			"updated_at":       time.Now().UTC(),
		})
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			return customErrors.ErrAlreadyExists
		}
		return customErrors.WrapInternal(err, "UpdateUser")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}

	return nil
}

func (p *PostgresUserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res := p.db.WithContext(ctx).Delete(&model.User{}, "id = ?", id)
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "DeleteUser")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrNotFound
	}

	return nil
}

func (p *PostgresUserRepo) first(ctx context.Context, op string, query string, args ...any) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where(query, args...).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, op)
	}

	return u, nil
}
