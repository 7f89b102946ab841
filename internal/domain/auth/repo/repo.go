package repo

import (
	"context"
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u model.User) (uuid.UUID, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	GetUserByPhone(ctx context.Context, phone string) (model.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	GetUserByIDAndEmail(ctx context.Context, id uuid.UUID, email string) (model.User, error)

	GetUserByActivationToken(ctx context.Context, token string) (model.User, error)

	// ClearActivationToken activates the account holding token. It reports
	// ErrNotFound when no account holds it, so two concurrent activations
	// cannot both succeed.
	ClearActivationToken(ctx context.Context, token string) (model.User, error)

	UpdateUser(ctx context.Context, u model.User) error

	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type SessionRepo interface {
	Save(ctx context.Context, userID uuid.UUID, refreshToken string, expiresAt time.Time) error

	GetByToken(ctx context.Context, refreshToken string) (model.Session, error)

	Remove(ctx context.Context, userID uuid.UUID) error
}

type ResetTokenRepo interface {
	Create(ctx context.Context, userID uuid.UUID, ttl time.Duration) (model.ResetToken, error)

	FindByToken(ctx context.Context, token string) (model.ResetToken, error)

	Remove(ctx context.Context, token string) error

	// Consume deletes the token if it is still live at now and returns it.
	// Of concurrent callers at most one succeeds; the rest get ErrNotFound.
	Consume(ctx context.Context, token string, now time.Time) (model.ResetToken, error)

	RemoveByUser(ctx context.Context, userID uuid.UUID) error
}

// ExpiredPurger is implemented by stores whose rows outlive their usefulness.
type ExpiredPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
