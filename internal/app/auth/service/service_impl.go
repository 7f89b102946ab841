package service

import (
	"context"
	"strings"
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/gadgets-store/auth-service/internal/app/auth/token"
	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/jwt"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	repo "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/repo"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/notification"
	"github.com/Miraines/gadgets-store/auth-service/internal/infra/config"
	applog "github.com/Miraines/gadgets-store/auth-service/internal/infra/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgEmailTaken        = "User with this email already exists"
	msgPhoneTaken        = "User with this phone number already exists"
	msgAccountTaken      = "User with this email or phone number already exists"
	msgWrongCredentials  = "Wrong email or password"
	msgNotActivated      = "Please check your inbox and activate your email"
	msgActivationInvalid = "Activation link is invalid or has already been used"
	msgUserNotFound      = "User is not found"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hash string) (bool, error)
}

type Service interface {
	Register(context.Context, dto.RegisterDTO) (model.User, error)
	Activate(ctx context.Context, activationToken string) (model.TokenPair, error)
	Login(context.Context, dto.LoginDTO) (model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error

	RequestReset(ctx context.Context, email string) error
	ConfirmReset(ctx context.Context, resetToken string) (model.ResetToken, error)
	ChangePassword(context.Context, dto.ChangePasswordDTO) error

	ChangeAuthenticatedPassword(context.Context, dto.ChangeAuthPasswordDTO) (model.TokenPair, error)
	ChangeEmail(context.Context, dto.ChangeEmailUserDTO) (model.TokenPair, error)
	ChangePhone(ctx context.Context, id uuid.UUID, in dto.ChangePhoneDTO) (model.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, in dto.UpdateNameDTO) (model.User, error)

	ValidateAccess(ctx context.Context, accessToken string) (jwt.AccessClaims, error)
}

type Deps struct {
	Users    repo.UserRepo
	Sessions repo.SessionRepo
	Resets   repo.ResetTokenRepo
	JWT      jwt.JWTUtil
	Hasher   PasswordHasher
	Mailer   notification.Mailer
	Config   *config.Config
	Validate *validator.Validate
	Log      *zap.Logger
	// Now overrides the clock used for reset-token expiry.
	Now func() time.Time
}

type authService struct {
	users    repo.UserRepo
	sessions repo.SessionRepo
	resets   repo.ResetTokenRepo
	jwtUtil  jwt.JWTUtil
	hasher   PasswordHasher
	mailer   notification.Mailer
	cfg      *config.Config
	v        *validator.Validate
	log      *zap.Logger
	now      func() time.Time
}

func New(d Deps) Service {
	if d.Validate == nil {
		d.Validate = NewValidator()
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &authService{
		users:    d.Users,
		sessions: d.Sessions,
		resets:   d.Resets,
		jwtUtil:  d.JWT,
		hasher:   d.Hasher,
		mailer:   d.Mailer,
		cfg:      d.Config,
		v:        d.Validate,
		log:      d.Log,
		now:      d.Now,
	}
}

func (a *authService) Register(ctx context.Context, in dto.RegisterDTO) (model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := a.validate(in); err != nil {
		return model.User{}, err
	}
	phone, err := normalizePhone(in.Phone, a.cfg.PhoneRegion)
	if err != nil {
		return model.User{}, err
	}

	// Advisory checks for precise messages; the unique constraints decide races.
	if err := a.ensureFree(ctx, a.users.GetUserByEmail, in.Email, msgEmailTaken); err != nil {
		return model.User{}, err
	}
	if err := a.ensureFree(ctx, a.users.GetUserByPhone, phone, msgPhoneTaken); err != nil {
		return model.User{}, err
	}

	passwordHash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, customErrors.WrapInternal(err, "Register")
	}
	activationToken, err := token.New()
	if err != nil {
		return model.User{}, customErrors.WrapInternal(err, "Register")
	}

	user := model.User{
		ID:              uuid.New(),
		Name:            in.Name,
		Email:           in.Email,
		Phone:           phone,
		PasswordHash:    passwordHash,
		ActivationToken: &activationToken,
	}
	if _, err = a.users.CreateUser(ctx, user); err != nil {
		if customErrors.IsAlreadyExists(err) {
			return model.User{}, customErrors.NewAlreadyExists(msgAccountTaken)
		}
		return model.User{}, customErrors.WrapInternal(err, "Register")
	}

	if err = a.mailer.SendActivation(ctx, user.Email, user.Name, activationToken); err != nil {
		// Without the mail the account could never be activated; drop it so the
		// client can register again with the same email and phone.
		if delErr := a.users.DeleteUser(context.WithoutCancel(ctx), user.ID); delErr != nil {
			a.log.Error("rollback of unactivatable account failed",
				zap.String("user_id", user.ID.String()), zap.Error(delErr))
		}
		return model.User{}, customErrors.WrapInternal(err, "send activation mail")
	}

	return user, nil
}

func (a *authService) ensureFree(
	ctx context.Context,
	lookup func(context.Context, string) (model.User, error),
	value, conflictMsg string,
) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return customErrors.NewAlreadyExists(conflictMsg)
	case customErrors.IsNotFound(err):
		return nil
	default:
		return customErrors.WrapInternal(err, "uniqueness check")
	}
}

func (a *authService) Activate(ctx context.Context, activationToken string) (model.TokenPair, error) {
	user, err := a.users.ClearActivationToken(ctx, activationToken)
	switch {
	case customErrors.IsNotFound(err):
		return model.TokenPair{}, customErrors.NewNotFound(msgActivationInvalid)
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Activate")
	}

	return a.issueTokens(ctx, user)
}

func (a *authService) Login(ctx context.Context, in dto.LoginDTO) (model.TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	if err := a.validate(in); err != nil {
		return model.TokenPair{}, err
	}

	user, err := a.users.GetUserByEmail(ctx, in.Email)
	switch {
	case customErrors.IsNotFound(err):
		return model.TokenPair{}, customErrors.WithDetail(customErrors.ErrNotFound, msgWrongCredentials)
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}

	if !user.Activated() {
		return model.TokenPair{}, customErrors.WithDetail(customErrors.ErrUnverified, msgNotActivated)
	}

	ok, err := a.hasher.Compare(in.Password, user.PasswordHash)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}
	if !ok {
		return model.TokenPair{}, customErrors.WithDetail(customErrors.ErrInvalidCredentials, msgWrongCredentials)
	}

	return a.issueTokens(ctx, user)
}

func (a *authService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := a.jwtUtil.ValidateRefreshToken(refreshToken)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrUnauthorized
	}

	// A verified token is still refused once a newer one has replaced it.
	sess, err := a.sessions.GetByToken(ctx, refreshToken)
	switch {
	case customErrors.IsNotFound(err):
		return model.TokenPair{}, customErrors.ErrUnauthorized
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}
	if sess.UserID != claims.UserID {
		return model.TokenPair{}, customErrors.ErrUnauthorized
	}

	user, err := a.users.GetUserByEmail(ctx, claims.Email)
	switch {
	case customErrors.IsNotFound(err):
		return model.TokenPair{}, customErrors.ErrUnauthorized
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}

	return a.issueTokens(ctx, user)
}

func (a *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := a.jwtUtil.ValidateRefreshToken(refreshToken)
	if err != nil || claims.UserID == uuid.Nil {
		return customErrors.ErrUnauthorized
	}

	if err := a.sessions.Remove(ctx, claims.UserID); err != nil {
		return customErrors.WrapInternal(err, "Logout")
	}
	return nil
}

func (a *authService) ValidateAccess(_ context.Context, accessToken string) (jwt.AccessClaims, error) {
	claims, err := a.jwtUtil.ValidateAccessToken(accessToken)
	if err != nil || claims.UserID == uuid.Nil {
		return jwt.AccessClaims{}, customErrors.ErrUnauthorized
	}
	return claims, nil
}

// issueTokens mints a pair and makes its refresh token the only one honoured
// for the account.
func (a *authService) issueTokens(ctx context.Context, user model.User) (model.TokenPair, error) {
	uc := jwt.UserClaims{UserID: user.ID, Email: user.Email, Name: user.Name}

	at, atExp, err := a.jwtUtil.GenerateAccessToken(uc)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateAccessToken")
	}
	rt, rtExp, err := a.jwtUtil.GenerateRefreshToken(uc)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateRefreshToken")
	}

	if err = a.sessions.Save(ctx, user.ID, rt, rtExp); err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "SaveSession")
	}

	now := time.Now()
	return model.TokenPair{
		AccessToken:  at,
		RefreshToken: rt,
		AccessTTL:    atExp.Sub(now),
		RefreshTTL:   rtExp.Sub(now),
		User:         user.Public(),
	}, nil
}

func (a *authService) logMailFailure(msg string, email string, err error) {
	a.log.Warn(msg, applog.Email("email", email), zap.Error(err))
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, customErrors.NewFieldError("id", "Id is not valid")
	}
	return id, nil
}
