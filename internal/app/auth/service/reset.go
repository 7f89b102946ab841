package service

import (
	"context"
	"strings"

	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	applog "github.com/Miraines/gadgets-store/auth-service/internal/infra/log"
	"go.uber.org/zap"
)

const (
	msgEmailRequired = "Email is required"
	msgResetNotFound = "Reset link is invalid"
	msgResetExpired  = "Expired reset token, please request new token"
	msgResetInvalid  = "Invalid or expired reset token"
)

func (a *authService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return customErrors.WithDetail(customErrors.ErrUnauthorized, msgEmailRequired)
	}

	user, err := a.users.GetUserByEmail(ctx, email)
	switch {
	case customErrors.IsNotFound(err):
		// Same answer as for a known address.
		a.log.Debug("reset requested for unknown email", applog.Email("email", email))
		return nil
	case err != nil:
		return customErrors.WrapInternal(err, "RequestReset")
	}

	if a.cfg.ResetInvalidatePrior {
		if err := a.resets.RemoveByUser(ctx, user.ID); err != nil {
			return customErrors.WrapInternal(err, "RequestReset")
		}
	}

	rt, err := a.resets.Create(ctx, user.ID, a.cfg.ResetTokenTTL)
	if err != nil {
		return customErrors.WrapInternal(err, "RequestReset")
	}

	if err := a.mailer.SendReset(ctx, user.Email, user.Name, rt.Token); err != nil {
		// The user never saw this token; do not leave it usable.
		if rmErr := a.resets.Remove(context.WithoutCancel(ctx), rt.Token); rmErr != nil {
			a.log.Error("drop undelivered reset token", zap.Error(rmErr))
		}
		return customErrors.WrapInternal(err, "send reset mail")
	}
	return nil
}

func (a *authService) ConfirmReset(ctx context.Context, resetToken string) (model.ResetToken, error) {
	rt, err := a.resets.FindByToken(ctx, resetToken)
	switch {
	case customErrors.IsNotFound(err):
		return model.ResetToken{}, customErrors.NewNotFound(msgResetNotFound)
	case err != nil:
		return model.ResetToken{}, customErrors.WrapInternal(err, "ConfirmReset")
	}

	if rt.Expired(a.now()) {
		return model.ResetToken{}, customErrors.WithDetail(customErrors.ErrExpired, msgResetExpired)
	}
	return rt, nil
}

func (a *authService) ChangePassword(ctx context.Context, in dto.ChangePasswordDTO) error {
	if err := a.validate(in); err != nil {
		return err
	}
	in.ResetToken = strings.TrimSpace(in.ResetToken)
	if in.ResetToken == "" {
		return customErrors.WithDetail(customErrors.ErrInvalidToken, msgResetInvalid)
	}

	// Consuming first makes the token single-use even under concurrent
	// requests. Absent and expired tokens are indistinguishable here.
	rt, err := a.resets.Consume(ctx, in.ResetToken, a.now())
	switch {
	case customErrors.IsNotFound(err):
		return customErrors.WithDetail(customErrors.ErrInvalidToken, msgResetInvalid)
	case err != nil:
		return customErrors.WrapInternal(err, "ChangePassword")
	}

	user, err := a.users.GetUserByID(ctx, rt.UserID)
	switch {
	case customErrors.IsNotFound(err):
		return customErrors.WithDetail(customErrors.ErrInvalidToken, msgResetInvalid)
	case err != nil:
		return customErrors.WrapInternal(err, "ChangePassword")
	}

	hash, err := a.hasher.Hash(in.NewPassword)
	if err != nil {
		return customErrors.WrapInternal(err, "ChangePassword")
	}
	user.PasswordHash = hash
	if err := a.users.UpdateUser(ctx, user); err != nil {
		return customErrors.WrapInternal(err, "ChangePassword")
	}
	return nil
}
