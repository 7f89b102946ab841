package service

import (
	"context"
	"strings"

	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

const (
	msgWrongCurrentPassword = "Your current password is wrong"
	msgWrongPassword        = "Your password is wrong"
	msgEmailSame            = "Email is the same"
	msgEmailInUse           = "This email is already in use"
	msgPhoneInUse           = "Phone already in use"
)

func (a *authService) ChangeAuthenticatedPassword(ctx context.Context, in dto.ChangeAuthPasswordDTO) (model.TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	// The confirmation is checked once the account is known to exist.
	if err := a.validateExcept(in, "NewPasswordConfirmation"); err != nil {
		return model.TokenPair{}, err
	}
	id, err := parseID(in.ID)
	if err != nil {
		return model.TokenPair{}, err
	}

	user, err := a.users.GetUserByIDAndEmail(ctx, id, in.Email)
	switch {
	case customErrors.IsNotFound(err):
		return model.TokenPair{}, customErrors.NewNotFound(msgUserNotFound)
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "ChangeAuthenticatedPassword")
	}
	if err := a.validate(in); err != nil {
		return model.TokenPair{}, err
	}

	ok, err := a.hasher.Compare(in.OldPassword, user.PasswordHash)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "ChangeAuthenticatedPassword")
	}
	if !ok {
		return model.TokenPair{}, customErrors.WithDetail(customErrors.ErrInvalidCredentials, msgWrongCurrentPassword)
	}

	hash, err := a.hasher.Hash(in.NewPassword)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "ChangeAuthenticatedPassword")
	}
	user.PasswordHash = hash
	if err := a.users.UpdateUser(ctx, user); err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "ChangeAuthenticatedPassword")
	}

	return a.issueTokens(ctx, user)
}

func (a *authService) ChangeEmail(ctx context.Context, in dto.ChangeEmailUserDTO) (model.TokenPair, error) {
	in.Email = normalizeEmail(in.Email)
	if err := a.validate(in); err != nil {
		return model.TokenPair{}, err
	}
	id, err := parseID(in.ID)
	if err != nil {
		return model.TokenPair{}, err
	}

	other, err := a.users.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil && other.ID != id:
		return model.TokenPair{}, customErrors.NewAlreadyExists(msgEmailInUse)
	case err != nil && !customErrors.IsNotFound(err):
		return model.TokenPair{}, customErrors.WrapInternal(err, "ChangeEmail")
	}

	user, err := a.users.GetUserByID(ctx, id)
	switch {
	case customErrors.IsNotFound(err):
		return model.TokenPair{}, customErrors.NewNotFound(msgUserNotFound)
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "ChangeEmail")
	}

	if user.Email == in.Email {
		return model.TokenPair{}, customErrors.NewFieldError("email", msgEmailSame)
	}

	ok, err := a.hasher.Compare(in.Password, user.PasswordHash)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "ChangeEmail")
	}
	if !ok {
		return model.TokenPair{}, customErrors.WithDetail(customErrors.ErrInvalidCredentials, msgWrongPassword)
	}

	// The notice is queued for background delivery; a failure to queue it is
	// logged and does not hold back the change.
	if err := a.mailer.SendEmailChanged(ctx, user.Email, user.Name, in.Email); err != nil {
		a.logMailFailure("email-changed notice not queued", user.Email, err)
	}

	user.Email = in.Email
	if err := a.users.UpdateUser(ctx, user); err != nil {
		if customErrors.IsAlreadyExists(err) {
			return model.TokenPair{}, customErrors.NewAlreadyExists(msgEmailInUse)
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "ChangeEmail")
	}

	return a.issueTokens(ctx, user)
}

func (a *authService) ChangePhone(ctx context.Context, id uuid.UUID, in dto.ChangePhoneDTO) (model.User, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	if err := a.validate(in); err != nil {
		return model.User{}, err
	}
	phone, err := normalizePhone(in.Phone, a.cfg.PhoneRegion)
	if err != nil {
		return model.User{}, err
	}

	other, err := a.users.GetUserByPhone(ctx, phone)
	switch {
	case err == nil && other.ID != id:
		return model.User{}, customErrors.NewAlreadyExists(msgPhoneInUse)
	case err != nil && !customErrors.IsNotFound(err):
		return model.User{}, customErrors.WrapInternal(err, "ChangePhone")
	}

	user, err := a.users.GetUserByID(ctx, id)
	switch {
	case customErrors.IsNotFound(err):
		return model.User{}, customErrors.NewNotFound(msgUserNotFound)
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "ChangePhone")
	}
	if user.Phone == phone {
		return user, nil
	}

	user.Phone = phone
	if err := a.users.UpdateUser(ctx, user); err != nil {
		if customErrors.IsAlreadyExists(err) {
			return model.User{}, customErrors.NewAlreadyExists(msgPhoneInUse)
		}
		return model.User{}, customErrors.WrapInternal(err, "ChangePhone")
	}
	return user, nil
}

func (a *authService) UpdateName(ctx context.Context, id uuid.UUID, in dto.UpdateNameDTO) (model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := a.validate(in); err != nil {
		return model.User{}, err
	}

	user, err := a.users.GetUserByID(ctx, id)
	switch {
	case customErrors.IsNotFound(err):
		return model.User{}, customErrors.NewNotFound(msgUserNotFound)
	case err != nil:
		return model.User{}, customErrors.WrapInternal(err, "UpdateName")
	}

	user.Name = in.Name
	if err := a.users.UpdateUser(ctx, user); err != nil {
		return model.User{}, customErrors.WrapInternal(err, "UpdateName")
	}
	return user, nil
}
