package dto

type RegisterDTO struct {
	Name     string `json:"name"     validate:"required,min=3"`
	Email    string `json:"email"    validate:"required,storeemail"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"    validate:"required,phone"`
}

type LoginDTO struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ResetRequestDTO struct {
	Email string `json:"email"`
}

type ChangePasswordDTO struct {
	ResetToken              string `json:"resetToken"`
	NewPassword             string `json:"newPassword"             validate:"required,min=6"`
	NewPasswordConfirmation string `json:"newPasswordConfirmation" validate:"required,eqfield=NewPassword"`
}

type ChangeAuthPasswordDTO struct {
	ID                      string `json:"id"                      validate:"required,uuid"`
	Email                   string `json:"email"                   validate:"required"`
	OldPassword             string `json:"oldPassword"             validate:"required"`
	NewPassword             string `json:"newPassword"             validate:"required,min=6"`
	NewPasswordConfirmation string `json:"newPasswordConfirmation" validate:"required,eqfield=NewPassword"`
}

type ChangeEmailDTO struct {
	User ChangeEmailUserDTO `json:"user"`
}

type ChangeEmailUserDTO struct {
	ID       string `json:"id"       validate:"required,uuid"`
	Email    string `json:"email"    validate:"required,storeemail"`
	Password string `json:"password" validate:"required"`
}

type ChangePhoneDTO struct {
	Phone string `json:"phone" validate:"required,phone"`
}

type UpdateNameDTO struct {
	Name string `json:"name" validate:"required,min=3"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type ResetTokenResponse struct {
	ResetToken     string `json:"resetToken"`
	UserID         string `json:"userId"`
	ExpirationTime string `json:"expirationTime"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
