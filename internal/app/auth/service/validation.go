package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

var (
	emailPattern = regexp.MustCompile(`^[\w.+-]+@([\w-]+\.){1,3}[\w-]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
)

const (
	msgEmailInvalid    = "Email is not valid"
	msgPhoneInvalid    = "Invalid phone number format"
	msgPasswordsDiffer = "Passwords are not equal"
)

var fieldLabels = map[string]string{
	"name":                    "Name",
	"email":                   "Email",
	"password":                "Password",
	"oldPassword":             "Current password",
	"newPassword":             "Password",
	"newPasswordConfirmation": "Password confirmation",
	"phone":                   "Phone",
	"id":                      "Id",
}

// NewValidator returns a validator that reports fields by their JSON names and
// knows the storefront's email and phone formats.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("storeemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// validate collects every violation of s into a single ValidationError.
func (a *authService) validate(s any) error {
	return fieldErrors(a.v.Struct(s))
}

// validateExcept skips the named top-level fields.
func (a *authService) validateExcept(s any, fields ...string) error {
	return fieldErrors(a.v.StructExcept(s, fields...))
}

func fieldErrors(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return customErrors.WrapInternal(err, "validate")
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return customErrors.NewValidation(fields)
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "min":
		return "At least " + fe.Param() + " characters"
	case "storeemail":
		return msgEmailInvalid
	case "phone":
		return msgPhoneInvalid
	case "eqfield":
		return msgPasswordsDiffer
	default:
		return label + " is not valid"
	}
}

// normalizePhone converts a pattern-checked number to E.164, so equivalent
// spellings of one number collide on the unique constraint.
func normalizePhone(raw, region string) (string, error) {
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", customErrors.NewFieldError("phone", msgPhoneInvalid)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
