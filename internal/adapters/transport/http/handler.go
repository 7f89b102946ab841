package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/gadgets-store/auth-service/internal/app/auth/service"
	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	"github.com/Miraines/gadgets-store/auth-service/internal/infra/health"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc          service.Service
	health       *health.Checker
	cookieDomain string
}

func NewHandler(svc service.Service, checker *health.Checker, cookieDomain string) *Handler {
	return &Handler{svc: svc, health: checker, cookieDomain: cookieDomain}
}

func toUserResponse(u model.PublicUser) dto.UserResponse {
	return dto.UserResponse{ID: u.ID.String(), Name: u.Name, Email: u.Email, Phone: u.Phone}
}

// bindJSON treats an empty body as an empty object.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return customErrors.NewInvalidArgument("Invalid request body")
	}
	return nil
}

// issue sets the refresh cookie and answers with the public user and access token.
func (h *Handler) issue(c *gin.Context, pair model.TokenPair) {
	setRefreshCookie(c, pair.RefreshToken, h.cookieDomain)
	c.JSON(http.StatusOK, dto.AuthResponse{
		User:        toUserResponse(pair.User),
		AccessToken: pair.AccessToken,
	})
}

// subject returns the authenticated account id and aborts with 403 when claimed differs from it.
func subject(c *gin.Context, claimed string) (uuid.UUID, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: defaultMessages[http.StatusUnauthorized]})
		return uuid.Nil, false
	}
	if claimed == "" {
		return claims.UserID, true
	}
	// Malformed ids are left to validation.
	if id, err := uuid.Parse(claimed); err == nil && id != claims.UserID {
		c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{Message: defaultMessages[http.StatusForbidden]})
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func (h *Handler) Register(c *gin.Context) {
	var body dto.RegisterDTO
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user.Public()))
}

func (h *Handler) Activate(c *gin.Context) {
	pair, err := h.svc.Activate(c.Request.Context(), c.Param("activationToken"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issue(c, pair)
}

func (h *Handler) Login(c *gin.Context) {
	var body dto.LoginDTO
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err, notFoundAsBadRequest)
		return
	}
	h.issue(c, pair)
}

func (h *Handler) Refresh(c *gin.Context) {
	pair, err := h.svc.Refresh(c.Request.Context(), refreshFromCookie(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issue(c, pair)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), refreshFromCookie(c)); err != nil {
		h.fail(c, err)
		return
	}
	clearRefreshCookie(c, h.cookieDomain)
	c.Status(http.StatusNoContent)
}

func (h *Handler) RequestReset(c *gin.Context) {
	var body dto.ResetRequestDTO
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.svc.RequestReset(c.Request.Context(), body.Email); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "If the account exists, a reset link has been sent"})
}

func (h *Handler) ConfirmReset(c *gin.Context) {
	rt, err := h.svc.ConfirmReset(c.Request.Context(), c.Param("resetToken"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ResetTokenResponse{
		ResetToken:     rt.Token,
		UserID:         rt.UserID.String(),
		ExpirationTime: rt.ExpirationTime.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var body dto.ChangePasswordDTO
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), body); err != nil {
		h.fail(c, err, badRequest)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password has been changed"})
}

func (h *Handler) ChangeAuthPassword(c *gin.Context) {
	var body dto.ChangeAuthPasswordDTO
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}
	if _, ok := subject(c, body.ID); !ok {
		return
	}

	pair, err := h.svc.ChangeAuthenticatedPassword(c.Request.Context(), body)
	if err != nil {
		h.fail(c, err, badRequest)
		return
	}
	h.issue(c, pair)
}

func (h *Handler) ConfirmChangeEmail(c *gin.Context) {
	var body dto.ChangeEmailDTO
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}
	if _, ok := subject(c, body.User.ID); !ok {
		return
	}

	pair, err := h.svc.ChangeEmail(c.Request.Context(), body.User)
	if err != nil {
		h.fail(c, err, badRequest)
		return
	}
	h.issue(c, pair)
}

func (h *Handler) ChangePhone(c *gin.Context) {
	raw := c.Param("id")
	if _, err := uuid.Parse(raw); err != nil {
		h.fail(c, customErrors.NewFieldError("id", "Id is not valid"))
		return
	}
	id, ok := subject(c, raw)
	if !ok {
		return
	}

	var body dto.ChangePhoneDTO
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.svc.ChangePhone(c.Request.Context(), id, body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user.Public()))
}

func (h *Handler) UpdateName(c *gin.Context) {
	id, ok := subject(c, "")
	if !ok {
		return
	}

	var body dto.UpdateNameDTO
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.svc.UpdateName(c.Request.Context(), id, body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user.Public()))
}

func (h *Handler) Health(c *gin.Context) {
	rep := h.health.Check(c.Request.Context())
	status := http.StatusOK
	if !rep.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, rep)
}
