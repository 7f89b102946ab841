package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/db/postgres"
	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/gadgets-store/auth-service/internal/app/auth/jwt"
	"github.com/Miraines/gadgets-store/auth-service/internal/app/auth/password"
	"github.com/Miraines/gadgets-store/auth-service/internal/app/auth/service"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	"github.com/Miraines/gadgets-store/auth-service/internal/infra/config"
	"github.com/Miraines/gadgets-store/auth-service/internal/infra/health"
	"github.com/alexedwards/argon2id"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() { gin.SetMode(gin.TestMode) }

/* ───────────────────────────── helpers ───────────────────────────── */

type mailbox struct {
	mu     sync.Mutex
	tokens map[string]string // kind+":"+to -> token or payload
}

func (m *mailbox) put(kind, to, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[kind+":"+to] = payload
	return nil
}

func (m *mailbox) get(kind, to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[kind+":"+to]
}

func (m *mailbox) SendActivation(_ context.Context, to, _, tok string) error {
	return m.put("activation", to, tok)
}

func (m *mailbox) SendReset(_ context.Context, to, _, tok string) error {
	return m.put("reset", to, tok)
}

func (m *mailbox) SendEmailChanged(_ context.Context, oldEmail, _, newEmail string) error {
	return m.put("email_changed", oldEmail, newEmail)
}

type env struct {
	router *gin.Engine
	mail   *mailbox
	resets *postgres.PostgresResetTokenRepo
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Session{}, &model.ResetToken{}))

	util, err := jwt.NewJWTUtil(jwt.Options{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "test",
		Audience:      "test",
	})
	require.NoError(t, err)

	e := &env{
		mail:   &mailbox{tokens: map[string]string{}},
		resets: postgres.NewPostgresResetTokenRepo(db),
	}
	svc := service.New(service.Deps{
		Users:    postgres.NewPostgresUserRepo(db),
		Sessions: postgres.NewPostgresSessionRepo(db),
		Resets:   e.resets,
		JWT:      util,
		Hasher: password.NewHasher("pepper", &argon2id.Params{
			Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
		}),
		Mailer: e.mail,
		Config: &config.Config{ResetTokenTTL: time.Hour, ResetInvalidatePrior: true, PhoneRegion: "US"},
	})

	checker := health.NewChecker(time.Second).Add("postgres", health.DB(db))
	e.router = NewRouter(NewHandler(svc, checker, ""), RouterOptions{})
	return e
}

type call struct {
	method, path string
	body         any
	bearer       string
	refresh      string
}

func (e *env) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if c.refresh != "" {
		req.AddCookie(&http.Cookie{Name: refreshCookie, Value: c.refresh})
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func refreshCookieOf(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == refreshCookie {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", refreshCookie)
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

var annBody = dto.RegisterDTO{Name: "Ann", Email: "ann@x.com", Password: "secret1", Phone: "+15551234567"}

// activeAnn registers and activates Ann and returns the activation response.
func (e *env) activeAnn(t *testing.T) (dto.AuthResponse, string) {
	t.Helper()
	w := e.do(t, call{method: http.MethodPost, path: "/registration", body: annBody})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, call{method: http.MethodGet, path: "/activate/" + e.mail.get("activation", annBody.Email)})
	require.Equal(t, http.StatusOK, w.Code)
	return decode[dto.AuthResponse](t, w), refreshCookieOf(t, w).Value
}

/* ───────────────────────────── tests ───────────────────────────── */

func TestHandler_RegisterActivateLoginScenario(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, call{method: http.MethodPost, path: "/registration", body: annBody})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[dto.UserResponse](t, w)
	require.Equal(t, "ann@x.com", created.Email)

	login := dto.LoginDTO{Email: annBody.Email, Password: annBody.Password}
	w = e.do(t, call{method: http.MethodPost, path: "/login", body: login})
	require.Equal(t, http.StatusBadRequest, w.Code, "login before activation")
	require.Equal(t, "Please check your inbox and activate your email", decode[dto.ErrorResponse](t, w).Message)

	token := e.mail.get("activation", annBody.Email)
	require.NotEmpty(t, token)
	w = e.do(t, call{method: http.MethodGet, path: "/activate/" + token})
	require.Equal(t, http.StatusOK, w.Code)

	activated := refreshCookieOf(t, w)
	require.True(t, activated.HttpOnly)
	require.True(t, activated.Secure)
	require.Equal(t, http.SameSiteNoneMode, activated.SameSite)
	require.Equal(t, int((30 * 24 * time.Hour).Seconds()), activated.MaxAge)
	resp := decode[dto.AuthResponse](t, w)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, created.ID, resp.User.ID)

	w = e.do(t, call{method: http.MethodGet, path: "/activate/" + token})
	require.Equal(t, http.StatusNotFound, w.Code, "activation is single-use")

	w = e.do(t, call{method: http.MethodPost, path: "/login", body: login})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEqual(t, activated.Value, refreshCookieOf(t, w).Value)
}

func TestHandler_LoginFailuresShareMessage(t *testing.T) {
	e := newEnv(t)
	e.activeAnn(t)

	unknown := e.do(t, call{method: http.MethodPost, path: "/login",
		body: dto.LoginDTO{Email: "nobody@x.com", Password: "secret1"}})
	wrong := e.do(t, call{method: http.MethodPost, path: "/login",
		body: dto.LoginDTO{Email: annBody.Email, Password: "wrong-pass"}})

	require.Equal(t, http.StatusBadRequest, unknown.Code)
	require.Equal(t, http.StatusBadRequest, wrong.Code)
	require.Equal(t, decode[dto.ErrorResponse](t, unknown).Message, decode[dto.ErrorResponse](t, wrong).Message)
}

func TestHandler_RegisterValidation(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, call{method: http.MethodPost, path: "/registration",
		body: dto.RegisterDTO{Name: "A", Email: "bad", Password: "123", Phone: "x"}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode[dto.ErrorResponse](t, w)
	require.Len(t, body.Errors, 4, "all field violations are reported together")
	require.Contains(t, body.Errors, "name")
	require.Contains(t, body.Errors, "email")
	require.Contains(t, body.Errors, "password")
	require.Contains(t, body.Errors, "phone")

	w = e.do(t, call{method: http.MethodPost, path: "/registration", body: "not an object"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_RegisterConflict(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, call{method: http.MethodPost, path: "/registration", body: annBody})
	require.Equal(t, http.StatusCreated, w.Code)

	sameEmail := annBody
	sameEmail.Phone = "+15557654321"
	w = e.do(t, call{method: http.MethodPost, path: "/registration", body: sameEmail})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "User with this email already exists", decode[dto.ErrorResponse](t, w).Message)

	samePhone := annBody
	samePhone.Email = "other@x.com"
	w = e.do(t, call{method: http.MethodPost, path: "/registration", body: samePhone})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_ConcurrentRegisterSameEmail(t *testing.T) {
	e := newEnv(t)

	bodies := []dto.RegisterDTO{
		{Name: "First", Email: "a@b.com", Password: "secret1", Phone: "+15551110001"},
		{Name: "Second", Email: "a@b.com", Password: "secret1", Phone: "+15551110002"},
	}

	codes := make([]int, len(bodies))
	var wg sync.WaitGroup
	for i, b := range bodies {
		wg.Add(1)
		go func(i int, b dto.RegisterDTO) {
			defer wg.Done()
			codes[i] = e.do(t, call{method: http.MethodPost, path: "/registration", body: b}).Code
		}(i, b)
	}
	wg.Wait()

	require.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, codes)
}

func TestHandler_RefreshRotationAndLogout(t *testing.T) {
	e := newEnv(t)
	_, r1 := e.activeAnn(t)

	w := e.do(t, call{method: http.MethodGet, path: "/refresh", refresh: r1})
	require.Equal(t, http.StatusOK, w.Code)
	r2 := refreshCookieOf(t, w).Value
	require.NotEqual(t, r1, r2)

	w = e.do(t, call{method: http.MethodGet, path: "/refresh", refresh: r1})
	require.Equal(t, http.StatusUnauthorized, w.Code, "superseded refresh token")

	w = e.do(t, call{method: http.MethodGet, path: "/refresh"})
	require.Equal(t, http.StatusUnauthorized, w.Code, "missing cookie")

	w = e.do(t, call{method: http.MethodPost, path: "/logout", refresh: r2})
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "", refreshCookieOf(t, w).Value)

	w = e.do(t, call{method: http.MethodGet, path: "/refresh", refresh: r2})
	require.Equal(t, http.StatusUnauthorized, w.Code, "refresh after logout")

	w = e.do(t, call{method: http.MethodPost, path: "/logout", refresh: "garbage"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_PasswordResetFlow(t *testing.T) {
	e := newEnv(t)
	auth, _ := e.activeAnn(t)

	w := e.do(t, call{method: http.MethodPost, path: "/reset", body: dto.ResetRequestDTO{}})
	require.Equal(t, http.StatusUnauthorized, w.Code, "missing email")

	w = e.do(t, call{method: http.MethodPost, path: "/reset"})
	require.Equal(t, http.StatusUnauthorized, w.Code, "empty body")

	w = e.do(t, call{method: http.MethodPost, path: "/reset", body: dto.ResetRequestDTO{Email: "nobody@x.com"}})
	require.Equal(t, http.StatusOK, w.Code, "unknown email is not revealed")
	require.Empty(t, e.mail.get("reset", "nobody@x.com"))

	w = e.do(t, call{method: http.MethodPost, path: "/reset", body: dto.ResetRequestDTO{Email: annBody.Email}})
	require.Equal(t, http.StatusOK, w.Code)
	token := e.mail.get("reset", annBody.Email)
	require.NotEmpty(t, token)

	w = e.do(t, call{method: http.MethodGet, path: "/reset/" + token})
	require.Equal(t, http.StatusOK, w.Code)
	rec := decode[dto.ResetTokenResponse](t, w)
	require.Equal(t, token, rec.ResetToken)
	require.Equal(t, auth.User.ID, rec.UserID)

	w = e.do(t, call{method: http.MethodGet, path: "/reset/unknown-token"})
	require.Equal(t, http.StatusNotFound, w.Code)

	mismatch := dto.ChangePasswordDTO{ResetToken: token, NewPassword: "newpass1", NewPasswordConfirmation: "other"}
	w = e.do(t, call{method: http.MethodPost, path: "/changePassword", body: mismatch})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decode[dto.ErrorResponse](t, w).Errors, "newPasswordConfirmation")

	change := dto.ChangePasswordDTO{ResetToken: token, NewPassword: "newpass1", NewPasswordConfirmation: "newpass1"}
	w = e.do(t, call{method: http.MethodPost, path: "/changePassword", body: change})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, call{method: http.MethodPost, path: "/changePassword", body: change})
	require.Equal(t, http.StatusBadRequest, w.Code, "reset token is single-use")

	w = e.do(t, call{method: http.MethodPost, path: "/login",
		body: dto.LoginDTO{Email: annBody.Email, Password: "newpass1"}})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_ExpiredResetToken(t *testing.T) {
	e := newEnv(t)
	auth, _ := e.activeAnn(t)

	rt, err := e.resets.Create(context.Background(), uuid.MustParse(auth.User.ID), -time.Second)
	require.NoError(t, err)

	w := e.do(t, call{method: http.MethodGet, path: "/reset/" + rt.Token})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, call{method: http.MethodPost, path: "/changePassword", body: dto.ChangePasswordDTO{
		ResetToken: rt.Token, NewPassword: "newpass1", NewPasswordConfirmation: "newpass1",
	}})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_BearerRoutesRequireToken(t *testing.T) {
	e := newEnv(t)

	for _, c := range []call{
		{method: http.MethodPost, path: "/changeAuthPassword"},
		{method: http.MethodPatch, path: "/confirmChangeEmail"},
		{method: http.MethodPatch, path: "/users/" + uuid.NewString()},
		{method: http.MethodPatch, path: "/update"},
	} {
		require.Equal(t, http.StatusUnauthorized, e.do(t, c).Code, c.path)
		c.bearer = "not-a-jwt"
		require.Equal(t, http.StatusUnauthorized, e.do(t, c).Code, c.path)
	}
}

func TestHandler_ChangePhone(t *testing.T) {
	e := newEnv(t)
	auth, _ := e.activeAnn(t)

	w := e.do(t, call{method: http.MethodPatch, path: "/users/" + uuid.NewString(),
		bearer: auth.AccessToken, body: dto.ChangePhoneDTO{Phone: "+15557654321"}})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, call{method: http.MethodPatch, path: "/users/" + auth.User.ID,
		bearer: auth.AccessToken, body: dto.ChangePhoneDTO{Phone: "12"}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, call{method: http.MethodPatch, path: "/users/" + auth.User.ID,
		bearer: auth.AccessToken, body: dto.ChangePhoneDTO{Phone: "+15557654321"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "+15557654321", decode[dto.UserResponse](t, w).Phone)

	bob := dto.RegisterDTO{Name: "Bob", Email: "bob@x.com", Password: "secret1", Phone: "+15551112222"}
	require.Equal(t, http.StatusCreated, e.do(t, call{method: http.MethodPost, path: "/registration", body: bob}).Code)

	w = e.do(t, call{method: http.MethodPatch, path: "/users/" + auth.User.ID,
		bearer: auth.AccessToken, body: dto.ChangePhoneDTO{Phone: bob.Phone}})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_UpdateName(t *testing.T) {
	e := newEnv(t)
	auth, _ := e.activeAnn(t)

	w := e.do(t, call{method: http.MethodPatch, path: "/update",
		bearer: auth.AccessToken, body: dto.UpdateNameDTO{Name: "Jo"}})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, call{method: http.MethodPatch, path: "/update",
		bearer: auth.AccessToken, body: dto.UpdateNameDTO{Name: "Annabel"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Annabel", decode[dto.UserResponse](t, w).Name)
}

func TestHandler_ChangeAuthPassword(t *testing.T) {
	e := newEnv(t)
	auth, _ := e.activeAnn(t)

	body := dto.ChangeAuthPasswordDTO{
		ID:                      uuid.NewString(),
		Email:                   annBody.Email,
		OldPassword:             annBody.Password,
		NewPassword:             "newpass1",
		NewPasswordConfirmation: "newpass1",
	}
	w := e.do(t, call{method: http.MethodPost, path: "/changeAuthPassword", bearer: auth.AccessToken, body: body})
	require.Equal(t, http.StatusForbidden, w.Code, "body id must be the caller")

	body.ID = auth.User.ID
	body.OldPassword = "wrong-pass"
	w = e.do(t, call{method: http.MethodPost, path: "/changeAuthPassword", bearer: auth.AccessToken, body: body})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body.OldPassword = annBody.Password
	w = e.do(t, call{method: http.MethodPost, path: "/changeAuthPassword", bearer: auth.AccessToken, body: body})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, refreshCookieOf(t, w).Value)
	require.NotEmpty(t, decode[dto.AuthResponse](t, w).AccessToken)
}

func TestHandler_ConfirmChangeEmail(t *testing.T) {
	e := newEnv(t)
	auth, _ := e.activeAnn(t)

	same := dto.ChangeEmailDTO{User: dto.ChangeEmailUserDTO{ID: auth.User.ID, Email: annBody.Email, Password: annBody.Password}}
	w := e.do(t, call{method: http.MethodPatch, path: "/confirmChangeEmail", bearer: auth.AccessToken, body: same})
	require.Equal(t, http.StatusBadRequest, w.Code)

	other := same
	other.User.ID = uuid.NewString()
	other.User.Email = "ann2@x.com"
	w = e.do(t, call{method: http.MethodPatch, path: "/confirmChangeEmail", bearer: auth.AccessToken, body: other})
	require.Equal(t, http.StatusForbidden, w.Code)

	change := dto.ChangeEmailDTO{User: dto.ChangeEmailUserDTO{ID: auth.User.ID, Email: "ann2@x.com", Password: annBody.Password}}
	w = e.do(t, call{method: http.MethodPatch, path: "/confirmChangeEmail", bearer: auth.AccessToken, body: change})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ann2@x.com", decode[dto.AuthResponse](t, w).User.Email)
	require.Equal(t, "ann2@x.com", e.mail.get("email_changed", annBody.Email))
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, call{method: http.MethodGet, path: "/health"})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decode[health.Report](t, w).Healthy)

	w = e.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "auth_http_requests_total"))
}
