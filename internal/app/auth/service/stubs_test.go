package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/app/auth/token"
	authErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

/* ──────────────────────────────── stubs ──────────────────────────────── */

// userRepoStub enforces email and phone uniqueness the way the database does.
type userRepoStub struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[uuid.UUID]model.User)}
}

func (u *userRepoStub) conflicts(m model.User) bool {
	for id, v := range u.users {
		if id != m.ID && (v.Email == m.Email || v.Phone == m.Phone) {
			return true
		}
	}
	return false
}

func (u *userRepoStub) CreateUser(_ context.Context, m model.User) (uuid.UUID, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[m.ID]; ok || u.conflicts(m) {
		return uuid.Nil, authErrors.ErrAlreadyExists
	}
	u.users[m.ID] = m
	return m.ID, nil
}

func (u *userRepoStub) find(pred func(model.User) bool) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, v := range u.users {
		if pred(v) {
			return v, nil
		}
	}
	return model.User{}, authErrors.ErrNotFound
}

func (u *userRepoStub) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	return u.find(func(v model.User) bool { return v.Email == email })
}

func (u *userRepoStub) GetUserByPhone(_ context.Context, phone string) (model.User, error) {
	return u.find(func(v model.User) bool { return v.Phone == phone })
}

func (u *userRepoStub) GetUserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	return u.find(func(v model.User) bool { return v.ID == id })
}

func (u *userRepoStub) GetUserByIDAndEmail(_ context.Context, id uuid.UUID, email string) (model.User, error) {
	return u.find(func(v model.User) bool { return v.ID == id && v.Email == email })
}

func (u *userRepoStub) GetUserByActivationToken(_ context.Context, tok string) (model.User, error) {
	return u.find(func(v model.User) bool { return v.ActivationToken != nil && *v.ActivationToken == tok })
}

func (u *userRepoStub) ClearActivationToken(_ context.Context, tok string) (model.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, v := range u.users {
		if v.ActivationToken != nil && *v.ActivationToken == tok {
			v.ActivationToken = nil
			u.users[id] = v
			return v, nil
		}
	}
	return model.User{}, authErrors.ErrNotFound
}

func (u *userRepoStub) UpdateUser(_ context.Context, m model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[m.ID]; !ok {
		return authErrors.ErrNotFound
	}
	if u.conflicts(m) {
		return authErrors.ErrAlreadyExists
	}
	u.users[m.ID] = m
	return nil
}

func (u *userRepoStub) DeleteUser(_ context.Context, id uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[id]; !ok {
		return authErrors.ErrNotFound
	}
	delete(u.users, id)
	return nil
}

func (u *userRepoStub) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.users)
}

type sessionRepoStub struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]string
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{byUser: make(map[uuid.UUID]string)}
}

func (s *sessionRepoStub) Save(_ context.Context, userID uuid.UUID, tok string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = tok
	return nil
}

func (s *sessionRepoStub) GetByToken(_ context.Context, tok string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cur := range s.byUser {
		if cur == tok {
			return model.Session{UserID: id, RefreshToken: tok}, nil
		}
	}
	return model.Session{}, authErrors.ErrNotFound
}

func (s *sessionRepoStub) Remove(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
	return nil
}

func (s *sessionRepoStub) current(userID uuid.UUID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.byUser[userID]
	return tok, ok
}

type resetRepoStub struct {
	mu     sync.Mutex
	tokens map[string]model.ResetToken
}

func newResetRepoStub() *resetRepoStub {
	return &resetRepoStub{tokens: make(map[string]model.ResetToken)}
}

func (r *resetRepoStub) Create(_ context.Context, userID uuid.UUID, ttl time.Duration) (model.ResetToken, error) {
	tok, err := token.New()
	if err != nil {
		return model.ResetToken{}, err
	}
	rt := model.ResetToken{Token: tok, UserID: userID, ExpirationTime: time.Now().Add(ttl), CreatedAt: time.Now()}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tok] = rt
	return rt, nil
}

func (r *resetRepoStub) FindByToken(_ context.Context, tok string) (model.ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[tok]
	if !ok {
		return model.ResetToken{}, authErrors.ErrNotFound
	}
	return rt, nil
}

func (r *resetRepoStub) Remove(_ context.Context, tok string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, tok)
	return nil
}

func (r *resetRepoStub) Consume(_ context.Context, tok string, now time.Time) (model.ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[tok]
	if !ok || rt.Expired(now) {
		return model.ResetToken{}, authErrors.ErrNotFound
	}
	delete(r.tokens, tok)
	return rt, nil
}

func (r *resetRepoStub) RemoveByUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range r.tokens {
		if v.UserID == userID {
			delete(r.tokens, k)
		}
	}
	return nil
}

func (r *resetRepoStub) put(rt model.ResetToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[rt.Token] = rt
}

func (r *resetRepoStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

type sentMail struct {
	kind, to, name, payload string
}

type mailerStub struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]error
}

func newMailerStub() *mailerStub {
	return &mailerStub{fail: make(map[string]error)}
}

func (m *mailerStub) record(kind, to, name, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[kind]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMail{kind: kind, to: to, name: name, payload: payload})
	return nil
}

func (m *mailerStub) SendActivation(_ context.Context, to, name, tok string) error {
	return m.record("activation", to, name, tok)
}

func (m *mailerStub) SendReset(_ context.Context, to, name, tok string) error {
	return m.record("reset", to, name, tok)
}

func (m *mailerStub) SendEmailChanged(_ context.Context, oldEmail, name, newEmail string) error {
	return m.record("email_changed", oldEmail, name, newEmail)
}

// last returns the most recent mail of the given kind.
func (m *mailerStub) last(kind string) (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i], true
		}
	}
	return sentMail{}, false
}

func (m *mailerStub) failOn(kind string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[kind] = err
}
