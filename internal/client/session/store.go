package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/autoservice/internal/client/api"
	"github.com/dmitrijs2005/autoservice/internal/client/storage"
	"github.com/dmitrijs2005/autoservice/internal/logging"
)

type Store struct {
	client Doer
	repo   storage.Repository
	nav    Navigator
	log    logging.Logger
	now    func() time.Time

	mu        sync.RWMutex
	current   *Session
	listeners []IdentityListener
}

func NewStore(client Doer, repo storage.Repository, nav Navigator, log logging.Logger) *Store {
	if nav == nil {
		nav = NopNavigator{}
	}
	return &Store{client: client, repo: repo, nav: nav, log: log, now: time.Now}
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

func (s *Store) Identity() (Identity, bool) {
	cur, ok := s.Current()
	return cur.User, ok
}

func (s *Store) IsLoggedIn() bool {
	_, ok := s.Current()
	return ok
}

// OnIdentityChange registers l to run after every login, register,
// restore, logout and forced logout.
func (s *Store) OnIdentityChange(l IdentityListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Restore loads the persisted session. Stored state that cannot be parsed,
// or whose token has expired, is purged and the Store starts logged out.
func (s *Store) Restore(ctx context.Context) bool {
	token, err := s.repo.Get(ctx, KeyToken)
	if err != nil {
		s.log.Error(ctx, "failed to read stored token", "error", err)
		return false
	}
	rawUser, err := s.repo.Get(ctx, KeyUser)
	if err != nil {
		s.log.Error(ctx, "failed to read stored user", "error", err)
		return false
	}
	if len(token) == 0 || len(rawUser) == 0 {
		return false
	}

	var ident Identity
	if err := json.Unmarshal(rawUser, &ident); err != nil {
		s.log.Warn(ctx, "stored user is corrupt, purging session", "error", err)
		s.purge(ctx)
		return false
	}

	exp, claimID := tokenClaims(string(token))
	if !exp.IsZero() && !exp.After(s.now()) {
		s.log.Info(ctx, "stored token expired, purging session", "expired_at", exp)
		s.purge(ctx)
		return false
	}
	if ident.ID == 0 {
		ident.ID = claimID
	}
	ident.Token = string(token)

	next := &Session{Token: string(token), User: ident}
	prev := s.swap(next)
	s.notify(ctx, prev, next)
	s.log.Info(ctx, "session restored", "email", ident.Email)
	return true
}

// Login authenticates against the backend and establishes the session.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	body := map[string]string{"email": email, "password": password}
	return s.authenticate(ctx, "/auth/login", body, "login")
}

// Register creates an account and logs it in.
func (s *Store) Register(ctx context.Context, req RegisterRequest) Result {
	return s.authenticate(ctx, "/auth/register", req, "register")
}

func (s *Store) authenticate(ctx context.Context, path string, body any, op string) Result {
	payload, err := s.post(ctx, path, body)
	if err != nil {
		s.log.Warn(ctx, op+" failed", "email", emailOf(body), "error", err)
		return Result{Error: authMessage(op, err)}
	}

	if err := s.establish(ctx, payload); err != nil {
		s.log.Error(ctx, "failed to persist session", "error", err)
		return Result{Error: "could not save the session locally"}
	}

	s.log.Info(ctx, op+" succeeded", "email", payload.Email)
	s.nav.ToDashboard()
	return Result{Success: true}
}

// post tries path on the versioned base and then on the root base. When
// both fail the more meaningful error is returned: a definitive answer
// such as 401 beats a 404 from the base that lacks the route.
func (s *Store) post(ctx context.Context, path string, body any) (authPayload, error) {
	var firstErr error
	for _, base := range []api.Base{api.BaseV1, api.BaseRoot} {
		resp, err := s.client.Do(ctx, api.Request{
			Method: http.MethodPost, Base: base, Path: path, Body: body, Anonymous: true,
		})
		if err == nil {
			var p authPayload
			p, err = api.DecodeOne[authPayload](resp.Data)
			if err == nil && p.Token == "" {
				err = ErrNoToken
			}
			if err == nil {
				return p, nil
			}
		}

		s.log.Debug(ctx, "auth attempt failed", "path", path, "base", base.String(), "error", err)
		if firstErr == nil || errors.Is(firstErr, api.ErrNotFound) || errors.Is(firstErr, api.ErrUnavailable) {
			firstErr = err
		}
	}
	return authPayload{}, firstErr
}

func (s *Store) establish(ctx context.Context, p authPayload) error {
	ident := Identity{
		ID:        p.ID,
		Token:     p.Token,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      p.Role,
		Phone:     p.Phone,
	}
	if ident.ID == 0 {
		_, ident.ID = tokenClaims(p.Token)
	}

	rawUser, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.repo.SetMany(ctx, map[string][]byte{
		KeyToken: []byte(p.Token),
		KeyUser:  rawUser,
	}); err != nil {
		return err
	}

	next := &Session{Token: p.Token, User: ident}
	prev := s.swap(next)
	s.notify(ctx, prev, next)
	return nil
}

// Logout ends the session and navigates to the login entry point.
func (s *Store) Logout(ctx context.Context) {
	s.teardown(ctx)
	s.log.Info(ctx, "logged out")
	s.nav.ToLogin()
}

// HandleUnauthorized is registered with the api client and runs when the
// backend rejects the token.
// Concurrent rejections of the same session navigate once.
func (s *Store) HandleUnauthorized(ctx context.Context) {
	if !s.teardown(ctx) {
		return
	}
	s.log.Warn(ctx, "session rejected by server, logged out")
	s.nav.ToLogin()
}

// teardown reports whether a session was actually ended.
func (s *Store) teardown(ctx context.Context) bool {
	s.purge(ctx)
	prev := s.swap(nil)
	if prev == nil {
		return false
	}
	s.notify(ctx, prev, nil)
	return true
}

func (s *Store) purge(ctx context.Context) {
	if err := s.repo.DeleteMany(ctx, KeyToken, KeyUser); err != nil {
		s.log.Error(ctx, "failed to clear stored session", "error", err)
	}
}

// PatchIdentity mirrors profile edits into the cached identity so views
// that read the session stay consistent.
func (s *Store) PatchIdentity(ctx context.Context, p IdentityPatch) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	u := &s.current.User
	if p.FirstName != "" {
		u.FirstName = p.FirstName
	}
	if p.LastName != "" {
		u.LastName = p.LastName
	}
	if p.Email != "" {
		u.Email = p.Email
	}
	if p.Phone != "" {
		u.Phone = p.Phone
	}
	ident := *u
	s.mu.Unlock()

	return storage.SetJSON(ctx, s.repo, KeyUser, ident)
}

func (s *Store) swap(next *Session) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = next
	return prev
}

func (s *Store) notify(ctx context.Context, prev, next *Session) {
	s.mu.RLock()
	listeners := append([]IdentityListener(nil), s.listeners...)
	s.mu.RUnlock()

	var p, n *Identity
	if prev != nil {
		u := prev.User
		p = &u
	}
	if next != nil {
		u := next.User
		n = &u
	}
	for _, l := range listeners {
		l(ctx, p, n)
	}
}

func authMessage(op string, err error) string {
	if msg := api.MessageOf(err); msg != "" {
		return msg
	}
	switch {
	case errors.Is(err, api.ErrUnavailable):
		return "Unable to reach the server. Check your connection and try again."
	case errors.Is(err, ErrNoToken), errors.Is(err, api.ErrMalformedResponse):
		return "Unexpected response from the server."
	default:
		return op + " failed"
	}
}

func emailOf(body any) string {
	switch b := body.(type) {
	case map[string]string:
		return b["email"]
	case RegisterRequest:
		return b.Email
	}
	return ""
}
