// Package session holds the signed-in user's token and profile and decides
// what happens when the backend rejects the token.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/property-cli/internal/model"
	"github.com/sells-group/property-cli/internal/store"
)

// Views on which an authentication failure never triggers a redirect.
const (
	ViewLogin  = "login"
	ViewSignup = "signup"
)

// AuthAPI is the subset of the backend auth endpoints the session needs.
type AuthAPI interface {
	Login(ctx context.Context, creds model.Credentials) (*model.TokenResponse, error)
	Signup(ctx context.Context, req model.SignupRequest) (*model.TokenResponse, error)
	Me(ctx context.Context) (*model.User, error)
}

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// RecordPurger drops every analysis cached on this machine.
type RecordPurger interface {
	ClearCachedRecords(ctx context.Context) (int, error)
}

// Navigator is asked to move to a view, e.g. back to login after the token
// was rejected.
type Navigator func(view string)

// Session is the process-wide authentication state. The zero value is not
// usable; call New.
type Session struct {
	mu       sync.RWMutex
	auth     AuthAPI
	tokens   TokenStore
	navigate Navigator
	purger   RecordPurger
	token    string
	user     *model.User
	view     string

	historyVersion atomic.Uint64
}

// Option configures a Session.
type Option func(*Session)

// WithRecordPurger clears cached analyses on sign-out and whenever a
// different account signs in.
func WithRecordPurger(p RecordPurger) Option {
	return func(s *Session) {
		s.purger = p
	}
}

// New creates a session backed by tokens. nav may be nil.
func New(tokens TokenStore, nav Navigator, opts ...Option) *Session {
	if nav == nil {
		nav = func(string) {}
	}
	s := &Session{tokens: tokens, navigate: nav}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind attaches the auth endpoints. The backend client itself depends on the
// session for its token, so binding happens after both exist.
func (s *Session) Bind(auth AuthAPI) {
	s.mu.Lock()
	s.auth = auth
	s.mu.Unlock()
}

// Token returns the current bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in profile, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// UserID identifies the signed-in account: its id, else its email. Returns
// "" when no profile is loaded.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	if s.user.ID != "" {
		return s.user.ID
	}
	return s.user.Email
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SetView records the view the user is on.
func (s *Session) SetView(view string) {
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()
}

// View returns the current view.
func (s *Session) View() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// HistoryVersion is a counter other views compare against to decide whether
// their history list is stale.
func (s *Session) HistoryVersion() uint64 {
	return s.historyVersion.Load()
}

// BumpHistory marks history lists stale, e.g. after a new query.
func (s *Session) BumpHistory() uint64 {
	return s.historyVersion.Add(1)
}

func (s *Session) authAPI() (AuthAPI, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auth == nil {
		return nil, eris.New("session: no auth client bound")
	}
	return s.auth, nil
}

// Restore loads a stored token and verifies it against the backend. A token
// the backend rejects is discarded. Returns nil, nil when nothing is stored.
func (s *Session) Restore(ctx context.Context) (*model.User, error) {
	tok, err := s.tokens.Get(ctx, store.KeyToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "session: load token")
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil, nil
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()

	user, err := s.fetchUser(ctx)
	if err != nil {
		zap.L().Debug("session: stored token rejected", zap.Error(err))
		s.clear(ctx)
		return nil, eris.Wrap(err, "session: verify token")
	}
	return user, nil
}

// Login signs in and loads the profile.
func (s *Session) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	auth, err := s.authAPI()
	if err != nil {
		return nil, err
	}
	tok, err := auth.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, tok)
}

// Signup creates an account and signs in.
func (s *Session) Signup(ctx context.Context, req model.SignupRequest) (*model.User, error) {
	auth, err := s.authAPI()
	if err != nil {
		return nil, err
	}
	tok, err := auth.Signup(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, tok)
}

// establish stores tok, fetches the profile and overlays the plan fields the
// token response carried, which are fresher than the profile's.
func (s *Session) establish(ctx context.Context, tok *model.TokenResponse) (*model.User, error) {
	if err := s.tokens.Set(ctx, store.KeyToken, tok.AccessToken); err != nil {
		return nil, eris.Wrap(err, "session: save token")
	}
	s.mu.Lock()
	s.token = tok.AccessToken
	s.mu.Unlock()

	if _, err := s.fetchUser(ctx); err != nil {
		s.clear(ctx)
		return nil, eris.Wrap(err, "session: load profile")
	}
	s.claimRecords(ctx)

	s.UpdateQuota(tok.Plan, tok.AnalysesRemaining)
	s.BumpHistory()
	return s.User(), nil
}

// RefreshUser reloads the profile, e.g. after a plan change.
func (s *Session) RefreshUser(ctx context.Context) (*model.User, error) {
	return s.fetchUser(ctx)
}

func (s *Session) fetchUser(ctx context.Context) (*model.User, error) {
	auth, err := s.authAPI()
	if err != nil {
		return nil, err
	}
	user, err := auth.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return s.User(), nil
}

// UpdateQuota applies plan and remaining-analyses values reported by the
// backend. Empty values leave the profile unchanged.
func (s *Session) UpdateQuota(plan model.PlanTier, remaining *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	if plan != "" {
		s.user.Plan = plan
	}
	if remaining != nil {
		r := *remaining
		s.user.AnalysesRemaining = &r
	}
}

// claimRecords makes the signed-in account the owner of the local record
// cache, dropping what a different account left behind.
func (s *Session) claimRecords(ctx context.Context) {
	owner := s.UserID()
	prev, err := s.tokens.Get(ctx, store.KeyOwner)
	if err == nil && prev == owner {
		return
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		zap.L().Warn("session: load cache owner", zap.Error(err))
	}
	s.purgeRecords(ctx)
	if err := s.tokens.Set(ctx, store.KeyOwner, owner); err != nil {
		zap.L().Warn("session: save cache owner", zap.Error(err))
	}
}

func (s *Session) purgeRecords(ctx context.Context) {
	if s.purger == nil {
		return
	}
	n, err := s.purger.ClearCachedRecords(ctx)
	if err != nil {
		zap.L().Warn("session: clear record cache", zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Debug("session: cleared record cache", zap.Int("removed", n))
	}
}

// Logout forgets the token and profile and drops the account's cached
// analyses.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	s.purgeRecords(ctx)
	if err := s.tokens.Delete(ctx, store.KeyOwner); err != nil {
		zap.L().Warn("session: delete cache owner", zap.Error(err))
	}
	return eris.Wrap(s.tokens.Delete(ctx, store.KeyToken), "session: delete token")
}

func (s *Session) clear(ctx context.Context) {
	if err := s.Logout(ctx); err != nil {
		zap.L().Warn("session: clear token", zap.Error(err))
	}
}

// HandleAuthFailure reacts to a rejected token while the user is on view.
// Only a signed-in session outside the auth views is cleared and redirected
// to login; a failed login attempt leaves the stored token alone. Reports
// whether a redirect was requested.
func (s *Session) HandleAuthFailure(ctx context.Context, view string) bool {
	if !s.Authenticated() || isAuthView(view) {
		return false
	}
	s.clear(ctx)
	zap.L().Info("session: token rejected, redirecting to login", zap.String("view", view))
	s.navigate(ViewLogin)
	return true
}

// OnUnauthorized adapts HandleAuthFailure to the backend client's 401 hook
// using the current view.
func (s *Session) OnUnauthorized(ctx context.Context) {
	s.HandleAuthFailure(ctx, s.View())
}

func isAuthView(view string) bool {
	switch strings.ToLower(strings.TrimSpace(view)) {
	case ViewLogin, ViewSignup:
		return true
	}
	return false
}
