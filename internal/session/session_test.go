package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-cli/internal/model"
	"github.com/sells-group/property-cli/internal/store"
	"github.com/sells-group/property-cli/pkg/propertyapi"
)

type fakeAuth struct {
	token    *model.TokenResponse
	loginErr error
	user     *model.User
	meErr    error
	meCalls  int
}

func (f *fakeAuth) Login(context.Context, model.Credentials) (*model.TokenResponse, error) {
	return f.token, f.loginErr
}

func (f *fakeAuth) Signup(context.Context, model.SignupRequest) (*model.TokenResponse, error) {
	return f.token, f.loginErr
}

func (f *fakeAuth) Me(context.Context) (*model.User, error) {
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	u := *f.user
	return &u, nil
}

func intPtr(v int) *int { return &v }

type recorder struct{ views []string }

func (r *recorder) navigate(view string) { r.views = append(r.views, view) }

func TestLogin_MergesPlanFromTokenResponse(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	auth := &fakeAuth{
		token: &model.TokenResponse{AccessToken: "tok", Plan: model.PlanPremium, AnalysesRemaining: intPtr(199)},
		user:  &model.User{ID: "u1", Username: "nimal", Plan: model.PlanFree, AnalysesRemaining: intPtr(3)},
	}
	s := New(st, nil)
	s.Bind(auth)

	before := s.HistoryVersion()
	user, err := s.Login(context.Background(), model.Credentials{Email: "a@b.lk", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, model.PlanPremium, user.Plan)
	require.NotNil(t, user.AnalysesRemaining)
	assert.Equal(t, 199, *user.AnalysesRemaining)
	assert.Equal(t, "tok", s.Token())
	assert.Greater(t, s.HistoryVersion(), before)

	saved, err := st.Get(context.Background(), store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", saved)
}

func TestLogin_KeepsProfilePlanWhenTokenHasNone(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{
		token: &model.TokenResponse{AccessToken: "tok"},
		user:  &model.User{ID: "u1", Plan: model.PlanStandard, AnalysesRemaining: intPtr(40)},
	}
	s := New(store.NewMemory(), nil)
	s.Bind(auth)

	user, err := s.Login(context.Background(), model.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, model.PlanStandard, user.Plan)
	assert.Equal(t, 40, *user.AnalysesRemaining)
}

func TestLogin_ProfileFailureSignsOut(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	auth := &fakeAuth{token: &model.TokenResponse{AccessToken: "tok"}, meErr: errors.New("boom")}
	s := New(st, nil)
	s.Bind(auth)

	_, err := s.Signup(context.Background(), model.SignupRequest{})
	require.Error(t, err)
	assert.False(t, s.Authenticated())
	_, err = st.Get(context.Background(), store.KeyToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLogin_Unbound(t *testing.T) {
	t.Parallel()

	_, err := New(store.NewMemory(), nil).Login(context.Background(), model.Credentials{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no auth client")
}

func TestRestore(t *testing.T) {
	t.Parallel()

	t.Run("nothing stored", func(t *testing.T) {
		t.Parallel()
		auth := &fakeAuth{}
		s := New(store.NewMemory(), nil)
		s.Bind(auth)
		user, err := s.Restore(context.Background())
		require.NoError(t, err)
		assert.Nil(t, user)
		assert.Zero(t, auth.meCalls)
	})

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemory()
		require.NoError(t, st.Set(context.Background(), store.KeyToken, "saved"))
		s := New(st, nil)
		s.Bind(&fakeAuth{user: &model.User{ID: "u1", Username: "kamal"}})
		user, err := s.Restore(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "kamal", user.Username)
		assert.Equal(t, "saved", s.Token())
	})

	t.Run("rejected token", func(t *testing.T) {
		t.Parallel()
		st := store.NewMemory()
		require.NoError(t, st.Set(context.Background(), store.KeyToken, "stale"))
		s := New(st, nil)
		s.Bind(&fakeAuth{meErr: errors.New("401")})
		user, err := s.Restore(context.Background())
		require.Error(t, err)
		assert.Nil(t, user)
		assert.False(t, s.Authenticated())
		assert.Nil(t, s.User())
		_, err = st.Get(context.Background(), store.KeyToken)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestHandleAuthFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		signedIn     bool
		view         string
		wantRedirect bool
	}{
		{"signed in on history", true, "history", true},
		{"signed in on login view", true, ViewLogin, false},
		{"signed in on signup view", true, ViewSignup, false},
		{"signed in on login mixed case", true, "Login", false},
		{"signed out on history", false, "history", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := store.NewMemory()
			rec := &recorder{}
			s := New(st, rec.navigate)
			if tt.signedIn {
				require.NoError(t, st.Set(context.Background(), store.KeyToken, "tok"))
				s.Bind(&fakeAuth{user: &model.User{ID: "u1"}})
				_, err := s.Restore(context.Background())
				require.NoError(t, err)
			}

			got := s.HandleAuthFailure(context.Background(), tt.view)
			assert.Equal(t, tt.wantRedirect, got)
			_, err := st.Get(context.Background(), store.KeyToken)
			if tt.wantRedirect {
				assert.Equal(t, []string{ViewLogin}, rec.views)
				assert.False(t, s.Authenticated())
				assert.ErrorIs(t, err, store.ErrNotFound, "rejected token is dropped")
			} else {
				assert.Empty(t, rec.views)
				assert.Equal(t, tt.signedIn, s.Authenticated())
				if tt.signedIn {
					assert.NoError(t, err, "token kept on auth views")
				}
			}
		})
	}
}

func TestUnauthorizedFromClient_OnLoginViewDoesNotRedirect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	}))
	defer srv.Close()

	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), store.KeyToken, "still-valid"))
	rec := &recorder{}
	s := New(st, rec.navigate)
	client := propertyapi.NewClient(srv.URL,
		propertyapi.WithTokenSource(s),
		propertyapi.WithAuthFailureHandler(s.OnUnauthorized),
	)
	s.Bind(client.Auth)
	s.SetView(ViewLogin)

	_, err := s.Login(context.Background(), model.Credentials{Email: "a@b.lk", Password: "bad"})
	require.Error(t, err)
	assert.True(t, propertyapi.IsUnauthorized(err))
	assert.Equal(t, "Incorrect email or password", propertyapi.Message(err, ""))
	assert.Empty(t, rec.views)
	assert.False(t, s.Authenticated())

	saved, err := st.Get(context.Background(), store.KeyToken)
	require.NoError(t, err, "a failed login keeps the stored token")
	assert.Equal(t, "still-valid", saved)
}

func TestUnauthorizedFromClient_ElsewhereRedirects(t *testing.T) {
	t.Parallel()

	var meCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/me" && meCalls == 0 {
			meCalls++
			_, _ = w.Write([]byte(`{"id":"u1","email":"a@b.lk","username":"a","is_active":true}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), store.KeyToken, "tok"))
	rec := &recorder{}
	s := New(st, rec.navigate)
	client := propertyapi.NewClient(srv.URL,
		propertyapi.WithTokenSource(s),
		propertyapi.WithAuthFailureHandler(s.OnUnauthorized),
	)
	s.Bind(client.Auth)

	_, err := s.Restore(context.Background())
	require.NoError(t, err)
	s.SetView("history")

	_, err = client.Property.History(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, []string{ViewLogin}, rec.views)
	assert.False(t, s.Authenticated())
}

func TestHandleAuthFailure_SignedOutKeepsStoredToken(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), store.KeyToken, "tok"))
	s := New(st, nil)

	assert.False(t, s.HandleAuthFailure(context.Background(), "history"))
	saved, err := st.Get(context.Background(), store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", saved)
}

func cachedIDs(t *testing.T, st *store.MemoryStore, owner string, ids ...string) []string {
	t.Helper()
	var found []string
	for _, id := range ids {
		if _, err := st.GetCachedRecord(context.Background(), owner, id); err == nil {
			found = append(found, id)
		}
	}
	return found
}

func TestLogout_ClearsRecordCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemory()
	s := New(st, nil, WithRecordPurger(st))
	s.Bind(&fakeAuth{token: &model.TokenResponse{AccessToken: "tok-a"}, user: &model.User{ID: "alice"}})

	_, err := s.Login(ctx, model.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, "alice", s.UserID())
	require.NoError(t, st.SetCachedRecord(ctx, s.UserID(), &model.AnalysisRecord{ID: "q1"}, time.Hour))

	require.NoError(t, s.Logout(ctx))
	assert.Empty(t, cachedIDs(t, st, "alice", "q1"))
	assert.Empty(t, s.UserID())
	_, err = st.Get(ctx, store.KeyOwner)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLogin_DifferentAccountClearsRecordCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemory()
	auth := &fakeAuth{token: &model.TokenResponse{AccessToken: "tok-a"}, user: &model.User{ID: "alice"}}
	s := New(st, nil, WithRecordPurger(st))
	s.Bind(auth)

	_, err := s.Login(ctx, model.Credentials{})
	require.NoError(t, err)
	require.NoError(t, st.SetCachedRecord(ctx, "alice", &model.AnalysisRecord{ID: "q1"}, time.Hour))

	// Same account again keeps its cache.
	_, err = s.Login(ctx, model.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, []string{"q1"}, cachedIDs(t, st, "alice", "q1"))

	// A new process where someone else signs in without logging out first.
	auth.token = &model.TokenResponse{AccessToken: "tok-b"}
	auth.user = &model.User{ID: "bob"}
	other := New(st, nil, WithRecordPurger(st))
	other.Bind(auth)
	_, err = other.Login(ctx, model.Credentials{})
	require.NoError(t, err)

	assert.Empty(t, cachedIDs(t, st, "alice", "q1"))
	owner, err := st.Get(ctx, store.KeyOwner)
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)
}

func TestUserID_FallsBackToEmail(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), store.KeyToken, "tok"))
	s := New(st, nil)
	s.Bind(&fakeAuth{user: &model.User{Email: "a@b.lk"}})
	_, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@b.lk", s.UserID())
}

func TestUpdateQuotaAndLogout(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), store.KeyToken, "tok"))
	s := New(st, nil)
	s.Bind(&fakeAuth{user: &model.User{ID: "u1", Plan: model.PlanFree, AnalysesRemaining: intPtr(3)}})
	_, err := s.Restore(context.Background())
	require.NoError(t, err)

	s.UpdateQuota("", intPtr(2))
	assert.Equal(t, model.PlanFree, s.User().Plan)
	assert.Equal(t, 2, *s.User().AnalysesRemaining)

	require.NoError(t, s.Logout(context.Background()))
	assert.Nil(t, s.User())
	assert.Empty(t, s.Token())
	s.UpdateQuota(model.PlanPremium, nil)
	assert.Nil(t, s.User())
}
