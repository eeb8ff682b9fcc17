package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/property-cli/internal/config"
	"github.com/sells-group/property-cli/internal/store"
)

const (
	meJSON      = `{"id":"u1","email":"nimal@example.lk","username":"nimal","is_active":true,"plan":"free","analyses_remaining":3}`
	otherMeJSON = `{"id":"u2","email":"sunil@example.lk","username":"sunil","is_active":true,"plan":"free","analyses_remaining":3}`

	// otherToken belongs to a second account that owns none of the records.
	otherToken = "tok-2"
	historyJSON = `[{"id":"q1","query_text":"3 bedroom house in Kandy","city":"Kandy","created_at":"2026-10-01T10:00:00","has_response":true}]`
	recordJSON  = `{"query_id":"q1","query_text":"3 bedroom house in Kandy","estimated_price":32500000,
		"location_score":0.72,"deal_verdict":"Good Deal","confidence":0.8,"why":"Comparable sales support the estimate.",
		"provenance":[{"title":"Listing 42","link":"https://example.lk/42"}],
		"features":{"city":"Kandy","beds":3,"asking_price":30000000}}`
)

// fakeBackend serves the subset of the analysis API the commands use.
type fakeBackend struct {
	srv          *httptest.Server
	historyCalls atomic.Int32
	detailCalls  atomic.Int32
	expireTokens atomic.Bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Email string `json:"email"`
		}
		_ = json.NewDecoder(r.Body).Decode(&creds)
		tok := "tok-1"
		if creds.Email == "sunil@example.lk" {
			tok = otherToken
		}
		writeBody(w, http.StatusOK, `{"access_token":"`+tok+`","token_type":"bearer"}`)
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if isOtherAccount(r) {
			writeBody(w, http.StatusOK, otherMeJSON)
			return
		}
		writeBody(w, http.StatusOK, meJSON)
	})
	mux.HandleFunc("GET /api/property/history", func(w http.ResponseWriter, r *http.Request) {
		fb.historyCalls.Add(1)
		writeBody(w, http.StatusOK, historyJSON)
	})
	mux.HandleFunc("GET /api/property/details/{id}", func(w http.ResponseWriter, r *http.Request) {
		fb.detailCalls.Add(1)
		if fb.expireTokens.Load() {
			writeBody(w, http.StatusUnauthorized, `{"detail":"Token has expired"}`)
			return
		}
		if isOtherAccount(r) {
			writeBody(w, http.StatusForbidden, `{"detail":"Not authorized to view this query"}`)
			return
		}
		if r.PathValue("id") != "q1" {
			writeBody(w, http.StatusNotFound, `{"detail":"Query not found"}`)
			return
		}
		writeBody(w, http.StatusOK, recordJSON)
	})
	mux.HandleFunc("DELETE /api/property/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, `{"status":"deleted","id":"`+r.PathValue("id")+`"}`)
	})
	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func isOtherAccount(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+otherToken
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		API: config.APIConfig{
			BaseURL:          baseURL,
			TimeoutSecs:      5,
			QueryTimeoutSecs: 10,
			UserAgent:        "property-cli-test",
		},
		Geocode: config.GeocodeConfig{
			BaseURL:         "http://127.0.0.1:1",
			UserAgent:       "property-cli-test",
			RateLimit:       100,
			CountryCodes:    "lk",
			SearchLimit:     5,
			CacheMaxEntries: 10,
		},
		History: config.HistoryConfig{Limit: 10, ExportConcurrency: 2},
		Report:  config.ReportConfig{OutputDir: t.TempDir(), FacilityCap: 5},
		Server:  config.ServerConfig{Port: 8090, AllowedOrigins: []string{"http://localhost:5173"}},
	}
}

// newTestApp wires an environment against fb with a signed-in session.
func newTestApp(t *testing.T, fb *fakeBackend, view string) (*appEnv, *bytes.Buffer) {
	t.Helper()
	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), store.KeyToken, "tok-1"))

	var notice bytes.Buffer
	env := newApp(testConfig(t, strings.TrimRight(fb.srv.URL, "/")+"/api"), st, view, &notice)
	t.Cleanup(env.Close)

	require.NoError(t, env.requireUser(context.Background()))
	return env, &notice
}
