package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/passpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/passpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// --- Test doubles ---

// stubTab satisfies driven.Tab; only ID is called by the orchestrator paths
// under test.
type stubTab struct {
	driven.Tab
	id string
}

func (s stubTab) ID() string { return s.id }

// fakeTabAgents records the last message delivered to the active tab.
type fakeTabAgents struct {
	reply     model.Reply
	delivered []model.Message
}

func (f *fakeTabAgents) ActiveTab(_ context.Context) (driven.Tab, error) {
	return stubTab{id: "tab-1"}, nil
}

func (f *fakeTabAgents) Deliver(_ context.Context, _ string, msg model.Message) (model.Reply, error) {
	f.delivered = append(f.delivered, msg)
	return f.reply, nil
}

// --- Test helpers ---

type testServer struct {
	mux   http.Handler
	coord *application.Coordinator
	gate  *application.GateService
	tabs  *fakeTabAgents
}

// setupServer wires the handler over a fresh SQLite file. A nil tabs
// disables the browser.
func setupServer(t *testing.T, tabs *fakeTabAgents) *testServer {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.NewDB(ctx, filepath.Join(t.TempDir(), "passpanel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = sqlite.RunMigrations(db.Writer)
	require.NoError(t, err)

	creds := sqlite.NewCredentialRepo(db)
	coord := application.NewCoordinator(creds, sqlite.NewPendingRepo(db), 5*time.Minute)
	gate := application.NewGateService(sqlite.NewSettingRepo(db))

	var agents application.TabAgents
	if tabs != nil {
		agents = tabs
	}
	fill := application.NewFillOrchestrator(coord, agents, 0, slog.Default())

	h := httphandler.NewHandler(
		application.NewRouter(coord, slog.Default()),
		coord,
		application.NewTransferService(creds, gate),
		gate,
		fill,
		slog.Default(),
	)

	return &testServer{
		mux:   httphandler.NewServeMux(h, slog.Default()),
		coord: coord,
		gate:  gate,
		tabs:  tabs,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	switch b := body.(type) {
	case nil:
		r = httptest.NewRequest(method, target, nil)
	case string:
		r = httptest.NewRequest(method, target, strings.NewReader(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = httptest.NewRequest(method, target, bytes.NewReader(data))
	}

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, r)
	return rec
}

func (s *testServer) seed(t *testing.T, url, username, password string) model.Credential {
	t.Helper()
	cred, err := s.coord.Save(context.Background(), model.CredentialInput{URL: url, Username: username, Password: password})
	require.NoError(t, err)
	return cred
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

// --- Message channel ---

func TestMessage_SaveThenGetPasswords(t *testing.T) {
	s := setupServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/messages", map[string]any{
		"action": "savePassword",
		"data": map[string]string{
			"url":      "https://example.com",
			"loginUrl": "https://example.com/login",
			"username": "alice",
			"password": "s3cret",
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var saved httphandler.MessageReply
	decodeJSON(t, rec, &saved)
	assert.True(t, saved.Success)

	rec = s.do(t, http.MethodPost, "/api/v1/messages", map[string]any{
		"action": "getPasswords",
		"url":    "https://EXAMPLE.com/account",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var got httphandler.MessageReply
	decodeJSON(t, rec, &got)
	require.True(t, got.Success)
	require.Len(t, got.Passwords, 1)
	assert.Equal(t, "alice", got.Passwords[0].Username)
	assert.Equal(t, "https://example.com/login", got.Passwords[0].LoginURL)

	rec = s.do(t, http.MethodPost, "/api/v1/messages", map[string]any{
		"action": "checkPassword",
		"url":    "https://other.example.org",
	})
	var check httphandler.MessageReply
	decodeJSON(t, rec, &check)
	assert.True(t, check.Success)
	assert.False(t, check.HasPassword)
}

func TestMessage_ReplyShapePerAction(t *testing.T) {
	s := setupServer(t, nil)
	s.seed(t, "https://example.com", "alice", "pw")

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{name: "check without match", body: map[string]any{"action": "checkPassword", "url": "https://unknown.test"}, want: `{"success":true,"hasPassword":false}`},
		{name: "check with match", body: map[string]any{"action": "checkPassword", "url": "https://example.com/login"}, want: `{"success":true,"hasPassword":true}`},
		{name: "passwords without match", body: map[string]any{"action": "getPasswords", "url": "https://unknown.test"}, want: `{"success":true,"passwords":[]}`},
		{name: "ping", body: map[string]any{"action": "ping"}, want: `{"success":true}`},
		{name: "clear pending", body: map[string]any{"action": "clearPendingPassword"}, want: `{"success":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/messages", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestMessage_PendingRoundTrip(t *testing.T) {
	s := setupServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/messages", map[string]any{"action": "getPendingPassword"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":null}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/messages", map[string]any{
		"action": "savePendingPassword",
		"data":   map[string]string{"url": "https://example.com", "username": "bob", "password": "pw1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/messages", map[string]any{"action": "getPendingPassword"})
	var pending httphandler.MessageReply
	decodeJSON(t, rec, &pending)
	require.NotNil(t, pending.Data)
	assert.Equal(t, "bob", pending.Data.Username)
	assert.Equal(t, "https://example.com", pending.Data.LoginURL)

	rec = s.do(t, http.MethodPost, "/api/v1/messages", map[string]any{"action": "clearPendingPassword"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/messages", map[string]any{"action": "getPendingPassword"})
	assert.JSONEq(t, `{"success":true,"data":null}`, rec.Body.String())
}

func TestMessage_Failures(t *testing.T) {
	s := setupServer(t, nil)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantError  string
	}{
		{name: "unknown action", body: map[string]any{"action": "explode"}, wantStatus: http.StatusOK, wantError: "Unknown action: explode"},
		{name: "save without data", body: map[string]any{"action": "savePassword"}, wantStatus: http.StatusOK, wantError: application.ErrInvalidCredential.Error()},
		{name: "missing action", body: map[string]any{}, wantStatus: http.StatusBadRequest, wantError: "action is required"},
		{name: "malformed json", body: "{not json", wantStatus: http.StatusBadRequest, wantError: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/messages", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			decodeJSON(t, rec, &body)
			assert.Equal(t, tt.wantError, body["error"])
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, false, body["success"])
			}
		})
	}
}

// --- Credentials ---

func TestCredentialsCRUD(t *testing.T) {
	s := setupServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/credentials", httphandler.CredentialRequest{
		URL: "https://example.com", Username: "alice", Password: "one",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created httphandler.CredentialResponse
	decodeJSON(t, rec, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "https://example.com", created.LoginURL)

	rec = s.do(t, http.MethodGet, "/api/v1/credentials/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/credentials/"+created.ID, httphandler.CredentialRequest{
		URL: "https://example.com", LoginURL: "https://example.com/signin", Username: "alice", Password: "two",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated httphandler.CredentialResponse
	decodeJSON(t, rec, &updated)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "two", updated.Password)
	assert.NotEmpty(t, updated.UpdatedAt)

	rec = s.do(t, http.MethodDelete, "/api/v1/credentials/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/credentials/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/credentials/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCredential_Invalid(t *testing.T) {
	s := setupServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/credentials", httphandler.CredentialRequest{URL: "https://example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/credentials", "[")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCredential_Conflict(t *testing.T) {
	s := setupServer(t, nil)
	s.seed(t, "https://example.com", "alice", "one")
	bob := s.seed(t, "https://example.com", "bob", "two")

	rec := s.do(t, http.MethodPut, "/api/v1/credentials/"+bob.ID, httphandler.CredentialRequest{
		URL: "https://example.com", Username: "alice", Password: "three",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListCredentials_Search(t *testing.T) {
	s := setupServer(t, nil)
	s.seed(t, "https://example.com", "alice", "one")
	s.seed(t, "https://shop.test", "bob", "two")

	rec := s.do(t, http.MethodGet, "/api/v1/credentials", nil)
	var all []httphandler.CredentialResponse
	decodeJSON(t, rec, &all)
	assert.Len(t, all, 2)

	rec = s.do(t, http.MethodGet, "/api/v1/credentials?q=SHOP", nil)
	var hits []httphandler.CredentialResponse
	decodeJSON(t, rec, &hits)
	require.Len(t, hits, 1)
	assert.Equal(t, "bob", hits[0].Username)
}

// --- Fill ---

func TestFill_NoBrowser(t *testing.T) {
	s := setupServer(t, nil)
	cred := s.seed(t, "https://example.com", "alice", "one")

	rec := s.do(t, http.MethodPost, "/api/v1/credentials/"+cred.ID+"/fill", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/health", nil)
	var health httphandler.HealthResponse
	decodeJSON(t, rec, &health)
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.Browser)
}

func TestFill_DeliversToActiveTab(t *testing.T) {
	tabs := &fakeTabAgents{reply: model.Reply{Success: true}}
	s := setupServer(t, tabs)
	cred := s.seed(t, "https://example.com", "alice", "one")

	rec := s.do(t, http.MethodPost, "/api/v1/credentials/"+cred.ID+"/fill", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, tabs.delivered, 1)
	msg := tabs.delivered[0]
	assert.Equal(t, model.ActionAutoFillLogin, msg.Action)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, "one", msg.Password)
	assert.False(t, msg.Submit)

	rec = s.do(t, http.MethodPost, "/api/v1/credentials/missing/fill", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Transfer and master password ---

func TestExportImport(t *testing.T) {
	s := setupServer(t, nil)
	s.seed(t, "https://example.com", "alice", "pa,ss")

	rec := s.do(t, http.MethodGet, "/api/v1/credentials/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Credential-Count"))
	exported := rec.Body.String()
	assert.True(t, strings.HasPrefix(exported, "Website,Username,Password,Created,ID\n"))
	assert.Contains(t, exported, `"pa,ss"`)

	csv := "Website,Username,Password,Created Date,ID\n" +
		"https://shop.test,bob,pw,,\n" +
		"https://bad.test,,pw,,\n"
	rec = s.do(t, http.MethodPost, "/api/v1/credentials/import?mode=merge", csv)
	require.Equal(t, http.StatusOK, rec.Code)
	var result httphandler.ImportResponse
	decodeJSON(t, rec, &result)
	assert.Equal(t, httphandler.ImportResponse{Mode: "merge", Imported: 1, Skipped: 1}, result)

	rec = s.do(t, http.MethodPost, "/api/v1/credentials/import?mode=replace", "Website,Username,Password\nhttps://only.test,carol,pw\n")
	require.Equal(t, http.StatusOK, rec.Code)

	all, err := s.coord.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "carol", all[0].Username)

	rec = s.do(t, http.MethodPost, "/api/v1/credentials/import?mode=sideways", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMasterPasswordGatesExport(t *testing.T) {
	s := setupServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/master-password", nil)
	assert.JSONEq(t, `{"is_set":false}`, rec.Body.String())

	rec = s.do(t, http.MethodPut, "/api/v1/master-password", httphandler.SetMasterPasswordRequest{New: "abc", Confirm: "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/master-password", httphandler.SetMasterPasswordRequest{New: "letmein", Confirm: "letmein"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/master-password", nil)
	assert.JSONEq(t, `{"is_set":true}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/credentials/export", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credentials/export", nil)
	req.Header.Set("X-Master-Password", "letmein")
	rec = httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/master-password", httphandler.RemoveMasterPasswordRequest{Current: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/master-password", httphandler.RemoveMasterPasswordRequest{Current: "letmein"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// --- Routing ---

func TestUnknownRoute(t *testing.T) {
	s := setupServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
