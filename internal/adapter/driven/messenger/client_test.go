package messenger_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/passpanel/internal/adapter/driven/messenger"
	"github.com/ericfisherdev/passpanel/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/passpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

// newCoordinatorServer serves the real message endpoint over a fresh SQLite file.
func newCoordinatorServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx := context.Background()
	db, err := sqlite.NewDB(ctx, filepath.Join(t.TempDir(), "passpanel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = sqlite.RunMigrations(db.Writer)
	require.NoError(t, err)

	creds := sqlite.NewCredentialRepo(db)
	coord := application.NewCoordinator(creds, sqlite.NewPendingRepo(db), time.Minute)
	gate := application.NewGateService(sqlite.NewSettingRepo(db))
	h := httphandler.NewHandler(
		application.NewRouter(coord, slog.Default()),
		coord,
		application.NewTransferService(creds, gate),
		gate,
		application.NewFillOrchestrator(coord, nil, 0, slog.Default()),
		slog.Default(),
	)

	srv := httptest.NewServer(httphandler.NewServeMux(h, slog.Default()))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AgainstCoordinator(t *testing.T) {
	srv := newCoordinatorServer(t)
	c := messenger.NewClient(srv.URL, 5*time.Second, slog.Default())
	ctx := context.Background()

	reply, err := c.Send(ctx, model.Message{Action: model.ActionPing})
	require.NoError(t, err)
	assert.True(t, reply.Success)

	reply, err = c.Send(ctx, model.Message{Action: model.ActionGetPendingPassword})
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Nil(t, reply.Data)

	reply, err = c.Send(ctx, model.Message{
		Action: model.ActionSavePendingPassword,
		Data:   &model.PendingCredential{URL: "https://example.com", LoginURL: "https://example.com/login", Username: "alice", Password: "pw"},
	})
	require.NoError(t, err)
	require.True(t, reply.Success)

	reply, err = c.Send(ctx, model.Message{Action: model.ActionGetPendingPassword})
	require.NoError(t, err)
	require.NotNil(t, reply.Data)
	assert.Equal(t, "alice", reply.Data.Username)
	assert.Equal(t, "https://example.com/login", reply.Data.LoginURL)
	assert.False(t, reply.Data.StagedAt.IsZero())

	reply, err = c.Send(ctx, model.Message{Action: model.ActionSavePassword, Data: reply.Data})
	require.NoError(t, err)
	require.True(t, reply.Success)

	reply, err = c.Send(ctx, model.Message{Action: model.ActionGetPasswords, URL: "https://example.com/anything"})
	require.NoError(t, err)
	require.Len(t, reply.Passwords, 1)
	assert.Equal(t, "pw", reply.Passwords[0].Password)
	assert.False(t, reply.Passwords[0].CreatedAt.IsZero())

	reply, err = c.Send(ctx, model.Message{Action: "bogus"})
	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.Equal(t, "Unknown action: bogus", reply.Error)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": nil})
	}))
	defer srv.Close()

	c := messenger.NewClient(srv.URL, time.Second, slog.Default())
	reply, err := c.Send(context.Background(), model.Message{Action: model.ActionPing})
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"action is required"}`))
	}))
	defer srv.Close()

	c := messenger.NewClient(srv.URL, time.Second, slog.Default())
	_, err := c.Send(context.Background(), model.Message{Action: model.ActionPing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action is required")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_UnreachableCoordinator(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := messenger.NewClient(url, 200*time.Millisecond, slog.Default())
	_, err := c.Send(context.Background(), model.Message{Action: model.ActionPing})
	assert.Error(t, err)
}
