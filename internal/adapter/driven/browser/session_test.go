package browser

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

const loginPage = `data:text/html,<html><body>
<form id="login" onsubmit="event.preventDefault()">
<input type="text" name="username" id="username">
<input type="password" name="password" id="password">
<input type="text" name="trap" style="display:none">
<button type="submit">Sign in</button>
</form></body></html>`

// connectForTest launches a headless browser. It needs a local Chromium and
// is skipped unless PASSPANEL_CHROME_TEST is set.
func connectForTest(t *testing.T) *Session {
	t.Helper()
	if os.Getenv("PASSPANEL_CHROME_TEST") == "" {
		t.Skip("set PASSPANEL_CHROME_TEST to run browser tests")
	}

	s, err := Connect(context.Background(), Options{
		Bin:      os.Getenv("PASSPANEL_BROWSER_BIN"),
		Headless: true,
	}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openLoginTab(t *testing.T, s *Session) *Tab {
	t.Helper()
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	require.NoError(t, err)

	tab, err := s.tabFor(page)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, tab.Navigate(ctx, loginPage))
	return tab
}

func TestTab_SnapshotAndFill(t *testing.T) {
	s := connectForTest(t)
	tab := openLoginTab(t, s)
	ctx := context.Background()

	snap, err := tab.Snapshot(ctx)
	require.NoError(t, err)

	fields, _ := application.DetectInSnapshot(snap)
	require.True(t, fields.Complete())
	assert.Equal(t, "username", fields.Username.Name)

	require.NoError(t, tab.SetValue(ctx, fields.Username.Ref, "alice"))
	require.NoError(t, tab.SetValue(ctx, fields.Password.Ref, "s3cret"))

	snap, err = tab.Snapshot(ctx)
	require.NoError(t, err)
	user, ok := snap.Field(fields.Username.Ref)
	require.True(t, ok)
	assert.Equal(t, "alice", user.Value)

	err = tab.SetValue(ctx, "pm-missing", "x")
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestTab_SubmitEventCarriesSnapshot(t *testing.T) {
	s := connectForTest(t)
	tab := openLoginTab(t, s)
	ctx := context.Background()

	snap, err := tab.Snapshot(ctx)
	require.NoError(t, err)
	fields, _ := application.DetectInSnapshot(snap)
	require.True(t, fields.Complete())

	require.NoError(t, tab.SetValue(ctx, fields.Username.Ref, "alice"))
	require.NoError(t, tab.SetValue(ctx, fields.Password.Ref, "s3cret"))

	button, ok := application.FindLoginButton(snap.Fields)
	require.True(t, ok)
	require.NoError(t, tab.Click(ctx, button.Ref))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-tab.Events():
			if ev.Kind != model.PageEventSubmit {
				continue
			}
			require.NotNil(t, ev.Snapshot)
			pass, ok := ev.Snapshot.Field(fields.Password.Ref)
			require.True(t, ok)
			assert.Equal(t, "s3cret", pass.Value)
			return
		case <-deadline:
			t.Fatal("no submit event")
		}
	}
}

func TestTab_InstrumentIsIdempotentAndDetachCloses(t *testing.T) {
	s := connectForTest(t)
	tab := openLoginTab(t, s)
	ctx := context.Background()

	snap, err := tab.Snapshot(ctx)
	require.NoError(t, err)
	fields, _ := application.DetectInSnapshot(snap)
	require.NotNil(t, fields.Password)

	opts := []model.AffordanceOption{{CredentialID: "c1", Username: "alice", Host: "example.com"}}
	first, err := tab.Instrument(ctx, fields.Password.Ref, opts)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := tab.Instrument(ctx, fields.Password.Ref, opts)
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, tab.ShowPrompt(ctx, model.Prompt{Kind: model.PromptSave, Username: "alice", Host: "example.com"}))
	require.NoError(t, tab.DismissPrompt(ctx))
	require.NoError(t, tab.Toast(ctx, "Password filled"))

	require.NoError(t, tab.Detach())
	_, open := <-tab.Events()
	for open {
		_, open = <-tab.Events()
	}

	fresh, err := s.tabFor(tab.page)
	require.NoError(t, err)
	assert.NotSame(t, tab, fresh)
}

func TestTab_AlertDoesNotBlockObserverCalls(t *testing.T) {
	s := connectForTest(t)
	tab := openLoginTab(t, s)

	_, err := tab.page.Eval(`() => { setTimeout(() => alert('Wrong password'), 0) }`)
	require.NoError(t, err)
	time.Sleep(200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout+time.Second)
	defer cancel()

	snap, err := tab.Snapshot(ctx)
	require.NoError(t, err)
	fields, _ := application.DetectInSnapshot(snap)
	assert.True(t, fields.Complete())
}
