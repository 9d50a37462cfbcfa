package application_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

var importNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func TestWriteCSV_Quoting(t *testing.T) {
	creds := []model.Credential{
		{ID: "id-1", URL: "https://site.test", Username: "alice", Password: `pa,ss"word`, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{ID: "id-2", URL: "https://other.test", Username: "bob", Password: "line1\nline2", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, application.WriteCSV(&buf, creds))

	want := "Website,Username,Password,Created,ID\n" +
		"https://site.test,alice,\"pa,ss\"\"word\",2026-01-02T03:04:05Z,id-1\n" +
		"https://other.test,bob,\"line1\nline2\",2026-01-02T03:04:05Z,id-2\n"
	assert.Equal(t, want, buf.String())
}

func TestReadCSV_SkipsIncompleteRows(t *testing.T) {
	input := "Website,Username,Password,Created,ID\n" +
		"https://a.test,alice,p1,2026-01-02T03:04:05Z,id-a\n" +
		"https://b.test,bob,p2\n" +
		"https://c.test,carol,p3,,\n" +
		"https://d.test,dave,,2026-01-02T03:04:05Z,id-d\n"

	creds, skipped, err := application.ReadCSV(strings.NewReader(input), importNow, sequentialIDs())
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	require.Len(t, creds, 3)

	assert.Equal(t, "id-a", creds[0].ID)
	assert.Equal(t, "https://a.test", creds[0].LoginURL)
	assert.True(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Equal(creds[0].CreatedAt))

	assert.Equal(t, "id-1", creds[1].ID, "missing id is generated")
	assert.True(t, importNow.Equal(creds[1].CreatedAt), "missing created defaults to now")

	assert.Equal(t, "id-2", creds[2].ID)
}

func TestReadCSV_BareQuoteDoesNotAbortImport(t *testing.T) {
	input := "Website,Username,Password\n" +
		"https://a.test,alice,p1\n" +
		"https://b.test,bob,pa\"ss\n" +
		"https://c.test,carol,p3\n"

	creds, skipped, err := application.ReadCSV(strings.NewReader(input), importNow, sequentialIDs())
	require.NoError(t, err)

	assert.Zero(t, skipped)
	require.Len(t, creds, 3)
	assert.Equal(t, `pa"ss`, creds[1].Password)
	assert.Equal(t, "carol", creds[2].Username)
}

func TestReadCSV_HeaderByName(t *testing.T) {
	input := "ID,Created Date,Password,Username,Website\n" +
		"id-9,2025-12-31,secret,\"smith, j\",https://site.test\n"

	creds, skipped, err := application.ReadCSV(strings.NewReader(input), importNow, sequentialIDs())
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, creds, 1)

	assert.Equal(t, "id-9", creds[0].ID)
	assert.Equal(t, "smith, j", creds[0].Username)
	assert.Equal(t, "secret", creds[0].Password)
	assert.Equal(t, "https://site.test", creds[0].URL)
	assert.True(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC).Equal(creds[0].CreatedAt))
}

func TestReadCSV_Empty(t *testing.T) {
	creds, skipped, err := application.ReadCSV(strings.NewReader(""), importNow, sequentialIDs())
	require.NoError(t, err)
	assert.Empty(t, creds)
	assert.Zero(t, skipped)
}

func TestParseImportMode(t *testing.T) {
	mode, err := application.ParseImportMode("")
	require.NoError(t, err)
	assert.Equal(t, application.ImportMerge, mode)

	mode, err = application.ParseImportMode("Replace")
	require.NoError(t, err)
	assert.Equal(t, application.ImportReplace, mode)

	_, err = application.ParseImportMode("append")
	assert.Error(t, err)
}

func TestTransferService_ImportThreeValidRows(t *testing.T) {
	store := &memCredentialStore{}
	svc := application.NewTransferService(store, application.NewGateService(&memSettingStore{}))

	input := "Website,Username,Password,Created,ID\n" +
		"https://a.test,alice,p1,2026-01-02T03:04:05Z,id-a\n" +
		"https://b.test,bob,p2,2026-01-02T03:04:05Z,id-b\n" +
		"https://c.test,carol,p3,2026-01-02T03:04:05Z,id-c\n" +
		"https://d.test,dave,,2026-01-02T03:04:05Z,id-d\n"

	result, err := svc.Import(context.Background(), strings.NewReader(input), application.ImportMerge)
	require.NoError(t, err)

	assert.Equal(t, application.ImportResult{Imported: 3, Skipped: 1}, result)
	assert.Len(t, store.snapshot(), 3)
}

func TestTransferService_ImportMergeKeepsExisting(t *testing.T) {
	store := &memCredentialStore{creds: []model.Credential{
		{ID: "id-a", URL: "https://a.test", Username: "alice", Password: "original"},
	}}
	svc := application.NewTransferService(store, application.NewGateService(&memSettingStore{}))

	input := "Website,Username,Password,Created,ID\n" +
		"https://a.test,alice,changed,,id-a\n" +
		"https://b.test,bob,p2,,id-b\n"

	result, err := svc.Import(context.Background(), strings.NewReader(input), application.ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, application.ImportResult{Imported: 1, Skipped: 1}, result)

	saved := store.snapshot()
	require.Len(t, saved, 2)
	assert.Equal(t, "original", saved[0].Password)
}

func TestTransferService_ImportReplaceLastWins(t *testing.T) {
	store := &memCredentialStore{creds: []model.Credential{
		{ID: "id-old", URL: "https://old.test", Username: "old", Password: "x"},
	}}
	svc := application.NewTransferService(store, application.NewGateService(&memSettingStore{}))

	input := "Website,Username,Password,Created,ID\n" +
		"https://a.test,alice,first,,id-1\n" +
		"https://b.test,bob,p2,,id-2\n" +
		"https://a.test,alice,second,,id-3\n"

	result, err := svc.Import(context.Background(), strings.NewReader(input), application.ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, application.ImportResult{Imported: 2, Skipped: 1}, result)

	saved := store.snapshot()
	require.Len(t, saved, 2)
	assert.Equal(t, "id-2", saved[0].ID)
	assert.Equal(t, "second", saved[1].Password)
}

func TestTransferService_ExportGated(t *testing.T) {
	store := &memCredentialStore{creds: []model.Credential{
		{ID: "id-a", URL: "https://a.test", Username: "alice", Password: "p1", CreatedAt: importNow},
	}}
	settings := &memSettingStore{}
	gate := application.NewGateService(settings)
	svc := application.NewTransferService(store, gate)
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := svc.Export(ctx, &buf, "")
	require.NoError(t, err, "export is open while no master password is set")
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "https://a.test,alice,p1,")

	require.NoError(t, gate.Set(ctx, "", "hunter22", "hunter22"))

	buf.Reset()
	_, err = svc.Export(ctx, &buf, "")
	assert.ErrorIs(t, err, application.ErrGateRequired)

	_, err = svc.Export(ctx, &buf, "wrong-pass")
	assert.ErrorIs(t, err, application.ErrGateMismatch)
	assert.Zero(t, buf.Len())

	_, err = svc.Export(ctx, &buf, "hunter22")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "Website,Username,Password,Created,ID\n"))
}
