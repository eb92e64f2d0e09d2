package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/infra/adapter/persistence"
	"comic-notifier/internal/usecase/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLiteEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	return path
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(command string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(command, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestImportAndShowIndex(t *testing.T) {
	setupSQLiteEnv(t)
	index := writeFile(t, "comics.yaml", `
- name: xkcd
  imageSelector: "#comic img"
  feedUrl: https://xkcd.com/rss.xml
  webhooks: [https://discord.com/api/webhooks/123/secret-token]
`)

	code, stdout, stderr := runCLI("import", index)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Imported 1 records (1 valid comics).")

	code, stdout, _ = runCLI("show-index")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "xkcd")
	assert.Contains(t, stdout, "1 valid comics, 0 invalid records.")
}

func TestImport_RejectsInvalidWithoutForce(t *testing.T) {
	setupSQLiteEnv(t)
	index := writeFile(t, "index.json", `[
		{"name": "ok", "imageSelector": "img", "feedUrl": "https://ok.example.com/rss", "webhooks": []},
		{"name": "broken", "imageSelector": "", "feedUrl": "https://broken.example.com/rss", "webhooks": []}
	]`)

	code, _, stderr := runCLI("import", index)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `invalid record: error parsing index item "broken"`)
	assert.Contains(t, stderr, "pass --force")

	code, _, stderr = runCLI("show-index")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid comic index")

	code, _, _ = runCLI("import", "--force", index)
	assert.Equal(t, 0, code)

	code, stdout, _ := runCLI("show-index")
	assert.Equal(t, 1, code, "invalid records are still reported")
	assert.Contains(t, stdout, "1 valid comics, 1 invalid records.")
}

func TestList(t *testing.T) {
	path := setupSQLiteEnv(t)
	ctx := context.Background()

	store, closer, err := persistence.Open(ctx, persistence.Options{Backend: persistence.BackendSQLite, SQLitePath: path})
	require.NoError(t, err)
	date := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, entity.IndexKey, "[]"))
	require.NoError(t, store.Put(ctx, entity.CacheKey("https://xkcd.com/rss.xml", "https://discord.com/api/webhooks/123/secret-token"), notify.FormatCacheTime(date)))
	require.NoError(t, closer.Close())

	code, stdout, _ := runCLI("list")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "https://xkcd.com/rss.xml | https://discord.com/api/webhooks/123/**** -> 2024-03-06T12:00:00Z")
	assert.NotContains(t, stdout, "secret-token")
	assert.NotContains(t, stdout, "index")

	code, stdout, _ = runCLI("list", "--output", "json")
	require.Equal(t, 0, code)
	var entries []ListEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "https://xkcd.com/rss.xml", entries[0].Feed)
	assert.True(t, date.Equal(entries[0].Date))
}

func TestUnknownCommand(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memory")

	code, _, stderr := runCLI("export")

	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "export"`)
}
