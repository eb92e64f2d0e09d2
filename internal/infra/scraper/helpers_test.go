package scraper_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"comic-notifier/internal/domain/entity"
)

// fixtureServer serves files from testdata/<dir> and records every requested path.
type fixtureServer struct {
	*httptest.Server
	mu    sync.Mutex
	paths []string
}

func newFixtureServer(t *testing.T, dir string) *fixtureServer {
	t.Helper()
	fs := &fixtureServer{}
	files := http.FileServer(http.Dir(filepath.Join("testdata", dir)))
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.paths = append(fs.paths, r.URL.Path)
		fs.mu.Unlock()
		files.ServeHTTP(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fixtureServer) requested() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]string, len(fs.paths))
	copy(out, fs.paths)
	return out
}

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", path))
	require.NoError(t, err)
	return data
}

func newComic(t *testing.T, mutate func(d *entity.ComicData)) entity.ComicConfig {
	t.Helper()
	data := entity.ComicData{
		Name:          "Test Comic",
		ImageSelector: "#comic img",
		FeedURL:       "https://comic.example.com/rss.xml",
		Webhooks:      []string{"https://hooks.example.com/1"},
	}
	if mutate != nil {
		mutate(&data)
	}
	comic, err := entity.NewComicConfig(data)
	require.NoError(t, err)
	return comic
}
