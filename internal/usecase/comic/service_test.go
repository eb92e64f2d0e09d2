package comic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/infra/adapter/persistence/memory"
	"comic-notifier/internal/pkg/errcollect"
	"comic-notifier/internal/usecase/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ─────────────────────────── fakes ─────────────────────────── */

type fakeFeeds struct {
	failures map[string]error
}

func (f *fakeFeeds) Resolve(_ context.Context, comic entity.ComicConfig) (*entity.FeedSnapshot, error) {
	if err := f.failures[comic.Name()]; err != nil {
		return nil, err
	}
	return &entity.FeedSnapshot{
		FeedName:    comic.Name(),
		DateUpdated: time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC),
		PageName:    "latest",
		PageLink:    "https://" + comic.Name() + ".example.com/latest",
	}, nil
}

type fakePages struct {
	pages    int
	failures map[string]error
	panics   map[string]bool
}

func (f *fakePages) ExtractChain(_ context.Context, firstURL string, comic entity.ComicConfig) ([]entity.PageSnapshot, error) {
	if f.panics[comic.Name()] {
		panic("selector engine exploded")
	}
	if err := f.failures[comic.Name()]; err != nil {
		return nil, err
	}
	out := make([]entity.PageSnapshot, f.pages)
	for i := range out {
		out[i] = entity.PageSnapshot{ImageURI: firstURL + ".png"}
	}
	return out, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified []string
	failures map[string]error
}

func (f *fakeNotifier) Notify(_ context.Context, _ *entity.FeedSnapshot, _ []entity.PageSnapshot, comic entity.ComicConfig) error {
	f.mu.Lock()
	f.notified = append(f.notified, comic.Name())
	f.mu.Unlock()
	return f.failures[comic.Name()]
}

func newTestComic(t *testing.T, name string) entity.ComicConfig {
	t.Helper()
	c, err := entity.NewComicConfig(entity.ComicData{
		Name:          name,
		ImageSelector: "#comic img",
		FeedURL:       "https://" + name + ".example.com/rss",
		Webhooks:      []string{"https://hooks.example.com/" + name},
	})
	require.NoError(t, err)
	return c
}

/* ─────────────────────────── Process ─────────────────────────── */

func TestService_Process_SettlesEveryComic(t *testing.T) {
	feedErr := entity.NewFeedError("bad-feed", "no items in feed")
	pageErr := entity.NewPageError("bad-page", "could not find image URI")
	hookErrs := errcollect.New()
	hookErrs.Add(
		entity.NewNotifierError("bad-hooks", "failed posting to a with 500: x"),
		entity.NewNotifierError("bad-hooks", "failed posting to b with 404: y"),
	)

	notifier := &fakeNotifier{failures: map[string]error{"bad-hooks": hookErrs.AssertEmpty()}}
	svc := NewService(memory.NewKVStore(),
		&fakeFeeds{failures: map[string]error{"bad-feed": feedErr}},
		&fakePages{pages: 2, failures: map[string]error{"bad-page": pageErr}},
		notifier,
	)

	indexErr := entity.NewConfigError("error parsing index item", nil)
	batch := &Batch{
		Comics: []entity.ComicConfig{
			newTestComic(t, "good"),
			newTestComic(t, "bad-feed"),
			newTestComic(t, "bad-page"),
			newTestComic(t, "bad-hooks"),
		},
		Errors: errcollect.New(),
	}
	batch.Errors.Add(indexErr)

	stats := svc.Process(context.Background(), batch)

	assert.Equal(t, 4, stats.Comics)
	assert.Equal(t, int64(1), stats.Succeeded)
	assert.Equal(t, int64(3), stats.Failed)
	assert.Equal(t, int64(4), stats.Pages, "good and bad-hooks extracted two pages each")
	assert.ElementsMatch(t, []string{"good", "bad-hooks"}, notifier.notified)

	// Index error first, then the four pipeline failures with the nested
	// delivery aggregate flattened into its two leaves.
	errs := batch.Errors.Errors()
	require.Len(t, errs, 5)
	assert.Same(t, indexErr, errs[0])
	assert.ElementsMatch(t,
		[]entity.Kind{entity.KindFeed, entity.KindPage, entity.KindNotifier, entity.KindNotifier},
		[]entity.Kind{entity.KindOf(errs[1]), entity.KindOf(errs[2]), entity.KindOf(errs[3]), entity.KindOf(errs[4])},
	)
}

func TestService_Process_RecoversPanic(t *testing.T) {
	svc := NewService(memory.NewKVStore(),
		&fakeFeeds{},
		&fakePages{pages: 1, panics: map[string]bool{"boom": true}},
		&fakeNotifier{},
	)
	batch := &Batch{Comics: []entity.ComicConfig{newTestComic(t, "boom"), newTestComic(t, "fine")}}

	stats := svc.Process(context.Background(), batch)

	assert.Equal(t, int64(1), stats.Failed)
	require.Equal(t, 1, batch.Errors.Len())
	err := batch.Errors.Errors()[0]
	assert.True(t, errors.Is(err, ErrPipelinePanic))
	assert.Equal(t, entity.KindPage, entity.KindOf(err))
	assert.Equal(t, "boom: recovered from panic: selector engine exploded: comic pipeline panicked", err.Error())
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(context.Context, *entity.FeedSnapshot, []entity.PageSnapshot, entity.ComicConfig) error {
	panic("nil webhook client")
}

func TestService_Process_PanicKindFollowsStage(t *testing.T) {
	svc := NewService(memory.NewKVStore(), &fakeFeeds{}, &fakePages{pages: 1}, panickingNotifier{})
	batch := &Batch{Comics: []entity.ComicConfig{newTestComic(t, "late")}}

	svc.Process(context.Background(), batch)

	require.Equal(t, 1, batch.Errors.Len())
	err := batch.Errors.Errors()[0]
	assert.True(t, errors.Is(err, ErrPipelinePanic))
	assert.True(t, entity.IsKind(err, entity.KindNotifier))
}

func TestService_Process_EmptyBatch(t *testing.T) {
	svc := NewService(memory.NewKVStore(), &fakeFeeds{}, &fakePages{}, &fakeNotifier{})
	batch := &Batch{Errors: errcollect.New()}

	stats := svc.Process(context.Background(), batch)

	assert.Zero(t, stats.Comics)
	assert.Zero(t, batch.Errors.Len())
}

func TestService_ProcessComic(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(memory.NewKVStore(), &fakeFeeds{}, &fakePages{pages: 1}, notifier)

	require.NoError(t, svc.ProcessComic(context.Background(), newTestComic(t, "single")))
	assert.Equal(t, []string{"single"}, notifier.notified)
}

/* ─────────────────────────── Run ─────────────────────────── */

func TestService_Run(t *testing.T) {
	index := `[
		{"name": "good", "imageSelector": "img", "feedUrl": "https://good.example.com/rss", "webhooks": ["https://hooks.example.com/1"]},
		{"name": "bad-feed", "imageSelector": "img", "feedUrl": "https://bad.example.com/rss", "webhooks": ["https://hooks.example.com/2"]},
		{"imageSelector": "img"}
	]`
	store := storeWithIndex(t, index)
	svc := NewService(store,
		&fakeFeeds{failures: map[string]error{"bad-feed": entity.NewFeedError("bad-feed", "latest page URL missing")}},
		&fakePages{pages: 1},
		&fakeNotifier{},
	)

	report, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Comics)
	assert.Equal(t, int64(1), report.Succeeded)
	require.Len(t, report.Errors, 2)
	assert.True(t, entity.IsKind(report.Errors[0], entity.KindConfig))
	assert.True(t, entity.IsKind(report.Errors[1], entity.KindFeed))
	assert.Positive(t, report.Duration)
}

func TestService_Run_InvalidIndex(t *testing.T) {
	feeds := &fakeFeeds{}
	svc := NewService(storeWithIndex(t, `{"not": "an array"}`), feeds, &fakePages{}, &fakeNotifier{})

	report, err := svc.Run(context.Background())

	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

type statusSender struct {
	mu     sync.Mutex
	failed map[string]bool
	sent   []string
}

type statusErr struct{ code int }

func (e statusErr) Error() string        { return "webhook rejected" }
func (e statusErr) StatusCode() int      { return e.code }
func (e statusErr) ResponseBody() string { return "Unknown Webhook" }

func (s *statusSender) Send(_ context.Context, url string, _ []notify.Embed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, url)
	if s.failed[url] {
		return statusErr{code: 404}
	}
	return nil
}

func TestService_Run_IndexAndDeliveryErrorsAccumulate(t *testing.T) {
	index := `[
		{"imageSelector": "img", "feedUrl": "https://nameless.example.com/rss", "webhooks": []},
		{"name": "valid", "imageSelector": "img", "feedUrl": "https://valid.example.com/rss",
		 "webhooks": ["https://hooks.example.com/1", "https://hooks.example.com/2", "https://hooks.example.com/3"]}
	]`
	store := storeWithIndex(t, index)

	batch, err := LoadIndex(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, batch.Comics, 1)
	require.Equal(t, 1, batch.Errors.Len(), "malformed record is reported before any pipeline runs")

	sender := &statusSender{failed: map[string]bool{"https://hooks.example.com/2": true}}
	svc := NewService(store, &fakeFeeds{}, &fakePages{pages: 1}, notify.NewPlanner(store, sender))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Errors, 2)
	assert.True(t, entity.IsKind(report.Errors[0], entity.KindConfig))
	assert.True(t, entity.IsKind(report.Errors[1], entity.KindNotifier))
	assert.Len(t, sender.sent, 3)

	keys, err := store.ListKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 3, "index plus the two successful deliveries")
}
