// Package notify decides which webhooks must hear about a comic update and
// delivers the update to them, recording each successful delivery in the cache.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/observability/logging"
	"comic-notifier/internal/observability/tracing"
	"comic-notifier/internal/pkg/errcollect"
	"comic-notifier/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Planner builds notification plans from resolved comic data.
type Planner struct {
	store  repository.KVStore
	sender Sender
	now    func() time.Time
}

// NewPlanner creates a Planner that reads and writes delivery times in store
// and posts through sender.
func NewPlanner(store repository.KVStore, sender Sender) *Planner {
	return &Planner{
		store:  store,
		sender: sender,
		now:    time.Now,
	}
}

// WithClock returns a copy of the planner that stamps deliveries with now.
func (p *Planner) WithClock(now func() time.Time) *Planner {
	cp := *p
	cp.now = now
	return &cp
}

// Plan is the set of webhooks that must be notified about one comic update,
// together with the data the update is rendered from.
type Plan struct {
	planner *Planner
	comic   entity.ComicConfig
	feed    *entity.FeedSnapshot
	pages   []entity.PageSnapshot
	targets []string
}

// FromData determines which of the comic's webhooks still need the update.
//
// A webhook is a target when the cache has no delivery time for it, or the
// recorded time is strictly before feed.DateUpdated. The webhooks are read
// with a single batch cache call and keep their configured order.
//
// A comic without webhooks fails with a NotifierError before any I/O.
func (p *Planner) FromData(ctx context.Context, feed *entity.FeedSnapshot, pages []entity.PageSnapshot, comic entity.ComicConfig) (*Plan, error) {
	webhooks := comic.Webhooks()
	if len(webhooks) == 0 {
		return nil, entity.NewNotifierError(comic.Name(), msgNoTargetsConfigured)
	}
	if feed == nil {
		return nil, entity.NewNotifierError(comic.Name(), "could not plan notification").WithCause(ErrNilFeed)
	}
	if len(pages) == 0 {
		return nil, entity.NewNotifierError(comic.Name(), "could not plan notification").WithCause(ErrNoPages)
	}

	keys := make([]string, len(webhooks))
	for i, hook := range webhooks {
		keys[i] = comic.CacheKey(hook)
	}

	cached, err := ReadCachedDates(ctx, p.store, keys)
	if err != nil {
		return nil, entity.NewNotifierError(comic.Name(), "could not read cached dates").WithCause(err)
	}

	targets := make([]string, 0, len(webhooks))
	for i, hook := range webhooks {
		last, ok := cached[keys[i]]
		if !ok || last.Before(feed.DateUpdated) {
			targets = append(targets, hook)
		}
	}
	recordSkipped(len(webhooks) - len(targets))

	return &Plan{
		planner: p,
		comic:   comic,
		feed:    feed,
		pages:   append([]entity.PageSnapshot(nil), pages...),
		targets: targets,
	}, nil
}

// Notify plans and sends in one step.
func (p *Planner) Notify(ctx context.Context, feed *entity.FeedSnapshot, pages []entity.PageSnapshot, comic entity.ComicConfig) error {
	plan, err := p.FromData(ctx, feed, pages, comic)
	if err != nil {
		return err
	}
	return plan.Send(ctx)
}

// Targets returns a copy of the webhooks the plan will post to.
func (pl *Plan) Targets() []string {
	return append([]string(nil), pl.targets...)
}

// Embeds renders one embed per page.
//
// The first embed carries the page title, the feed name as author and the
// page link. Every embed carries its page image; alt text, when present, is
// sent spoilered in the description. When the chain has more than one page
// each embed is footed with its 1-based position.
func (pl *Plan) Embeds() []Embed {
	embeds := make([]Embed, len(pl.pages))
	for i, page := range pl.pages {
		e := Embed{ImageURL: page.ImageURI}
		if i == 0 {
			e.Title = pl.feed.PageName
			e.Author = pl.feed.FeedName
			e.URL = pl.feed.PageLink
		}
		if page.AltText != "" {
			e.Description = fmt.Sprintf("Alt text: ||%s||", page.AltText)
		}
		if len(pl.pages) > 1 {
			e.Footer = fmt.Sprintf("Page %d", i+1)
		}
		embeds[i] = e
	}
	return embeds
}

// Send posts the embeds to every target concurrently.
//
// Every delivery settles before Send returns; one failure never cancels the
// others. Each successful delivery records the current time in the cache right
// away, so a webhook that succeeded is not notified again even if a sibling
// failed. Delivery and cache-write failures are returned together as an
// *errcollect.AggregateError of NotifierErrors.
//
// A plan without targets logs one line and performs no I/O.
func (pl *Plan) Send(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	if len(pl.targets) == 0 {
		logger.Info(entity.NewNotifierError(pl.comic.Name(), msgNoWebhooksToSend).Error(),
			slog.String("comic", pl.comic.Name()))
		return nil
	}

	embeds := pl.Embeds()
	errs := errcollect.New()

	var g errgroup.Group
	for _, url := range pl.targets {
		url := url
		g.Go(func() error {
			errs.Add(pl.deliver(ctx, url, embeds))
			return nil
		})
	}
	_ = g.Wait()

	return errs.AssertEmpty()
}

// deliver posts to one webhook and records the delivery time on success.
func (pl *Plan) deliver(ctx context.Context, url string, embeds []Embed) error {
	ctx, span := tracing.GetTracer().Start(ctx, "notify.deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("comic", pl.comic.Name()),
		attribute.Int("embeds", len(embeds)),
	)

	start := time.Now()
	err := pl.planner.sender.Send(ctx, url, embeds)
	if err != nil {
		recordDelivery(resultFailure, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		return deliveryError(pl.comic.Name(), url, err)
	}
	recordDelivery(resultSuccess, time.Since(start))

	if err := pl.planner.store.Put(ctx, pl.comic.CacheKey(url), FormatCacheTime(pl.planner.now())); err != nil {
		recordCacheWrite(resultFailure)
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache write failed")
		return entity.NewNotifierError(pl.comic.Name(), fmt.Sprintf("could not update cached date for %s", url)).WithCause(err)
	}
	recordCacheWrite(resultSuccess)

	logging.FromContext(ctx).Debug("webhook notified",
		slog.String("comic", pl.comic.Name()),
		slog.Int("embeds", len(embeds)))
	return nil
}

// deliveryError converts a sender failure into a NotifierError.
func deliveryError(comicName, url string, err error) error {
	var se StatusError
	if errors.As(err, &se) {
		return entity.NewNotifierError(comicName,
			fmt.Sprintf("failed posting to %s with %d: %s", url, se.StatusCode(), se.ResponseBody())).
			WithResponse(url, se.StatusCode(), se.ResponseBody())
	}
	ne := entity.NewNotifierError(comicName, fmt.Sprintf("failed posting to %s", url)).WithCause(err)
	ne.URL = url
	return ne
}
