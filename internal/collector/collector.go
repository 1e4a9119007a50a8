// Package collector pages through keyword search results and gathers a
// deduplicated, detail-enriched set of videos.
package collector

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/yt-insights/nicheexplorer/internal/logging"
	"github.com/yt-insights/nicheexplorer/internal/models"
	"github.com/yt-insights/nicheexplorer/internal/telemetry"
)

// MaxPageSize is the largest page and ID batch the Data API accepts.
const MaxPageSize = 50

// SearchRequest asks for one page of keyword results.
type SearchRequest struct {
	Keyword   string
	PageToken string
	PageSize  int
	Order     models.VideoSortOption
}

// SearchPage is one page of search results. Items carry snippet fields
// only; statistics and durations come from ListByIDs.
type SearchPage struct {
	Items         []models.Video
	NextPageToken string
}

// Searcher is the video metadata API as seen by the collector. Both calls
// take the API key to use so that the caller controls rotation.
type Searcher interface {
	Search(ctx context.Context, key string, req SearchRequest) (*SearchPage, error)
	ListByIDs(ctx context.Context, key string, ids []string) ([]models.Video, error)
}

// Options tune paging. Zero values get defaults.
type Options struct {
	PageSize          int
	Order             models.VideoSortOption
	MaxPages          int
	RequestsPerSecond float64
	Burst             int
}

// Collector drives one search at a time per call to Collect. A single
// Collector may serve concurrent calls; they share the key ring and limiter.
type Collector struct {
	searcher Searcher
	ring     *KeyRing
	opts     Options
	limiter  *rate.Limiter
}

// Result is the outcome of a collection run. Videos hold whatever was
// gathered before the run stopped, even when Incomplete is set.
type Result struct {
	Videos     []models.Video
	Pages      int
	Reason     models.StopReason
	Err        error
	Incomplete bool
}

// New returns a Collector. MaxPages defaults to 20 and the page size to 50.
func New(searcher Searcher, ring *KeyRing, opts Options) *Collector {
	if opts.PageSize <= 0 || opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if !opts.Order.Valid() {
		opts.Order = models.SortByRelevance
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 20
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Collector{
		searcher: searcher,
		ring:     ring,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, opts.Burst),
	}
}

// Collect gathers up to target distinct videos for keyword. It never fails
// outright: errors end the run early and are reported in Result.Err.
func (c *Collector) Collect(ctx context.Context, keyword string, target int) Result {
	log := logging.With("collector")
	start := time.Now()

	var (
		res   Result
		seen  = make(map[string]bool)
		token string
	)

	finish := func(reason models.StopReason, err error) Result {
		res.Reason = reason
		res.Err = err
		res.Incomplete = reason.Incomplete()
		telemetry.VideosCollected.Add(float64(len(res.Videos)))

		ev := log.Info()
		if res.Incomplete {
			ev = log.Warn().Err(err)
		}
		ev.Str("keyword", keyword).
			Int("videos", len(res.Videos)).
			Int("pages", res.Pages).
			Str("reason", string(reason)).
			Dur("elapsed", time.Since(start)).
			Msg("collection finished")
		return res
	}

	for {
		if len(res.Videos) >= target {
			return finish(models.StopTargetReached, nil)
		}
		if res.Pages >= c.opts.MaxPages {
			return finish(models.StopPageLimit, nil)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return finish(models.StopCanceled, err)
		}

		req := SearchRequest{
			Keyword:   keyword,
			PageToken: token,
			PageSize:  c.opts.PageSize,
			Order:     c.opts.Order,
		}
		var page *SearchPage
		err := WithKey(ctx, c.ring, func(key string) error {
			p, err := c.searcher.Search(ctx, key, req)
			page = p
			return err
		})
		if err != nil {
			telemetry.PagesFetched.WithLabelValues("error").Inc()
			return finish(c.classify(ctx, err), err)
		}
		telemetry.PagesFetched.WithLabelValues("ok").Inc()
		res.Pages++

		fresh := make([]models.Video, 0, len(page.Items))
		for _, v := range page.Items {
			if v.ID == "" || seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			fresh = append(fresh, v)
		}
		if room := target - len(res.Videos); len(fresh) > room {
			fresh = fresh[:room]
		}

		enriched, err := c.enrich(ctx, fresh)
		res.Videos = append(res.Videos, enriched...)
		log.Debug().
			Str("keyword", keyword).
			Int("page", res.Pages).
			Int("items", len(page.Items)).
			Int("new", len(fresh)).
			Int("total", len(res.Videos)).
			Msg("page fetched")
		if err != nil {
			return finish(c.classify(ctx, err), err)
		}

		if page.NextPageToken == "" {
			if len(res.Videos) >= target {
				return finish(models.StopTargetReached, nil)
			}
			return finish(models.StopExhaustedPages, nil)
		}
		token = page.NextPageToken
	}
}

// enrich replaces snippet-only videos with their full records, keeping the
// search order. Videos the details call does not return (deleted, private)
// keep their snippet fields. On error the batches finished so far are
// returned with it.
func (c *Collector) enrich(ctx context.Context, videos []models.Video) ([]models.Video, error) {
	out := make([]models.Video, 0, len(videos))
	for start := 0; start < len(videos); start += MaxPageSize {
		end := min(start+MaxPageSize, len(videos))
		batch := videos[start:end]

		ids := make([]string, len(batch))
		for i, v := range batch {
			ids[i] = v.ID
		}

		var details []models.Video
		err := WithKey(ctx, c.ring, func(key string) error {
			d, err := c.searcher.ListByIDs(ctx, key, ids)
			details = d
			return err
		})
		if err != nil {
			return out, err
		}

		byID := make(map[string]models.Video, len(details))
		for _, d := range details {
			byID[d.ID] = d
		}
		for _, v := range batch {
			if d, ok := byID[v.ID]; ok {
				out = append(out, d)
			} else {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func (c *Collector) classify(ctx context.Context, err error) models.StopReason {
	switch {
	case errors.Is(err, ErrKeysExhausted):
		return models.StopKeysExhausted
	case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.StopCanceled
	default:
		return models.StopFetchFailed
	}
}
