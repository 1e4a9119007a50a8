// Package youtube adapts the YouTube Data API v3 to the collector and to
// the channel metrics endpoint.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/yt-insights/nicheexplorer/internal/collector"
	"github.com/yt-insights/nicheexplorer/internal/models"
)

// ErrChannelNotFound is returned when a channel lookup matches nothing.
var ErrChannelNotFound = errors.New("channel not found")

var videoParts = []string{"snippet", "contentDetails", "statistics"}

// Client talks to the Data API with whichever key the caller passes.
// One youtube.Service is built lazily per key.
type Client struct {
	opts []option.ClientOption

	mu       sync.Mutex
	services map[string]*youtube.Service
}

// NewClient returns a Client. Extra options (endpoint, HTTP client) are
// applied to every per-key service.
func NewClient(opts ...option.ClientOption) *Client {
	return &Client{
		opts:     opts,
		services: make(map[string]*youtube.Service),
	}
}

var _ collector.Searcher = (*Client)(nil)

func (c *Client) service(ctx context.Context, key string) (*youtube.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if svc, ok := c.services[key]; ok {
		return svc, nil
	}
	opts := append([]option.ClientOption{option.WithAPIKey(key)}, c.opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	c.services[key] = svc
	return svc, nil
}

// Search returns one page of video results for a keyword.
func (c *Client) Search(ctx context.Context, key string, req collector.SearchRequest) (*collector.SearchPage, error) {
	svc, err := c.service(ctx, key)
	if err != nil {
		return nil, err
	}

	size := req.PageSize
	if size <= 0 || size > collector.MaxPageSize {
		size = collector.MaxPageSize
	}
	call := svc.Search.List([]string{"id", "snippet"}).
		Q(req.Keyword).
		Type("video").
		MaxResults(int64(size))
	if req.Order.Valid() {
		call = call.Order(string(req.Order))
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, classify("search.list", err)
	}

	page := &collector.SearchPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		v := models.Video{ID: item.Id.VideoId}
		if s := item.Snippet; s != nil {
			v.Title = s.Title
			v.Description = s.Description
			v.ChannelID = s.ChannelId
			v.ChannelTitle = s.ChannelTitle
			v.PublishedAt = parseTime(s.PublishedAt)
			v.Thumbnail = thumbnail(s.Thumbnails)
		}
		page.Items = append(page.Items, v)
	}
	return page, nil
}

// ListByIDs fetches full records for up to 50 video IDs. Unknown IDs are
// silently absent from the result.
func (c *Client) ListByIDs(ctx context.Context, key string, ids []string) ([]models.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > collector.MaxPageSize {
		return nil, fmt.Errorf("videos.list accepts at most %d ids, got %d", collector.MaxPageSize, len(ids))
	}
	svc, err := c.service(ctx, key)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Videos.List(videoParts).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, classify("videos.list", err)
	}
	out := make([]models.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item != nil {
			out = append(out, toVideo(item))
		}
	}
	return out, nil
}

// Channel fetches snippet, statistics and the uploads playlist for a channel.
func (c *Client) Channel(ctx context.Context, key, channelID string) (*models.Channel, error) {
	svc, err := c.service(ctx, key)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Channels.List([]string{"snippet", "statistics", "contentDetails"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("channels.list", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%s: %w", channelID, ErrChannelNotFound)
	}

	item := resp.Items[0]
	ch := &models.Channel{ID: item.Id}
	if s := item.Snippet; s != nil {
		ch.Title = s.Title
		ch.Handle = s.CustomUrl
		ch.Thumbnail = thumbnail(s.Thumbnails)
	}
	if st := item.Statistics; st != nil {
		ch.Subscribers = int64(st.SubscriberCount)
		ch.ViewCount = int64(st.ViewCount)
		ch.VideoCount = int64(st.VideoCount)
	}
	if cd := item.ContentDetails; cd != nil && cd.RelatedPlaylists != nil {
		ch.UploadsPlaylistID = cd.RelatedPlaylists.Uploads
	}
	return ch, nil
}

// RecentUploads returns up to limit of the channel's latest uploads with
// statistics and durations filled in, newest first.
func (c *Client) RecentUploads(ctx context.Context, key string, ch *models.Channel, limit int) ([]models.Video, error) {
	if ch.UploadsPlaylistID == "" {
		return nil, fmt.Errorf("uploads playlist not found for channel %s", ch.ID)
	}
	svc, err := c.service(ctx, key)
	if err != nil {
		return nil, err
	}

	var (
		videos []models.Video
		token  string
	)
	for len(videos) < limit {
		call := svc.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(ch.UploadsPlaylistID).
			MaxResults(int64(min(collector.MaxPageSize, limit-len(videos))))
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, classify("playlistItems.list", err)
		}

		var ids []string
		for _, item := range resp.Items {
			if item != nil && item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
				ids = append(ids, item.ContentDetails.VideoId)
			}
		}
		batch, err := c.ListByIDs(ctx, key, ids)
		if err != nil {
			return nil, err
		}
		videos = append(videos, batch...)

		token = resp.NextPageToken
		if token == "" || len(resp.Items) == 0 {
			break
		}
	}
	if len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

// ResolveChannelID accepts a raw channel ID or a youtube.com channel URL in
// /channel/, /@handle, /c/ or /user/ form.
func (c *Client) ResolveChannelID(ctx context.Context, key, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "UC") && !strings.Contains(ref, "/") {
		return ref, nil
	}
	if strings.HasPrefix(ref, "@") {
		return c.lookup(ctx, key, func(call *youtube.ChannelsListCall) *youtube.ChannelsListCall {
			return call.ForHandle(ref)
		})
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if !strings.Contains(u.Host, "youtube.com") {
		return "", fmt.Errorf("unsupported channel reference %q", ref)
	}

	path := strings.TrimSuffix(u.Path, "/")
	switch {
	case strings.HasPrefix(path, "/channel/"):
		return strings.TrimPrefix(path, "/channel/"), nil
	case strings.HasPrefix(path, "/@"):
		handle := strings.TrimPrefix(path, "/")
		return c.lookup(ctx, key, func(call *youtube.ChannelsListCall) *youtube.ChannelsListCall {
			return call.ForHandle(handle)
		})
	case strings.HasPrefix(path, "/c/"), strings.HasPrefix(path, "/user/"):
		name := strings.TrimPrefix(strings.TrimPrefix(path, "/c/"), "/user/")
		return c.lookup(ctx, key, func(call *youtube.ChannelsListCall) *youtube.ChannelsListCall {
			return call.ForUsername(name)
		})
	}
	return "", fmt.Errorf("unsupported YouTube URL format %q", ref)
}

func (c *Client) lookup(ctx context.Context, key string, by func(*youtube.ChannelsListCall) *youtube.ChannelsListCall) (string, error) {
	svc, err := c.service(ctx, key)
	if err != nil {
		return "", err
	}
	resp, err := by(svc.Channels.List([]string{"id"})).Context(ctx).Do()
	if err != nil {
		return "", classify("channels.list", err)
	}
	if len(resp.Items) == 0 {
		return "", ErrChannelNotFound
	}
	return resp.Items[0].Id, nil
}

func toVideo(item *youtube.Video) models.Video {
	v := models.Video{ID: item.Id}
	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.ChannelID = s.ChannelId
		v.ChannelTitle = s.ChannelTitle
		v.PublishedAt = parseTime(s.PublishedAt)
		v.Thumbnail = thumbnail(s.Thumbnails)
	}
	if st := item.Statistics; st != nil {
		v.Views = int64(st.ViewCount)
		v.Likes = int64(st.LikeCount)
		v.Comments = int64(st.CommentCount)
	}
	if cd := item.ContentDetails; cd != nil {
		v.DurationSeconds = models.ParseISODuration(cd.Duration)
	}
	return v
}

func thumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// classify maps API errors onto the collector's sentinels. Only daily quota
// and key errors rotate keys; per-second throttles do not.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, item := range gerr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded":
			return fmt.Errorf("%s: %w: %s", op, collector.ErrQuotaExceeded, gerr.Message)
		case "rateLimitExceeded", "userRateLimitExceeded":
			return fmt.Errorf("%s: %w: %s", op, collector.ErrRateLimited, gerr.Message)
		case "keyInvalid", "keyExpired", "accessNotConfigured":
			return fmt.Errorf("%s: %w: %s", op, collector.ErrKeyRejected, gerr.Message)
		}
	}
	switch gerr.Code {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: %s", op, collector.ErrRateLimited, gerr.Message)
	case http.StatusBadRequest, http.StatusUnauthorized:
		if strings.Contains(strings.ToLower(gerr.Message), "api key") {
			return fmt.Errorf("%s: %w: %s", op, collector.ErrKeyRejected, gerr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
