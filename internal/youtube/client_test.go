package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/yt-insights/nicheexplorer/internal/collector"
	"github.com/yt-insights/nicheexplorer/internal/models"
)

const searchBody = `{
  "nextPageToken": "CDIQAA",
  "items": [
    {"id": {"kind": "youtube#video", "videoId": "vid1"},
     "snippet": {"title": "Pasta in 5 minutes", "description": "quick", "channelId": "UC1",
                 "channelTitle": "Cook One", "publishedAt": "2024-03-01T10:00:00Z",
                 "thumbnails": {"default": {"url": "http://img/1.jpg"}}}},
    {"id": {"kind": "youtube#channel", "channelId": "UC9"}},
    {"id": {"kind": "youtube#video", "videoId": "vid2"},
     "snippet": {"title": "Knife skills", "channelId": "UC2", "publishedAt": "2024-03-02T10:00:00Z"}}
  ]
}`

const videosBody = `{
  "items": [
    {"id": "vid1",
     "snippet": {"title": "Pasta in 5 minutes", "channelId": "UC1", "channelTitle": "Cook One",
                 "publishedAt": "2024-03-01T10:00:00Z"},
     "contentDetails": {"duration": "PT4M13S"},
     "statistics": {"viewCount": "12345", "likeCount": "321", "commentCount": "12"}},
    {"id": "vid2",
     "snippet": {"title": "Knife skills", "channelId": "UC2"},
     "contentDetails": {"duration": "PT45S"},
     "statistics": {"viewCount": "99"}}
  ]
}`

const quotaBody = `{"error": {"code": 403, "message": "The request cannot be completed because you have exceeded your quota.",
  "errors": [{"message": "quota", "domain": "youtube.quota", "reason": "quotaExceeded"}]}}`

const badKeyBody = `{"error": {"code": 400, "message": "API key not valid. Please pass a valid API key.",
  "errors": [{"message": "API key not valid.", "domain": "global", "reason": "badRequest"}]}}`

const throttledBody = `{"error": {"code": 403, "message": "Too many requests per second.",
  "errors": [{"message": "rate", "domain": "youtube.quota", "reason": "rateLimitExceeded"}]}}`

type fakeAPI struct {
	t        *testing.T
	lastKeys []string
	lastURL  []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	f.lastKeys = append(f.lastKeys, key)
	f.lastURL = append(f.lastURL, r.URL.String())
	w.Header().Set("Content-Type", "application/json")

	switch key {
	case "spent":
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(quotaBody))
		return
	case "bogus":
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(badKeyBody))
		return
	case "throttled":
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(throttledBody))
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/search"):
		w.Write([]byte(searchBody))
	case strings.HasSuffix(r.URL.Path, "/videos"):
		w.Write([]byte(videosBody))
	case strings.HasSuffix(r.URL.Path, "/channels"):
		if r.URL.Query().Get("forHandle") == "@cookone" {
			w.Write([]byte(`{"items":[{"id":"UC1"}]}`))
			return
		}
		if r.URL.Query().Get("id") == "UC1" {
			w.Write([]byte(`{"items":[{"id":"UC1","snippet":{"title":"Cook One","customUrl":"@cookone"},
				"statistics":{"subscriberCount":"1000","viewCount":"50000","videoCount":"2"},
				"contentDetails":{"relatedPlaylists":{"uploads":"UU1"}}}]}`))
			return
		}
		w.Write([]byte(`{"items":[]}`))
	case strings.HasSuffix(r.URL.Path, "/playlistItems"):
		w.Write([]byte(`{"items":[{"contentDetails":{"videoId":"vid1"}},{"contentDetails":{"videoId":"vid2"}}]}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{t: t}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewClient(option.WithEndpoint(srv.URL + "/")), api
}

func TestSearch(t *testing.T) {
	c, api := newTestClient(t)

	page, err := c.Search(context.Background(), "k1", collector.SearchRequest{
		Keyword:  "pasta",
		PageSize: 50,
		Order:    models.SortByViews,
	})
	require.NoError(t, err)

	assert.Equal(t, "CDIQAA", page.NextPageToken)
	require.Len(t, page.Items, 2, "non-video results are skipped")
	assert.Equal(t, "vid1", page.Items[0].ID)
	assert.Equal(t, "UC1", page.Items[0].ChannelID)
	assert.Equal(t, "http://img/1.jpg", page.Items[0].Thumbnail)
	assert.Equal(t, 2024, page.Items[0].PublishedAt.Year())

	assert.Equal(t, []string{"k1"}, api.lastKeys)
	assert.Contains(t, api.lastURL[0], "order=viewCount")
	assert.Contains(t, api.lastURL[0], "q=pasta")
	assert.Contains(t, api.lastURL[0], "type=video")
}

func TestListByIDs(t *testing.T) {
	c, _ := newTestClient(t)

	videos, err := c.ListByIDs(context.Background(), "k1", []string{"vid1", "vid2"})
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, int64(12345), videos[0].Views)
	assert.Equal(t, int64(321), videos[0].Likes)
	assert.Equal(t, 253, videos[0].DurationSeconds)
	assert.False(t, videos[0].IsShort())
	assert.True(t, videos[1].IsShort())
}

func TestListByIDsRejectsOversizedBatch(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.ListByIDs(context.Background(), "k1", make([]string, 51))
	assert.Error(t, err)
}

func TestQuotaErrorIsRotatable(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Search(context.Background(), "spent", collector.SearchRequest{Keyword: "pasta"})
	assert.ErrorIs(t, err, collector.ErrQuotaExceeded)

	_, err = c.ListByIDs(context.Background(), "bogus", []string{"vid1"})
	assert.ErrorIs(t, err, collector.ErrKeyRejected)
}

func TestRateLimitDoesNotBenchKey(t *testing.T) {
	c, api := newTestClient(t)

	_, err := c.Search(context.Background(), "throttled", collector.SearchRequest{Keyword: "pasta"})
	assert.ErrorIs(t, err, collector.ErrRateLimited)
	assert.NotErrorIs(t, err, collector.ErrQuotaExceeded)

	ring := collector.NewKeyRing([]string{"throttled", "k2"}, 0)
	res := collector.New(c, ring, collector.Options{MaxPages: 1}).Collect(context.Background(), "pasta", 10)

	assert.Equal(t, models.StopFetchFailed, res.Reason)
	assert.True(t, res.Incomplete)
	assert.Equal(t, 2, ring.Remaining())
	assert.Equal(t, []string{"throttled", "throttled"}, api.lastKeys)
}

func TestCollectorRotatesThroughClient(t *testing.T) {
	c, api := newTestClient(t)
	ring := collector.NewKeyRing([]string{"spent", "k2"}, 0)

	res := collector.New(c, ring, collector.Options{MaxPages: 1}).Collect(context.Background(), "pasta", 10)

	assert.Equal(t, models.StopPageLimit, res.Reason)
	require.Len(t, res.Videos, 2)
	assert.Equal(t, int64(12345), res.Videos[0].Views)
	assert.Equal(t, []string{"spent", "k2", "k2"}, api.lastKeys)
}

func TestChannelAndUploads(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ch, err := c.Channel(ctx, "k1", "UC1")
	require.NoError(t, err)
	assert.Equal(t, "Cook One", ch.Title)
	assert.Equal(t, "UU1", ch.UploadsPlaylistID)
	assert.Equal(t, int64(1000), ch.Subscribers)

	videos, err := c.RecentUploads(ctx, "k1", ch, 50)
	require.NoError(t, err)
	assert.Len(t, videos, 2)

	_, err = c.Channel(ctx, "k1", "UCmissing")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestResolveChannelID(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		ref  string
		want string
	}{
		{"UC1", "UC1"},
		{"https://www.youtube.com/channel/UCabc/", "UCabc"},
		{"https://www.youtube.com/@cookone", "UC1"},
		{"@cookone", "UC1"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := c.ResolveChannelID(ctx, "k1", tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c.ResolveChannelID(ctx, "k1", "https://youtu.be/abc")
	assert.Error(t, err)
	_, err = c.ResolveChannelID(ctx, "k1", "https://www.youtube.com/@nobody")
	assert.ErrorIs(t, err, ErrChannelNotFound)
}
