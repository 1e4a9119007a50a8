package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yt-insights/nicheexplorer/internal/models"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// uploads builds a most-recent-first sample spaced by the given day gaps.
func uploads(views []int64, gapDays ...float64) []models.Video {
	out := make([]models.Video, len(views))
	at := base
	for i, v := range views {
		out[i] = models.Video{ID: string(rune('a' + i)), Views: v, PublishedAt: at, DurationSeconds: 120}
		gap := 1.0
		if i < len(gapDays) {
			gap = gapDays[i]
		}
		at = at.Add(-time.Duration(gap * float64(24*time.Hour)))
	}
	return out
}

func TestMedian(t *testing.T) {
	assert.Zero(t, Median(nil))
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))

	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in, "input must not be reordered")
}

func TestUploadIntervals(t *testing.T) {
	t.Run("insufficient", func(t *testing.T) {
		got := UploadIntervals(uploads([]int64{10}))
		assert.False(t, got.Sufficient)
		assert.Zero(t, got.SampleSize)

		assert.False(t, UploadIntervals(nil).Sufficient)
	})

	t.Run("mean and median", func(t *testing.T) {
		got := UploadIntervals(uploads([]int64{1, 1, 1, 1}, 1, 2, 6))
		require.True(t, got.Sufficient)
		assert.Equal(t, 3, got.SampleSize)
		assert.InDelta(t, 3.0, got.MeanDays, 1e-9)
		assert.InDelta(t, 2.0, got.MedianDays, 1e-9)
	})

	t.Run("uses the most recent twenty", func(t *testing.T) {
		views := make([]int64, 30)
		got := UploadIntervals(uploads(views))
		assert.Equal(t, IntervalWindow-1, got.SampleSize)
	})

	t.Run("skips missing timestamps", func(t *testing.T) {
		vs := uploads([]int64{1, 1, 1})
		vs[2].PublishedAt = time.Time{}
		got := UploadIntervals(vs)
		assert.True(t, got.Sufficient)
		assert.Equal(t, 1, got.SampleSize)
	})
}

func TestViewDispersion(t *testing.T) {
	t.Run("constant sequence is exactly zero", func(t *testing.T) {
		got := ViewDispersion(uploads([]int64{700, 700, 700, 700}))
		assert.Equal(t, 0.0, got.CV)
		assert.Equal(t, models.DispersionStable, got.Kind)
	})

	t.Run("zero mean reports zero", func(t *testing.T) {
		got := ViewDispersion(uploads([]int64{0, 0, 0}))
		assert.Equal(t, 0.0, got.CV)
		assert.Equal(t, 3, got.SampleSize)
	})

	t.Run("empty", func(t *testing.T) {
		got := ViewDispersion(nil)
		assert.Equal(t, 0.0, got.CV)
		assert.Equal(t, models.DispersionUnknown, got.Kind)
	})

	t.Run("sample standard deviation", func(t *testing.T) {
		got := ViewDispersion(uploads([]int64{2, 4, 4, 4, 5, 5, 7, 9}))
		assert.InDelta(t, 5.0, got.Mean, 1e-9)
		assert.InDelta(t, math.Sqrt(32.0/7.0), got.StdDev, 1e-9)
		assert.InDelta(t, math.Sqrt(32.0/7.0)/5.0, got.CV, 1e-9)
		assert.Equal(t, models.DispersionStable, got.Kind)
	})

	t.Run("hit driven", func(t *testing.T) {
		got := ViewDispersion(uploads([]int64{1000000, 1000, 900, 1200}))
		assert.Greater(t, got.CV, StableCVThreshold)
		assert.Equal(t, models.DispersionHitDriven, got.Kind)
	})

	t.Run("never negative", func(t *testing.T) {
		for _, views := range [][]int64{{1}, {1, 1000000}, {5, 0, 5, 0}, {3, 2, 1}} {
			assert.GreaterOrEqual(t, ViewDispersion(uploads(views)).CV, 0.0)
		}
	})
}

func TestShortsRatio(t *testing.T) {
	vs := uploads([]int64{1, 1, 1, 1})
	vs[0].DurationSeconds = 15
	vs[1].DurationSeconds = 45
	vs[2].DurationSeconds = 60
	vs[3].DurationSeconds = 61

	got := ShortsRatio(vs)
	assert.Equal(t, 0.75, got.ShortsRatio)
	assert.Equal(t, 0.25, got.Under30s)
	assert.Equal(t, 0.5, got.From31To60s)
	assert.Equal(t, 0.25, got.Over60s)
	assert.Equal(t, 4, got.SampleSize)

	assert.Equal(t, models.DurationMix{}, ShortsRatio(nil))
}

func TestTopConcentration(t *testing.T) {
	vs := uploads([]int64{100000, 50000, 10000, 5000, 1000})
	assert.Equal(t, 1.0, TopConcentration(vs, 5).Value)

	got := TopConcentration(vs, 2)
	assert.InDelta(t, 150000.0/166000.0, got.Value, 1e-12)
	assert.Equal(t, 5, got.SampleSize)

	assert.Zero(t, TopConcentration(uploads([]int64{0, 0}), 5).Value)
	assert.Zero(t, TopConcentration(nil, 5).Value)
}

func TestTopConcentrationWindow(t *testing.T) {
	views := make([]int64, 60)
	for i := range views {
		views[i] = 1
	}
	views[55] = 1000000 // outside the window

	got := TopConcentration(uploads(views), 10)
	assert.Equal(t, ConcentrationWin, got.SampleSize)
	assert.InDelta(t, 10.0/50.0, got.Value, 1e-12)
}

func TestTitleLength(t *testing.T) {
	vs := []models.Video{{Title: "abcd"}, {Title: "고양이"}}
	got := TitleLength(vs)
	assert.InDelta(t, 3.5, got.Value, 1e-12)
	assert.Equal(t, 2, got.SampleSize)
}

func TestUploadPattern(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	vs := []models.Video{
		{PublishedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}, // Monday 19:00 KST
		{PublishedAt: time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC)},
		{PublishedAt: time.Date(2026, 3, 4, 20, 0, 0, 0, time.UTC)}, // Thursday 05:00 KST
	}

	got := UploadPattern(vs, seoul)
	assert.Equal(t, "Monday", got.TopWeekday)
	assert.Equal(t, 19, got.TopHour)
	assert.InDelta(t, 2.0/3.0, got.Weekdays["Monday"], 1e-12)
	assert.InDelta(t, 1.0/3.0, got.Hours[5], 1e-12)
	assert.Equal(t, 3, got.SampleSize)
}

func TestAggregate(t *testing.T) {
	vs := uploads([]int64{500, 400, 300, 200, 100, 50})
	got := Aggregate("UC1", vs, time.UTC, base)

	assert.Equal(t, "UC1", got.ChannelID)
	assert.Equal(t, 6, got.VideoSample)
	assert.InDelta(t, 1500.0/1550.0, got.Top5Share.Value, 1e-12)
	assert.True(t, got.UploadInterval.Sufficient)
	assert.InDelta(t, 1550.0/6.0, got.AvgViewsRecent.Value, 1e-9)
	assert.Equal(t, int64(1200), got.Views48h)
	assert.Equal(t, base, got.ComputedAt)
}

func TestEngagementRate(t *testing.T) {
	vs := []models.Video{
		{Views: 100, Likes: 8, Comments: 2},
		{Views: 0, Likes: 5},
		{Views: 200, Likes: 10, Comments: 10},
	}
	got := EngagementRate(vs)
	assert.Equal(t, 2, got.SampleSize)
	assert.InDelta(t, 10.0, got.Value, 1e-9)

	assert.Equal(t, models.Ratio{}, EngagementRate(nil))
}

func TestViewsSince(t *testing.T) {
	vs := []models.Video{
		{Views: 10, PublishedAt: base.Add(-time.Hour)},
		{Views: 20, PublishedAt: base.Add(-48 * time.Hour)},
		{Views: 40, PublishedAt: base.Add(-49 * time.Hour)},
		{Views: 80},
	}
	assert.Equal(t, int64(30), ViewsSince(vs, base.Add(-48*time.Hour)))
}

func TestSortRecentFirst(t *testing.T) {
	vs := []models.Video{
		{ID: "old", PublishedAt: base.Add(-48 * time.Hour)},
		{ID: "new", PublishedAt: base},
		{ID: "mid", PublishedAt: base.Add(-24 * time.Hour)},
	}
	SortRecentFirst(vs)
	assert.Equal(t, "new", vs[0].ID)
	assert.Equal(t, "mid", vs[1].ID)
	assert.Equal(t, "old", vs[2].ID)
}
