// Package analytics computes descriptive statistics over a channel's uploads.
//
// Every function takes videos ordered most recent first, looks at a fixed
// window from the front of that slice and reports how many items it used.
// Short inputs are fine; empty windows produce zero values.
package analytics

import (
	"sort"
	"time"
	"unicode/utf8"

	"gonum.org/v1/gonum/stat"

	"github.com/yt-insights/nicheexplorer/internal/models"
)

// Window sizes applied to the most recent uploads.
const (
	RecentViewsWindow = 10
	IntervalWindow    = 20
	DispersionWindow  = 50
	ShortsWindow      = 50
	ConcentrationWin  = 50
	TitleWindow       = 50
	PatternWindow     = 50
	EngagementWindow  = 10
)

// FreshUploadAge is the age limit for uploads counted by ViewsSince in Aggregate.
const FreshUploadAge = 48 * time.Hour

// StableCVThreshold separates stable channels from hit-driven ones.
const StableCVThreshold = 0.5

func window(videos []models.Video, n int) []models.Video {
	if len(videos) > n {
		return videos[:n]
	}
	return videos
}

func viewCounts(videos []models.Video) []float64 {
	out := make([]float64, len(videos))
	for i, v := range videos {
		out[i] = float64(v.Views)
	}
	return out
}

// Median returns the middle value of xs, averaging the two middle values
// for even-sized input. It returns 0 for empty input and does not modify xs.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// AverageViews is the mean view count of the most recent uploads.
func AverageViews(videos []models.Video) models.Ratio {
	w := window(videos, RecentViewsWindow)
	if len(w) == 0 {
		return models.Ratio{}
	}
	return models.Ratio{Value: stat.Mean(viewCounts(w), nil), SampleSize: len(w)}
}

// UploadIntervals measures the gaps between consecutive uploads in days.
// Pairs with a missing timestamp are skipped.
func UploadIntervals(videos []models.Video) models.IntervalStats {
	w := window(videos, IntervalWindow)
	if len(w) < 2 {
		return models.IntervalStats{}
	}

	intervals := make([]float64, 0, len(w)-1)
	for i := 0; i < len(w)-1; i++ {
		newer, older := w[i].PublishedAt, w[i+1].PublishedAt
		if newer.IsZero() || older.IsZero() {
			continue
		}
		intervals = append(intervals, newer.Sub(older).Hours()/24)
	}
	if len(intervals) == 0 {
		return models.IntervalStats{}
	}

	return models.IntervalStats{
		MeanDays:   stat.Mean(intervals, nil),
		MedianDays: Median(intervals),
		SampleSize: len(intervals),
		Sufficient: true,
	}
}

// ViewDispersion reports the coefficient of variation of view counts,
// using the sample standard deviation. CV is 0 when the mean is 0 or
// fewer than two videos are available.
func ViewDispersion(videos []models.Video) models.Dispersion {
	w := window(videos, DispersionWindow)
	d := models.Dispersion{Kind: models.DispersionUnknown, SampleSize: len(w)}
	if len(w) == 0 {
		return d
	}

	views := viewCounts(w)
	d.Mean = stat.Mean(views, nil)
	if len(w) < 2 || d.Mean == 0 {
		return d
	}

	d.StdDev = stat.StdDev(views, nil)
	d.CV = d.StdDev / d.Mean
	if d.CV < StableCVThreshold {
		d.Kind = models.DispersionStable
	} else {
		d.Kind = models.DispersionHitDriven
	}
	return d
}

// ShortsRatio returns the share of Shorts and the duration mix.
func ShortsRatio(videos []models.Video) models.DurationMix {
	w := window(videos, ShortsWindow)
	if len(w) == 0 {
		return models.DurationMix{}
	}

	var under30, upTo60, over60 int
	for _, v := range w {
		switch {
		case v.DurationSeconds <= 30:
			under30++
		case v.DurationSeconds <= models.ShortsMaxSeconds:
			upTo60++
		default:
			over60++
		}
	}

	total := float64(len(w))
	return models.DurationMix{
		ShortsRatio: float64(under30+upTo60) / total,
		Under30s:    float64(under30) / total,
		From31To60s: float64(upTo60) / total,
		Over60s:     float64(over60) / total,
		SampleSize:  len(w),
	}
}

// TopShare returns the fraction of total views held by the k most viewed
// items of videos. Ties keep input order. It is 0 when the total is 0.
func TopShare(videos []models.Video, k int) float64 {
	if len(videos) == 0 || k <= 0 {
		return 0
	}

	views := make([]int64, len(videos))
	var total int64
	for i, v := range videos {
		views[i] = v.Views
		total += v.Views
	}
	if total == 0 {
		return 0
	}

	sort.SliceStable(views, func(i, j int) bool { return views[i] > views[j] })
	if k > len(views) {
		k = len(views)
	}
	var top int64
	for _, v := range views[:k] {
		top += v
	}
	return float64(top) / float64(total)
}

// TopConcentration is TopShare over the most recent uploads.
func TopConcentration(videos []models.Video, k int) models.Ratio {
	w := window(videos, ConcentrationWin)
	return models.Ratio{Value: TopShare(w, k), SampleSize: len(w)}
}

// TitleLength is the mean title length in characters.
func TitleLength(videos []models.Video) models.Ratio {
	w := window(videos, TitleWindow)
	if len(w) == 0 {
		return models.Ratio{}
	}
	var total int
	for _, v := range w {
		total += utf8.RuneCountInString(v.Title)
	}
	return models.Ratio{Value: float64(total) / float64(len(w)), SampleSize: len(w)}
}

// UploadPattern returns the weekday and hour distribution of uploads in loc.
func UploadPattern(videos []models.Video, loc *time.Location) models.UploadPattern {
	if loc == nil {
		loc = time.UTC
	}
	w := window(videos, PatternWindow)
	p := models.UploadPattern{
		Location:   loc.String(),
		Weekdays:   map[string]float64{},
		Hours:      map[int]float64{},
		SampleSize: len(w),
	}
	if len(w) == 0 {
		return p
	}

	dayCounts := make(map[time.Weekday]int)
	hourCounts := make(map[int]int)
	for _, v := range w {
		if v.PublishedAt.IsZero() {
			continue
		}
		local := v.PublishedAt.In(loc)
		dayCounts[local.Weekday()]++
		hourCounts[local.Hour()]++
	}

	total := float64(len(w))
	best := -1
	for day := time.Sunday; day <= time.Saturday; day++ {
		n := dayCounts[day]
		if n == 0 {
			continue
		}
		p.Weekdays[day.String()] = float64(n) / total
		if n > best {
			best = n
			p.TopWeekday = day.String()
		}
	}
	best = -1
	for hour := 0; hour < 24; hour++ {
		n := hourCounts[hour]
		if n == 0 {
			continue
		}
		p.Hours[hour] = float64(n) / total
		if n > best {
			best = n
			p.TopHour = hour
		}
	}
	return p
}

// EngagementRate is the mean per-video engagement percentage of the most
// recent uploads. Videos without views are left out of the sample.
func EngagementRate(videos []models.Video) models.Ratio {
	var rates []float64
	for _, v := range window(videos, EngagementWindow) {
		if v.Views > 0 {
			rates = append(rates, v.EngagementRate())
		}
	}
	if len(rates) == 0 {
		return models.Ratio{}
	}
	return models.Ratio{Value: stat.Mean(rates, nil), SampleSize: len(rates)}
}

// ViewsSince sums the views of videos published at or after cutoff.
func ViewsSince(videos []models.Video, cutoff time.Time) int64 {
	var total int64
	for _, v := range videos {
		if !v.PublishedAt.IsZero() && !v.PublishedAt.Before(cutoff) {
			total += v.Views
		}
	}
	return total
}

// Aggregate computes every channel metric from a most-recent-first sample.
func Aggregate(channelID string, videos []models.Video, loc *time.Location, now time.Time) models.ChannelMetrics {
	return models.ChannelMetrics{
		ChannelID:      channelID,
		VideoSample:    len(videos),
		AvgViewsRecent: AverageViews(videos),
		UploadInterval: UploadIntervals(videos),
		ViewDispersion: ViewDispersion(videos),
		Shorts:         ShortsRatio(videos),
		Top5Share:      TopConcentration(videos, 5),
		AvgTitleLength: TitleLength(videos),
		EngagementRate: EngagementRate(videos),
		Views48h:       ViewsSince(videos, now.Add(-FreshUploadAge)),
		UploadPattern:  UploadPattern(videos, loc),
		ComputedAt:     now,
	}
}

// SortRecentFirst orders videos by publish time, newest first.
func SortRecentFirst(videos []models.Video) {
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].PublishedAt.After(videos[j].PublishedAt)
	})
}
