// Package niche groups keyword search results into sub-topics and ranks
// them by how attractive they are to enter.
package niche

import (
	"fmt"
	"math"
	"sort"

	"github.com/yt-insights/nicheexplorer/internal/analytics"
	"github.com/yt-insights/nicheexplorer/internal/models"
)

const (
	CompetitionWeight   = 0.7
	ConcentrationWeight = 0.5
	// ConcentrationTopK is how many of a cluster's highest-viewed videos
	// count toward its concentration.
	ConcentrationTopK = 10
	// Representatives is the number of sample videos and channels per cluster.
	Representatives = 3
)

// Score groups videos by label and returns one scored result per non-empty
// cluster, best first. Ties on score fall back to performance, then to the
// lower cluster index, so the order is fully deterministic.
func Score(videos []models.Video, labels []int) ([]models.ClusterResult, error) {
	if len(videos) != len(labels) {
		return nil, fmt.Errorf("got %d labels for %d videos", len(labels), len(videos))
	}

	groups := make(map[int][]models.Video)
	for i, l := range labels {
		if l < 0 {
			return nil, fmt.Errorf("negative cluster label %d at index %d", l, i)
		}
		groups[l] = append(groups[l], videos[i])
	}

	results := make([]models.ClusterResult, 0, len(groups))
	for idx, members := range groups {
		results = append(results, scoreCluster(idx, members))
	}
	Rank(results)
	return results, nil
}

// Rank sorts results in place by score, performance, then index.
func Rank(results []models.ClusterResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Performance != b.Performance {
			return a.Performance > b.Performance
		}
		return a.Index < b.Index
	})
}

func scoreCluster(idx int, members []models.Video) models.ClusterResult {
	views := make([]float64, len(members))
	ids := make([]string, len(members))
	var total int64
	shorts := 0
	channels := make(map[string]bool)
	for i, v := range members {
		views[i] = float64(v.Views)
		ids[i] = v.ID
		total += v.Views
		channels[v.ChannelID] = true
		if v.IsShort() {
			shorts++
		}
	}

	median := analytics.Median(views)
	performance := math.Log(median + 1)
	competition := math.Log(float64(len(channels)) + 1)
	concentration := analytics.TopShare(members, ConcentrationTopK)

	return models.ClusterResult{
		Index:          idx,
		VideoIDs:       ids,
		ItemCount:      len(members),
		MedianViews:    median,
		AvgViews:       float64(total) / float64(len(members)),
		TotalViews:     total,
		UniqueChannels: len(channels),
		ShortsRatio:    float64(shorts) / float64(len(members)),
		Performance:    performance,
		Competition:    competition,
		Concentration:  concentration,
		Score:          performance - CompetitionWeight*competition - ConcentrationWeight*concentration,
		SampleVideos:   topVideos(members, Representatives),
		SampleChannels: topChannels(members, Representatives),
	}
}

// topVideos returns the n most viewed videos; equal views keep input order.
func topVideos(members []models.Video, n int) []models.SampleVideo {
	sorted := append([]models.Video(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Views > sorted[j].Views })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]models.SampleVideo, len(sorted))
	for i, v := range sorted {
		out[i] = models.SampleVideo{VideoID: v.ID, Title: v.Title, ChannelID: v.ChannelID, Views: v.Views}
	}
	return out
}

// topChannels returns the n channels with the most videos in the cluster,
// breaking ties by their best single video and then by channel ID.
func topChannels(members []models.Video, n int) []models.SampleChannel {
	byID := make(map[string]*models.SampleChannel)
	for _, v := range members {
		c, ok := byID[v.ChannelID]
		if !ok {
			c = &models.SampleChannel{ChannelID: v.ChannelID, ChannelTitle: v.ChannelTitle}
			byID[v.ChannelID] = c
		}
		c.VideoCount++
		if v.Views > c.TopViews {
			c.TopViews = v.Views
		}
	}

	out := make([]models.SampleChannel, 0, len(byID))
	for _, c := range byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.VideoCount != b.VideoCount {
			return a.VideoCount > b.VideoCount
		}
		if a.TopViews != b.TopViews {
			return a.TopViews > b.TopViews
		}
		return a.ChannelID < b.ChannelID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
