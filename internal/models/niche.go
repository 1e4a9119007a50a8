package models

import "time"

// StopReason records why a collection run stopped paging
type StopReason string

const (
	StopTargetReached  StopReason = "target_reached"
	StopExhaustedPages StopReason = "exhausted_pages"
	StopPageLimit      StopReason = "page_limit"
	StopKeysExhausted  StopReason = "keys_exhausted"
	StopCanceled       StopReason = "canceled"
	StopFetchFailed    StopReason = "fetch_failed"
)

// Incomplete reports whether the run ended before it could finish normally
func (r StopReason) Incomplete() bool {
	switch r {
	case StopKeysExhausted, StopCanceled, StopFetchFailed:
		return true
	}
	return false
}

// NicheParams are the inputs that, together with the keyword, identify a run
type NicheParams struct {
	MaxItems     int `json:"max_items"`
	ClusterCount int `json:"cluster_count"`
}

// SampleVideo is a representative video shown for a cluster
type SampleVideo struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title"`
	ChannelID string `json:"channelId"`
	Views     int64  `json:"views"`
}

// SampleChannel is a representative channel shown for a cluster
type SampleChannel struct {
	ChannelID    string `json:"channelId"`
	ChannelTitle string `json:"channelTitle,omitempty"`
	VideoCount   int    `json:"videoCount"`
	TopViews     int64  `json:"topViews"`
}

// ClusterResult is one scored group of videos sharing a cluster label
type ClusterResult struct {
	Index          int             `json:"clusterIndex"`
	Label          string          `json:"label"`
	VideoIDs       []string        `json:"videoIds"`
	ItemCount      int             `json:"videoCount"`
	MedianViews    float64         `json:"medianViews"`
	AvgViews       float64         `json:"avgViews"`
	TotalViews     int64           `json:"totalViews"`
	UniqueChannels int             `json:"uniqueChannels"`
	ShortsRatio    float64         `json:"shortsRatio"`
	Performance    float64         `json:"performance"`
	Competition    float64         `json:"competition"`
	Concentration  float64         `json:"concentration"`
	Score          float64         `json:"score"`
	SampleVideos   []SampleVideo   `json:"sampleVideos"`
	SampleChannels []SampleChannel `json:"sampleChannels"`
}

// NicheRun is the ranked outcome of exploring one keyword
type NicheRun struct {
	ID         string          `json:"id"`
	Keyword    string          `json:"keyword"`
	Params     NicheParams     `json:"params"`
	FetchedAt  time.Time       `json:"fetchedAt"`
	Collected  int             `json:"collected"`
	Pages      int             `json:"pages"`
	StopReason StopReason      `json:"stopReason"`
	Incomplete bool            `json:"incomplete"`
	Cached     bool            `json:"cached"`
	Clusters   []ClusterResult `json:"clusters"`
}
