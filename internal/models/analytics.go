package models

import "time"

// DispersionKind classifies a channel by how evenly its views are spread
type DispersionKind string

const (
	DispersionUnknown   DispersionKind = "unknown"
	DispersionStable    DispersionKind = "stable"
	DispersionHitDriven DispersionKind = "hit-driven"
)

// IntervalStats describes the gap between consecutive uploads, in days
type IntervalStats struct {
	MeanDays   float64 `json:"meanDays"`
	MedianDays float64 `json:"medianDays"`
	SampleSize int     `json:"sampleSize"`
	Sufficient bool    `json:"sufficient"`
}

// Dispersion describes the spread of view counts
type Dispersion struct {
	CV         float64        `json:"cv"`
	Mean       float64        `json:"mean"`
	StdDev     float64        `json:"stdDev"`
	Kind       DispersionKind `json:"kind"`
	SampleSize int            `json:"sampleSize"`
}

// Ratio is a fraction together with the number of items it was taken over
type Ratio struct {
	Value      float64 `json:"value"`
	SampleSize int     `json:"sampleSize"`
}

// DurationMix is the share of videos per duration bucket
type DurationMix struct {
	ShortsRatio float64 `json:"shortsRatio"`
	Under30s    float64 `json:"under30s"`
	From31To60s float64 `json:"from31To60s"`
	Over60s     float64 `json:"over60s"`
	SampleSize  int     `json:"sampleSize"`
}

// UploadPattern is the weekday and hour distribution of uploads
type UploadPattern struct {
	Location   string             `json:"location"`
	Weekdays   map[string]float64 `json:"weekdays"`
	Hours      map[int]float64    `json:"hours"`
	TopWeekday string             `json:"topWeekday,omitempty"`
	TopHour    int                `json:"topHour"`
	SampleSize int                `json:"sampleSize"`
}

// ChannelMetrics is the derived view of a channel's recent uploads.
// It is rebuilt from the video sample every time and never updated in place.
type ChannelMetrics struct {
	ChannelID      string        `json:"channelId"`
	ChannelTitle   string        `json:"channelTitle,omitempty"`
	VideoSample    int           `json:"videoSample"`
	AvgViewsRecent Ratio         `json:"avgViewsRecent"`
	UploadInterval IntervalStats `json:"uploadInterval"`
	ViewDispersion Dispersion    `json:"viewDispersion"`
	Shorts         DurationMix   `json:"shorts"`
	Top5Share      Ratio         `json:"top5Concentration"`
	AvgTitleLength Ratio         `json:"avgTitleLength"`
	EngagementRate Ratio         `json:"engagementRate"`
	Views48h       int64         `json:"views48h"`
	UploadPattern  UploadPattern `json:"uploadPattern"`
	ComputedAt     time.Time     `json:"computedAt"`
}
