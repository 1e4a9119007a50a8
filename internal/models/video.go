package models

import (
	"regexp"
	"strconv"
	"time"
)

// ShortsMaxSeconds is the longest duration still counted as a Short
const ShortsMaxSeconds = 60

// Video represents a YouTube video as collected for one run
type Video struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channelId"`
	ChannelTitle    string    `json:"channelTitle,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	PublishedAt     time.Time `json:"publishedAt"`
	Views           int64     `json:"views"`
	Likes           int64     `json:"likes"`
	Comments        int64     `json:"comments"`
	DurationSeconds int       `json:"durationSeconds"`
	Thumbnail       string    `json:"thumbnailUrl,omitempty"`
}

// IsShort reports whether the video is short-form content
func (v Video) IsShort() bool {
	return v.DurationSeconds <= ShortsMaxSeconds
}

// EngagementRate returns (likes + comments) / views as a percentage
func (v Video) EngagementRate() float64 {
	if v.Views == 0 {
		return 0
	}
	return float64(v.Likes+v.Comments) / float64(v.Views) * 100
}

var isoDurationRE = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO 8601 duration such as PT1M30S into seconds.
// Unparseable input yields 0.
func ParseISODuration(s string) int {
	m := isoDurationRE.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	atoi := func(part string) int {
		if part == "" {
			return 0
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		return n
	}
	return atoi(m[1])*86400 + atoi(m[2])*3600 + atoi(m[3])*60 + atoi(m[4])
}

// VideoSortOption represents the available sorting options for search
type VideoSortOption string

const (
	SortByRelevance VideoSortOption = "relevance"
	SortByDate      VideoSortOption = "date"
	SortByViews     VideoSortOption = "viewCount"
	SortByRating    VideoSortOption = "rating"
)

// Valid reports whether the option is accepted by the search endpoint
func (o VideoSortOption) Valid() bool {
	switch o {
	case SortByRelevance, SortByDate, SortByViews, SortByRating:
		return true
	}
	return false
}
