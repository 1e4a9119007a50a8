package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"PT1M30S", 90},
		{"PT45S", 45},
		{"PT10M", 600},
		{"PT1H2M3S", 3723},
		{"P1DT1S", 86401},
		{"P0D", 0},
		{"", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseISODuration(tt.in))
		})
	}
}

func TestVideoIsShort(t *testing.T) {
	assert.True(t, Video{DurationSeconds: 60}.IsShort())
	assert.True(t, Video{DurationSeconds: 12}.IsShort())
	assert.False(t, Video{DurationSeconds: 61}.IsShort())
}

func TestEngagementRate(t *testing.T) {
	assert.Zero(t, Video{}.EngagementRate())
	assert.InDelta(t, 15.0, Video{Views: 200, Likes: 25, Comments: 5}.EngagementRate(), 1e-9)
}

func TestStopReasonIncomplete(t *testing.T) {
	assert.False(t, StopTargetReached.Incomplete())
	assert.False(t, StopExhaustedPages.Incomplete())
	assert.False(t, StopPageLimit.Incomplete())
	assert.True(t, StopKeysExhausted.Incomplete())
	assert.True(t, StopCanceled.Incomplete())
	assert.True(t, StopFetchFailed.Incomplete())
}
