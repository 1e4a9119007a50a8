package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/yt-insights/nicheexplorer/internal/logging"
)

// EngagementType represents the type of engagement data cached per channel
type EngagementType string

const (
	EngagementTypeMetrics EngagementType = "metrics"
)

// ChannelEngagement represents a record in the channel_engagement table
type ChannelEngagement struct {
	ChannelID      string          `json:"channel_id"`
	EngagementType EngagementType  `json:"engagement_type"`
	UpdateDate     time.Time       `json:"update_date"`
	JSONResponse   json.RawMessage `json:"json_response"`
}

// SameDay reports whether the record was written on the same UTC day as now
func (e *ChannelEngagement) SameDay(now time.Time) bool {
	return e.UpdateDate.UTC().Format("2006-01-02") == now.UTC().Format("2006-01-02")
}

// StoreEngagement inserts or replaces the record for a channel and type
func (d *Database) StoreEngagement(engagement *ChannelEngagement) error {
	logging.Debug().
		Str("channel", engagement.ChannelID).
		Str("type", string(engagement.EngagementType)).
		Msg("storing engagement")

	updated := engagement.UpdateDate
	if updated.IsZero() {
		updated = time.Now()
	}

	sql := `INSERT INTO channel_engagement (channel_id, engagement_type, update_date, json_response)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(channel_id, engagement_type) DO UPDATE SET
				update_date = excluded.update_date,
				json_response = excluded.json_response`
	err := d.executeSQL(sql, engagement.ChannelID, string(engagement.EngagementType),
		updated.Unix(), string(engagement.JSONResponse))
	if err != nil {
		return fmt.Errorf("failed to store engagement: %w", err)
	}
	return nil
}

// GetLatestEngagement retrieves the cached record for a channel and type
func (d *Database) GetLatestEngagement(channelID string, engagementType EngagementType) (*ChannelEngagement, error) {
	sql := `SELECT update_date, json_response FROM channel_engagement
			WHERE channel_id = ? AND engagement_type = ?`
	result, err := d.db.SelectArray(sql, []interface{}{channelID, string(engagementType)})
	if err != nil {
		return nil, fmt.Errorf("failed to get latest engagement: %w", err)
	}
	if result.GetNumberOfRows() == 0 {
		return nil, ErrNotFound
	}

	updated, err := result.GetStringValue(0, 0)
	if err != nil {
		return nil, err
	}
	unix, err := strconv.ParseInt(updated, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse update_date: %w", err)
	}
	body, err := result.GetStringValue(0, 1)
	if err != nil {
		return nil, err
	}

	return &ChannelEngagement{
		ChannelID:      channelID,
		EngagementType: engagementType,
		UpdateDate:     time.Unix(unix, 0),
		JSONResponse:   json.RawMessage(body),
	}, nil
}
