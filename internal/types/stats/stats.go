package stats

import (
	"time"

	"ecoTrackClient/internal/types/activity"
)

type UserStats struct {
	TotalActivities   int     `json:"total_activities"`
	TotalPoints       int     `json:"total_points"`
	TotalCarbonOffset float64 `json:"total_carbon_offset"`
	ChallengesJoined  int     `json:"challenges_joined"`
	ChallengePoints   int     `json:"challenge_points"`
}

// DashboardSnapshot pairs the stats summary with the activity history. Both
// halves come from the same refresh; a snapshot is replaced whole or not at all.
type DashboardSnapshot struct {
	Stats      *UserStats
	Activities []*activity.Activity
	FetchedAt  time.Time
}
