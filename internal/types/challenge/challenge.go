package challenge

import "time"

type Challenge struct {
	ID               int    `json:"challenge_id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	RewardPoints     int    `json:"reward_points"`
	ParticipantCount int    `json:"participant_count"`
	Status           string `json:"status"`
}

// Participation is the server-side join record for one user and one challenge.
type Participation struct {
	ChallengeID     int    `json:"challenge_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	Status          string `json:"status"`
	PointsEarned    int    `json:"points_earned"`
	ActivitiesCount int    `json:"activities_count"`
	DateJoined      string `json:"date_joined"`
}

// Engagement is the derived per-challenge view for the current user. It is
// recomputed from the catalog and the participation set, never stored.
type Engagement struct {
	Joined        bool
	DaysRemaining int
	Participation *Participation
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// EndsAt parses the challenge end date. The backend stores dates as text, so
// both bare dates and datetimes show up in the wild.
func (c *Challenge) EndsAt() (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, c.EndDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
