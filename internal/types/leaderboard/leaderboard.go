package leaderboard

// GlobalEntry is one row of the all-time leaderboard. Rank is assigned
// client-side from the response position; the backend sends rows pre-sorted.
type GlobalEntry struct {
	Rank              int     `json:"-"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	UserType          string  `json:"user_type"`
	TotalPoints       int     `json:"total_points"`
	TotalCarbonOffset float64 `json:"total_carbon_offset"`
	ActivitiesCount   int     `json:"activities_count"`
}

// ChallengeEntry is one row of a per-challenge leaderboard.
type ChallengeEntry struct {
	Rank            int    `json:"-"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	PointsEarned    int    `json:"points_earned"`
	ActivitiesCount int    `json:"activities_count"`
	DateJoined      string `json:"date_joined"`
}
