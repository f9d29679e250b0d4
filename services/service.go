// Package services implements the engagement layer: activity submission,
// dashboard stats, challenge engagement, and leaderboards. Every service does
// its I/O through the Gateway interface and gates per-user data on the
// session identity.
package services

import (
	"context"
	"errors"

	"ecoTrackClient/internal/types/activity"
	"ecoTrackClient/internal/types/challenge"
	"ecoTrackClient/internal/types/leaderboard"
	"ecoTrackClient/internal/types/stats"
)

// Gateway is the backend boundary as seen by the services. *gateway.Client
// implements it; tests substitute recording fakes.
type Gateway interface {
	ListCategories(ctx context.Context) ([]*activity.Category, error)
	ListChallenges(ctx context.Context) ([]*challenge.Challenge, error)
	ListParticipations(ctx context.Context, userID int) ([]*challenge.Participation, error)
	SubmitActivity(ctx context.Context, sub *activity.Submission) (string, error)
	JoinChallenge(ctx context.Context, challengeID int) (string, error)
	GlobalLeaderboard(ctx context.Context) ([]*leaderboard.GlobalEntry, error)
	ChallengeLeaderboard(ctx context.Context, challengeID int) ([]*leaderboard.ChallengeEntry, error)
	UserStats(ctx context.Context, userID int) (*stats.UserStats, error)
	UserActivities(ctx context.Context, userID int) ([]*activity.Activity, error)
}

// Identity is the slice of the session the services depend on.
type Identity interface {
	UserID() (int, bool)
	Epoch() uint64
}

var (
	// ErrNotAuthenticated: no user in the session, so no per-user fetch is permitted.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrStaleResponse: a response landed after the identity that issued it
	// changed. The result is discarded, state is untouched.
	ErrStaleResponse = errors.New("stale response discarded")

	// ErrSubmitPending rejects a second submission while one is in flight.
	ErrSubmitPending = errors.New("a submission is already in progress")

	// ErrJoinPending rejects a second join for the same challenge while the
	// first is in flight. Joins for other challenges are unaffected.
	ErrJoinPending = errors.New("join already in progress for this challenge")

	ErrAlreadyJoined  = errors.New("already joined this challenge")
	ErrChallengeEnded = errors.New("challenge has ended")
)

// ValidationError is a client-detected input problem. It fails a submission
// before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
