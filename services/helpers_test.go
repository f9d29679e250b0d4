package services

import (
	"context"
	"sync"

	"ecoTrackClient/internal/types/activity"
	"ecoTrackClient/internal/types/challenge"
	"ecoTrackClient/internal/types/leaderboard"
	"ecoTrackClient/internal/types/stats"
)

// fakeGateway records every call per operation and serves scripted data.
// The on* hooks run at the start of a call so tests can block mid-flight.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int

	categories       []*activity.Category
	challenges       []*challenge.Challenge
	participations   []*challenge.Participation
	globalEntries    []*leaderboard.GlobalEntry
	challengeEntries map[int][]*leaderboard.ChallengeEntry
	userStats        *stats.UserStats
	activities       []*activity.Activity

	errs      map[string]error
	submitMsg string
	joinMsg   string

	onSubmit               func()
	onJoin                 func(challengeID int)
	onListParticipations   func()
	onUserStats            func()
	onChallengeLeaderboard func(challengeID int)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		calls:            make(map[string]int),
		challengeEntries: make(map[int][]*leaderboard.ChallengeEntry),
		errs:             make(map[string]error),
		submitMsg:        "Activity uploaded successfully",
		joinMsg:          "Successfully joined challenge",
	}
}

func (f *fakeGateway) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.errs[op]
}

func (f *fakeGateway) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) setErr(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
	} else {
		f.errs[op] = err
	}
}

func (f *fakeGateway) setParticipations(parts []*challenge.Participation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.participations = parts
}

func (f *fakeGateway) ListCategories(ctx context.Context) ([]*activity.Category, error) {
	if err := f.record("list_categories"); err != nil {
		return nil, err
	}
	return f.categories, nil
}

func (f *fakeGateway) ListChallenges(ctx context.Context) ([]*challenge.Challenge, error) {
	if err := f.record("list_challenges"); err != nil {
		return nil, err
	}
	return f.challenges, nil
}

func (f *fakeGateway) ListParticipations(ctx context.Context, userID int) ([]*challenge.Participation, error) {
	if f.onListParticipations != nil {
		f.onListParticipations()
	}
	if err := f.record("list_participations"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participations, nil
}

func (f *fakeGateway) SubmitActivity(ctx context.Context, sub *activity.Submission) (string, error) {
	if f.onSubmit != nil {
		f.onSubmit()
	}
	if err := f.record("submit_activity"); err != nil {
		return "", err
	}
	return f.submitMsg, nil
}

func (f *fakeGateway) JoinChallenge(ctx context.Context, challengeID int) (string, error) {
	if f.onJoin != nil {
		f.onJoin(challengeID)
	}
	if err := f.record("join_challenge"); err != nil {
		return "", err
	}
	return f.joinMsg, nil
}

func (f *fakeGateway) GlobalLeaderboard(ctx context.Context) ([]*leaderboard.GlobalEntry, error) {
	if err := f.record("global_leaderboard"); err != nil {
		return nil, err
	}
	return f.globalEntries, nil
}

func (f *fakeGateway) ChallengeLeaderboard(ctx context.Context, challengeID int) ([]*leaderboard.ChallengeEntry, error) {
	if f.onChallengeLeaderboard != nil {
		f.onChallengeLeaderboard(challengeID)
	}
	if err := f.record("challenge_leaderboard"); err != nil {
		return nil, err
	}
	return f.challengeEntries[challengeID], nil
}

func (f *fakeGateway) UserStats(ctx context.Context, userID int) (*stats.UserStats, error) {
	if f.onUserStats != nil {
		f.onUserStats()
	}
	if err := f.record("user_stats"); err != nil {
		return nil, err
	}
	return f.userStats, nil
}

func (f *fakeGateway) UserActivities(ctx context.Context, userID int) ([]*activity.Activity, error) {
	if err := f.record("user_activities"); err != nil {
		return nil, err
	}
	return f.activities, nil
}

// fakeIdentity stands in for the session.
type fakeIdentity struct {
	mu       sync.Mutex
	userID   int
	loggedIn bool
	epoch    uint64
}

func loggedInIdentity(userID int) *fakeIdentity {
	return &fakeIdentity{userID: userID, loggedIn: true, epoch: 1}
}

func (f *fakeIdentity) UserID() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID, f.loggedIn
}

func (f *fakeIdentity) Epoch() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.epoch
}

func (f *fakeIdentity) switchUser(userID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userID = userID
	f.epoch++
}
