package services

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"ecoTrackClient/internal/types/leaderboard"
)

var cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "ecotrack_leaderboard_cache_hits_total",
	Help: "Per-challenge leaderboard requests served from the local cache",
})

// InitMetrics registers the service collectors. Call this once from main.
func InitMetrics() {
	prometheus.MustRegister(cacheHits)
}

// LeaderboardService assigns display ranks and caches per-challenge
// leaderboards. Ranking is position only: entries stay exactly in the order
// the backend returned them, ties included. The cache is scoped to one
// identity epoch and drops itself when the identity changes.
type LeaderboardService struct {
	gw Gateway
	id Identity

	mu          sync.Mutex
	byChallenge map[int][]*leaderboard.ChallengeEntry
	pending     map[int]chan struct{}
	epoch       uint64 // identity epoch the cache belongs to
}

func NewLeaderboardService(gw Gateway, id Identity) *LeaderboardService {
	return &LeaderboardService{
		gw:          gw,
		id:          id,
		byChallenge: make(map[int][]*leaderboard.ChallengeEntry),
		pending:     make(map[int]chan struct{}),
	}
}

// dropStaleLocked resets the cache when the identity epoch moved on.
func (s *LeaderboardService) dropStaleLocked(epoch uint64) {
	if s.epoch != epoch {
		s.byChallenge = make(map[int][]*leaderboard.ChallengeEntry)
		s.epoch = epoch
	}
}

// Global fetches the all-time leaderboard and assigns 1-based ranks.
func (s *LeaderboardService) Global(ctx context.Context) ([]*leaderboard.GlobalEntry, error) {
	entries, err := s.gw.GlobalLeaderboard(ctx)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		e.Rank = i + 1
	}
	return entries, nil
}

// ForChallenge returns the leaderboard for one challenge, fetching it on
// first selection and serving the memoized copy afterwards. Concurrent
// selections of the same id share a single fetch; a failed fetch caches
// nothing, so the next selection tries again.
func (s *LeaderboardService) ForChallenge(ctx context.Context, challengeID int) ([]*leaderboard.ChallengeEntry, error) {
	for {
		epoch := s.id.Epoch()
		s.mu.Lock()
		s.dropStaleLocked(epoch)
		if entries, ok := s.byChallenge[challengeID]; ok {
			s.mu.Unlock()
			cacheHits.Inc()
			return entries, nil
		}
		if wait, ok := s.pending[challengeID]; ok {
			s.mu.Unlock()
			select {
			case <-wait:
				continue // re-check the cache
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		s.pending[challengeID] = done
		s.mu.Unlock()

		entries, err := s.gw.ChallengeLeaderboard(ctx, challengeID)
		if err == nil {
			for i, e := range entries {
				e.Rank = i + 1
			}
		}

		s.mu.Lock()
		delete(s.pending, challengeID)
		// Cache only under the identity that requested it; the caller still
		// gets the fresh entries either way.
		if err == nil && s.id.Epoch() == epoch {
			s.byChallenge[challengeID] = entries
		}
		s.mu.Unlock()
		close(done)

		return entries, err
	}
}

// Loading reports whether the leaderboard for this challenge is being
// fetched. Scoped to the one challenge; cached boards stay available.
func (s *LeaderboardService) Loading(challengeID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[challengeID]
	return ok
}

// Cached reports whether a challenge's leaderboard is already memoized for
// the current identity.
func (s *LeaderboardService) Cached(challengeID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != s.id.Epoch() {
		return false
	}
	_, ok := s.byChallenge[challengeID]
	return ok
}

// Invalidate drops every memoized leaderboard regardless of epoch.
func (s *LeaderboardService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChallenge = make(map[int][]*leaderboard.ChallengeEntry)
}
