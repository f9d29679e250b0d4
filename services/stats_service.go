package services

import (
	"context"
	"log"
	"sync"
	"time"

	"ecoTrackClient/internal/types/activity"
	"ecoTrackClient/internal/types/stats"
)

type StatsService struct {
	gw Gateway
	id Identity

	mu       sync.Mutex
	snapshot *stats.DashboardSnapshot
	epoch    uint64 // identity epoch the snapshot belongs to
}

func NewStatsService(gw Gateway, id Identity) *StatsService {
	return &StatsService{gw: gw, id: id}
}

// Refresh fetches the stats summary and the activity history concurrently and
// swaps the snapshot in whole. A failure on either fetch leaves the previous
// snapshot untouched; a result landing after an identity change is discarded.
func (s *StatsService) Refresh(ctx context.Context) (*stats.DashboardSnapshot, error) {
	userID, ok := s.id.UserID()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	epoch := s.id.Epoch()

	var (
		wg         sync.WaitGroup
		summary    *stats.UserStats
		activities []*activity.Activity
		statsErr   error
		actErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		summary, statsErr = s.gw.UserStats(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		activities, actErr = s.gw.UserActivities(ctx, userID)
	}()
	wg.Wait()

	if statsErr != nil {
		return nil, statsErr
	}
	if actErr != nil {
		return nil, actErr
	}

	if s.id.Epoch() != epoch {
		log.Printf("stats: discarding snapshot fetched for a previous identity")
		return nil, ErrStaleResponse
	}

	snap := &stats.DashboardSnapshot{
		Stats:      summary,
		Activities: activities,
		FetchedAt:  time.Now(),
	}

	s.mu.Lock()
	s.snapshot = snap
	s.epoch = epoch
	s.mu.Unlock()

	return snap, nil
}

// Current returns the last snapshot, or false when there is none or it was
// taken under a previous identity.
func (s *StatsService) Current() (*stats.DashboardSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil || s.epoch != s.id.Epoch() {
		return nil, false
	}
	return s.snapshot, true
}

// Invalidate drops the snapshot. Called after a successful activity
// submission so the dashboard refetches.
func (s *StatsService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
}
