package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"ecoTrackClient/gateway"
	"ecoTrackClient/internal/types/challenge"
)

// EngagementService merges the challenge catalog with the current user's
// participation records. The two collections are fetched and owned
// independently; the per-challenge engagement view is derived on every call,
// never stored, so neither collection can drift against the other.
type EngagementService struct {
	gw  Gateway
	id  Identity
	now func() time.Time

	mu             sync.Mutex
	challenges     []*challenge.Challenge
	participations []*challenge.Participation
	byChallenge    map[int]*challenge.Participation
	joining        map[int]bool
	epoch          uint64 // identity epoch the collections were fetched under
}

func NewEngagementService(gw Gateway, id Identity) *EngagementService {
	return &EngagementService{
		gw:          gw,
		id:          id,
		now:         time.Now,
		byChallenge: make(map[int]*challenge.Participation),
		joining:     make(map[int]bool),
	}
}

// Refresh fetches the catalog and the user's participations. Both collections
// are replaced together on success; any failure leaves both untouched.
func (s *EngagementService) Refresh(ctx context.Context) error {
	userID, ok := s.id.UserID()
	if !ok {
		return ErrNotAuthenticated
	}
	epoch := s.id.Epoch()

	var (
		wg       sync.WaitGroup
		catalog  []*challenge.Challenge
		parts    []*challenge.Participation
		catErr   error
		partsErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		catalog, catErr = s.gw.ListChallenges(ctx)
	}()
	go func() {
		defer wg.Done()
		parts, partsErr = s.gw.ListParticipations(ctx, userID)
	}()
	wg.Wait()

	if catErr != nil {
		return catErr
	}
	if partsErr != nil {
		return partsErr
	}

	if s.id.Epoch() != epoch {
		log.Printf("engagement: discarding refresh fetched for a previous identity")
		return ErrStaleResponse
	}

	s.mu.Lock()
	s.challenges = catalog
	s.applyParticipations(parts)
	s.epoch = epoch
	s.mu.Unlock()
	return nil
}

func (s *EngagementService) applyParticipations(parts []*challenge.Participation) {
	s.participations = parts
	s.byChallenge = make(map[int]*challenge.Participation, len(parts))
	for _, p := range parts {
		s.byChallenge[p.ChallengeID] = p
	}
}

// Collections fetched under a previous identity read as empty until the next
// Refresh; showing one user another user's participations is never acceptable.
func (s *EngagementService) Challenges() []*challenge.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != s.id.Epoch() {
		return nil
	}
	out := make([]*challenge.Challenge, len(s.challenges))
	copy(out, s.challenges)
	return out
}

func (s *EngagementService) Participations() []*challenge.Participation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != s.id.Epoch() {
		return nil
	}
	out := make([]*challenge.Participation, len(s.participations))
	copy(out, s.participations)
	return out
}

// EngagementFor derives the current user's view of one challenge. Joined is
// true iff a participation record exists for it in the current identity's set;
// nothing else counts.
func (s *EngagementService) EngagementFor(c *challenge.Challenge) challenge.Engagement {
	s.mu.Lock()
	var p *challenge.Participation
	if s.epoch == s.id.Epoch() {
		p = s.byChallenge[c.ID]
	}
	s.mu.Unlock()

	return challenge.Engagement{
		Joined:        p != nil,
		DaysRemaining: s.DaysRemaining(c),
		Participation: p,
	}
}

// DaysRemaining is the whole days left until the challenge end date, rounded
// up and floored at zero. Computed against the wall clock on every call, so a
// running challenge ends purely by elapsed time, without a refetch. An end
// date that does not parse reports zero.
func (s *EngagementService) DaysRemaining(c *challenge.Challenge) int {
	ends, ok := c.EndsAt()
	if !ok {
		return 0
	}
	days := int(math.Ceil(ends.Sub(s.now()).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// Joining reports whether a join for this challenge is in flight.
func (s *EngagementService) Joining(challengeID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joining[challengeID]
}

// Join executes the join transition for one challenge. Already-joined and
// ended challenges are rejected locally with no network call, as is a second
// join for the same id while one is pending. On success the participation set
// is refetched in full before Join returns; on failure nothing changes.
func (s *EngagementService) Join(ctx context.Context, challengeID int) error {
	userID, ok := s.id.UserID()
	if !ok {
		return ErrNotAuthenticated
	}
	epoch := s.id.Epoch()

	s.mu.Lock()
	// Local guards only apply when the collections belong to this identity;
	// a stale set neither blocks nor permits anything, the backend decides.
	if s.epoch == epoch {
		if s.byChallenge[challengeID] != nil {
			s.mu.Unlock()
			return ErrAlreadyJoined
		}
		if c := s.findChallenge(challengeID); c != nil && s.DaysRemaining(c) == 0 {
			s.mu.Unlock()
			return ErrChallengeEnded
		}
	}
	if s.joining[challengeID] {
		s.mu.Unlock()
		return ErrJoinPending
	}
	s.joining[challengeID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.joining, challengeID)
		s.mu.Unlock()
	}()

	if _, err := s.gw.JoinChallenge(ctx, challengeID); err != nil {
		var rerr *gateway.RemoteError
		if errors.As(err, &rerr) && rerr.Message != "" {
			return rerr
		}
		log.Printf("engagement: join challenge %d failed: %v", challengeID, err)
		return errors.New("failed to join challenge")
	}

	// The server confirmed the join; refetch rather than append locally so
	// the view reflects authoritative state.
	parts, err := s.gw.ListParticipations(ctx, userID)
	if err != nil {
		return fmt.Errorf("challenge joined, but refreshing participations failed: %w", err)
	}

	if s.id.Epoch() != epoch {
		log.Printf("engagement: discarding join refetch fetched for a previous identity")
		return ErrStaleResponse
	}

	s.mu.Lock()
	s.applyParticipations(parts)
	s.epoch = epoch
	s.mu.Unlock()
	return nil
}

func (s *EngagementService) findChallenge(id int) *challenge.Challenge {
	for _, c := range s.challenges {
		if c.ID == id {
			return c
		}
	}
	return nil
}
