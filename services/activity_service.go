package services

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"ecoTrackClient/gateway"
	"ecoTrackClient/internal/types/activity"
)

type ActivityService struct {
	gw Gateway

	mu         sync.Mutex
	submitting bool
}

func NewActivityService(gw Gateway) *ActivityService {
	return &ActivityService{gw: gw}
}

// Categories returns the reference data for the submission form.
func (s *ActivityService) Categories(ctx context.Context) ([]*activity.Category, error) {
	return s.gw.ListCategories(ctx)
}

// Submitting reports whether a submission is currently in flight.
func (s *ActivityService) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Submit validates the candidate record and issues exactly one upload call.
// Validation failures never reach the network; a second Submit while one is
// pending is rejected, not queued.
func (s *ActivityService) Submit(ctx context.Context, sub *activity.Submission) (string, error) {
	if err := validateSubmission(sub); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return "", ErrSubmitPending
	}
	s.submitting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	msg, err := s.gw.SubmitActivity(ctx, sub)
	if err != nil {
		var rerr *gateway.RemoteError
		if errors.As(err, &rerr) && rerr.Message != "" {
			return "", rerr
		}
		log.Printf("activity: submit failed: %v", err)
		return "", errors.New("failed to submit activity, please try again")
	}
	return msg, nil
}

// Preview builds a data-URI preview of an attachment off the submission path.
// The channel yields at most one value and is closed without one on failure;
// a missing preview never fails a submission.
func (s *ActivityService) Preview(att *activity.Attachment) <-chan string {
	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		if att == nil || len(att.Data) == 0 {
			log.Printf("activity: no image data to preview")
			return
		}
		contentType := att.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(att.Data)
		}
		ch <- "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(att.Data)
	}()
	return ch
}

func validateSubmission(sub *activity.Submission) error {
	if strings.TrimSpace(sub.CategoryID) == "" {
		return &ValidationError{Field: "category_id", Message: "please select a category"}
	}
	if strings.TrimSpace(sub.Description) == "" {
		return &ValidationError{Field: "description", Message: "please describe your activity"}
	}
	if strings.TrimSpace(sub.Points) == "" {
		return &ValidationError{Field: "points", Message: "please enter the points earned"}
	}
	if strings.TrimSpace(sub.CarbonOffset) == "" {
		return &ValidationError{Field: "carbon_offset", Message: "please enter the carbon offset"}
	}
	if points, err := strconv.Atoi(strings.TrimSpace(sub.Points)); err != nil || points < 0 {
		return &ValidationError{Field: "points", Message: "points must be a non-negative whole number"}
	}
	if offset, err := strconv.ParseFloat(strings.TrimSpace(sub.CarbonOffset), 64); err != nil || offset < 0 {
		return &ValidationError{Field: "carbon_offset", Message: "carbon offset must be a non-negative number"}
	}
	return nil
}
