package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecoTrackClient/gateway"
	"ecoTrackClient/internal/types/activity"
)

func validSubmission() *activity.Submission {
	return &activity.Submission{
		CategoryID:   "3",
		Description:  "Cycled to work",
		Points:       "25",
		CarbonOffset: "1.5",
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*activity.Submission)
		field  string
	}{
		{"missing category", func(s *activity.Submission) { s.CategoryID = "" }, "category_id"},
		{"missing description", func(s *activity.Submission) { s.Description = "  " }, "description"},
		{"missing points", func(s *activity.Submission) { s.Points = "" }, "points"},
		{"missing carbon offset", func(s *activity.Submission) { s.CarbonOffset = "" }, "carbon_offset"},
		{"non-numeric points", func(s *activity.Submission) { s.Points = "abc" }, "points"},
		{"negative points", func(s *activity.Submission) { s.Points = "-5" }, "points"},
		{"fractional points", func(s *activity.Submission) { s.Points = "2.5" }, "points"},
		{"non-numeric carbon offset", func(s *activity.Submission) { s.CarbonOffset = "lots" }, "carbon_offset"},
		{"negative carbon offset", func(s *activity.Submission) { s.CarbonOffset = "-0.1" }, "carbon_offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			svc := NewActivityService(gw)

			sub := validSubmission()
			tt.mutate(sub)

			_, err := svc.Submit(context.Background(), sub)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, gw.callCount("submit_activity"), "validation failure must not reach the gateway")
		})
	}
}

func TestSubmitSuccess(t *testing.T) {
	gw := newFakeGateway()
	svc := NewActivityService(gw)

	msg, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, "Activity uploaded successfully", msg)
	assert.Equal(t, 1, gw.callCount("submit_activity"))
	assert.False(t, svc.Submitting())
}

func TestSubmitSurfacesBackendMessageVerbatim(t *testing.T) {
	gw := newFakeGateway()
	gw.setErr("submit_activity", &gateway.RemoteError{Status: 404, Message: "Category not found"})
	svc := NewActivityService(gw)

	_, err := svc.Submit(context.Background(), validSubmission())
	require.Error(t, err)
	assert.Equal(t, "Category not found", err.Error())
}

func TestSubmitGenericMessageOnTransportError(t *testing.T) {
	gw := newFakeGateway()
	gw.setErr("submit_activity", errors.New("connection refused"))
	svc := NewActivityService(gw)

	_, err := svc.Submit(context.Background(), validSubmission())
	require.Error(t, err)
	assert.Equal(t, "failed to submit activity, please try again", err.Error())
	assert.False(t, svc.Submitting())
}

func TestSubmitRejectsConcurrentAttempt(t *testing.T) {
	gw := newFakeGateway()
	started := make(chan struct{})
	release := make(chan struct{})
	gw.onSubmit = func() {
		close(started)
		<-release
	}
	svc := NewActivityService(gw)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), validSubmission())
		done <- err
	}()

	<-started
	assert.True(t, svc.Submitting())

	_, err := svc.Submit(context.Background(), validSubmission())
	assert.ErrorIs(t, err, ErrSubmitPending)

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, 1, gw.callCount("submit_activity"), "the rejected attempt must not issue a call")

	// The guard clears once the first submission settles. Drop the hook so
	// the follow-up submit does not re-close the started channel.
	gw.onSubmit = nil
	_, err = svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, 2, gw.callCount("submit_activity"))
}

// Minimal real PNG header so content sniffing resolves image/png.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestPreviewBuildsDataURI(t *testing.T) {
	svc := NewActivityService(newFakeGateway())

	ch := svc.Preview(&activity.Attachment{Filename: "proof.png", Data: pngBytes})

	select {
	case uri, ok := <-ch:
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), "got %q", uri)
	case <-time.After(time.Second):
		t.Fatal("preview never arrived")
	}
}

func TestPreviewKeepsDeclaredContentType(t *testing.T) {
	svc := NewActivityService(newFakeGateway())

	ch := svc.Preview(&activity.Attachment{
		Filename:    "proof.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("not really a jpeg"),
	})

	uri, ok := <-ch
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))
}

func TestPreviewFailureIsSilent(t *testing.T) {
	svc := NewActivityService(newFakeGateway())

	for _, att := range []*activity.Attachment{nil, {Filename: "empty.png"}} {
		ch := svc.Preview(att)
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel should close without a value")
		case <-time.After(time.Second):
			t.Fatal("preview channel never closed")
		}
	}
}

func TestCategories(t *testing.T) {
	gw := newFakeGateway()
	gw.categories = []*activity.Category{
		{ID: 1, Name: "Recycling", Description: "Recycling and waste reduction"},
		{ID: 2, Name: "Transportation", Description: "Low-carbon transport"},
	}
	svc := NewActivityService(gw)

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Recycling", cats[0].Name)
}
