// Package gateway is the only path this client uses to talk to the EcoTrack
// backend. One method per backend capability; no retries, no timeouts beyond
// what the caller's context carries.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"ecoTrackClient/internal/types/activity"
	"ecoTrackClient/internal/types/challenge"
	"ecoTrackClient/internal/types/leaderboard"
	"ecoTrackClient/internal/types/stats"
	"ecoTrackClient/internal/types/user"
)

// RemoteError is a failed gateway call: the HTTP status plus the backend's
// "detail" message when it sent one.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("gateway: request failed with status %d", e.Status)
}

type Client struct {
	baseURL string
	client  *http.Client

	mu      sync.Mutex
	token   string
	limiter *rate.Limiter
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// SetToken stores the bearer token attached to every subsequent request.
// Mirrors the front-end setting an axios default Authorization header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken drops the stored bearer token.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// SetRateLimit enables a client-side throttle on outgoing requests.
// Disabled by default.
func (c *Client) SetRateLimit(rps float64, burst int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

func (c *Client) Register(ctx context.Context, req *user.RegisterRequest) (*user.AuthResponse, error) {
	var out user.AuthResponse
	if err := c.doJSON(ctx, "register", http.MethodPost, "/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error) {
	var out user.AuthResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, "/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]*activity.Category, error) {
	var out struct {
		Categories []*activity.Category `json:"categories"`
	}
	if err := c.doJSON(ctx, "list_categories", http.MethodGet, "/activity-options", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) ListChallenges(ctx context.Context) ([]*challenge.Challenge, error) {
	var out struct {
		Challenges []*challenge.Challenge `json:"challenges"`
	}
	if err := c.doJSON(ctx, "list_challenges", http.MethodGet, "/challenges", nil, &out); err != nil {
		return nil, err
	}
	return out.Challenges, nil
}

func (c *Client) ListParticipations(ctx context.Context, userID int) ([]*challenge.Participation, error) {
	var out struct {
		Challenges []*challenge.Participation `json:"challenges"`
	}
	path := fmt.Sprintf("/user-challenges/%d", userID)
	if err := c.doJSON(ctx, "list_participations", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Challenges, nil
}

// SubmitActivity uploads a new activity as multipart/form-data. The caller is
// expected to have validated the submission already; field values go out as-is.
func (c *Client) SubmitActivity(ctx context.Context, sub *activity.Submission) (string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := map[string]string{
		"category_id":   sub.CategoryID,
		"description":   sub.Description,
		"points":        sub.Points,
		"carbon_offset": sub.CarbonOffset,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return "", fmt.Errorf("gateway: encoding form field %s: %w", name, err)
		}
	}

	if sub.Image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename="%s"`, sub.Image.Filename))
		if sub.Image.ContentType != "" {
			header.Set("Content-Type", sub.Image.ContentType)
		}
		part, err := w.CreatePart(header)
		if err != nil {
			return "", fmt.Errorf("gateway: encoding image part: %w", err)
		}
		if _, err := part.Write(sub.Image.Data); err != nil {
			return "", fmt.Errorf("gateway: writing image bytes: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gateway: finalizing multipart body: %w", err)
	}

	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, "submit_activity", http.MethodPost, "/upload-activity", body, w.FormDataContentType(), &out)
	if err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) JoinChallenge(ctx context.Context, challengeID int) (string, error) {
	req := map[string]int{"challenge_id": challengeID}
	var out struct {
		Message string `json:"message"`
	}
	if err := c.doJSON(ctx, "join_challenge", http.MethodPost, "/join-challenge", req, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) GlobalLeaderboard(ctx context.Context) ([]*leaderboard.GlobalEntry, error) {
	var out struct {
		Leaderboard []*leaderboard.GlobalEntry `json:"leaderboard"`
	}
	if err := c.doJSON(ctx, "global_leaderboard", http.MethodGet, "/leaderboard", nil, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}

func (c *Client) ChallengeLeaderboard(ctx context.Context, challengeID int) ([]*leaderboard.ChallengeEntry, error) {
	var out struct {
		Leaderboard []*leaderboard.ChallengeEntry `json:"leaderboard"`
	}
	path := fmt.Sprintf("/challenge-leaderboard/%d", challengeID)
	if err := c.doJSON(ctx, "challenge_leaderboard", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}

func (c *Client) UserStats(ctx context.Context, userID int) (*stats.UserStats, error) {
	var out stats.UserStats
	path := fmt.Sprintf("/user-stats/%d", userID)
	if err := c.doJSON(ctx, "user_stats", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UserActivities(ctx context.Context, userID int) ([]*activity.Activity, error) {
	var out struct {
		Activities []*activity.Activity `json:"activities"`
	}
	path := fmt.Sprintf("/user-activities/%d", userID)
	if err := c.doJSON(ctx, "user_activities", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Activities, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gateway: encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, op, method, path, body, "application/json", out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	c.mu.Lock()
	token := c.token
	limiter := c.limiter
	c.mu.Unlock()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("gateway: rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("gateway: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("X-Request-ID", uuid.New().String())

	start := time.Now()
	resp, err := c.client.Do(req)
	observeRequest(op, resp, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("gateway: %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newRemoteError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("gateway: decoding %s response: %w", op, err)
		}
	}
	return nil
}

// newRemoteError maps a non-2xx response to a RemoteError, lifting the
// backend's {"detail": "..."} message when present.
func newRemoteError(status int, body []byte) *RemoteError {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		return &RemoteError{Status: status, Message: payload.Detail}
	}
	return &RemoteError{Status: status}
}
