package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecoTrackClient/gateway"
	"ecoTrackClient/internal/types/activity"
	"ecoTrackClient/middleware"
	"ecoTrackClient/services"
	"ecoTrackClient/session"
)

var (
	gw                 *gateway.Client
	sess               *session.Session
	activityService    *services.ActivityService
	statsService       *services.StatsService
	engagementService  *services.EngagementService
	leaderboardService *services.LeaderboardService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	apiURL := os.Getenv("ECOTRACK_API_URL")
	if apiURL == "" {
		log.Fatal("ECOTRACK_API_URL environment variable is not set")
	}

	gw = gateway.NewClient(apiURL)
	if rps := os.Getenv("ECOTRACK_RATE_LIMIT"); rps != "" {
		limit, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			log.Fatal("Invalid ECOTRACK_RATE_LIMIT:", err)
		}
		gw.SetRateLimit(limit, int(limit)+1)
		log.Printf("Gateway rate limit enabled: %.1f req/s", limit)
	}

	sess = session.New(gw)
	activityService = services.NewActivityService(gw)
	statsService = services.NewStatsService(gw, sess)
	engagementService = services.NewEngagementService(gw, sess)
	leaderboardService = services.NewLeaderboardService(gw, sess)

	gateway.InitMetrics()
	services.InitMetrics()
}

func main() {
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go serveMetrics(addr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	email := os.Getenv("ECOTRACK_EMAIL")
	password := os.Getenv("ECOTRACK_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("ECOTRACK_EMAIL and ECOTRACK_PASSWORD must be set")
	}

	u, err := sess.Login(ctx, email, password)
	if err != nil {
		log.Fatal("Login failed: ", err)
	}
	log.Printf("Logged in as %s (%s)", u.Name, u.Email)

	cmd := "dashboard"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "dashboard":
		runDashboard(ctx)
	case "challenges":
		runChallenges(ctx)
	case "join":
		runJoin(ctx)
	case "log-activity":
		runLogActivity(ctx)
	case "leaderboard":
		runLeaderboard(ctx)
	default:
		log.Fatalf("Unknown command %q (want dashboard, challenges, join, log-activity or leaderboard)", cmd)
	}
}

func runDashboard(ctx context.Context) {
	snap, err := statsService.Refresh(ctx)
	if err != nil {
		log.Fatal("Failed to load dashboard: ", err)
	}

	fmt.Printf("Activities: %d  Points: %d  Carbon offset: %.1f kg  Challenges joined: %d  Challenge points: %d\n",
		snap.Stats.TotalActivities,
		snap.Stats.TotalPoints,
		snap.Stats.TotalCarbonOffset,
		snap.Stats.ChallengesJoined,
		snap.Stats.ChallengePoints,
	)
	for i, a := range snap.Activities {
		if i == 5 {
			break
		}
		fmt.Printf("  %s  %-20s %4d pts  %.1f kg  %s\n",
			a.DateTime, a.CategoryName, a.Points, a.CarbonOffset, a.Description)
	}
}

func runChallenges(ctx context.Context) {
	if err := engagementService.Refresh(ctx); err != nil {
		log.Fatal("Failed to load challenges: ", err)
	}

	for _, c := range engagementService.Challenges() {
		e := engagementService.EngagementFor(c)
		state := "available"
		switch {
		case e.Joined:
			state = "joined"
		case e.DaysRemaining == 0:
			state = "ended"
		}
		fmt.Printf("[%d] %-30s %s, %d days remaining, %d reward pts, %d participants\n",
			c.ID, c.Name, state, e.DaysRemaining, c.RewardPoints, c.ParticipantCount)
		if e.Participation != nil {
			fmt.Printf("      joined %s, %d pts earned\n", e.Participation.DateJoined, e.Participation.PointsEarned)
		}
	}
}

func runJoin(ctx context.Context) {
	if len(os.Args) < 3 {
		log.Fatal("Usage: join <challenge-id>")
	}
	id, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatal("Invalid challenge id: ", os.Args[2])
	}

	if err := engagementService.Refresh(ctx); err != nil {
		log.Fatal("Failed to load challenges: ", err)
	}
	if err := engagementService.Join(ctx, id); err != nil {
		log.Fatal("Join failed: ", err)
	}
	fmt.Printf("Joined challenge %d\n", id)
}

func runLogActivity(ctx context.Context) {
	if len(os.Args) < 6 {
		log.Fatal("Usage: log-activity <category-id> <description> <points> <carbon-offset> [image-path]")
	}

	sub := &activity.Submission{
		CategoryID:   os.Args[2],
		Description:  os.Args[3],
		Points:       os.Args[4],
		CarbonOffset: os.Args[5],
	}
	if len(os.Args) > 6 {
		data, err := os.ReadFile(os.Args[6])
		if err != nil {
			log.Fatal("Failed to read image: ", err)
		}
		sub.Image = &activity.Attachment{Filename: os.Args[6], Data: data}
	}

	msg, err := activityService.Submit(ctx, sub)
	if err != nil {
		log.Fatal("Submit failed: ", err)
	}
	statsService.Invalidate()
	fmt.Println(msg)
}

func runLeaderboard(ctx context.Context) {
	if len(os.Args) > 2 {
		id, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatal("Invalid challenge id: ", os.Args[2])
		}
		entries, err := leaderboardService.ForChallenge(ctx, id)
		if err != nil {
			log.Fatal("Failed to load challenge leaderboard: ", err)
		}
		for _, e := range entries {
			fmt.Printf("#%-3d %-25s %5d pts  %d activities  joined %s\n",
				e.Rank, e.Name, e.PointsEarned, e.ActivitiesCount, e.DateJoined)
		}
		return
	}

	entries, err := leaderboardService.Global(ctx)
	if err != nil {
		log.Fatal("Failed to load leaderboard: ", err)
	}
	for _, e := range entries {
		fmt.Printf("#%-3d %-25s %-12s %5d pts  %.1f kg  %d activities\n",
			e.Rank, e.Name, e.UserType, e.TotalPoints, e.TotalCarbonOffset, e.ActivitiesCount)
	}
}

func serveMetrics(addr string) {
	r := mux.NewRouter()
	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "healthy", "service": "ecotrack-client"}`))
	}).Methods("GET")

	log.Printf("Serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, gorillaHandlers.LoggingHandler(os.Stdout, r)); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}
