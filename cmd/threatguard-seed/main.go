// threatguard-seed posts randomized security events through the ingest
// endpoint. It stands in for the detection pipeline when exercising the
// dashboard locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/threatguard/threatguard/internal/client"
	"github.com/threatguard/threatguard/internal/event"
)

var (
	eventTypes = []string{"SQL_INJECTION", "XSS_ATTEMPT", "BRUTE_FORCE", "PATH_TRAVERSAL", "RATE_LIMIT_ABUSE", "CSRF_ATTEMPT"}
	patterns   = []string{"UNION SELECT", "script-tag", "credential-stuffing", "dot-dot-slash", "burst", "token-mismatch"}
	endpoints  = []string{"/api/login", "/api/users", "/search", "/admin", "/api/orders", "/uploads"}
	methods    = []string{"GET", "POST", "PUT", "DELETE"}
	countries  = []string{"US", "DE", "CN", "BR", "RU", "IN", ""}
)

func main() {
	_ = godotenv.Load()

	count := flag.Int("count", 25, "number of events to create")
	apiURL := flag.String("url", envOrDefault("THREATGUARD_API_URL", "http://localhost:3001"), "API base URL")
	flag.Parse()

	api := client.New(*apiURL)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	created := 0
	for i := 0; i < *count; i++ {
		e := randomEvent()
		if _, err := api.CreateEvent(ctx, e); err != nil {
			fmt.Fprintf(os.Stderr, "create event: %v\n", err)
			os.Exit(1)
		}
		created++
	}
	fmt.Printf("seeded %d events at %s\n", created, *apiURL)
}

func randomEvent() *event.SecurityEvent {
	i := rand.Intn(len(eventTypes))
	sev := event.SeverityLow
	switch r := rand.Float64(); {
	case r > 0.95:
		sev = event.SeverityCritical
	case r > 0.80:
		sev = event.SeverityHigh
	case r > 0.55:
		sev = event.SeverityMedium
	}

	// Spread timestamps across the last 7 days so every time-range filter
	// has something to show.
	age := time.Duration(rand.Int63n(int64(7 * 24 * time.Hour)))
	ts := time.Now().Add(-age)

	blocked := rand.Float64() < 0.7
	return &event.SecurityEvent{
		EventType:      eventTypes[i],
		AttackPattern:  patterns[i],
		IPAddress:      fmt.Sprintf("%d.%d.%d.%d", rand.Intn(223)+1, rand.Intn(256), rand.Intn(256), rand.Intn(256)),
		UserAgent:      "Mozilla/5.0 (compatible; scanner)",
		Endpoint:       endpoints[rand.Intn(len(endpoints))],
		Method:         methods[rand.Intn(len(methods))],
		Payload:        "synthetic payload",
		Severity:       sev,
		Blocked:        blocked,
		Country:        countries[rand.Intn(len(countries))],
		ResponseStatus: 403,
		ResponseTime:   float64(rand.Intn(250)),
		Timestamp:      ts,
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
