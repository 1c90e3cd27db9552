// threatguard-dash is a terminal view of the dashboard session: it polls the
// API the same way the web frontend does and prints the summary plus the most
// recent events on every refresh.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/threatguard/threatguard/internal/client"
	"github.com/threatguard/threatguard/internal/dashboard"
)

const maxRows = 15

func main() {
	_ = godotenv.Load()

	logger := zap.NewNop() // keep the terminal clean; notifications print below
	apiURL := envOrDefault("THREATGUARD_API_URL", "http://localhost:3001")

	session := dashboard.NewSession(dashboard.Config{
		API:       client.New(apiURL),
		Notifier:  printNotifier{},
		Logger:    logger,
		OnRefresh: render,
	})

	session.Start()
	defer session.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	fmt.Println("\nbye")
}

func render(snap dashboard.Snapshot) {
	s := snap.Stats
	fmt.Printf("\n=== ThreatGuard %s ===\n", snap.LastRefresh.Format("15:04:05"))
	fmt.Printf("total %d | critical %d | high %d | medium %d | low %d | blocked %d | processed %d\n",
		s.Total, s.Critical, s.High, s.Medium, s.Low, s.Blocked, s.Processed)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tSEVERITY\tIP\tENDPOINT\tSTATUS")
	rows := snap.Events
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for i := range rows {
		e := &rows[i]
		status := "detected"
		if e.Blocked {
			status = "blocked"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.TimeOnly),
			e.EventType, e.Severity, e.IPAddress, e.Endpoint, status)
	}
	w.Flush()
}

type printNotifier struct{}

func (printNotifier) Success(msg string) { fmt.Println("✓ " + msg) }
func (printNotifier) Error(msg string)   { fmt.Println("✗ " + msg) }

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
