package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/salesops_backend/commission"
	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"github.com/google/uuid"
)

func main() {
	period := flag.String("period", "", "Period to recompute (YYYY-MM). Required unless -from/-to are given.")
	from := flag.String("from", "", "Optional: first period of a range (YYYY-MM).")
	to := flag.String("to", "", "Optional: last period of a range (YYYY-MM), inclusive.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	periods, err := resolvePeriods(strings.TrimSpace(*period), strings.TrimSpace(*from), strings.TrimSpace(*to))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	failed := 0
	for _, p := range periods {
		jobID := uuid.NewString()
		fmt.Printf("Recomputing commissions period=%s job=%s\n", p, jobID)
		if err := commission.RunPeriod(ctx, p, jobID); err != nil {
			fmt.Fprintf(os.Stderr, "period %s failed: %v\n", p, err)
			failed++
			continue
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d periods failed\n", failed, len(periods))
		os.Exit(1)
	}
	fmt.Println("Recompute complete")
}

func resolvePeriods(period, from, to string) ([]string, error) {
	if period != "" {
		if _, _, ok := commission.PeriodBounds(period); !ok {
			return nil, fmt.Errorf("invalid -period %q: expected YYYY-MM", period)
		}
		return []string{period}, nil
	}
	if from == "" || to == "" {
		return nil, fmt.Errorf("either -period or both -from and -to are required")
	}
	start, err := time.Parse("2006-01", from)
	if err != nil {
		return nil, fmt.Errorf("invalid -from %q: %w", from, err)
	}
	end, err := time.Parse("2006-01", to)
	if err != nil {
		return nil, fmt.Errorf("invalid -to %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("-to must not be before -from")
	}
	var periods []string
	for t := start; !t.After(end); t = t.AddDate(0, 1, 0) {
		periods = append(periods, t.Format("2006-01"))
	}
	return periods, nil
}
