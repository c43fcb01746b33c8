package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/brensch/snakegym/analysis"
	"github.com/brensch/snakegym/config"
)

func main() {
	dirs := flag.String("data-dirs", config.EnvOr("DATA_DIRS", "data/rollouts"), "Comma-separated rollout output directories")
	runID := flag.String("run", "", "If set, list the episodes of this run instead of run totals")
	flag.Parse()

	ctx := context.Background()
	db, err := analysis.Open(ctx, strings.Split(*dirs, ",")...)
	if err != nil {
		log.Fatalf("Failed to open rollouts: %v", err)
	}
	defer db.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if *runID != "" {
		eps, err := db.Episodes(ctx, *runID)
		if err != nil {
			log.Fatalf("Failed to query episodes: %v", err)
		}
		fmt.Fprintln(w, "EPISODE\tSEED\tSTEPS\tREWARD\tBEST\tDIED")
		for _, e := range eps {
			fmt.Fprintf(w, "%d\t%d\t%d\t%.2f\t%d\t%t\n", e.Episode, e.Seed, e.Steps, e.TotalReward, e.BestScore, e.Terminated)
		}
		return
	}

	runs, err := db.Runs(ctx)
	if err != nil {
		log.Fatalf("Failed to query runs: %v", err)
	}
	fmt.Fprintln(w, "RUN\tPOLICY\tEPISODES\tSTEPS\tMEAN STEPS\tMEAN REWARD\tBEST\tDEATHS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f\t%.3f\t%d\t%d\n", r.RunID, r.Policy, r.Episodes, r.Steps, r.MeanSteps, r.MeanReward, r.BestScore, r.Terminations)
	}
}
