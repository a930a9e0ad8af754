package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kvblast/internal/blaster"
	"kvblast/internal/stats"
)

// Start runs one headless blast and prints the summary. Worker aborts
// are logged but never change the exit path; the summary always prints.
func Start(cfg blaster.Config, logger *zap.Logger) {
	runID := uuid.New().String()
	logger.Info("starting run",
		zap.String("run_id", runID),
		zap.String("url", cfg.BaseURL),
		zap.Int("workers", cfg.Workers),
		zap.Int("iterations", cfg.Iterations),
	)

	printHeader(cfg)

	pool := stats.NewPool()
	b := blaster.New(cfg, pool, os.Stdout, logger)

	summary, err := b.Run(context.Background())
	if err != nil {
		logger.Warn("run finished with aborted workers", zap.Error(err))
	}

	printSummary(summary)
}

func printHeader(cfg blaster.Config) {
	fmt.Printf("\n🚀 STARTING KVBLAST\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Target URL : %s\n", cfg.BaseURL)
	fmt.Printf("Workers    : %d\n", cfg.Workers)
	fmt.Printf("Iterations : %d per worker (x3 requests each)\n", cfg.Iterations)
	if cfg.Timeout > 0 {
		fmt.Printf("Timeout    : %s\n", cfg.Timeout)
	} else {
		fmt.Printf("Timeout    : none\n")
	}
	fmt.Printf("======================================================================\n\n")
}

func printSummary(s stats.Summary) {
	fmt.Printf("\n======================================================================\n")
	fmt.Printf("Completed %d requests in %.3f seconds\n", s.TotalRequests, s.Elapsed.Seconds())
	fmt.Printf("Average request time: %.6f seconds\n", s.AvgLatency.Seconds())
	fmt.Printf("======================================================================\n")
}
