// Package sched runs the periodic registry sync and reconciliation sweep.
package sched

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"opsboard/api/internal/app"
	"opsboard/api/internal/reconcile"
)

// Runner is the slice of the application the scheduler drives.
type Runner interface {
	SyncRegistry(ctx context.Context) (app.SyncSummary, error)
	RunReconciliation(ctx context.Context) (reconcile.Result, error)
}

// Start parses the 5-field cron expression and launches the sweep loop.
// An empty expression disables scheduling; an invalid one is logged and
// disables it too, never failing startup. The loop stops when ctx is done.
func Start(ctx context.Context, schedule string, runner Runner) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		log.Println("scheduler disabled (no schedule configured)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("invalid sync schedule %q: %v; scheduler disabled", schedule, err)
		return
	}

	log.Printf("reconciliation sweep scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("next sweep at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			select {
			case <-ctx.Done():
				log.Println("scheduler stopped")
				return
			case <-time.After(wait):
			}

			runSweep(ctx, runner)
		}
	}()
}

func runSweep(ctx context.Context, runner Runner) {
	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	summary, err := runner.SyncRegistry(sweepCtx)
	if err != nil {
		log.Printf("sweep: registry sync failed: %v", err)
	} else {
		log.Printf("sweep: registry synced (%d tasks)", summary.TaskCount)
	}

	result, err := runner.RunReconciliation(sweepCtx)
	if err != nil {
		log.Printf("sweep: reconciliation failed: %v", err)
		return
	}
	log.Printf("sweep: reconciliation complete (%d discrepancies)", len(result.Discrepancies))
}
