// Package worker hosts background jobs that run alongside the HTTP
// server.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tochtwerk/gelukstocht/internal/repository"
)

// StartRetentionSweep schedules the periodic purge of expired kids
// submission payloads. The returned scheduler should be shut down when
// the process stops.
func StartRetentionSweep(submissions *repository.SubmissionRepo, interval time.Duration) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = time.Hour
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			purged, err := submissions.PurgeExpired(ctx)
			if err != nil {
				log.Printf("retention: sweep failed: %v", err)
				return
			}
			if purged > 0 {
				log.Printf("retention: purged %d expired submission payloads", purged)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
