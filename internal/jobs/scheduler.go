package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs the recurring jobs of the bridge. Currently that is the
// single daily reconciliation sweep.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

// NewScheduler creates a new scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// ScheduleReconciliation schedules the daily reconciliation sweep at the
// given local time of day ("HH:MM")
func (s *Scheduler) ScheduleReconciliation(job *ReconciliationJob, at string) error {
	_, err := s.scheduler.Every(1).Day().At(at).Do(func() {
		if err := job.Run(context.Background()); err != nil {
			log.Printf("Reconciliation sweep failed: %v", err)
		}
	})
	return err
}

// Start starts the scheduler in the background
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
