package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

// Scheduler wires the cron driver with the ingestion coordinator.
type Scheduler struct {
	driver      ports.Scheduler
	coordinator *Coordinator
	logger      *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring ingestion.
func NewScheduler(driver ports.Scheduler, coordinator *Coordinator, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, coordinator: coordinator, logger: logger}
}

// Start registers IngestAll with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.coordinator == nil {
		return nil
	}

	job := func(trigger time.Time) {
		results, err := s.coordinator.IngestAll(ctx)
		if s.logger == nil {
			return
		}
		if err != nil {
			s.logger.Error("scheduled ingestion failed", "trigger", trigger, "error", err)
			return
		}
		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		s.logger.Info("scheduled ingestion done", "trigger", trigger, "sources", len(results), "failed", failed)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
