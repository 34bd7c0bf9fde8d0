// Package scheduler runs the background audit-log retention sweep.
// Session expiry itself is Redis TTL and needs no cron.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/slotwise/dialog-orchestrator/internal/auditlog"
	"github.com/slotwise/dialog-orchestrator/pkg/logger"
)

// Scheduler handles background scheduling tasks
type Scheduler struct {
	cron      *cron.Cron
	auditLog  *auditlog.Repository
	retention time.Duration
	sweepSpec string
	logger    *logger.Logger
}

// New creates a new scheduler. sweepSpec is a cron spec like "@every 5m";
// retention is how long audit rows are kept.
func New(auditLog *auditlog.Repository, sweepSpec string, retention time.Duration, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		auditLog:  auditLog,
		retention: retention,
		sweepSpec: sweepSpec,
		logger:    logger,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting background scheduler", "sweep", s.sweepSpec)

	_, err := s.cron.AddFunc(s.sweepSpec, func() {
		cutoff := time.Now().Add(-s.retention)
		pruned, err := s.auditLog.PruneOlderThan(cutoff)
		if err != nil {
			s.logger.Error("Audit log sweep failed", "error", err)
			return
		}
		if pruned > 0 {
			s.logger.Info("Pruned expired audit records", "count", pruned)
		}
	})
	if err != nil {
		s.logger.Error("Failed to register audit sweep", "spec", s.sweepSpec, "error", err)
		return
	}

	s.cron.Start()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	s.cron.Stop()
}
