package jobs

import (
	"fmt"
	"sort"
	"time"

	"cycle-backend/internal/config"
	"cycle-backend/internal/logger"
	"cycle-backend/internal/repository"
	"cycle-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	rentals  repository.RentalRepository
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Notifications service.NotificationService
	Payments      service.PaymentService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(rentals repository.RentalRepository, services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		rentals:  rentals,
		services: services,
		config:   cfg,
		now:      time.Now,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	jobFunc()
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
}

// registry maps the -run-once names to job functions
func (jr *JobRunner) registry() map[string]func() {
	return map[string]func(){
		"dispatch-notifications": jr.DispatchNotifications,
		"remind-long-rides":      jr.RemindLongRides,
		"reconcile-earnings":     jr.ReconcileEarnings,
		"expire-stale-payments":  jr.ExpireStalePayments,
		"all":                    jr.RunAll,
	}
}

// JobNames lists the names accepted by Run
func (jr *JobRunner) JobNames() []string {
	names := make([]string, 0, len(jr.registry()))
	for name := range jr.registry() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a single job by name
func (jr *JobRunner) Run(jobName string) error {
	job, ok := jr.registry()[jobName]
	if !ok {
		return fmt.Errorf("unknown job %q", jobName)
	}
	job()
	return nil
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpireStalePayments()
	jr.ReconcileEarnings()
	jr.RemindLongRides()
	jr.DispatchNotifications()
}
