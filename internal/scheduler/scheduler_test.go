package scheduler

import (
	"testing"

	"cycle-backend/internal/config"
	"cycle-backend/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *config.Config {
	return &config.Config{
		Jobs: config.JobsConfig{LongRideHours: 6, PaymentExpiryHours: 24, DispatchBatchSize: 100},
		Scheduler: config.SchedulerConfig{
			DispatchNotifications: "0 * * * * *",
			RemindLongRides:       "0 */15 * * * *",
			ReconcileEarnings:     "0 0 * * * *",
			ExpireStalePayments:   "0 0 3 * * *",
		},
	}
}

func TestNewScheduler_RegistersAllJobs(t *testing.T) {
	s, err := NewScheduler(jobs.NewJobRunner(nil, &jobs.Services{}, validConfig()))
	require.NoError(t, err)

	assert.Len(t, s.cron.Entries(), 4)
	assert.True(t, s.IsRunning())
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	cfg := validConfig()
	cfg.Scheduler.RemindLongRides = "every fifteen minutes"

	_, err := NewScheduler(jobs.NewJobRunner(nil, &jobs.Services{}, cfg))

	assert.ErrorContains(t, err, "RemindLongRides")
}

func TestStartStop(t *testing.T) {
	s, err := NewScheduler(jobs.NewJobRunner(nil, &jobs.Services{}, validConfig()))
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
