package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"eduquest/config"
	"eduquest/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	calls atomic.Int32
	err   error
}

func (c *countingJob) RefreshAll(context.Context) (int, error) {
	c.calls.Add(1)
	return 3, c.err
}

func (c *countingJob) SweepChallenges(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

// yearly crontabs so nothing fires on its own during the test
func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:            true,
		DailyRefreshCron:   "0 0 1 1 *",
		ChallengeSweepCron: "30 0 1 1 *",
		Timezone:           "UTC",
	}
}

func TestScheduler_RunNow(t *testing.T) {
	refresh, sweep := &countingJob{}, &countingJob{}
	s, err := NewScheduler(testConfig(), refresh, sweep, logger.Nop())
	require.NoError(t, err)
	s.Start()
	defer func() { assert.NoError(t, s.Shutdown()) }()

	require.NoError(t, s.RunRefreshNow())
	require.NoError(t, s.RunSweepNow())

	assert.Eventually(t, func() bool { return refresh.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return sweep.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_JobErrorDoesNotStopScheduler(t *testing.T) {
	refresh := &countingJob{err: errors.New("db down")}
	s, err := NewScheduler(testConfig(), refresh, &countingJob{}, nil)
	require.NoError(t, err)
	s.Start()
	defer func() { assert.NoError(t, s.Shutdown()) }()

	require.NoError(t, s.RunRefreshNow())
	assert.Eventually(t, func() bool { return refresh.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.RunRefreshNow())
	assert.Eventually(t, func() bool { return refresh.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_InvalidCron(t *testing.T) {
	cfg := testConfig()
	cfg.ChallengeSweepCron = "every tuesday"
	_, err := NewScheduler(cfg, &countingJob{}, &countingJob{}, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "challenge-sweep")
}
