package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls   atomic.Int32
	removed int64
	err     error
}

func (f *fakeSweeper) SweepExpired(context.Context) (int64, error) {
	f.calls.Add(1)
	return f.removed, f.err
}

type fakeRecorder struct {
	total int64
}

func (f *fakeRecorder) SessionsSwept(n int64) { f.total += n }

func TestSweepRecordsRemovedSessions(t *testing.T) {
	sweeper := &fakeSweeper{removed: 3}
	recorder := &fakeRecorder{}
	s := NewScheduler(sweeper, "0 */15 * * * *", recorder, zerolog.Nop())

	s.sweepSessions()
	s.sweepSessions()

	assert.Equal(t, int32(2), sweeper.calls.Load())
	assert.Equal(t, int64(6), recorder.total)
}

func TestSweepErrorIsNotRecorded(t *testing.T) {
	sweeper := &fakeSweeper{removed: 5, err: errors.New("db down")}
	recorder := &fakeRecorder{}
	s := NewScheduler(sweeper, "0 */15 * * * *", recorder, zerolog.Nop())

	s.sweepSessions()

	assert.Equal(t, int64(0), recorder.total)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, "not a cron spec", nil, zerolog.Nop())
	assert.Error(t, s.Start())
}

func TestStartWithoutSpecIsNoop(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, "", nil, zerolog.Nop())
	require.NoError(t, s.Start())
	<-s.Stop().Done()
}

func TestScheduledSweepRuns(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewScheduler(sweeper, "@every 1s", nil, zerolog.Nop())
	require.NoError(t, s.Start())
	defer func() { <-s.Stop().Done() }()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}
