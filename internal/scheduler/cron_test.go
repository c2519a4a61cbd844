package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crew-radar/internal/model"
	"crew-radar/internal/runlock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestSchedulerRunOnceRecordsAndNotifies(t *testing.T) {
	t.Parallel()

	r := &stubRunner{runs: []model.ScrapeRun{
		{Source: "yotspot", Success: true, NewJobs: 2, Inserted: []model.Job{{ID: "1"}, {ID: "2"}}},
		{Source: "daywork123", Success: false, Errors: []string{"connectivity failure"}},
	}}
	s := &stubStore{}
	n := &stubNotifier{}

	sched := NewScheduler(r, s, n, Config{Interval: "1h", Timeout: "5s", MaxPages: 3}, quiet())

	runs, err := sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.EqualValues(t, 1, r.calls.Load())
	assert.Equal(t, 3, r.lastMaxPages)
	assert.EqualValues(t, 2, s.calls.Load())
	assert.EqualValues(t, 1, n.calls.Load())
	assert.Len(t, n.last, 2)
}

func TestSchedulerSkipsNotifyWithoutNewJobs(t *testing.T) {
	t.Parallel()

	r := &stubRunner{runs: []model.ScrapeRun{{Source: "yotspot", Success: true, UpdatedJobs: 4}}}
	n := &stubNotifier{}
	sched := NewScheduler(r, &stubStore{}, n, Config{}, quiet())

	_, err := sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n.calls.Load())
}

func TestSchedulerRunSource(t *testing.T) {
	t.Parallel()

	r := &stubRunner{single: model.ScrapeRun{Source: "meridian_go", Success: true, Inserted: []model.Job{{ID: "m"}}}}
	s := &stubStore{}
	n := &stubNotifier{}
	sched := NewScheduler(r, s, n, Config{MaxPages: 4}, quiet())

	run, err := sched.RunSource(context.Background(), "meridian_go", 0)
	require.NoError(t, err)
	assert.Equal(t, model.Source("meridian_go"), run.Source)
	assert.Equal(t, 4, r.lastMaxPages)
	assert.EqualValues(t, 1, s.calls.Load())
	assert.EqualValues(t, 1, n.calls.Load())

	r.singleErr = errors.New("unknown source")
	_, err = sched.RunSource(context.Background(), "nope", 2)
	require.Error(t, err)
	assert.EqualValues(t, 1, s.calls.Load())
	assert.False(t, sched.Running())
}

func TestSchedulerNoOverlap(t *testing.T) {
	t.Parallel()

	tickCh := make(chan time.Time, 4)
	st := &stubTicker{ch: tickCh}

	r := &stubRunner{
		runs:  []model.ScrapeRun{{Source: "yotspot"}},
		block: make(chan struct{}),
	}
	s := &stubStore{}

	sched := NewScheduler(r, s, nil, Config{Interval: "100ms", Timeout: "5s"}, quiet())
	sched.newTicker = func(d time.Duration) ticker { return st }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sched.Start(ctx)
	}()

	tickCh <- time.Now()
	require.Eventually(t, sched.Running, time.Second, 5*time.Millisecond)

	// 运行期间的手动触发与新 tick 都不应再次执行。
	_, err := sched.RunSource(context.Background(), "yotspot", 1)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	tickCh <- time.Now()

	close(r.block)
	require.Eventually(t, func() bool { return !sched.Running() }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.EqualValues(t, 1, r.calls.Load())
	assert.EqualValues(t, 1, s.calls.Load())
}

func TestSchedulerRunOnStart(t *testing.T) {
	t.Parallel()

	r := &stubRunner{runs: []model.ScrapeRun{{Source: "yotspot"}}}
	sched := NewScheduler(r, &stubStore{}, nil, Config{Interval: "1h", RunOnStart: true}, quiet())
	sched.newTicker = func(d time.Duration) ticker { return &stubTicker{ch: make(chan time.Time)} }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sched.Start(ctx)
	}()

	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestSchedulerHonoursRunLock(t *testing.T) {
	t.Parallel()

	r := &stubRunner{runs: []model.ScrapeRun{{Source: "yotspot"}}}
	locker := &stubLocker{err: runlock.ErrNotAcquired}
	sched := NewScheduler(r, &stubStore{}, nil, Config{}, quiet()).WithLocker(locker)

	_, err := sched.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Zero(t, r.calls.Load())

	locker.err = nil
	_, err = sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"all", "all"}, locker.names)
	assert.Equal(t, 1, locker.released)

	locker.err = errors.New("redis down")
	_, err = sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyRunning)
}

func TestSchedulerParsesSchedules(t *testing.T) {
	t.Parallel()

	sched := NewScheduler(&stubRunner{}, nil, nil, Config{
		Schedules: []string{"0 8 * * *", "not a cron", "0 13 * * *", "0 19 * * *"},
	}, quiet())
	assert.Equal(t, "cron 0 8 * * * | 0 13 * * * | 0 19 * * *", sched.Describe())

	at := time.Date(2025, 3, 20, 9, 30, 0, 0, time.UTC)
	next, ok := sched.next(at)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 20, 13, 0, 0, 0, time.UTC), next)

	next, ok = sched.next(time.Date(2025, 3, 20, 20, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 21, 8, 0, 0, 0, time.UTC), next)

	interval := NewScheduler(&stubRunner{}, nil, nil, Config{Interval: "45m"}, quiet())
	assert.Equal(t, "every 45m0s", interval.Describe())

	fallback := NewScheduler(&stubRunner{}, nil, nil, Config{Interval: "bogus", Timeout: "nope"}, quiet())
	assert.Equal(t, "every 2h0m0s", fallback.Describe())
	assert.Equal(t, 30*time.Minute, fallback.timeout)

	cronInterval := NewScheduler(&stubRunner{}, nil, nil, Config{Interval: "*/15 * * * *"}, quiet())
	assert.Equal(t, "cron */15 * * * *", cronInterval.Describe())
}

// --- stubs ---

type stubRunner struct {
	runs         []model.ScrapeRun
	single       model.ScrapeRun
	singleErr    error
	calls        atomic.Int32
	lastMaxPages int
	block        chan struct{}
}

func (r *stubRunner) RunAll(ctx context.Context, maxPages int) []model.ScrapeRun {
	r.calls.Add(1)
	r.lastMaxPages = maxPages
	if r.block != nil {
		<-r.block
	}
	return append([]model.ScrapeRun(nil), r.runs...)
}

func (r *stubRunner) Run(ctx context.Context, source model.Source, maxPages int) (model.ScrapeRun, error) {
	r.calls.Add(1)
	r.lastMaxPages = maxPages
	return r.single, r.singleErr
}

type stubStore struct {
	calls atomic.Int32
	mu    sync.Mutex
	saved []model.ScrapeRun
}

func (s *stubStore) RecordRun(ctx context.Context, run *model.ScrapeRun) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	run.ID = uint(len(s.saved) + 1)
	s.saved = append(s.saved, *run)
	return nil
}

type stubTicker struct {
	ch chan time.Time
}

func (s *stubTicker) C() <-chan time.Time { return s.ch }
func (s *stubTicker) Stop()               {}

type stubNotifier struct {
	calls atomic.Int32
	last  []model.Job
}

func (n *stubNotifier) Notify(ctx context.Context, jobs []model.Job) error {
	n.calls.Add(1)
	n.last = jobs
	return ctx.Err()
}

type stubLocker struct {
	err      error
	names    []string
	released int
}

func (l *stubLocker) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	l.names = append(l.names, name)
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}
