package aggregation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
)

type fakeRunner struct {
	mu   sync.Mutex
	runs []string
	fail map[v1.Family]error
}

func (f *fakeRunner) Run(_ context.Context, family v1.Family, d time.Time) (RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, string(family)+"@"+d.Format("2006-01-02"))
	return RunSummary{Family: family}, f.fail[family]
}

type fakePurger struct{ calls int }

func (p *fakePurger) PurgeExpired(context.Context) (int64, error) {
	p.calls++
	return 7, nil
}

func TestScheduler_RunDayRunsEveryFamily(t *testing.T) {
	r := &fakeRunner{fail: map[v1.Family]error{v1.FamilyAPI: errors.New("boom")}}
	s := NewScheduler(r, "15 0 * * *", v1.Families)

	err := s.RunDay(context.Background(), day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api: boom")
	assert.Equal(t, []string{"api@2025-01-01", "vitals@2025-01-01"}, r.runs)
}

func TestScheduler_TickRunsYesterdayAndPurges(t *testing.T) {
	r := &fakeRunner{}
	p := &fakePurger{}
	s := NewScheduler(r, "15 0 * * *", []v1.Family{v1.FamilyVitals}, WithPurger(p))
	s.now = func() time.Time { return time.Date(2025, 1, 2, 0, 15, 0, 0, time.UTC) }

	s.tick(context.Background())
	assert.Equal(t, []string{"vitals@2025-01-01"}, r.runs)
	assert.Equal(t, 1, p.calls)
}

func TestScheduler_StartRunsOnStartAndStops(t *testing.T) {
	r := &fakeRunner{}
	s := NewScheduler(r, "15 0 * * *", []v1.Family{v1.FamilyAPI}, WithRunOnStart())
	s.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.runs) == 1
	}, time.Second, 10*time.Millisecond)
	r.mu.Lock()
	assert.Equal(t, "api@2025-02-28", r.runs[0])
	r.mu.Unlock()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, "not a cron", v1.Families)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}
