package entitlements

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu          sync.Mutex
	load        models.Snapshot
	loadErr     error
	last        models.Snapshot
	replaces    int
	failReplace int
	deletedKits []string
	deleteErr   error
}

func (f *fakeBackend) Load(context.Context, time.Time) (models.Snapshot, error) {
	return f.load, f.loadErr
}

func (f *fakeBackend) Replace(_ context.Context, snap models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces++
	if f.failReplace > 0 {
		f.failReplace--
		return errors.New("disk full")
	}
	f.last = snap
	return nil
}

func (f *fakeBackend) DeleteKit(_ context.Context, kit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedKits = append(f.deletedKits, kit)
	return f.deleteErr
}

func (f *fakeBackend) replaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replaces
}

func (f *fakeBackend) lastSnapshot() models.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type recordingObserver struct {
	mu   sync.Mutex
	errs []error
}

func (o *recordingObserver) ObserveFlush(_ time.Duration, _ int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) calls() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.errs...)
}

var t0 = time.UnixMilli(1_700_000_000_000)

func openStore(t *testing.T, b *fakeBackend, debounce time.Duration) (*Store, *timex.ManualClock) {
	t.Helper()
	clock := timex.NewManualClock(t0)
	s, err := Open(context.Background(), b, Options{Debounce: debounce, Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, clock
}

func TestRemaining_CountsDownToZero(t *testing.T) {
	s, clock := openStore(t, &fakeBackend{}, time.Hour)
	p := uuid.New()
	c := time.Hour

	s.SetCooldown(p, "starter", clock.Now().Add(c))
	assert.Equal(t, c, s.Remaining(p, "starter"))

	clock.Advance(time.Second)
	assert.Equal(t, c-time.Second, s.Remaining(p, "starter"))

	clock.Advance(c - time.Second)
	assert.Zero(t, s.Remaining(p, "starter"))

	clock.Advance(time.Minute)
	assert.Zero(t, s.Remaining(p, "starter"))
}

func TestReads_NeverCreateRecords(t *testing.T) {
	s, _ := openStore(t, &fakeBackend{}, time.Hour)
	p := uuid.New()

	assert.Zero(t, s.Remaining(p, "starter"))
	assert.False(t, s.HasUsedOneTime(p, "starter"))
	assert.True(t, s.Get(p, "starter").IsZero())
	assert.Zero(t, s.Len())
}

func TestResets_AreImmediateAndDropEmptyRecords(t *testing.T) {
	s, clock := openStore(t, &fakeBackend{}, time.Hour)
	p := uuid.New()

	s.SetCooldown(p, "vip", clock.Now().Add(time.Hour))
	s.SetOneTimeUsed(p, "vip")
	require.Equal(t, 1, s.Len())

	s.ResetCooldown(p, "vip")
	assert.Zero(t, s.Remaining(p, "vip"))
	assert.True(t, s.HasUsedOneTime(p, "vip"))

	s.ResetOneTime(p, "vip")
	assert.False(t, s.HasUsedOneTime(p, "vip"))
	assert.Zero(t, s.Len())
}

func TestDebounce_CoalescesWritesIntoOneFlush(t *testing.T) {
	b := &fakeBackend{}
	s, clock := openStore(t, b, 50*time.Millisecond)

	players := make([]uuid.UUID, 20)
	for i := range players {
		players[i] = uuid.New()
		s.SetCooldown(players[i], "starter", clock.Now().Add(time.Duration(i+1)*time.Minute))
	}
	s.SetOneTimeUsed(players[0], "vip")

	require.Eventually(t, func() bool { return b.replaceCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, b.replaceCount())

	snap := b.lastSnapshot()
	assert.Len(t, snap.Cooldowns, 20)
	assert.Equal(t, []models.OneTimeRow{{Player: players[0], Kit: "vip"}}, snap.OneTime)
}

func TestDebounce_NoOpWritesDoNotSchedule(t *testing.T) {
	b := &fakeBackend{}
	s, _ := openStore(t, b, 10*time.Millisecond)
	p := uuid.New()

	s.ResetCooldown(p, "starter")
	s.ResetOneTime(p, "starter")
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, b.replaceCount())
}

func TestFailedFlush_RetriesOnNextWrite(t *testing.T) {
	b := &fakeBackend{failReplace: 1}
	obs := &recordingObserver{}
	clock := timex.NewManualClock(t0)
	s, err := Open(context.Background(), b, Options{Debounce: 20 * time.Millisecond, Clock: clock, Observer: obs})
	require.NoError(t, err)
	defer s.Close(context.Background())

	p1, p2 := uuid.New(), uuid.New()
	s.SetOneTimeUsed(p1, "vip")
	require.Eventually(t, func() bool { return b.replaceCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.Len(), "memory untouched by a failed flush")

	s.SetOneTimeUsed(p2, "vip")
	require.Eventually(t, func() bool { return b.replaceCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	assert.Len(t, b.lastSnapshot().OneTime, 2)
	calls := obs.calls()
	require.Len(t, calls, 2)
	assert.Error(t, calls[0])
	assert.NoError(t, calls[1])
}

func TestClearAll_WritesThroughInsideDebounceWindow(t *testing.T) {
	b := &fakeBackend{}
	s, clock := openStore(t, b, time.Hour)
	p1, p2 := uuid.New(), uuid.New()

	s.SetCooldown(p1, "starter", clock.Now().Add(time.Hour))
	s.SetCooldown(p2, "starter", clock.Now().Add(time.Hour))
	s.SetOneTimeUsed(p1, "starter")
	s.SetCooldown(p1, "daily", clock.Now().Add(time.Hour))

	require.NoError(t, s.ClearAll(context.Background(), "starter"))

	assert.Equal(t, []string{"starter"}, b.deletedKits)
	assert.Zero(t, b.replaceCount(), "no debounced flush was needed")
	assert.Equal(t, 1, s.Len())
	assert.Zero(t, s.Remaining(p2, "starter"))
	assert.False(t, s.HasUsedOneTime(p1, "starter"))
	assert.Equal(t, time.Hour, s.Remaining(p1, "daily"))
}

func TestClearAll_BackendErrorFallsBackToRewrite(t *testing.T) {
	b := &fakeBackend{deleteErr: errors.New("locked")}
	s, clock := openStore(t, b, time.Hour)
	p := uuid.New()
	s.SetCooldown(p, "daily", clock.Now().Add(time.Hour))
	s.SetCooldown(p, "starter", clock.Now().Add(time.Hour))

	err := s.ClearAll(context.Background(), "starter")
	require.ErrorContains(t, err, "locked")

	require.NoError(t, s.Flush(context.Background()))
	snap := b.lastSnapshot()
	require.Len(t, snap.Cooldowns, 1)
	assert.Equal(t, "daily", snap.Cooldowns[0].Kit)
}

func TestSweep_KeepsOneTimeMarkers(t *testing.T) {
	s, clock := openStore(t, &fakeBackend{}, time.Hour)
	p1, p2 := uuid.New(), uuid.New()

	s.SetCooldown(p1, "vip", clock.Now().Add(time.Minute))
	s.SetOneTimeUsed(p1, "vip")
	s.SetCooldown(p2, "starter", clock.Now().Add(time.Minute))
	s.SetCooldown(p2, "weekly", clock.Now().Add(time.Hour))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, s.Sweep())

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.HasUsedOneTime(p1, "vip"))
	assert.True(t, s.Get(p1, "vip").CooldownEnd.IsZero())
	assert.True(t, s.Get(p2, "starter").IsZero())
	assert.Equal(t, 58*time.Minute, s.Remaining(p2, "weekly"))
}

func TestOpen_LoadsSnapshotAndSweeps(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	b := &fakeBackend{load: models.Snapshot{
		Cooldowns: []models.CooldownRow{
			{Player: p1, Kit: "starter", EndsAt: t0.Add(time.Hour)},
			{Player: p2, Kit: "vip", EndsAt: t0.Add(-time.Hour)},
		},
		OneTime: []models.OneTimeRow{{Player: p2, Kit: "vip"}},
	}}
	s, _ := openStore(t, b, time.Hour)

	assert.Equal(t, time.Hour, s.Remaining(p1, "starter"))
	assert.True(t, s.HasUsedOneTime(p2, "vip"))
	assert.True(t, s.Get(p2, "vip").CooldownEnd.IsZero())
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(context.Background(), &fakeBackend{loadErr: common.ErrStorageFailure}, Options{})
	require.ErrorIs(t, err, common.ErrStorageFailure)

	_, err = Open(context.Background(), &fakeBackend{}, Options{SweepSchedule: "every now and then"})
	require.ErrorIs(t, err, common.ErrConfigInvalid)
}

func TestClose_FlushesPendingAndStopsScheduling(t *testing.T) {
	b := &fakeBackend{}
	clock := timex.NewManualClock(t0)
	s, err := Open(context.Background(), b, Options{Debounce: time.Hour, Clock: clock, SweepSchedule: DefaultSweepSchedule})
	require.NoError(t, err)

	p := uuid.New()
	s.SetOneTimeUsed(p, "vip")
	require.Zero(t, b.replaceCount())

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, b.replaceCount())
	assert.Equal(t, []models.OneTimeRow{{Player: p, Kit: "vip"}}, b.lastSnapshot().OneTime)

	// second Close is a no-op
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, b.replaceCount())
}

func TestClose_ReportsFinalFlushFailure(t *testing.T) {
	b := &fakeBackend{failReplace: 1}
	s, err := Open(context.Background(), b, Options{Debounce: time.Hour})
	require.NoError(t, err)

	s.SetOneTimeUsed(uuid.New(), "vip")
	err = s.Close(context.Background())
	require.ErrorIs(t, err, common.ErrStorageFailure)
}

func TestConcurrentWrites_AllLand(t *testing.T) {
	b := &fakeBackend{}
	s, clock := openStore(t, b, 10*time.Millisecond)

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := uuid.New()
			for i := 0; i < perWorker; i++ {
				kit := "kit" + string(rune('a'+i%26)) + string(rune('a'+i/26))
				s.SetCooldown(p, kit, clock.Now().Add(time.Hour))
				_ = s.Remaining(p, kit)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, s.Flush(context.Background()))
	snap := b.lastSnapshot()
	assert.Len(t, snap.Cooldowns, workers*perWorker)

	kits := map[string]bool{}
	for _, row := range snap.Cooldowns {
		kits[row.Kit] = true
	}
	names := make([]string, 0, len(kits))
	for k := range kits {
		names = append(names, k)
	}
	sort.Strings(names)
	assert.Len(t, names, perWorker)
}
