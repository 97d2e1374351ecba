package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePositionStore counts AllHeldInc calls and returns a scripted answer.
type fakePositionStore struct {
	calls       int
	incremented bool
	err         error
}

func (f *fakePositionStore) GetHeldDays(context.Context, string, string) (int, bool, error) {
	return 0, false, nil
}
func (f *fakePositionStore) UpdateHeldDays(context.Context, string, string, int) error { return nil }
func (f *fakePositionStore) DeleteHeldDays(context.Context, string, string) error      { return nil }
func (f *fakePositionStore) BatchNewHeld(context.Context, string, []string) error      { return nil }
func (f *fakePositionStore) AllHeldInc(context.Context, string) (bool, error) {
	f.calls++
	return f.incremented, f.err
}
func (f *fakePositionStore) GetMaxPrice(context.Context, string, string) (float64, bool, error) {
	return 0, false, nil
}
func (f *fakePositionStore) UpdateMaxPrice(context.Context, string, string, float64) error {
	return nil
}
func (f *fakePositionStore) GetMinPrice(context.Context, string, string) (float64, bool, error) {
	return 0, false, nil
}
func (f *fakePositionStore) UpdateMinPrice(context.Context, string, string, float64) error {
	return nil
}

func TestDailyTickJobName(t *testing.T) {
	job := NewDailyTickJob(&fakePositionStore{}, "55009728", zerolog.Nop())
	assert.Equal(t, "daily_tick:55009728", job.Name())
}

func TestDailyTickJobRun(t *testing.T) {
	store := &fakePositionStore{incremented: true}
	job := NewDailyTickJob(store, "55009728", zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 1, store.calls)

	// A repeat on the same day is a no-op at the store level and still
	// succeeds.
	store.incremented = false
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 2, store.calls)
}

func TestDailyTickJobPropagatesError(t *testing.T) {
	store := &fakePositionStore{err: errors.New("redis down")}
	job := NewDailyTickJob(store, "55009728", zerolog.Nop())
	assert.Error(t, job.Run(context.Background()))
}

func TestSchedulerRunNow(t *testing.T) {
	store := &fakePositionStore{incremented: true}
	job := NewDailyTickJob(store, "55009728", zerolog.Nop())

	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob(DailyTickSchedule, job))
	require.NoError(t, s.RunNow(context.Background(), job))
	assert.Equal(t, 1, store.calls)
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", NewDailyTickJob(&fakePositionStore{}, "a", zerolog.Nop()))
	assert.Error(t, err)
}
