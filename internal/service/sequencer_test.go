package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSequencer_ClockStepsBack(t *testing.T) {
	req := require.New(t)
	seq := NewSequencer()
	base := time.UnixMilli(1_700_000_000_000)
	clock := []time.Time{base, base.Add(-time.Second), base.Add(time.Millisecond)}
	seq.now = func() time.Time {
		t := clock[0]
		clock = clock[1:]
		return t
	}

	chID := uuid.New()
	var got []time.Time
	for range 3 {
		req.NoError(seq.Next(chID, func(_ uuid.UUID, at time.Time) error {
			got = append(got, at)
			return nil
		}))
	}
	req.True(got[0].Equal(base))
	req.True(got[1].Equal(base))
	req.True(got[2].Equal(base.Add(time.Millisecond)))
}

func TestSequencer_FailedInsertDoesNotAdvance(t *testing.T) {
	req := require.New(t)
	seq := NewSequencer()
	base := time.UnixMilli(1_700_000_000_000)
	clock := []time.Time{base.Add(time.Hour), base}
	seq.now = func() time.Time {
		t := clock[0]
		clock = clock[1:]
		return t
	}

	chID := uuid.New()
	req.Error(seq.Next(chID, func(uuid.UUID, time.Time) error { return errors.New("boom") }))

	var at time.Time
	req.NoError(seq.Next(chID, func(_ uuid.UUID, ts time.Time) error {
		at = ts
		return nil
	}))
	req.True(at.Equal(base))
}

func TestSequencer_ConcurrentInsertsStayOrdered(t *testing.T) {
	req := require.New(t)
	seq := NewSequencer()
	chID := uuid.New()

	var (
		mu    sync.Mutex
		order []time.Time
		wg    sync.WaitGroup
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = seq.Next(chID, func(_ uuid.UUID, at time.Time) error {
				mu.Lock()
				order = append(order, at)
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	req.Len(order, 50)
	for i := 1; i < len(order); i++ {
		req.False(order[i].Before(order[i-1]))
	}
}

func TestSequencer_DropsIdleSlots(t *testing.T) {
	req := require.New(t)
	seq := NewSequencer()
	base := time.UnixMilli(1_700_000_000_000)
	clock := []time.Time{base, base.Add(-time.Minute)}
	seq.now = func() time.Time {
		t := clock[0]
		clock = clock[1:]
		return t
	}

	chID := uuid.New()
	for range 2 {
		var at time.Time
		req.NoError(seq.Next(chID, func(_ uuid.UUID, ts time.Time) error {
			at = ts
			return nil
		}))
		req.True(at.Equal(base), "an idle channel keeps its ordering after its slot is dropped")
		req.Empty(seq.slots)
	}
}
