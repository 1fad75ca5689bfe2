package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/xchat/pkg/domain"
)

// Sequencer serializes timestamp assignment per channel so that, within a
// channel, insertion order and (timestamp, id) order agree even when the wall
// clock steps backwards. Channels never share a lock, and a channel's slot
// lives only while an insert is running or waiting on it.
type Sequencer struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*slot
	// floor is the latest timestamp handed out by a slot that was dropped.
	floor time.Time
	now   func() time.Time
}

type slot struct {
	mu   sync.Mutex
	last time.Time
	refs int
}

func NewSequencer() *Sequencer {
	return &Sequencer{
		slots: make(map[uuid.UUID]*slot),
		now:   time.Now,
	}
}

func (s *Sequencer) acquire(channelID uuid.UUID) *slot {
	s.mu.Lock()
	sl, ok := s.slots[channelID]
	if !ok {
		sl = &slot{last: s.floor}
		s.slots[channelID] = sl
	}
	sl.refs++
	s.mu.Unlock()

	sl.mu.Lock()
	return sl
}

func (s *Sequencer) release(channelID uuid.UUID, sl *slot) {
	s.mu.Lock()
	sl.refs--
	if sl.refs == 0 {
		if sl.last.After(s.floor) {
			s.floor = sl.last
		}
		delete(s.slots, channelID)
	}
	s.mu.Unlock()
	sl.mu.Unlock()
}

// Next runs insert with a timestamp and an id for channelID while holding the
// channel's lock. The timestamp is never earlier than the one handed to the
// previous successful insert of the same channel.
func (s *Sequencer) Next(channelID uuid.UUID, insert func(id uuid.UUID, at time.Time) error) error {
	sl := s.acquire(channelID)
	defer s.release(channelID, sl)

	at := domain.Millis(s.now())
	if at.Before(sl.last) {
		at = sl.last
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	if err := insert(id, at); err != nil {
		return err
	}
	sl.last = at
	return nil
}
