package memory

import (
	"context"
	"sync"

	"reciclagame-service/internal/domain"
)

// PointsFeed is an in-process implementation of app.PointsFeed.
type PointsFeed struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.PointsUpdate]struct{}
}

func NewPointsFeed() *PointsFeed {
	return &PointsFeed{
		subscribers: make(map[int64]map[chan domain.PointsUpdate]struct{}),
	}
}

func (f *PointsFeed) Publish(_ context.Context, update domain.PointsUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[update.PlayerID] {
		select {
		case ch <- update:
		default:
			// Slow subscriber: drop the stale update so the newest one fits.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
	return nil
}

func (f *PointsFeed) Subscribe(_ context.Context, playerID int64) (<-chan domain.PointsUpdate, func(), error) {
	ch := make(chan domain.PointsUpdate, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[playerID]
	if !ok {
		subs = make(map[chan domain.PointsUpdate]struct{})
		f.subscribers[playerID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[playerID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, playerID)
		}
	}
	return ch, cancel, nil
}

// SubscriberCount reports how many subscribers a player has.
func (f *PointsFeed) SubscriberCount(playerID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[playerID])
}
