package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"reciclagame-service/internal/domain"
)

// PointsFeed fans points updates out through Redis Pub/Sub so every service
// instance sees updates committed by any other.
type PointsFeed struct {
	client *redis.Client
}

func NewPointsFeed(client *redis.Client) *PointsFeed {
	return &PointsFeed{client: client}
}

func (f *PointsFeed) Publish(ctx context.Context, update domain.PointsUpdate) error {
	raw, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel(update.PlayerID), raw).Err()
}

func (f *PointsFeed) Subscribe(ctx context.Context, playerID int64) (<-chan domain.PointsUpdate, func(), error) {
	sub := f.client.Subscribe(ctx, f.channel(playerID))
	// wait for the subscription confirmation so no publish is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan domain.PointsUpdate, 8)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var update domain.PointsUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					log.Warn().Err(err).Str("channel", msg.Channel).Msg("drop malformed points update")
					continue
				}
				select {
				case out <- update:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}

func (f *PointsFeed) channel(playerID int64) string {
	return "points:player:" + strconv.FormatInt(playerID, 10)
}
