package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/triviahub/triviad/internal/domain"
	"github.com/triviahub/triviad/internal/event"
	"github.com/triviahub/triviad/internal/hub"
)

const (
	relayQueueSize     = 1024
	relayPublishTimeout = 5 * time.Second
)

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type RelayConfig struct {
	EventBus *event.Bus
	Redis    Redis
	Prefix   string
}

// Relay mirrors every session broadcast onto a Redis pub/sub channel so
// external consumers (admin dashboards, projectors) can follow the game
// without holding a participant slot. Bus handlers only enqueue; a single
// worker publishes, which keeps the channel in event order and the Redis
// round-trip off the session's critical path.
type Relay struct {
	redis  Redis
	prefix string

	queue chan []byte
	done  chan struct{}
}

func NewRelay(c RelayConfig) *Relay {
	r := &Relay{
		redis:  c.Redis,
		prefix: c.Prefix,
		queue:  make(chan []byte, relayQueueSize),
		done:   make(chan struct{}),
	}

	for _, name := range []string{
		domain.EventNameRosterUpdated,
		domain.EventNameQuestionRevealed,
		domain.EventNameRoundResult,
		domain.EventNameSessionError,
		domain.EventNameSessionEnded,
		domain.EventNameSessionReset,
	} {
		c.EventBus.Subscribe(name, r.enqueue)
	}

	go r.run()

	return r
}

func (r *Relay) enqueue(_ context.Context, e event.Event) error {
	b, err := hub.EncodeEvent(e)
	if err != nil {
		return err
	}

	select {
	case r.queue <- b:
		return nil
	default:
		return fmt.Errorf("relay: queue full, dropping %s", e.Name())
	}
}

func (r *Relay) run() {
	defer close(r.done)

	for b := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
		if err := r.redis.Publish(ctx, r.channel(), b).Err(); err != nil {
			slog.ErrorContext(ctx, "relay: publish failed", "error", err)
		}
		cancel()
	}
}

// Close drains the queue and stops the worker.
func (r *Relay) Close() {
	close(r.queue)
	<-r.done
}

func (r *Relay) channel() string {
	return fmt.Sprintf("%s:session:events", r.prefix)
}
