package api_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triviahub/triviad/internal/api"
	"github.com/triviahub/triviad/internal/domain"
	"github.com/triviahub/triviad/internal/event"
)

func TestRelay_MirrorsSessionEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	t.Cleanup(func() { rc.Close() })
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	sub := rc.Subscribe(ctx, "local:session:events")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	eb := event.NewBus()
	relay := api.NewRelay(api.RelayConfig{
		EventBus: eb,
		Redis:    rc,
		Prefix:   "local",
	})

	published := []event.Event{
		domain.EventRosterUpdated{Participants: []domain.Participant{
			{ID: "p1", Name: "Ali", Score: 0},
		}},
		domain.EventQuestionRevealed{
			QuestionID: "q1",
			Statement:  "2+2?",
			Ordinal:    1,
			Total:      3,
			DurationMs: 15000,
		},
		domain.EventSessionError{Message: "no questions available to start the game"},
	}
	for _, e := range published {
		eb.Publish(ctx, e)
	}
	relay.Close()

	for _, want := range published {
		msg, err := sub.ReceiveMessage(ctx)
		require.NoError(t, err)

		var n struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
		assert.Equal(t, want.Name(), n.Event, "events must arrive in publish order")
	}
}

func TestRelay_QueueFullDropsInsteadOfBlocking(t *testing.T) {
	// A relay whose worker cannot keep up must never stall the publisher.
	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	t.Cleanup(func() { rc.Close() })

	eb := event.NewBus()
	relay := api.NewRelay(api.RelayConfig{
		EventBus: eb,
		Redis:    rc,
		Prefix:   "local",
	})
	defer relay.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			eb.Publish(context.Background(), domain.EventSessionError{Message: "spam"})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publishing stalled on a saturated relay")
	}
}
