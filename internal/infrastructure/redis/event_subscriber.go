package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
)

type EventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewEventSubscriber(client *redis.Client, log logger.Logger) *EventSubscriber {
	return &EventSubscriber{
		client: client,
		log:    log,
	}
}

// SubscribeToBidEvents blocks until ctx is cancelled, invoking handler
// for every bid event on the shared channel. A malformed payload or a
// handler failure is logged and skipped; the subscription survives.
func (s *EventSubscriber) SubscribeToBidEvents(ctx context.Context, handler domain.EventHandler) error {
	pubsub := s.client.Subscribe(ctx, bidEventChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	s.log.Info("Subscribed to bid events", "channel", bidEventChannel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event domain.BidEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.Error("Failed to decode bid event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(&event); err != nil {
				s.log.Error("Failed to handle bid event",
					"auction_id", event.AuctionID, "error", err)
			}

		case <-ctx.Done():
			s.log.Info("Bid event subscriber stopped")
			return ctx.Err()
		}
	}
}
