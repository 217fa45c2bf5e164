package services

import (
	"context"

	"auction-platform/internal/domain"
	"auction-platform/pkg/logger"
)

// EventListener forwards accepted-bid events from the shared event
// channel into the local room hub. Every service instance runs one, so
// a commit made by any instance reaches the subscribers of all of
// them.
type EventListener struct {
	hub domain.RoomHub
	log logger.Logger
}

func NewEventListener(hub domain.RoomHub, log logger.Logger) *EventListener {
	return &EventListener{
		hub: hub,
		log: log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting bid event listener")
	return subscriber.SubscribeToBidEvents(ctx, el.handleBidEvent)
}

func (el *EventListener) handleBidEvent(event *domain.BidEvent) error {
	return el.hub.Publish(event.AuctionID, event)
}
