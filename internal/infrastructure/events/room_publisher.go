package events

import (
	"context"
	"encoding/json"

	"codepair/internal/domain"
	"codepair/internal/infrastructure/messaging"
)

// RoomPublisher emits room lifecycle events onto the broker. A nil
// publisher is valid and publishes nothing, so callers never have to
// guard for the broker being disabled.
type RoomPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewRoomPublisher(rabbitmq *messaging.RabbitMQ) *RoomPublisher {
	if rabbitmq == nil {
		return nil
	}

	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) PublishRoomCreated(ctx context.Context, room *domain.Room) error {
	if p == nil {
		return nil
	}

	return p.publish(ctx, messaging.EventRoomCreated, messaging.RoomEvent{
		RoomID:           room.ID,
		Language:         room.Language,
		ParticipantCount: room.ParticipantCount(),
	})
}

func (p *RoomPublisher) PublishRoomReclaimed(ctx context.Context, roomID string) error {
	if p == nil {
		return nil
	}

	return p.publish(ctx, messaging.EventRoomReclaimed, messaging.RoomEvent{
		RoomID: roomID,
	})
}

func (p *RoomPublisher) publish(ctx context.Context, routingKey string, payload messaging.RoomEvent) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, body)
}
