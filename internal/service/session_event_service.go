package service

import (
	"context"
	"encoding/json"

	"cs-chatbot-be/internal/pkg/logger"
	"cs-chatbot-be/internal/websocket"
	"cs-chatbot-be/pkg/events"
	pktNats "cs-chatbot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ISessionEventService fans session lifecycle events out to the ops
// dashboard feed. Emission never fails the calling request.
type ISessionEventService interface {
	Emit(event events.Event)
	Consume(ctx context.Context) error
}

type sessionEventService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	hub        *websocket.Hub
	publisher  *pktNats.Publisher  // nil when NATS is not configured
	subscriber *pktNats.Subscriber // nil when NATS is not configured
	logger     logger.ILogger
}

func NewSessionEventService(
	pubSub *gochannel.GoChannel,
	topicName string,
	hub *websocket.Hub,
	publisher *pktNats.Publisher,
	subscriber *pktNats.Subscriber,
	log logger.ILogger,
) ISessionEventService {
	return &sessionEventService{
		pubSub:     pubSub,
		topicName:  topicName,
		hub:        hub,
		publisher:  publisher,
		subscriber: subscriber,
		logger:     log,
	}
}

// Emit publishes onto the in-process bus and, when configured, to NATS so
// dashboards attached to other instances see the event too.
func (s *sessionEventService) Emit(event events.Event) {
	payload, err := json.Marshal(map[string]interface{}{
		"type":      event.EventType(),
		"data":      event.Payload(),
		"timestamp": event.Timestamp(),
	})
	if err != nil {
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		s.logger.Warn("SessionEvents", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(context.Background(), event); err != nil {
			s.logger.Warn("SessionEvents", "Failed to publish event to NATS", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}
}

// Consume pumps bus messages into the websocket hub. Runs until ctx ends.
func (s *sessionEventService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.hub.Broadcast(msg.Payload)
			msg.Ack()
		}
	}()

	// Events emitted by sibling instances arrive over JetStream. The empty
	// durable name gives each instance its own ephemeral consumer, so every
	// instance sees every event. Delivery goes to local dashboard clients
	// only; re-broadcasting would loop them back.
	if s.subscriber != nil {
		err := s.subscriber.Subscribe(pktNats.AllEventsSubject, "", func(ctx context.Context, event events.Event) error {
			payload, err := json.Marshal(map[string]interface{}{
				"type":      event.EventType(),
				"data":      event.Payload(),
				"timestamp": event.Timestamp(),
			})
			if err != nil {
				return err
			}
			s.hub.BroadcastLocal(payload)
			return nil
		})
		if err != nil {
			s.logger.Warn("SessionEvents", "Failed to subscribe to NATS feed", map[string]interface{}{"error": err.Error()})
		}
	}

	return nil
}
