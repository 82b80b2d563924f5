package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
)

// Broker carries events between API instances.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
}

// Relay delivers events to the local hub and to every other instance through
// redis pub/sub.
type Relay struct {
	hub      *Hub
	broker   Broker
	instance string
	logg     *logger.Logger
}

// NewRelay wires a hub to a broker. instance must be unique per process.
func NewRelay(hub *Hub, broker Broker, instance string, logg *logger.Logger) (*Relay, error) {
	if hub == nil {
		return nil, errors.New("hub is required")
	}
	if broker == nil {
		return nil, errors.New("broker is required")
	}
	if instance == "" {
		return nil, errors.New("instance id is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Relay{hub: hub, broker: broker, instance: instance, logg: logg}, nil
}

// Broadcast publishes locally first, then forwards to the other instances.
// A broker failure is logged; local subscribers are already served.
func (r *Relay) Broadcast(ctx context.Context, collection enums.Collection, event Event) {
	event.Collection = collection
	event.Origin = r.instance
	r.hub.Publish(collection, event)

	payload, err := json.Marshal(event)
	if err != nil {
		r.logg.Error(ctx, "encode live-sync event", err)
		return
	}
	if err := r.broker.Publish(ctx, string(collection), payload); err != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{"collection": collection, "error": err.Error()})
		r.logg.Warn(logCtx, "live-sync relay publish failed")
	}
}

// Run forwards events published by other instances into the local hub until
// ctx is canceled.
func (r *Relay) Run(ctx context.Context, collections ...enums.Collection) error {
	channels := make([]string, 0, len(collections))
	for _, c := range collections {
		channels = append(channels, string(c))
	}
	sub, err := r.broker.Subscribe(ctx, channels...)
	if err != nil {
		return fmt.Errorf("subscribe live-sync channels: %w", err)
	}
	defer sub.Close()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Payload)
		}
	}
}

func (r *Relay) handle(ctx context.Context, payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logCtx := r.logg.WithField(ctx, "error", err.Error())
		r.logg.Warn(logCtx, "invalid live-sync payload")
		return
	}
	if event.Origin == r.instance || !event.Collection.IsValid() {
		return
	}
	r.hub.Publish(event.Collection, event)
}
