package outbox

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
)

// ActorRef identifies which surface produced the event.
type ActorRef struct {
	Service   string            `json:"service"`
	Screen    enums.OrderScreen `json:"screen,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
