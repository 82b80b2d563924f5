// Package reporting turns order events from Pub/Sub into BigQuery rows that
// back the accounting reports.
package reporting

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
)

// Envelope is an outbox event as received from Pub/Sub.
type Envelope struct {
	EventID       string
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Version       int
	OccurredAt    time.Time
	Payload       json.RawMessage
}
