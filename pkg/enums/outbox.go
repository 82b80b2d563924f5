package enums

// OutboxAggregateType is outbox_events.aggregate_type.
type OutboxAggregateType string

const AggregateOrder OutboxAggregateType = "order"

var outboxAggregateTypes = []OutboxAggregateType{AggregateOrder}

func (a OutboxAggregateType) IsValid() bool {
	_, err := ParseOutboxAggregateType(string(a))
	return err == nil
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(outboxAggregateTypes, value, "aggregate type")
}

// OutboxEventType is outbox_events.event_type. Every value needs a
// descriptor in the event registry or the dispatcher dead-letters it.
type OutboxEventType string

const EventOrderCreated OutboxEventType = "order_created"

var outboxEventTypes = []OutboxEventType{EventOrderCreated}

func (e OutboxEventType) IsValid() bool {
	_, err := ParseOutboxEventType(string(e))
	return err == nil
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(outboxEventTypes, value, "event type")
}
