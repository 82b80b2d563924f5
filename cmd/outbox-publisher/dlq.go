package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailerp-backend/pkg/db/models"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox"
)

type dlqAdmin interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, eventID uuid.UUID) error
}

// dlqCommand is the operator surface over outbox_dlq:
//
//	outbox-publisher -dlq=list [-reason=max_attempts] [-limit=20]
//	outbox-publisher -dlq=requeue -event=<outbox event id>
type dlqCommand struct {
	action string
	event  string
	reason string
	limit  int
}

func (c dlqCommand) run(ctx context.Context, admin dlqAdmin, out io.Writer) error {
	switch c.action {
	case "list":
		filter := outbox.DLQFilter{Limit: c.limit}
		if c.reason != "" {
			reason, err := enums.ParseOutboxDLQErrorReason(c.reason)
			if err != nil {
				return err
			}
			filter.Reason = reason
		}
		rows, err := admin.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list dlq: %w", err)
		}
		enc := json.NewEncoder(out)
		for _, row := range rows {
			if err := enc.Encode(dlqLine(row)); err != nil {
				return err
			}
		}
		return nil
	case "requeue":
		id, err := uuid.Parse(strings.TrimSpace(c.event))
		if err != nil {
			return fmt.Errorf("-event must be an outbox event id: %w", err)
		}
		if err := admin.Requeue(ctx, id); err != nil {
			return fmt.Errorf("requeue %s: %w", id, err)
		}
		_, err = fmt.Fprintf(out, "requeued %s\n", id)
		return err
	}
	return fmt.Errorf("unknown -dlq action %q (want list or requeue)", c.action)
}

type dlqSummary struct {
	EventID      string `json:"eventId"`
	EventType    string `json:"eventType"`
	AggregateID  string `json:"aggregateId"`
	Reason       string `json:"reason"`
	Error        string `json:"error,omitempty"`
	AttemptCount int    `json:"attemptCount"`
	FailedAt     string `json:"failedAt"`
}

func dlqLine(row models.OutboxDLQ) dlqSummary {
	summary := dlqSummary{
		EventID:      row.EventID.String(),
		EventType:    string(row.EventType),
		AggregateID:  row.AggregateID.String(),
		Reason:       string(row.ErrorReason),
		AttemptCount: row.AttemptCount,
		FailedAt:     row.FailedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if row.ErrorMessage != nil {
		summary.Error = *row.ErrorMessage
	}
	return summary
}
