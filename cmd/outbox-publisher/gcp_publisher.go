package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/retailerp-backend/pkg/outbox/registry"
)

// gcpPublisher adapts *gcppubsub.Publisher to the publisher interface so
// tests can swap in fakes.
type gcpPublisher struct {
	topic *gcppubsub.Publisher
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{topic: p}
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.topic.Publish(ctx, msg)
}

// isNonRetryable reports failures that will never succeed on retry: registry
// rejections and messages Pub/Sub refuses outright (oversized, bad attributes).
func isNonRetryable(err error) bool {
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		return st.Code() == codes.InvalidArgument
	}
	return false
}
