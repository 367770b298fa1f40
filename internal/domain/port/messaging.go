package port

import (
	"context"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
)

// StatusPublisher announces run state changes to downstream consumers.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg entity.RunStatusMessage) error
}

// DLQPublisher parks requests that can never succeed.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, body []byte, reason string) error
}
