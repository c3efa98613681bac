package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Message is one leased unit of work from the durable queue. The lease is
// enforced by the queue's visibility timeout, not by the worker; deletion is
// the terminal acknowledgment.
type Message struct {
	MsgID      int64           `json:"msg_id"`
	ReadCount  int             `json:"read_ct"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	VisibleAt  time.Time       `json:"vt"`
	Payload    json.RawMessage `json:"message"`
}

// Repository is the worker's view of the queue: lease one batch of messages
// and delete processed ones.
type Repository interface {
	Read(ctx context.Context, queue string, visibilityTimeout time.Duration, count int) ([]Message, error)
	Delete(ctx context.Context, queue string, msgID int64) error
}
