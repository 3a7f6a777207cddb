package queue

import "context"

// Job consumes one message type from the queue. The notification
// senders (Slack, email, desktop) are each a Job keyed by channel.
type Job interface {
	// Name identifies the job in logs and retry bookkeeping.
	Name() string

	// Type is the message type this job subscribes to.
	Type() string

	// Handle processes one payload. Returning an error requeues the
	// message until the retry limit is reached.
	Handle(ctx context.Context, payload interface{}) error
}
