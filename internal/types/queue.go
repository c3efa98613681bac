package types

import "time"

const (
	// ApplicationQueue is the durable queue holding inbound application-mail tasks
	ApplicationQueue = "application_emails"

	// QueueVisibilityTimeout is the lease duration for one read message. Processing
	// that exceeds it makes the message eligible for redelivery.
	QueueVisibilityTimeout = 60 * time.Second

	// QueueReadBatchSize is fixed at one: each invocation drains exactly one task.
	QueueReadBatchSize = 1
)

// QueueTaskStatus is the terminal status of one consumer invocation.
type QueueTaskStatus string

const (
	QueueTaskDone      QueueTaskStatus = "done"
	QueueTaskProcessed QueueTaskStatus = "processed"
	QueueTaskSkipped   QueueTaskStatus = "skipped"
)
