package postgres

import (
	"context"
	"time"

	"github.com/mietevo/mietevo-backend/internal/domain/queue"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/postgres"
)

type queueRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewQueueRepository(db postgres.IClient, logger *logger.Logger) queue.Repository {
	return &queueRepository{db: db, logger: logger}
}

// Read leases up to count messages from the named queue. Leased messages
// stay invisible to other consumers for the visibility timeout.
func (r *queueRepository) Read(ctx context.Context, queueName string, visibilityTimeout time.Duration, count int) ([]queue.Message, error) {
	query := `SELECT msg_id, read_ct, enqueued_at, vt, message FROM pgmq.read($1, $2, $3)`

	rows, err := r.db.Pool().Query(ctx, query, queueName, int(visibilityTimeout.Seconds()), count)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to read from queue").
			WithMessagef("queue:%s", queueName).
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var messages []queue.Message
	for rows.Next() {
		var msg queue.Message
		if err := rows.Scan(&msg.MsgID, &msg.ReadCount, &msg.EnqueuedAt, &msg.VisibleAt, &msg.Payload); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan queue message").
				Mark(ierr.ErrDatabase)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to read from queue").
			Mark(ierr.ErrDatabase)
	}

	return messages, nil
}

// Delete removes a message permanently. pgmq.delete returns false when the
// message no longer exists, which is not an error here.
func (r *queueRepository) Delete(ctx context.Context, queueName string, msgID int64) error {
	query := `SELECT pgmq.delete($1, $2::bigint)`

	var deleted bool
	if err := r.db.Pool().QueryRow(ctx, query, queueName, msgID).Scan(&deleted); err != nil {
		return ierr.WithError(err).
			WithHint("failed to delete queue message").
			WithMessagef("queue:%s, msg_id:%d", queueName, msgID).
			Mark(ierr.ErrDatabase)
	}
	if !deleted {
		r.logger.Warnw("queue message already deleted", "queue", queueName, "msg_id", msgID)
	}
	return nil
}
