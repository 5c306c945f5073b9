// Package queue implements the durable embedding-job queue on Postgres.
// Jobs are at-least-once: a read hides the job for the visibility timeout,
// and a job that is never deleted reappears once the timeout elapses. There
// is no in-process locking; concurrent readers are isolated by
// FOR UPDATE SKIP LOCKED.
package queue

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

// Job is one pending embedding task. DocumentID identifies the chunk whose
// content still needs a vector.
type Job struct {
	MsgID      int64
	DocumentID string
	ReadCount  int
}

type PostgresQueue struct {
	db *sql.DB
}

func NewPostgresQueue(db *sql.DB) *PostgresQueue {
	return &PostgresQueue{db: db}
}

// Send enqueues one job per document id.
func (q *PostgresQueue) Send(ctx context.Context, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	query := `INSERT INTO embedding_jobs (document_id) SELECT unnest($1::text[])`
	_, err := q.db.ExecContext(ctx, query, pq.Array(documentIDs))
	return err
}

// Read returns up to batchSize visible jobs and hides them for
// visibilitySeconds. Hidden jobs reappear automatically if not deleted.
func (q *PostgresQueue) Read(ctx context.Context, batchSize, visibilitySeconds int) ([]Job, error) {
	query := `
		WITH picked AS (
			SELECT msg_id FROM embedding_jobs
			WHERE vt <= now()
			ORDER BY msg_id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE embedding_jobs j
		SET vt = now() + make_interval(secs => $2), read_ct = read_ct + 1
		FROM picked
		WHERE j.msg_id = picked.msg_id
		RETURNING j.msg_id, j.document_id, j.read_ct`

	rows, err := q.db.QueryContext(ctx, query, batchSize, visibilitySeconds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.MsgID, &j.DocumentID, &j.ReadCount); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Delete acknowledges processed jobs in one call.
func (q *PostgresQueue) Delete(ctx context.Context, msgIDs []int64) error {
	if len(msgIDs) == 0 {
		return nil
	}
	query := `DELETE FROM embedding_jobs WHERE msg_id = ANY($1)`
	_, err := q.db.ExecContext(ctx, query, pq.Array(msgIDs))
	return err
}
