package queue

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestSend(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	q := NewPostgresQueue(db)

	t.Run("Inserts one row per document", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO embedding_jobs (document_id) SELECT unnest($1::text[])`)).
			WithArgs(pq.Array([]string{"doc-1", "doc-2"})).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := q.Send(context.Background(), []string{"doc-1", "doc-2"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty batch is a no-op", func(t *testing.T) {
		err := q.Send(context.Background(), nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRead(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	q := NewPostgresQueue(db)

	t.Run("Returns claimed jobs", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"msg_id", "document_id", "read_ct"}).
			AddRow(int64(1), "doc-1", 1).
			AddRow(int64(2), "doc-2", 3)

		mock.ExpectQuery("UPDATE embedding_jobs").
			WithArgs(45, 300).
			WillReturnRows(rows)

		jobs, err := q.Read(context.Background(), 45, 300)
		assert.NoError(t, err)
		assert.Len(t, jobs, 2)
		assert.Equal(t, int64(1), jobs[0].MsgID)
		assert.Equal(t, "doc-1", jobs[0].DocumentID)
		assert.Equal(t, 3, jobs[1].ReadCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty queue returns no jobs", func(t *testing.T) {
		mock.ExpectQuery("UPDATE embedding_jobs").
			WithArgs(10, 60).
			WillReturnRows(sqlmock.NewRows([]string{"msg_id", "document_id", "read_ct"}))

		jobs, err := q.Read(context.Background(), 10, 60)
		assert.NoError(t, err)
		assert.Empty(t, jobs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	q := NewPostgresQueue(db)

	t.Run("Deletes by id batch", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM embedding_jobs WHERE msg_id = ANY($1)`)).
			WithArgs(pq.Array([]int64{7, 9})).
			WillReturnResult(sqlmock.NewResult(0, 2))

		err := q.Delete(context.Background(), []int64{7, 9})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty ack set is a no-op", func(t *testing.T) {
		err := q.Delete(context.Background(), nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
