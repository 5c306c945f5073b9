package queue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tickerspark/archive/internal/queue"
	"tickerspark/archive/internal/testutils"
)

func TestPostgresQueue_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	q := queue.NewPostgresQueue(s.DB)
	ctx := context.Background()

	// 1. Send and read back
	err := q.Send(ctx, []string{"doc-a", "doc-b", "doc-c"})
	require.NoError(t, err)

	jobs, err := q.Read(ctx, 2, 300)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	assert.Equal(t, "doc-a", jobs[0].DocumentID)
	assert.Equal(t, 1, jobs[0].ReadCount)

	// 2. Claimed jobs are hidden from a second reader
	more, err := q.Read(ctx, 10, 300)
	require.NoError(t, err)
	assert.Len(t, more, 1)
	assert.Equal(t, "doc-c", more[0].DocumentID)

	// 3. A zero visibility timeout makes redelivery immediate
	redelivered, err := q.Read(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, redelivered, 3)
	for _, j := range redelivered {
		assert.GreaterOrEqual(t, j.ReadCount, 1)
	}

	// 4. Batch delete acknowledges everything
	var ids []int64
	for _, j := range redelivered {
		ids = append(ids, j.MsgID)
	}
	require.NoError(t, q.Delete(ctx, ids))

	empty, err := q.Read(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
