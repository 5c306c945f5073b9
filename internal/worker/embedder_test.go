package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tickerspark/archive/internal/queue"
)

// --- Mocks ---

type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Read(ctx context.Context, batchSize, visibilitySeconds int) ([]queue.Job, error) {
	args := m.Called(ctx, batchSize, visibilitySeconds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]queue.Job), args.Error(1)
}

func (m *MockJobQueue) Delete(ctx context.Context, msgIDs []int64) error {
	args := m.Called(ctx, msgIDs)
	return args.Error(0)
}

type MockContentStore struct {
	mock.Mock
}

func (m *MockContentStore) GetContent(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockContentStore) SetEmbedding(ctx context.Context, id string, vector []float32) error {
	args := m.Called(ctx, id, vector)
	return args.Error(0)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func newTestRunner(jobs JobQueue, store ContentStore, embedder Embedder) *Runner {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRunner(jobs, store, embedder, 45, 300, logger)
}

// --- Tests ---

func TestRun_EmbedsAndAcksBatch(t *testing.T) {
	jobs := new(MockJobQueue)
	store := new(MockContentStore)
	embedder := new(MockEmbedder)
	runner := newTestRunner(jobs, store, embedder)

	batch := []queue.Job{
		{MsgID: 1, DocumentID: "chunk-a", ReadCount: 1},
		{MsgID: 2, DocumentID: "chunk-b", ReadCount: 1},
	}
	vec := []float32{0.1, 0.2}

	jobs.On("Read", mock.Anything, 45, 300).Return(batch, nil)
	store.On("GetContent", mock.Anything, "chunk-a").Return("text a", nil)
	store.On("GetContent", mock.Anything, "chunk-b").Return("text b", nil)
	embedder.On("Embed", mock.Anything, "text a").Return(vec, nil)
	embedder.On("Embed", mock.Anything, "text b").Return(vec, nil)
	store.On("SetEmbedding", mock.Anything, "chunk-a", vec).Return(nil)
	store.On("SetEmbedding", mock.Anything, "chunk-b", vec).Return(nil)
	jobs.On("Delete", mock.Anything, []int64{1, 2}).Return(nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Read: 2, Embedded: 2}, report)
	jobs.AssertExpectations(t)
}

func TestRun_MissingChunkIsAcked(t *testing.T) {
	jobs := new(MockJobQueue)
	store := new(MockContentStore)
	embedder := new(MockEmbedder)
	runner := newTestRunner(jobs, store, embedder)

	jobs.On("Read", mock.Anything, 45, 300).Return([]queue.Job{
		{MsgID: 7, DocumentID: "gone", ReadCount: 3},
	}, nil)
	store.On("GetContent", mock.Anything, "gone").Return("", ErrChunkNotFound)
	jobs.On("Delete", mock.Anything, []int64{7}).Return(nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Read: 1, Skipped: 1}, report)
	embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestRun_EmptyContentIsAcked(t *testing.T) {
	jobs := new(MockJobQueue)
	store := new(MockContentStore)
	embedder := new(MockEmbedder)
	runner := newTestRunner(jobs, store, embedder)

	jobs.On("Read", mock.Anything, 45, 300).Return([]queue.Job{
		{MsgID: 8, DocumentID: "empty"},
	}, nil)
	store.On("GetContent", mock.Anything, "empty").Return("", nil)
	jobs.On("Delete", mock.Anything, []int64{8}).Return(nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Read: 1, Skipped: 1}, report)
	embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestRun_EmbedFailureLeavesJobUnacked(t *testing.T) {
	jobs := new(MockJobQueue)
	store := new(MockContentStore)
	embedder := new(MockEmbedder)
	runner := newTestRunner(jobs, store, embedder)

	jobs.On("Read", mock.Anything, 45, 300).Return([]queue.Job{
		{MsgID: 1, DocumentID: "ok"},
		{MsgID: 2, DocumentID: "flaky"},
	}, nil)
	vec := []float32{0.5}
	store.On("GetContent", mock.Anything, "ok").Return("fine", nil)
	store.On("GetContent", mock.Anything, "flaky").Return("bad luck", nil)
	embedder.On("Embed", mock.Anything, "fine").Return(vec, nil)
	embedder.On("Embed", mock.Anything, "bad luck").Return(nil, errors.New("rate limited"))
	store.On("SetEmbedding", mock.Anything, "ok", vec).Return(nil)

	// Only the settled job gets acked. The failed one reappears after the
	// visibility timeout.
	jobs.On("Delete", mock.Anything, []int64{1}).Return(nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Read: 2, Embedded: 1, Failed: 1}, report)
	jobs.AssertExpectations(t)
}

func TestRun_StoreWriteFailureLeavesJobUnacked(t *testing.T) {
	jobs := new(MockJobQueue)
	store := new(MockContentStore)
	embedder := new(MockEmbedder)
	runner := newTestRunner(jobs, store, embedder)

	vec := []float32{0.5}
	jobs.On("Read", mock.Anything, 45, 300).Return([]queue.Job{
		{MsgID: 3, DocumentID: "chunk"},
	}, nil)
	store.On("GetContent", mock.Anything, "chunk").Return("text", nil)
	embedder.On("Embed", mock.Anything, "text").Return(vec, nil)
	store.On("SetEmbedding", mock.Anything, "chunk", vec).Return(errors.New("conflict"))

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Read: 1, Failed: 1}, report)
	jobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRun_EmptyQueue(t *testing.T) {
	jobs := new(MockJobQueue)
	runner := newTestRunner(jobs, new(MockContentStore), new(MockEmbedder))

	jobs.On("Read", mock.Anything, 45, 300).Return([]queue.Job{}, nil)

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	jobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
