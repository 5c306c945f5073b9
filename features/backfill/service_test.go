package backfill

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tickerspark/archive/features/ingest"
)

type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) IngestEntry(ctx context.Context, entry *ingest.Entry) (ingest.Outcome, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(ingest.Outcome), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cdaServer(t *testing.T, total int, entries ...map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-1", r.URL.Query().Get("access_token"))
		assert.NotEmpty(t, r.URL.Query().Get("sys.contentType.sys.id[in]"))

		resp := map[string]interface{}{
			"total": total,
			"skip":  0,
			"limit": len(entries),
			"items": entries,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func cdaEntry(id string) map[string]interface{} {
	return map[string]interface{}{
		"sys": map[string]interface{}{
			"id":          id,
			"contentType": map[string]interface{}{"sys": map[string]interface{}{"id": "macroUpdate"}},
			"updatedAt":   "2025-01-01T00:00:00Z",
		},
		"fields": map[string]interface{}{},
	}
}

func TestRunPage_WalksAndReportsNextSkip(t *testing.T) {
	srv := cdaServer(t, 5, cdaEntry("e1"), cdaEntry("e2"))
	defer srv.Close()

	client := NewClient("space-1", "token-1", "master").WithBaseURL(srv.URL)
	ingestor := new(MockIngestor)
	ingestor.On("IngestEntry", mock.Anything, mock.Anything).
		Return(ingest.Outcome{Action: ingest.ActionIngested, Chunks: 3}, nil)

	svc := NewService(client, ingestor, testLogger())
	report, err := svc.RunPage(context.Background(), 0, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 6, report.InsertedChunks)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 2, report.NextSkip)
	assert.Empty(t, report.Message)
	ingestor.AssertNumberOfCalls(t, "IngestEntry", 2)
}

func TestRunPage_LastPageSignalsCompletion(t *testing.T) {
	srv := cdaServer(t, 2, cdaEntry("e1"), cdaEntry("e2"))
	defer srv.Close()

	client := NewClient("space-1", "token-1", "master").WithBaseURL(srv.URL)
	ingestor := new(MockIngestor)
	ingestor.On("IngestEntry", mock.Anything, mock.Anything).
		Return(ingest.Outcome{Action: ingest.ActionSkipped, Reason: "empty body"}, nil)

	svc := NewService(client, ingestor, testLogger())
	report, err := svc.RunPage(context.Background(), 0, 25)
	require.NoError(t, err)

	assert.Equal(t, -1, report.NextSkip)
	assert.Equal(t, "backfill complete", report.Message)
	assert.Equal(t, 2, report.Skipped)
}

func TestRunPage_MissingCredentials(t *testing.T) {
	client := NewClient("", "", "master")
	svc := NewService(client, new(MockIngestor), testLogger())

	_, err := svc.RunPage(context.Background(), 0, 25)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials")
}

func TestRunPage_EntryFailureDoesNotAbortPage(t *testing.T) {
	srv := cdaServer(t, 2, cdaEntry("bad"), cdaEntry("good"))
	defer srv.Close()

	client := NewClient("space-1", "token-1", "master").WithBaseURL(srv.URL)
	ingestor := new(MockIngestor)
	ingestor.On("IngestEntry", mock.Anything, mock.MatchedBy(func(e *ingest.Entry) bool {
		return e.Sys.ID == "bad"
	})).Return(ingest.Outcome{}, assert.AnError)
	ingestor.On("IngestEntry", mock.Anything, mock.MatchedBy(func(e *ingest.Entry) bool {
		return e.Sys.ID == "good"
	})).Return(ingest.Outcome{Action: ingest.ActionIngested, Chunks: 1}, nil)

	svc := NewService(client, ingestor, testLogger())
	report, err := svc.RunPage(context.Background(), 0, 25)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.InsertedChunks)
}

func TestFetchEntries_NonSuccessStatusIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid token"}`))
	}))
	defer srv.Close()

	client := NewClient("space-1", "token-1", "master").WithBaseURL(srv.URL)
	_, err := client.FetchEntries(context.Background(), []string{"macroUpdate"}, 0, 25)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid token")
}
