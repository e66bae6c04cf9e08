package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/mailexport/internal/logging"
)

// fakeGmail serves the subset of the Gmail REST API used by Client.
type fakeGmail struct {
	mu       sync.Mutex
	listReqs []map[string][]string
	getReqs  []map[string][]string

	labels   []map[string]string
	pages    map[string]map[string]interface{} // keyed by page token
	messages map[string]map[string]interface{}
}

func (f *fakeGmail) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/labels", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, map[string]interface{}{"labels": f.labels})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.listReqs = append(f.listReqs, r.URL.Query())
		f.mu.Unlock()

		page, ok := f.pages[r.URL.Query().Get("pageToken")]
		if !ok {
			http.Error(w, `{"error":{"code":400,"message":"bad page token"}}`, http.StatusBadRequest)
			return
		}
		writeJSONResponse(w, page)
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.getReqs = append(f.getReqs, r.URL.Query())
		f.mu.Unlock()

		msg, ok := f.messages[r.PathValue("id")]
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
			return
		}
		writeJSONResponse(w, msg)
	})
	return mux
}

func (f *fakeGmail) lists() []map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string][]string(nil), f.listReqs...)
}

func (f *fakeGmail) gets() []map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string][]string(nil), f.getReqs...)
}

func writeJSONResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeGmail) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func TestListLabels(t *testing.T) {
	c := newTestClient(t, &fakeGmail{
		labels: []map[string]string{
			{"id": "INBOX", "name": "INBOX", "type": "system"},
			{"id": "Label_1", "name": "Work", "type": "user"},
		},
	})

	labels, err := c.ListLabels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Label{
		{ID: "INBOX", Name: "INBOX", Type: "system"},
		{ID: "Label_1", Name: "Work", Type: "user"},
	}, labels)
}

func TestResolveLabelIDs(t *testing.T) {
	f := &fakeGmail{
		labels: []map[string]string{
			{"id": "INBOX", "name": "INBOX", "type": "system"},
			{"id": "L1", "name": "Work", "type": "user"},
			{"id": "L2", "name": "Receipts", "type": "user"},
		},
	}

	tests := []struct {
		name        string
		requested   []string
		expected    []string
		wantWarning bool
	}{
		{
			name:      "exact match",
			requested: []string{"Work"},
			expected:  []string{"L1"},
		},
		{
			name:      "case insensitive",
			requested: []string{"work", "RECEIPTS", "inbox"},
			expected:  []string{"L1", "L2", "INBOX"},
		},
		{
			name:        "missing label warns and keeps matches",
			requested:   []string{"Work", "Missing"},
			expected:    []string{"L1"},
			wantWarning: true,
		},
		{
			name:        "nothing matches",
			requested:   []string{"Nope"},
			expected:    []string{},
			wantWarning: true,
		},
		{
			name:      "duplicates collapse",
			requested: []string{"Work", "work"},
			expected:  []string{"L1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))
			c := newTestClient(t, f).WithLogger(logger)

			ids, err := c.ResolveLabelIDs(context.Background(), tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids)

			if tt.wantWarning {
				assert.Contains(t, buf.String(), "Some labels were not found")
				assert.Contains(t, buf.String(), "level=WARN")
			} else {
				assert.NotContains(t, buf.String(), "level=WARN")
			}
		})
	}

	t.Run("warning names the missing labels", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))
		c := newTestClient(t, f).WithLogger(logger)

		_, err := c.ResolveLabelIDs(context.Background(), []string{"Work", "Missing", "Gone"})
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "missing=Missing,Gone")
		assert.Contains(t, buf.String(), "requested=3")
		assert.Contains(t, buf.String(), "found=1")
	})
}

func TestSearchMessages(t *testing.T) {
	f := &fakeGmail{
		pages: map[string]map[string]interface{}{
			"": {
				"messages": []map[string]string{
					{"id": "m1", "threadId": "t1"},
					{"id": "m2", "threadId": "t1"},
				},
				"nextPageToken":      "A",
				"resultSizeEstimate": 3,
			},
			"A": {
				"messages":           []map[string]string{{"id": "m3", "threadId": "t2"}},
				"resultSizeEstimate": 3,
			},
		},
	}
	c := newTestClient(t, f)
	ctx := context.Background()

	page, err := c.SearchMessages(ctx, SearchRequest{
		LabelIDs: []string{"L1", "L2"},
		PageSize: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, []MessageRef{{ID: "m1", ThreadID: "t1"}, {ID: "m2", ThreadID: "t1"}}, page.Messages)
	assert.Equal(t, "A", page.NextPageToken)
	assert.Equal(t, int64(3), page.ResultSizeEstimate)

	page, err = c.SearchMessages(ctx, SearchRequest{
		LabelIDs:  []string{"L1", "L2"},
		PageToken: page.NextPageToken,
	})
	require.NoError(t, err)
	assert.Equal(t, []MessageRef{{ID: "m3", ThreadID: "t2"}}, page.Messages)
	assert.Empty(t, page.NextPageToken)

	lists := f.lists()
	require.Len(t, lists, 2)
	assert.Equal(t, []string{"L1", "L2"}, lists[0]["labelIds"])
	assert.Equal(t, []string{"50"}, lists[0]["maxResults"])
	assert.Empty(t, lists[0]["q"])
	assert.Empty(t, lists[0]["pageToken"])
	assert.Equal(t, []string{"L1", "L2"}, lists[1]["labelIds"])
	assert.Equal(t, []string{"A"}, lists[1]["pageToken"])
	assert.Empty(t, lists[1]["maxResults"])
}

func TestSearchMessages_Query(t *testing.T) {
	f := &fakeGmail{
		pages: map[string]map[string]interface{}{
			"": {"resultSizeEstimate": 0},
		},
	}
	c := newTestClient(t, f)

	page, err := c.SearchMessages(context.Background(), SearchRequest{Query: "from:alice newer_than:7d"})
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.Empty(t, page.NextPageToken)

	lists := f.lists()
	require.Len(t, lists, 1)
	assert.Equal(t, []string{"from:alice newer_than:7d"}, lists[0]["q"])
	assert.Empty(t, lists[0]["labelIds"])
}

func TestSearchMessages_Error(t *testing.T) {
	c := newTestClient(t, &fakeGmail{pages: map[string]map[string]interface{}{}})

	_, err := c.SearchMessages(context.Background(), SearchRequest{PageToken: "bogus"})
	require.Error(t, err)

	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
}

func TestGetMessageMetadata(t *testing.T) {
	f := &fakeGmail{
		messages: map[string]map[string]interface{}{
			"m1": {
				"id":           "m1",
				"threadId":     "t1",
				"labelIds":     []string{"INBOX", "L1"},
				"internalDate": "1700000000123",
				"payload": map[string]interface{}{
					"headers": []map[string]string{
						{"name": "From", "value": `"Alice Smith" <alice@example.com>`},
						{"name": "Subject", "value": "Hello"},
						{"name": "From", "value": "second@example.com"},
					},
				},
			},
			"m2": {"id": "m2", "threadId": "t2", "internalDate": "0"},
		},
	}
	c := newTestClient(t, f)
	ctx := context.Background()

	meta, err := c.GetMessageMetadata(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", meta.ID)
	assert.Equal(t, "t1", meta.ThreadID)
	assert.Equal(t, []string{"INBOX", "L1"}, meta.LabelIDs)
	assert.Equal(t, "1700000000123", meta.InternalDate)
	require.Len(t, meta.Headers, 3)

	from, ok := meta.HeaderValue("From")
	assert.True(t, ok)
	assert.Equal(t, `"Alice Smith" <alice@example.com>`, from, "first header wins")

	gets := f.gets()
	require.Len(t, gets, 1)
	assert.Equal(t, []string{"metadata"}, gets[0]["format"])
	assert.Equal(t, MetadataHeaders, gets[0]["metadataHeaders"])

	meta, err = c.GetMessageMetadata(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, "0", meta.InternalDate, "epoch is a real timestamp")
	assert.Empty(t, meta.Headers)

	_, err = c.GetMessageMetadata(ctx, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
