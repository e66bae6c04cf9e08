package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailexport/internal/gmail"
	"github.com/teemow/mailexport/internal/logging"
)

type fakeClient struct {
	labels   map[string]string // lowercase name -> id
	pages    map[string]*gmail.SearchPage
	messages map[string]*gmail.MessageMeta

	listErr error
	getErr  map[string]error

	resolveCalls [][]string
	searchCalls  []gmail.SearchRequest
	getCalls     []string
}

func (f *fakeClient) ResolveLabelIDs(ctx context.Context, names []string) ([]string, error) {
	f.resolveCalls = append(f.resolveCalls, names)
	var ids []string
	for _, n := range names {
		if id, ok := f.labels[strings.ToLower(n)]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeClient) SearchMessages(ctx context.Context, req gmail.SearchRequest) (*gmail.SearchPage, error) {
	f.searchCalls = append(f.searchCalls, req)
	if f.listErr != nil {
		return nil, f.listErr
	}
	page, ok := f.pages[req.PageToken]
	if !ok {
		return nil, fmt.Errorf("unexpected page token %q", req.PageToken)
	}
	return page, nil
}

func (f *fakeClient) GetMessageMetadata(ctx context.Context, id string) (*gmail.MessageMeta, error) {
	f.getCalls = append(f.getCalls, id)
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	meta, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("unknown message %s", id)
	}
	return meta, nil
}

func message(id, from, subject string) *gmail.MessageMeta {
	m := &gmail.MessageMeta{ID: id, InternalDate: "1700000000123"}
	if from != "" {
		m.Headers = append(m.Headers, gmail.Header{Name: "From", Value: from})
	}
	if subject != "" {
		m.Headers = append(m.Headers, gmail.Header{Name: "Subject", Value: subject})
	}
	return m
}

// threePages serves pages "", "A", "B" with two messages each.
func threePages() *fakeClient {
	f := &fakeClient{
		labels: map[string]string{"work": "L1"},
		pages: map[string]*gmail.SearchPage{
			"":  {Messages: []gmail.MessageRef{{ID: "m1"}, {ID: "m2"}}, NextPageToken: "A", ResultSizeEstimate: 6},
			"A": {Messages: []gmail.MessageRef{{ID: "m3"}, {ID: "m4"}}, NextPageToken: "B", ResultSizeEstimate: 6},
			"B": {Messages: []gmail.MessageRef{{ID: "m5"}, {ID: "m6"}}, ResultSizeEstimate: 6},
		},
		messages: map[string]*gmail.MessageMeta{},
	}
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("m%d", i)
		f.messages[id] = message(id, fmt.Sprintf(`"User %d" <user%d@example.com>`, i, i), fmt.Sprintf("Subject %d", i))
	}
	return f
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRun_Paginates(t *testing.T) {
	f := threePages()
	var out bytes.Buffer

	stats, err := NewExporter(f, nil, nil).Run(context.Background(), &out, Options{
		Filter:   Filter{Labels: []string{"Work"}},
		PageSize: 2,
		Location: time.UTC,
	})
	require.NoError(t, err)

	assert.Len(t, f.searchCalls, 3)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4", "m5", "m6"}, f.getCalls)
	assert.Equal(t, Stats{Rows: 6, Pages: 3, Estimate: 6}, stats)

	records := readCSV(t, out.Bytes())
	require.Len(t, records, 7)
	assert.Equal(t, []string{"First name", "Last name", "Email", "Subject", "Time"}, records[0])
	assert.Equal(t, []string{"User", "1", "user1@example.com", "Subject 1", "2023/11/14 22:13:20"}, records[1])
	assert.Equal(t, []string{"User", "6", "user6@example.com", "Subject 6", "2023/11/14 22:13:20"}, records[6])
	assert.Equal(t, 7, strings.Count(out.String(), "\r\n"))
}

func TestRun_FilterKeptAcrossPages(t *testing.T) {
	t.Run("labels", func(t *testing.T) {
		f := threePages()
		_, err := NewExporter(f, nil, nil).Run(context.Background(), &bytes.Buffer{}, Options{
			Filter:   Filter{Labels: []string{"work"}},
			PageSize: 2,
		})
		require.NoError(t, err)

		require.Len(t, f.searchCalls, 3)
		for i, token := range []string{"", "A", "B"} {
			assert.Equal(t, gmail.SearchRequest{LabelIDs: []string{"L1"}, PageToken: token, PageSize: 2}, f.searchCalls[i])
		}
		assert.Equal(t, [][]string{{"work"}}, f.resolveCalls)
	})

	t.Run("query", func(t *testing.T) {
		f := threePages()
		_, err := NewExporter(f, nil, nil).Run(context.Background(), &bytes.Buffer{}, Options{
			Filter: Filter{Query: "from:boss"},
		})
		require.NoError(t, err)

		require.Len(t, f.searchCalls, 3)
		for _, req := range f.searchCalls {
			assert.Equal(t, "from:boss", req.Query)
			assert.Empty(t, req.LabelIDs)
		}
		assert.Empty(t, f.resolveCalls)
	})
}

func TestRun_EmptyResult(t *testing.T) {
	f := &fakeClient{
		pages: map[string]*gmail.SearchPage{"": {}},
	}
	var out bytes.Buffer

	stats, err := NewExporter(f, nil, nil).Run(context.Background(), &out, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Rows)
	assert.Equal(t, 1, stats.Pages)
	assert.Empty(t, f.getCalls)
	assert.Equal(t, "First name,Last name,Email,Subject,Time\r\n", out.String())
}

func TestRun_SendersShape(t *testing.T) {
	f := &fakeClient{
		pages: map[string]*gmail.SearchPage{
			"": {Messages: []gmail.MessageRef{{ID: "m1"}, {ID: "m2"}}},
		},
		messages: map[string]*gmail.MessageMeta{
			"m1": message("m1", `"Alice Smith" <alice@example.com>`, "Hello, world"),
			"m2": message("m2", "bob@example.com", ""),
		},
	}
	var out bytes.Buffer

	stats, err := NewExporter(f, nil, nil).Run(context.Background(), &out, Options{Shape: Senders})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 1, stats.Anomalies)

	assert.Equal(t, [][]string{
		{"From", "Subject"},
		{`"Alice Smith" <alice@example.com>`, "Hello, world"},
		{"bob@example.com", "<unknown subject>"},
	}, readCSV(t, out.Bytes()))
}

func TestRun_SkipsMessagesWithoutFrom(t *testing.T) {
	f := &fakeClient{
		pages: map[string]*gmail.SearchPage{
			"": {Messages: []gmail.MessageRef{{ID: "m1"}, {ID: "m2"}, {ID: "m3"}}},
		},
		messages: map[string]*gmail.MessageMeta{
			"m1": message("m1", "a@example.com", "one"),
			"m2": message("m2", "", "no sender"),
			"m3": message("m3", "c@example.com", "three"),
		},
	}
	var out, logs bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&logs, nil)))

	stats, err := NewExporter(f, logger, nil).Run(context.Background(), &out, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 1, stats.Skipped)
	assert.Len(t, readCSV(t, out.Bytes()), 3)
	assert.Contains(t, logs.String(), "Skipping message without From header")
	assert.Contains(t, logs.String(), "message_id=m2")
}

func TestRun_NoLabels(t *testing.T) {
	f := threePages()

	_, err := NewExporter(f, nil, nil).Run(context.Background(), &bytes.Buffer{}, Options{
		Filter: Filter{Labels: []string{"Missing"}},
	})
	assert.ErrorIs(t, err, ErrNoLabels)
	assert.Empty(t, f.searchCalls, "no search without a resolved label")
}

func TestRun_RemoteErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("search", func(t *testing.T) {
		f := threePages()
		f.listErr = boom

		var out bytes.Buffer
		stats, err := NewExporter(f, nil, nil).Run(context.Background(), &out, Options{})
		assert.ErrorIs(t, err, ErrRemote)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, stats.Rows)
		assert.Equal(t, "First name,Last name,Email,Subject,Time\r\n", out.String())
	})

	t.Run("metadata keeps earlier rows", func(t *testing.T) {
		f := threePages()
		f.getErr = map[string]error{"m4": boom}

		var out bytes.Buffer
		stats, err := NewExporter(f, nil, nil).Run(context.Background(), &out, Options{})
		assert.ErrorIs(t, err, ErrRemote)
		assert.Equal(t, 3, stats.Rows)
		assert.Equal(t, 2, stats.Pages)
		assert.Len(t, readCSV(t, out.Bytes()), 4)
	})
}

func TestRun_Cancelled(t *testing.T) {
	f := threePages()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := NewExporter(f, nil, nil).Run(ctx, &bytes.Buffer{}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Rows)
	assert.Empty(t, f.getCalls)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRun_WriteError(t *testing.T) {
	_, err := NewExporter(threePages(), nil, nil).Run(context.Background(), failingWriter{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NotErrorIs(t, err, ErrRemote)
}

func TestFilterKind(t *testing.T) {
	assert.Equal(t, FilterLabels, Filter{Labels: []string{"x"}, Query: "q"}.Kind())
	assert.Equal(t, FilterQuery, Filter{Query: "q"}.Kind())
	assert.Equal(t, FilterAll, Filter{}.Kind())
}
