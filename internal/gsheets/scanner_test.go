package gsheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"preventivi/internal/tracker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fileJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listJSON struct {
	Files         []fileJSON `json:"files"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// fakeGoogle минимальный сервер Drive/Sheets для тестов
type fakeGoogle struct {
	mu       sync.Mutex
	shared   []string
	appended []string
	failList bool
}

func (f *fakeGoogle) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
			if f.failList {
				http.Error(w, `{"error":{"code":400,"message":"invalid query"}}`, http.StatusBadRequest)
				return
			}
			q := r.URL.Query().Get("q")
			page := r.URL.Query().Get("pageToken")
			writeJSON(t, w, f.list(q, page))

		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/permissions"):
			parts := strings.Split(r.URL.Path, "/")
			f.shared = append(f.shared, parts[len(parts)-2])
			writeJSON(t, w, map[string]string{"id": "anyoneWithLink", "type": "anyone", "role": "reader"})

		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, ":append"):
			body, _ := io.ReadAll(r.Body)
			f.appended = append(f.appended, string(body))
			writeJSON(t, w, map[string]string{"spreadsheetId": "sheet1"})

		default:
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	})
}

func (f *fakeGoogle) list(q, page string) listJSON {
	switch {
	case strings.Contains(q, "name = 'PreventiviTelegram'"):
		return listJSON{Files: []fileJSON{{ID: "root", Name: "PreventiviTelegram"}}}
	case strings.Contains(q, "'root' in parents"):
		return listJSON{Files: []fileJSON{
			{ID: "g1", Name: "gruppo_-1001234"},
			{ID: "g2", Name: "gruppo_abc"},
			{ID: "g3", Name: "Archivio"},
			{ID: "g4", Name: "gruppo_55"},
		}}
	case strings.Contains(q, "'g1' in parents") && page == "":
		return listJSON{Files: []fileJSON{{ID: "q1", Name: "Cucina Rossi"}}, NextPageToken: "p2"}
	case strings.Contains(q, "'g1' in parents") && page == "p2":
		return listJSON{Files: []fileJSON{{ID: "q2", Name: "Bagno Bianchi"}}}
	case strings.Contains(q, "'g4' in parents"):
		return listJSON{Files: []fileJSON{{ID: "q_3", Name: "Tetto"}}}
	}
	return listJSON{}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode: %v", err)
	}
}

func newTestClient(t *testing.T, f *fakeGoogle) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewClientWithOptions(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return client
}

func TestScanner_Scan(t *testing.T) {
	f := &fakeGoogle{}
	s := NewScanner(newTestClient(t, f), "", "PreventiviTelegram", zerolog.Nop())

	sources, err := s.Scan(context.Background())
	require.NoError(t, err)

	want := []tracker.Source{
		{Key: tracker.Key{Recipient: -1001234, SourceID: "q1"}, Label: "Cucina Rossi", Reference: FolderURL("q1")},
		{Key: tracker.Key{Recipient: -1001234, SourceID: "q2"}, Label: "Bagno Bianchi", Reference: FolderURL("q2")},
		{Key: tracker.Key{Recipient: 55, SourceID: "q_3"}, Label: "Tetto", Reference: FolderURL("q_3")},
	}
	assert.Equal(t, want, sources)
}

func TestScanner_ScanByRootID(t *testing.T) {
	f := &fakeGoogle{}
	s := NewScanner(newTestClient(t, f), "root", "", zerolog.Nop())

	sources, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, sources, 3)
}

func TestScanner_ScanError(t *testing.T) {
	f := &fakeGoogle{failList: true}
	s := NewScanner(newTestClient(t, f), "", "PreventiviTelegram", zerolog.Nop())

	_, err := s.Scan(context.Background())
	var scanErr *tracker.ScanError
	require.True(t, errors.As(err, &scanErr))
	assert.Equal(t, "root", scanErr.Stage)
}

func TestScanner_RootNotFound(t *testing.T) {
	f := &fakeGoogle{}
	s := NewScanner(newTestClient(t, f), "", "Altro", zerolog.Nop())

	_, err := s.Scan(context.Background())
	assert.ErrorContains(t, err, "Altro")
}

func TestScanner_Share(t *testing.T) {
	f := &fakeGoogle{}
	s := NewScanner(newTestClient(t, f), "root", "", zerolog.Nop())

	require.NoError(t, s.Share(context.Background(), "q1"))
	assert.Equal(t, []string{"q1"}, f.shared)
}

func TestJournal_Record(t *testing.T) {
	f := &fakeGoogle{}
	j := NewJournal(newTestClient(t, f), "sheet1", "")

	e := tracker.Entry{
		ID: "e-1",
		At: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Item: tracker.Item{
			Key:       tracker.Key{Recipient: -100, SourceID: "q1"},
			Label:     "Cucina",
			Reference: FolderURL("q1"),
			State:     tracker.StateConfirmed,
		},
	}
	require.NoError(t, j.Record(context.Background(), e))

	require.Len(t, f.appended, 1)
	assert.Contains(t, f.appended[0], "✅ Confermato")
	assert.Contains(t, f.appended[0], "2026-03-02 09:30:00")
	assert.Contains(t, f.appended[0], `"-100"`)
}

func TestParseGroupFolder(t *testing.T) {
	tests := []struct {
		name   string
		want   int64
		wantOK bool
	}{
		{name: "gruppo_-1001234567890", want: -1001234567890, wantOK: true},
		{name: "gruppo_42", want: 42, wantOK: true},
		{name: " gruppo_7 ", want: 7, wantOK: true},
		{name: "gruppo_", wantOK: false},
		{name: "gruppo_0", wantOK: false},
		{name: "gruppo_abc", wantOK: false},
		{name: "Gruppo_42", wantOK: false},
		{name: "archivio", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseGroupFolder(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, StatusPending, StatusText(tracker.StatePending))
	assert.Equal(t, StatusConfirmed, StatusText(tracker.StateConfirmed))
	assert.Equal(t, StatusExpired, StatusText(tracker.StateExpired))
}
