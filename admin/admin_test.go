package admin

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/always-cache/webproxy/cache"
	"github.com/always-cache/webproxy/journal"

	"github.com/rs/zerolog"
)

var testLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.InfoLevel)

func newTestRouter(t *testing.T) (http.Handler, *cache.ObjectCache, *journal.SQLiteJournal) {
	t.Helper()
	c := cache.NewObjectCache(4, 100)
	j, err := journal.NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { j.Close() })
	return NewRouter(c, j, testLogger), c, j
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("GET", path, nil)
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestRouter(t)
	rr := get(t, h, "/healthz")
	if body, _ := io.ReadAll(rr.Result().Body); rr.Code != http.StatusOK || string(body) != "ok" {
		t.Fatalf("Got %d %s", rr.Code, body)
	}
}

func TestCacheEntriesAndStats(t *testing.T) {
	h, c, _ := newTestRouter(t)
	c.Put("http://example.com/a", []byte("aaa"))
	c.Put("http://example.com/b", []byte("bb"))
	c.Get("http://example.com/a")
	c.Get("http://example.com/missing")

	var entries []cache.Entry
	if err := json.NewDecoder(get(t, h, "/cache").Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Key != "http://example.com/a" || entries[1].Size != 2 {
		t.Fatalf("Entries are %+v", entries)
	}

	var stats statsResponse
	if err := json.NewDecoder(get(t, h, "/cache/stats").Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Hits != 1 || stats.Misses != 1 || stats.Stores != 2 || stats.HitRatio != 0.5 || stats.Capacity != 4 {
		t.Fatalf("Stats are %+v", stats)
	}
}

func TestTransactions(t *testing.T) {
	h, _, j := newTestRouter(t)
	start := time.Now()
	for i, status := range []int{200, 200, 502} {
		j.Record(journal.Entry{
			ID:        fmt.Sprintf("txn-%d", i),
			StartedAt: start.Add(time.Duration(i) * time.Millisecond),
			Status:    status,
		})
	}

	var entries []journal.Entry
	if err := json.NewDecoder(get(t, h, "/transactions?limit=2").Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].ID != "txn-2" {
		t.Fatalf("Entries are %+v", entries)
	}

	var counts map[string]int
	if err := json.NewDecoder(get(t, h, "/transactions/status").Body).Decode(&counts); err != nil {
		t.Fatal(err)
	}
	if counts["200"] != 2 || counts["502"] != 1 {
		t.Fatalf("Counts are %v", counts)
	}

	if rr := get(t, h, "/transactions?limit=nope"); rr.Code != http.StatusBadRequest {
		t.Fatalf("Invalid limit got %d", rr.Code)
	}
}

func TestTransactionsWithoutJournal(t *testing.T) {
	h := NewRouter(cache.NewObjectCache(1, 1), nil, testLogger)
	if rr := get(t, h, "/transactions"); rr.Code != http.StatusNotFound {
		t.Fatalf("Got %d", rr.Code)
	}
}
