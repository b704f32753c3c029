package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/elonfeng/socialstore/internal/scheduler"
	"github.com/elonfeng/socialstore/internal/store"
	"github.com/elonfeng/socialstore/pkg/media"
	"github.com/gin-gonic/gin"
)

type fakeCollector struct {
	tags      []string
	usernames []string
	all       bool
}

func (f *fakeCollector) CollectAll(ctx context.Context) []scheduler.Result {
	f.all = true
	return []scheduler.Result{{Searcher: "fake", Target: "#car", Fetched: 3, Inserted: 2, Skipped: 1}}
}

func (f *fakeCollector) Collect(ctx context.Context, tags, usernames []string) []scheduler.Result {
	f.tags, f.usernames = tags, usernames
	return []scheduler.Result{{Searcher: "fake", Target: "@zeus", Fetched: 1, Inserted: 1}}
}

type mediaResponse struct {
	Data  []media.Item `json:"data"`
	Count int          `json:"count"`
}

// setupTestServer seeds a fresh SQLite store with items at createdAt
// 100, 150 and 200.
func setupTestServer(t *testing.T) (*Server, *store.SQLStore, *fakeCollector) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open(context.Background(), store.Options{
		DSN:     filepath.Join(t.TempDir(), "media.db"),
		Migrate: true,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	seed := []struct {
		id   string
		src  media.SourceType
		user string
		at   int64
		tags []string
	}{
		{"123", media.SourceInstagram, "kunkka", 100, []string{"car", "boat"}},
		{"456", media.SourceTwitter, "omniknight", 150, []string{"car", "horse"}},
		{"600", media.SourceTwitter, "zeus", 200, []string{"car", "bike"}},
	}
	var items []media.Item
	for _, s := range seed {
		m := media.New(s.src)
		m.OriginalID = s.id
		m.Username = s.user
		m.CreatedAt = s.at
		m.Tags = s.tags
		m.URL = "url"
		items = append(items, m)
	}
	if r := db.Insert(context.Background(), items); r.Inserted != 3 {
		t.Fatalf("seeded %d items, want 3", r.Inserted)
	}

	col := &fakeCollector{}
	return New(db, col, 0, nil), db, col
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _, _ := setupTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHandleMedia(t *testing.T) {
	s, _, _ := setupTestServer(t)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"unfiltered", "/api/v1/media", []string{"600", "456", "123"}},
		{"tags", "/api/v1/media?tag=horse&tag=bike", []string{"600", "456"}},
		{"since and tag", "/api/v1/media?tag=car&since=149", []string{"600", "456"}},
		{"until with count", "/api/v1/media?until=170&count=1", []string{"456"}},
		{"usernames", "/api/v1/media?username=kunkka&username=omniknight", []string{"456", "123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodGet, tt.target, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
			}
			var resp mediaResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			var got []string
			for _, it := range resp.Data {
				got = append(got, it.OriginalID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if resp.Count != len(tt.want) {
				t.Errorf("count = %d, want %d", resp.Count, len(tt.want))
			}
		})
	}
}

func TestHandleMediaIncludesTags(t *testing.T) {
	s, _, _ := setupTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/v1/media?tag=boat", "")

	var resp mediaResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 || !reflect.DeepEqual(resp.Data[0].Tags, []string{"car", "boat"}) {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestHandleMediaBadParams(t *testing.T) {
	s, _, _ := setupTestServer(t)
	for _, target := range []string{
		"/api/v1/media?since=yesterday",
		"/api/v1/media?until=1.5",
		"/api/v1/media?count=many",
	} {
		if w := doRequest(t, s, http.MethodGet, target, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestHandleSetActive(t *testing.T) {
	s, db, _ := setupTestServer(t)

	all, err := db.Query(context.Background(), media.Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	id := all[0].ID

	w := doRequest(t, s, http.MethodPost, "/api/v1/media/"+strconv.FormatInt(id, 10)+"/deactivate", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("deactivate status = %d, body: %s", w.Code, w.Body.String())
	}
	remaining, _ := db.Query(context.Background(), media.Query{})
	if len(remaining) != 2 {
		t.Errorf("got %d active items, want 2", len(remaining))
	}

	if w := doRequest(t, s, http.MethodPost, "/api/v1/media/"+strconv.FormatInt(id, 10)+"/activate", ""); w.Code != http.StatusNoContent {
		t.Errorf("activate status = %d", w.Code)
	}
	if w := doRequest(t, s, http.MethodPost, "/api/v1/media/9999/deactivate", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
	if w := doRequest(t, s, http.MethodPost, "/api/v1/media/abc/deactivate", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestHandleSources(t *testing.T) {
	s, _, _ := setupTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/api/v1/sources", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Data []struct {
			Name  string `json:"name"`
			Items int    `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := map[string]int{}
	for _, d := range resp.Data {
		got[d.Name] = d.Items
	}
	want := map[string]int{"instagram": 1, "twitter": 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestHandleCollect(t *testing.T) {
	t.Run("configured targets", func(t *testing.T) {
		s, _, col := setupTestServer(t)
		w := doRequest(t, s, http.MethodPost, "/api/v1/collect", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !col.all {
			t.Error("CollectAll not called")
		}
		if !strings.Contains(w.Body.String(), `"inserted":2`) {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("explicit targets", func(t *testing.T) {
		s, _, col := setupTestServer(t)
		w := doRequest(t, s, http.MethodPost, "/api/v1/collect", `{"usernames":["zeus"]}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if col.all || !reflect.DeepEqual(col.usernames, []string{"zeus"}) {
			t.Errorf("collector state = %+v", col)
		}
	})

	t.Run("chunked body", func(t *testing.T) {
		s, _, col := setupTestServer(t)
		// A reader of unknown length leaves ContentLength at -1.
		body := io.MultiReader(strings.NewReader(`{"tags":["bike"]}`))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/collect", body)
		req.Header.Set("Content-Type", "application/json")
		if req.ContentLength != -1 {
			t.Fatalf("content length = %d, want -1", req.ContentLength)
		}
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
		}
		if col.all || !reflect.DeepEqual(col.tags, []string{"bike"}) {
			t.Errorf("collector state = %+v", col)
		}
	})

	t.Run("empty chunked body", func(t *testing.T) {
		s, _, col := setupTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/collect", io.MultiReader())
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
		}
		if !col.all {
			t.Error("CollectAll not called")
		}
	})

	t.Run("bad body", func(t *testing.T) {
		s, _, _ := setupTestServer(t)
		if w := doRequest(t, s, http.MethodPost, "/api/v1/collect", `{"tags":`); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestStoreFaultIs500(t *testing.T) {
	s, db, _ := setupTestServer(t)
	db.Close()
	if w := doRequest(t, s, http.MethodGet, "/api/v1/media", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
