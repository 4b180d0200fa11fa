package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Gin_postgres_redis_hvac_inventory/models"
)

func TestFetchAll(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/items" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		json.NewEncoder(w).Encode(map[string]any{"items": []models.Item{
			{ID: "a", Model: "EX22CN", Status: models.StatusStock, UpdatedAt: now},
		}})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	items, err := c.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestFetchAllRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 直接关掉模拟断网

	c := New(srv.URL, "")
	if _, err := c.FetchAll(context.Background()); !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestFetchAllAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad")
	if _, err := c.FetchAll(context.Background()); !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("expected ErrRemoteUnavailable on 401, got %v", err)
	}
}

func TestUpsertReturnsCanonicalRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/items" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var in models.Item
		json.NewDecoder(r.Body).Decode(&in)
		in.UpdatedAt = time.Now().UTC() // 远端确认时间戳
		json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	saved, err := c.Upsert(context.Background(), models.Item{ID: "a", Model: "EX22CN", Status: models.StatusStock})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if saved.ID != "a" || saved.UpdatedAt.IsZero() {
		t.Errorf("expected canonical row back, got %+v", saved)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if err := c.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("delete of absent id must not error, got %v", err)
	}
}

func TestSubscribeDeliversEvents(t *testing.T) {
	events := []models.ChangeEvent{
		{Type: models.EventInsert, Item: models.Item{ID: "a", Model: "EX22CN", Status: models.StatusStock}},
		{Type: models.EventUpdate, Item: models.Item{ID: "a", Model: "EX22CN", Status: models.StatusReserved}},
		{Type: models.EventDelete, Item: models.Item{ID: "a"}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/items/events" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl := w.(http.Flusher)
		for _, ev := range events {
			raw, _ := json.Marshal(ev)
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", raw)
			fl.Flush()
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	got := make(chan models.ChangeEvent, 8)
	stop, err := c.Subscribe(context.Background(), func(ev models.ChangeEvent) { got <- ev })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	for i, want := range events {
		select {
		case ev := <-got:
			if ev.Type != want.Type || ev.Item.ID != want.Item.ID {
				t.Errorf("event %d: got %v %q, want %v %q", i, ev.Type, ev.Item.ID, want.Type, want.Item.ID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestSubscribeStopEndsDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	stop, err := c.Subscribe(context.Background(), func(models.ChangeEvent) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	done := make(chan struct{})
	go func() { stop(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not release the subscription")
	}
}

func TestSubscribeAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.Subscribe(context.Background(), func(models.ChangeEvent) {}); !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("expected ErrRemoteUnavailable, got %v", err)
	}
}
