package agent

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"Gin_postgres_redis_hvac_inventory/cache"
	"Gin_postgres_redis_hvac_inventory/models"
	"Gin_postgres_redis_hvac_inventory/scan"
	"Gin_postgres_redis_hvac_inventory/syncclient"
)

type fakeRemote struct {
	mu        sync.Mutex
	rows      map[string]models.Item
	fetchErr  error
	upsertErr error

	upserted chan models.Item
	deleted  chan string
	onEvent  func(models.ChangeEvent)
	stopped  bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		rows:     make(map[string]models.Item),
		upserted: make(chan models.Item, 16),
		deleted:  make(chan string, 16),
	}
}

func (f *fakeRemote) FetchAll(ctx context.Context) ([]models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]models.Item, 0, len(f.rows))
	for _, it := range f.rows {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeRemote) Upsert(ctx context.Context, it models.Item) (models.Item, error) {
	f.mu.Lock()
	if f.upsertErr != nil {
		err := f.upsertErr
		f.mu.Unlock()
		return models.Item{}, err
	}
	f.rows[it.ID] = it
	f.mu.Unlock()
	f.upserted <- it
	return it, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	delete(f.rows, id)
	f.mu.Unlock()
	f.deleted <- id
	return nil
}

func (f *fakeRemote) Subscribe(ctx context.Context, onEvent func(models.ChangeEvent)) (func(), error) {
	f.mu.Lock()
	f.onEvent = onEvent
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.stopped = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeRemote) push(ev models.ChangeEvent) {
	f.mu.Lock()
	fn := f.onEvent
	f.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func newAgent(t *testing.T, remote Remote) (*Agent, *cache.Store) {
	t.Helper()
	snap := cache.NewStore(cache.NewFileKV(t.TempDir()), "")
	return New(remote, snap, func(op string, err error) {}), snap
}

func waitFor(t *testing.T, ch chan models.Item) models.Item {
	t.Helper()
	select {
	case it := <-ch:
		return it
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for remote call")
		return models.Item{}
	}
}

func TestStartFallsBackToCacheWhenRemoteDown(t *testing.T) {
	remote := newFakeRemote()
	remote.fetchErr = syncclient.ErrRemoteUnavailable

	a, snap := newAgent(t, remote)
	snap.Save([]models.Item{{ID: "cached", Model: "EX22CN", Status: models.StatusStock, UpdatedAt: time.Now().UTC()}})

	a.Start(context.Background())
	defer a.Close()

	items := a.Items()
	if len(items) != 1 || items[0].ID != "cached" {
		t.Errorf("expected cached snapshot, got %+v", items)
	}
}

func TestStartLoadsRemoteAndRefreshesSnapshot(t *testing.T) {
	remote := newFakeRemote()
	remote.rows["r1"] = models.Item{ID: "r1", Model: "EX22CN", Status: models.StatusStock, UpdatedAt: time.Now().UTC()}

	a, snap := newAgent(t, remote)
	snap.Save([]models.Item{{ID: "stale", Model: "OLD", Status: models.StatusStock, UpdatedAt: time.Now().UTC()}})

	a.Start(context.Background())
	defer a.Close()

	items := a.Items()
	if len(items) != 1 || items[0].ID != "r1" {
		t.Errorf("expected remote rows to replace snapshot, got %+v", items)
	}
	if got := snap.Load(); len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("snapshot not refreshed: %+v", got)
	}
}

func TestOptimisticUpsertAppliesImmediately(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newAgent(t, remote)
	a.Start(context.Background())
	defer a.Close()

	it := a.Upsert(context.Background(), models.Item{Model: "EX22CN", Serial: models.TrimPtr("S-1")})
	if it.ID == "" {
		t.Fatal("upsert should generate an id")
	}
	// 本地立即可见，不等远端
	if items := a.Items(); len(items) != 1 || items[0].ID != it.ID {
		t.Errorf("optimistic apply missing: %+v", items)
	}
	waitFor(t, remote.upserted)
}

func TestUpsertRemoteFailureKeepsLocalState(t *testing.T) {
	remote := newFakeRemote()
	remote.upsertErr = syncclient.ErrRemoteUnavailable

	errs := make(chan string, 1)
	snap := cache.NewStore(cache.NewFileKV(t.TempDir()), "")
	a := New(remote, snap, func(op string, err error) { errs <- op })
	a.Start(context.Background())
	defer a.Close()

	it := a.Upsert(context.Background(), models.Item{Model: "EX22CN"})

	select {
	case op := <-errs:
		if op != "upsert" {
			t.Errorf("expected upsert failure report, got %q", op)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("remote failure was not surfaced")
	}
	// 乐观状态不回滚
	if items := a.Items(); len(items) != 1 || items[0].ID != it.ID {
		t.Errorf("optimistic state rolled back: %+v", items)
	}
}

func TestRemoteEchoIsNoop(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newAgent(t, remote)
	a.Start(context.Background())
	defer a.Close()

	it := a.Upsert(context.Background(), models.Item{Model: "EX22CN", Serial: models.TrimPtr("S-1")})
	echo := waitFor(t, remote.upserted)

	// 自己写入的推送回声：时间戳相同，合并后状态不变
	remote.push(models.ChangeEvent{Type: models.EventUpdate, Item: echo})
	items := a.Items()
	if len(items) != 1 || items[0].ID != it.ID || !items[0].UpdatedAt.Equal(it.UpdatedAt) {
		t.Errorf("echo should be a no-op, got %+v", items)
	}
}

func TestRemoteEventsMergeAndPersist(t *testing.T) {
	remote := newFakeRemote()
	a, snap := newAgent(t, remote)
	a.Start(context.Background())
	defer a.Close()

	now := time.Now().UTC()
	remote.push(models.ChangeEvent{Type: models.EventInsert, Item: models.Item{ID: "x", Model: "EX22CN", Status: models.StatusStock, UpdatedAt: now}})
	if items := a.Items(); len(items) != 1 || items[0].ID != "x" {
		t.Fatalf("insert event not merged: %+v", items)
	}
	if got := snap.Load(); len(got) != 1 {
		t.Errorf("snapshot not persisted after remote event")
	}

	remote.push(models.ChangeEvent{Type: models.EventDelete, Item: models.Item{ID: "x"}})
	if items := a.Items(); len(items) != 0 {
		t.Errorf("delete event not merged: %+v", items)
	}
}

func TestStaleRemoteEventDoesNotClobberLocalEdit(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newAgent(t, remote)
	a.Start(context.Background())
	defer a.Close()

	it := a.Upsert(context.Background(), models.Item{Model: "EX22CN", Serial: models.TrimPtr("S-1"), Location: models.TrimPtr("Shop")})
	waitFor(t, remote.upserted)

	stale := it
	stale.Location = models.TrimPtr("Showroom")
	stale.UpdatedAt = it.UpdatedAt.Add(-time.Minute)
	remote.push(models.ChangeEvent{Type: models.EventUpdate, Item: stale})

	items := a.Items()
	if models.StrOrEmpty(items[0].Location) != "Shop" {
		t.Errorf("stale event overwrote local edit: %+v", items[0])
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newAgent(t, remote)
	a.Start(context.Background())
	a.Close()

	remote.push(models.ChangeEvent{Type: models.EventInsert, Item: models.Item{ID: "late", Model: "X", UpdatedAt: time.Now()}})
	if items := a.Items(); len(items) != 0 {
		t.Errorf("event applied after Close: %+v", items)
	}
	remote.mu.Lock()
	stopped := remote.stopped
	remote.mu.Unlock()
	if !stopped {
		t.Error("Close must release the subscription")
	}
}

func TestScanOutKnownSerial(t *testing.T) {
	remote := newFakeRemote()
	remote.rows["a"] = models.Item{
		ID: "a", Model: "EX22CN", Serial: models.TrimPtr("NB.LB-003680"),
		Status: models.StatusStock, UpdatedAt: time.Now().UTC().Add(-time.Hour),
	}
	a, _ := newAgent(t, remote)
	a.Start(context.Background())
	defer a.Close()

	res, ok := a.Scan(context.Background(), scan.ModeOut, "NB.LB-003680")
	if !ok || res.Created {
		t.Fatalf("expected status transition on existing item, got created=%v", res.Created)
	}
	items := a.Items()
	if len(items) != 1 || items[0].Status != models.StatusInstalled {
		t.Errorf("scan OUT should set Installed/Sold: %+v", items)
	}
	waitFor(t, remote.upserted)
}

func TestScanEmptyCodeIsNoop(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newAgent(t, remote)
	a.Start(context.Background())
	defer a.Close()

	if _, ok := a.Scan(context.Background(), scan.ModeIn, "   "); ok {
		t.Error("empty scan must be a no-op")
	}
	if len(a.Items()) != 0 {
		t.Error("no item should be created")
	}
}

func TestImportExportCSV(t *testing.T) {
	remote := newFakeRemote()
	a, _ := newAgent(t, remote)
	a.Start(context.Background())
	defer a.Close()

	n, err := a.ImportCSV(context.Background(), strings.NewReader("Model,Serial,Status\nEX22CN,S-1,Stock\nFURN80,S-2,Ordered\n"))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported rows, got %d", n)
	}
	waitFor(t, remote.upserted)
	waitFor(t, remote.upserted)

	var sb strings.Builder
	if err := a.ExportCSV(&sb); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, "EX22CN") || !strings.Contains(out, "FURN80") {
		t.Errorf("export missing rows:\n%s", out)
	}
}
