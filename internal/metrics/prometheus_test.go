package metrics

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"infradash/internal/database"
)

func TestCollectorObservesStore(t *testing.T) {
	c := NewCollector()
	store, err := database.Open(filepath.Join(t.TempDir(), "db.json"), database.WithObserver(c), database.WithChangeHook(c.RecordChange))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c.Attach(store)
	ctx := context.Background()

	before := testutil.ToFloat64(StoreOperations.WithLabelValues(database.ServicesCollection, "create", "success"))
	changesBefore := testutil.ToFloat64(StoreChanges.WithLabelValues(database.ServicesCollection, database.ActionCreate))

	store.Services().Create(ctx, database.Service{Name: "a", Port: 3000, HostID: "example-host-1", IsActive: true})
	store.Services().Create(ctx, database.Service{Name: "b", Port: 3001, HostID: "example-host-1"})

	if got := testutil.ToFloat64(StoreOperations.WithLabelValues(database.ServicesCollection, "create", "success")) - before; got != 2 {
		t.Errorf("expected 2 successful creates recorded, got %v", got)
	}
	if got := testutil.ToFloat64(StoreChanges.WithLabelValues(database.ServicesCollection, database.ActionCreate)) - changesBefore; got != 2 {
		t.Errorf("expected 2 changes recorded, got %v", got)
	}

	if err := c.UpdateSystemMetrics(ctx); err != nil {
		t.Fatalf("UpdateSystemMetrics: %v", err)
	}
	if got := testutil.ToFloat64(Hosts); got != 1 {
		t.Errorf("expected 1 host, got %v", got)
	}
	if got := testutil.ToFloat64(Services.WithLabelValues("active")); got != 1 {
		t.Errorf("expected 1 active service, got %v", got)
	}
	if got := testutil.ToFloat64(Services.WithLabelValues("inactive")); got != 1 {
		t.Errorf("expected 1 inactive service, got %v", got)
	}
}

func TestUpdateWithoutStore(t *testing.T) {
	if err := NewCollector().UpdateSystemMetrics(context.Background()); err == nil {
		t.Error("expected error without attached store")
	}
}

func TestRecorders(t *testing.T) {
	c := NewCollector()

	before := testutil.ToFloat64(PortAllocations.WithLabelValues("exhausted"))
	c.RecordAllocation("exhausted")
	if got := testutil.ToFloat64(PortAllocations.WithLabelValues("exhausted")) - before; got != 1 {
		t.Errorf("expected 1 exhausted allocation, got %v", got)
	}

	failed := testutil.ToFloat64(BackupsTotal.WithLabelValues("error"))
	c.RecordBackup(errors.New("disk full"))
	if got := testutil.ToFloat64(BackupsTotal.WithLabelValues("error")) - failed; got != 1 {
		t.Errorf("expected 1 failed backup, got %v", got)
	}

	ws := testutil.ToFloat64(WebSocketConnections)
	c.RecordWebSocketConnection(1)
	c.RecordWebSocketConnection(1)
	c.RecordWebSocketConnection(-1)
	if got := testutil.ToFloat64(WebSocketConnections) - ws; got != 1 {
		t.Errorf("expected net 1 connection, got %v", got)
	}

	rec := testutil.ToFloat64(StoreRecoveries)
	c.ObserveRecovery("/tmp/db.json", errors.New("bad json"))
	if got := testutil.ToFloat64(StoreRecoveries) - rec; got != 1 {
		t.Errorf("expected 1 recovery, got %v", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := NewCollector()
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Hour, func(err error) {
			select {
			case errs <- err:
			default:
			}
		})
		close(done)
	}()

	select {
	case <-errs:
	case <-time.After(5 * time.Second):
		t.Fatal("expected an error report without a store")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
