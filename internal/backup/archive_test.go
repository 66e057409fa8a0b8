package backup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "backups", "snapshots.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

type memSource struct {
	data     []byte
	restored []byte
}

func (m *memSource) Snapshot(ctx context.Context) ([]byte, error) { return m.data, nil }

func (m *memSource) Restore(ctx context.Context, data []byte) error {
	m.restored = data
	return nil
}

func TestSaveListGet(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, body := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		at := base.Add(time.Duration(i) * time.Hour)
		a.now = func() time.Time { return at }
		if _, err := a.Save(ctx, []byte(body)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	list, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(list))
	}
	if !list[0].At.After(list[2].At) {
		t.Errorf("expected newest first: %v", list)
	}

	data, err := a.Get(ctx, list[0].Key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"n":3}` {
		t.Errorf("unexpected data %s", data)
	}

	info, latest, err := a.Latest(ctx)
	if err != nil || info.Key != list[0].Key || string(latest) != `{"n":3}` {
		t.Errorf("Latest: %v %s %v", info, latest, err)
	}
}

func TestSaveSameInstantDoesNotOverwrite(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return at }

	first, _ := a.Save(ctx, []byte("a"))
	second, err := a.Save(ctx, []byte("b"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first.Key == second.Key {
		t.Fatal("expected distinct keys")
	}
	list, _ := a.List(ctx)
	if len(list) != 2 {
		t.Errorf("expected 2 snapshots, got %d", len(list))
	}
}

func TestGetErrors(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	if _, err := a.Get(ctx, "not-a-key"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := a.Get(ctx, "2024-01-01T00:00:00.000000000Z"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := a.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from empty archive, got %v", err)
	}
	if _, err := a.Save(ctx, nil); !errors.Is(err, ErrEmptyBackup) {
		t.Errorf("expected ErrEmptyBackup, got %v", err)
	}
}

func TestPruneAndStats(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * 24 * time.Hour)
		a.now = func() time.Time { return at }
		a.Save(ctx, []byte("snapshot"))
	}

	n, err := a.Prune(ctx, base.Add(2*24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pruned, got %d", n)
	}

	stats, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Count != 3 || stats.TotalSize != 3*int64(len("snapshot")) {
		t.Errorf("unexpected stats %+v", stats)
	}
	if !stats.Oldest.Equal(base.Add(2*24*time.Hour)) || !stats.Newest.Equal(base.Add(4*24*time.Hour)) {
		t.Errorf("unexpected range %v - %v", stats.Oldest, stats.Newest)
	}
	if stats.FileSize == 0 {
		t.Error("expected non-zero file size")
	}
}

func TestSchedulerRunOnceAndRestore(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()
	src := &memSource{data: []byte(`{"hosts":[]}`)}

	var calls int
	s := NewScheduler(a, src, time.Hour, 0)
	s.OnSave(func(Info, error) { calls++ })

	info, err := s.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected OnSave to be called once, got %d", calls)
	}

	if err := a.RestoreInto(ctx, info.Key, src); err != nil {
		t.Fatalf("RestoreInto: %v", err)
	}
	if string(src.restored) != `{"hosts":[]}` {
		t.Errorf("unexpected restored data %s", src.restored)
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	a := newTestArchive(t)
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(a, &memSource{data: []byte("x")}, time.Hour, 0)

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
