package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"authgate/backend/internal/autherr"
	"authgate/backend/internal/store/memory"
)

func TestTracker_OpenListClose(t *testing.T) {
	repo := memory.NewDeviceRepository()
	tr := NewTracker(repo, time.Second, nil)
	ctx := context.Background()

	d, err := tr.Open(ctx, "u1", "Mozilla/5.0", "10.0.0.1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !d.IsActive || len(d.SessionID) != 32 || d.ID == "" {
		t.Errorf("opened session = %+v", d)
	}
	if ok, err := tr.HasActive(ctx, "u1"); err != nil || !ok {
		t.Errorf("HasActive = %v, %v; want true", ok, err)
	}

	list, err := tr.List(ctx, "u1")
	if err != nil || len(list) != 1 || list[0].DeviceInfo != "Mozilla/5.0" {
		t.Fatalf("List = %+v, %v", list, err)
	}

	if closed, err := tr.Close(ctx, d.ID, "u2"); err != nil || closed {
		t.Errorf("Close by other user = %v, %v; want false", closed, err)
	}
	if closed, err := tr.Close(ctx, d.ID, "u1"); err != nil || !closed {
		t.Errorf("Close = %v, %v; want true", closed, err)
	}
	if closed, err := tr.Close(ctx, d.ID, "u1"); err != nil || closed {
		t.Errorf("second Close = %v, %v; want false", closed, err)
	}
	if ok, _ := tr.HasActive(ctx, "u1"); ok {
		t.Error("HasActive after close should be false")
	}
}

func TestTracker_CloseAll(t *testing.T) {
	tr := NewTracker(memory.NewDeviceRepository(), 0, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := tr.Open(ctx, "u1", "", ""); err != nil {
			t.Fatalf("Open: %v", err)
		}
	}
	_, _ = tr.Open(ctx, "u2", "", "")

	n, err := tr.CloseAll(ctx, "u1")
	if err != nil || n != 3 {
		t.Fatalf("CloseAll = %d, %v; want 3", n, err)
	}
	if ok, _ := tr.HasActive(ctx, "u1"); ok {
		t.Error("u1 should have no active sessions")
	}
	if ok, _ := tr.HasActive(ctx, "u2"); !ok {
		t.Error("u2 should keep its session")
	}
}

func TestTracker_CloseEmptyID(t *testing.T) {
	tr := NewTracker(memory.NewDeviceRepository(), 0, nil)
	if closed, err := tr.Close(context.Background(), "", "u1"); closed || err != nil {
		t.Errorf("Close(\"\") = %v, %v", closed, err)
	}
}

func TestTracker_StoreFailure(t *testing.T) {
	repo := memory.NewDeviceRepository()
	tr := NewTracker(repo, time.Second, nil)
	repo.FailWith(errors.New("db down"))

	if _, err := tr.HasActive(context.Background(), "u1"); !errors.Is(err, autherr.ErrServiceUnavailable) {
		t.Errorf("HasActive err = %v, want ErrServiceUnavailable", err)
	}
	if _, err := tr.Open(context.Background(), "u1", "", ""); !errors.Is(err, autherr.ErrServiceUnavailable) {
		t.Errorf("Open err = %v, want ErrServiceUnavailable", err)
	}
}
