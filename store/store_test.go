package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/biome/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "slots.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Deterministic, increasing timestamps
	clock := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestStore_SaveGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	b := config.DefaultBiome()
	if err := s.Save(ctx, "taiga", b); err != nil {
		t.Fatalf("Save: %v", err)
	}

	slot, err := s.Get(ctx, "taiga")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if slot.Config.Name != b.Name || len(slot.Config.Fauna) != len(b.Fauna) {
		t.Errorf("loaded biome differs: %+v", slot.Config)
	}
	for i, sp := range b.Fauna {
		if slot.Config.Fauna[i].Population != sp.Population || slot.Config.Fauna[i].Diet != sp.Diet {
			t.Errorf("species %d differs: %+v", i, slot.Config.Fauna[i])
		}
	}
	if slot.SavedAt.IsZero() {
		t.Error("expected a save time")
	}
}

func TestStore_SaveUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	b := config.DefaultBiome()
	s.Save(ctx, "slot", b)
	b.Name = "Renamed"
	if err := s.Save(ctx, "slot", b); err != nil {
		t.Fatal(err)
	}

	slots, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 || slots[0].Config.Name != "Renamed" {
		t.Errorf("expected one updated slot, got %+v", slots)
	}
}

func TestStore_ListOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"b", "a", "c"} {
		if err := s.Save(ctx, name, config.DefaultBiome()); err != nil {
			t.Fatal(err)
		}
	}
	slots, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 3 || slots[0].Name != "b" || slots[1].Name != "a" || slots[2].Name != "c" {
		t.Errorf("expected save order b, a, c; got %v", slots)
	}
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.Save(ctx, "gone", config.DefaultBiome())
	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "gone"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "gone"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound deleting twice, got %v", err)
	}
}

func TestStore_RejectsBadInput(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "  ", config.DefaultBiome()); !errors.Is(err, ErrInvalidSlotName) {
		t.Errorf("expected ErrInvalidSlotName, got %v", err)
	}

	bad := config.DefaultBiome()
	bad.Fauna[0].Diet = "omnivore"
	if err := s.Save(ctx, "bad", bad); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := s.Get(ctx, "bad"); !errors.Is(err, ErrSlotNotFound) {
		t.Error("invalid biome should not be stored")
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "keep", config.DefaultBiome()); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if _, err := s2.Get(ctx, "keep"); err != nil {
		t.Errorf("slot lost after reopen: %v", err)
	}
}
