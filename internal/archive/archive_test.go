package archive

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"mycoledger/internal/blob"
	"mycoledger/internal/config"
	"mycoledger/pkg/domain"
)

func sampleSnapshot() domain.Snapshot {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return domain.Snapshot{
		Networks: map[uint64]domain.Network{
			1: {ID: 1, Name: "Pacific Northwest Forest Network", ForestAreaHectares: 1000, CarbonCapacity: 50000, CreatedAt: at, UpdatedAt: at},
		},
		Trees: map[uint64]domain.Tree{
			1: {ID: 1, NetworkID: 1, Species: "Pseudotsuga menziesii", HealthStatus: domain.HealthHealthy, NutrientUptakeRate: 85, CreatedAt: at, UpdatedAt: at},
		},
		Inoculations: map[uint64]domain.Inoculation{
			1: {ID: 1, NetworkID: 1, FungalSpecies: "Rhizopogon vinicolor", SporeConcentration: 1000000, ApplicationArea: 100, CreatedAt: at, UpdatedAt: at},
		},
		CarbonMeasurements: map[uint64]domain.CarbonMeasurement{
			1: {ID: 1, NetworkID: 1, TotalCarbonStored: 50000, SoilCarbon: 30000, BiomassCarbon: 20000, RecordedAt: at},
		},
		Sequences: domain.Sequences{Network: 1, Tree: 1, Inoculation: 1, CarbonMeasurement: 1},
	}
}

func stores(t *testing.T) map[string]blob.Store {
	t.Helper()
	fs, err := blob.Open(context.Background(), config.BlobConfig{Driver: "fs", FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	return map[string]blob.Store{
		"memory": blob.NewMemory(),
		"fs":     fs,
		"s3":     blob.NewMockS3ForTests(),
	}
}

func TestExportLoadRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := New(store)
			snapshot := sampleSnapshot()
			m, err := a.Export(ctx, snapshot)
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			if m.ID == "" || m.Counts["trees"] != 1 || m.Sequences.Network != 1 || m.Bytes <= 0 {
				t.Fatalf("unexpected manifest %+v", m)
			}
			got, loaded, err := a.Load(ctx, m.ID)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if loaded.ID != m.ID {
				t.Fatalf("manifest mismatch: %+v", loaded)
			}
			if !reflect.DeepEqual(snapshot, got) {
				t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", snapshot, got)
			}
		})
	}
}

func TestListSkipsIncompleteArchives(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	ids := []string{"b-archive", "a-archive"}
	times := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	for i := range ids {
		a := New(store, WithIDGenerator(func() string { return ids[i] }), WithClock(func() time.Time { return times[i] }))
		if _, err := a.Export(ctx, sampleSnapshot()); err != nil {
			t.Fatalf("export %s: %v", ids[i], err)
		}
	}
	if _, err := store.Put(ctx, "archives/partial/networks.json", bytes.NewReader([]byte("{}")), blob.PutOptions{}); err != nil {
		t.Fatalf("seed partial: %v", err)
	}

	list, err := New(store).List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b-archive" || list[1].ID != "a-archive" {
		t.Fatalf("expected two archives oldest first, got %+v", list)
	}
}

func TestLoadMissingArchive(t *testing.T) {
	a := New(blob.NewMemory())
	if _, _, err := a.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := a.Link(context.Background(), "nope", time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from link, got %v", err)
	}
}

func TestExportRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	a := New(blob.NewMemory(), WithIDGenerator(func() string { return "fixed" }))
	if _, err := a.Export(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("first export: %v", err)
	}
	if _, err := a.Export(ctx, sampleSnapshot()); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestLinkPerDriver(t *testing.T) {
	ctx := context.Background()
	all := stores(t)

	mem := New(all["memory"])
	m, err := mem.Export(ctx, sampleSnapshot())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := mem.Link(ctx, m.ID, time.Minute); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("expected unsupported for memory, got %v", err)
	}

	fs := New(all["fs"])
	m, err = fs.Export(ctx, sampleSnapshot())
	if err != nil {
		t.Fatalf("export fs: %v", err)
	}
	url, err := fs.Link(ctx, m.ID, time.Minute)
	if err != nil || !strings.HasPrefix(url, "file://") || !strings.HasSuffix(url, "manifest.json") {
		t.Fatalf("unexpected fs link %q %v", url, err)
	}
}
