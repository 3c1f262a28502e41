package baseline

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/netsentry/internal/store"
	"github.com/HerbHall/netsentry/pkg/models"
)

func newTestStore(t *testing.T) *BaselineStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), "baseline", Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewBaselineStore(db)
}

func TestBaselineStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	in := []models.Baseline{
		{Address: "10.0.0.1", MetricType: models.MetricResponseTime, Mean: 12.5, Variance: 2.25, SampleCount: 40, CreatedAt: now, UpdatedAt: now},
		{Address: "10.0.0.1", MetricType: models.MetricPacketLoss, Mean: 0.5, Variance: 0.1, SampleCount: 40, CreatedAt: now, UpdatedAt: now},
	}
	if err := s.SaveAll(ctx, in); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	out, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d baselines, want 2", len(out))
	}

	byMetric := make(map[models.MetricType]models.Baseline)
	for _, b := range out {
		byMetric[b.MetricType] = b
	}
	rt := byMetric[models.MetricResponseTime]
	if rt.Mean != 12.5 || rt.SampleCount != 40 {
		t.Errorf("response time baseline = %+v", rt)
	}
}

func TestBaselineStoreUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	b := models.Baseline{Address: "10.0.0.1", MetricType: models.MetricResponseTime, Mean: 10, SampleCount: 1, CreatedAt: now, UpdatedAt: now}
	if err := s.SaveAll(ctx, []models.Baseline{b}); err != nil {
		t.Fatalf("first SaveAll: %v", err)
	}

	b.Mean = 15
	b.SampleCount = 2
	if err := s.SaveAll(ctx, []models.Baseline{b}); err != nil {
		t.Fatalf("second SaveAll: %v", err)
	}

	out, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d baselines after upsert, want 1", len(out))
	}
	if out[0].Mean != 15 || out[0].SampleCount != 2 {
		t.Errorf("upserted baseline = %+v", out[0])
	}
}

func TestBaselineStoreDeleteForAddress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	in := []models.Baseline{
		{Address: "10.0.0.1", MetricType: models.MetricResponseTime, Mean: 10, SampleCount: 5, CreatedAt: now, UpdatedAt: now},
		{Address: "10.0.0.2", MetricType: models.MetricResponseTime, Mean: 20, SampleCount: 5, CreatedAt: now, UpdatedAt: now},
	}
	if err := s.SaveAll(ctx, in); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}

	if err := s.DeleteForAddress(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("DeleteForAddress: %v", err)
	}

	out, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(out) != 1 || out[0].Address != "10.0.0.2" {
		t.Errorf("remaining baselines = %+v", out)
	}
}
