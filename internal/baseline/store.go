package baseline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HerbHall/netsentry/pkg/models"
	"github.com/HerbHall/netsentry/pkg/plugin"
)

// BaselineStore persists tracker state across restarts.
type BaselineStore struct {
	store plugin.Store
}

// NewBaselineStore creates a baseline store backed by the shared database.
func NewBaselineStore(store plugin.Store) *BaselineStore {
	return &BaselineStore{store: store}
}

// SaveAll upserts the given baselines in one transaction.
func (s *BaselineStore) SaveAll(ctx context.Context, baselines []models.Baseline) error {
	if len(baselines) == 0 {
		return nil
	}
	return s.store.Tx(ctx, func(tx *sql.Tx) error {
		for i := range baselines {
			b := &baselines[i]
			_, err := tx.ExecContext(ctx, `
				INSERT INTO baselines (address, metric_type, mean, variance,
					sample_count, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (address, metric_type) DO UPDATE SET
					mean = excluded.mean,
					variance = excluded.variance,
					sample_count = excluded.sample_count,
					created_at = excluded.created_at,
					updated_at = excluded.updated_at`,
				b.Address, string(b.MetricType), b.Mean, b.Variance,
				b.SampleCount, b.CreatedAt, b.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("upsert baseline %s/%s: %w", b.Address, b.MetricType, err)
			}
		}
		return nil
	})
}

// LoadAll returns every persisted baseline.
func (s *BaselineStore) LoadAll(ctx context.Context) ([]models.Baseline, error) {
	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT address, metric_type, mean, variance, sample_count, created_at, updated_at
		FROM baselines`)
	if err != nil {
		return nil, fmt.Errorf("query baselines: %w", err)
	}
	defer rows.Close()

	var out []models.Baseline
	for rows.Next() {
		var b models.Baseline
		var metric string
		err := rows.Scan(&b.Address, &metric, &b.Mean, &b.Variance,
			&b.SampleCount, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("baseline row: %w", err)
		}
		b.MetricType = models.MetricType(metric)
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteForAddress removes all baselines for one address.
func (s *BaselineStore) DeleteForAddress(ctx context.Context, address string) error {
	_, err := s.store.DB().ExecContext(ctx,
		"DELETE FROM baselines WHERE address = ?", address)
	if err != nil {
		return fmt.Errorf("delete baselines for %s: %w", address, err)
	}
	return nil
}
