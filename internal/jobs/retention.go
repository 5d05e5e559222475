package jobs

import (
	"context"
	"time"

	"qtumor/internal/config"
	"qtumor/internal/metrics"
)

// RetentionStats captures the number of handles deleted by TTL cleanup.
type RetentionStats struct {
	HandlesDeleted int64 `json:"handlesDeleted"`
}

// CleanupExpiredHandles deletes handles older than the configured TTL from
// stores that support it, so that persistent stores do not grow without
// bound.
func CleanupExpiredHandles(ctx context.Context, cfg *config.Config, st HandleStore) (RetentionStats, error) {
	var stats RetentionStats

	hours := cfg.Retention.HandleTTLHours
	if hours <= 0 {
		return stats, nil
	}
	exp, ok := st.(Expirer)
	if !ok {
		return stats, nil
	}

	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	n, err := exp.DeleteExpired(ctx, cutoff)
	if err != nil {
		return stats, err
	}
	if n > 0 {
		stats.HandlesDeleted = n
		metrics.RecordRetentionHandles(n)
	}
	return stats, nil
}
