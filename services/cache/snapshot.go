package cache

import (
	"encoding/json"
	stderrors "errors"
	"time"

	"sjsage522/salewatch/internal/listing"
	"sjsage522/salewatch/pkg/errors"
)

// SnapshotKey holds the most recent aggregated sale stubs
const SnapshotKey = "salewatch:snapshot"

// Snapshot is the cached result of one aggregation run
type Snapshot struct {
	Pages     []string           `json:"pages"`
	Stubs     []listing.SaleStub `json:"stubs"`
	CreatedAt time.Time          `json:"createdAt"`
}

// SaveSnapshot stores snap as JSON under SnapshotKey
func SaveSnapshot(c CacheService, snap Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.NewCache(SnapshotKey, "failed to encode snapshot", err)
	}
	return c.Set(SnapshotKey, data, ttl)
}

// LoadSnapshot reads the stored snapshot. ok is false on a cache miss.
func LoadSnapshot(c CacheService) (snap Snapshot, ok bool, err error) {
	data, err := c.Get(SnapshotKey)
	if stderrors.Is(err, ErrMiss) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, errors.NewCache(SnapshotKey, "failed to decode snapshot", err)
	}
	return snap, true, nil
}
