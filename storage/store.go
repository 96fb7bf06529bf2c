// Package storage persists simulation snapshots across runs.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pthm-cable/sprout/telemetry"
)

// VersionedRecord carries the schema and codec versions of a stored payload.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// SnapshotRecord is a stored snapshot with its lookup metadata.
type SnapshotRecord struct {
	VersionedRecord
	ID        string              `json:"id"`
	RunID     string              `json:"run_id"`
	Tick      int64               `json:"tick"`
	CreatedAt time.Time           `json:"created_at"`
	Snapshot  *telemetry.Snapshot `json:"snapshot"`
}

// SnapshotSummary is the metadata of a stored snapshot without its payload.
type SnapshotSummary struct {
	ID        string
	RunID     string
	Tick      int64
	CreatedAt time.Time
}

// NewSnapshotRecord wraps a snapshot in a record with a fresh ID.
func NewSnapshotRecord(snap *telemetry.Snapshot) SnapshotRecord {
	return SnapshotRecord{
		VersionedRecord: VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              uuid.NewString(),
		RunID:           snap.RunID,
		Tick:            snap.Tick,
		CreatedAt:       time.Now().UTC(),
		Snapshot:        snap,
	}
}

// Summary returns the record metadata.
func (r SnapshotRecord) Summary() SnapshotSummary {
	return SnapshotSummary{ID: r.ID, RunID: r.RunID, Tick: r.Tick, CreatedAt: r.CreatedAt}
}

// Store defines persistence operations for simulation snapshots.
type Store interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, record SnapshotRecord) error
	GetSnapshot(ctx context.Context, id string) (SnapshotRecord, bool, error)
	LatestSnapshot(ctx context.Context, runID string) (SnapshotRecord, bool, error)
	ListSnapshots(ctx context.Context, runID string) ([]SnapshotSummary, error)
	DeleteSnapshot(ctx context.Context, id string) error
}
