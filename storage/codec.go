package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrVersionMismatch = errors.New("record version mismatch")
	ErrNotFound        = errors.New("record not found")
)

func EncodeSnapshotRecord(r SnapshotRecord) ([]byte, error) {
	if r.Snapshot == nil {
		return nil, errors.New("snapshot record has no snapshot")
	}
	return json.Marshal(r)
}

func DecodeSnapshotRecord(data []byte) (SnapshotRecord, error) {
	var record SnapshotRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return SnapshotRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return SnapshotRecord{}, err
	}
	if record.Snapshot == nil {
		return SnapshotRecord{}, fmt.Errorf("snapshot record %s has no snapshot", record.ID)
	}
	if err := record.Snapshot.Validate(); err != nil {
		return SnapshotRecord{}, err
	}
	return record, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
