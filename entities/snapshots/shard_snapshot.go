//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2025 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package snapshots

import (
	"encoding/json"
	"os"
	"path"
	"time"

	"github.com/pkg/errors"

	"github.com/weaviate/allocator/entities/manifest"
)

type Status string

const (
	StatusStarted Status = "started"
	StatusCreated Status = "created"
	StatusFailed  Status = "failed"
)

// ShardSnapshot identifies one previously taken, externally stored
// point-in-time copy of a single shard: the repository it lives in, the index
// within that repository, and the per-file manifest captured at snapshot time.
type ShardSnapshot struct {
	ID         string `json:"id"`
	Repository string `json:"repository"`
	IndexID    string `json:"indexID"`
	Collection string `json:"collection"`
	Shard      string `json:"shard"`
	Status     Status `json:"status"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`

	Files manifest.Manifest `json:"-"`

	// FileList is the serialized form of Files
	FileList []manifest.FileMetadata `json:"files"`
}

func New(id, repository, indexID, collection, shard string, startedAt time.Time) *ShardSnapshot {
	return &ShardSnapshot{
		ID:         id,
		Repository: repository,
		IndexID:    indexID,
		Collection: collection,
		Shard:      shard,
		Status:     StatusStarted,
		StartedAt:  startedAt,
	}
}

// Complete marks the snapshot as successfully created with the given file
// manifest.
func (snap *ShardSnapshot) Complete(files manifest.Manifest, completedAt time.Time) {
	snap.Status = StatusCreated
	snap.Files = files
	snap.FileList = files.Files()
	snap.CompletedAt = completedAt
}

// Valid reports whether this snapshot finished successfully and can serve as
// a file source during recovery.
func (snap *ShardSnapshot) Valid() bool {
	return snap.Status == StatusCreated
}

func (snap *ShardSnapshot) WriteToDisk(basePath string) error {
	snap.FileList = snap.Files.Files()

	b, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "write shard snapshot to disk")
	}

	snapPath := BuildSnapshotPath(snap.ID, basePath)

	// ensure that the snapshot directory exists
	if err := os.MkdirAll(path.Dir(snapPath), os.ModePerm); err != nil {
		return errors.Wrap(err, "write shard snapshot to disk")
	}

	if err := os.WriteFile(snapPath, b, os.ModePerm); err != nil {
		return errors.Wrap(err, "write shard snapshot to disk")
	}

	return nil
}

func ReadFromDisk(id, basePath string) (*ShardSnapshot, error) {
	snapPath := BuildSnapshotPath(id, basePath)

	contents, err := os.ReadFile(snapPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read shard snapshot from disk")
	}

	var snap ShardSnapshot
	if err := json.Unmarshal(contents, &snap); err != nil {
		return nil, errors.Wrap(err,
			"failed to unmarshal shard snapshot disk contents")
	}
	snap.Files = manifest.New(snap.FileList...)

	return &snap, nil
}

func (snap *ShardSnapshot) RemoveFromDisk(basePath string) error {
	snapPath := BuildSnapshotPath(snap.ID, basePath)

	if err := os.Remove(snapPath); err != nil {
		return errors.Wrapf(err,
			"failed to remove shard snapshot from disk, at %s", snapPath)
	}

	return nil
}

func BuildSnapshotPath(id, basePath string) string {
	return path.Join(basePath, "snapshots", id) + ".json"
}
