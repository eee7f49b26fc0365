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

package recovery

import (
	"github.com/weaviate/allocator/entities/manifest"
)

// SnapshotFiles names the files a recovery may fetch from the snapshot blob
// store instead of the peer node, together with the repository and the index
// within that repository they live in. The zero value means "nothing can come
// from a snapshot".
type SnapshotFiles struct {
	Repository string
	IndexID    string
	Files      []manifest.FileMetadata
}

func (s SnapshotFiles) Empty() bool {
	return len(s.Files) == 0
}

// Plan is the result of recovery planning for one shard copy: which files
// must travel from where so the target becomes consistent with the source,
// plus the bookkeeping the transfer engine carries through unchanged.
//
// SnapshotFilesToRecover, SourceFilesToRecover and FilesPresentInTarget are
// pairwise disjoint and together cover every file of the source manifest.
type Plan struct {
	Collection string
	Shard      string

	SnapshotFilesToRecover SnapshotFiles
	SourceFilesToRecover   []manifest.FileMetadata
	FilesPresentInTarget   []manifest.FileMetadata

	StartingSeqNo int64
	TranslogOps   int

	// SourceManifest is retained in full for verification after transfer.
	SourceManifest manifest.Manifest
}

// FilesToRecoverCount is the total number of files that still have to be
// transferred from either origin.
func (p *Plan) FilesToRecoverCount() int {
	return len(p.SnapshotFilesToRecover.Files) + len(p.SourceFilesToRecover)
}

// BytesToRecover is the total volume that still has to be transferred.
func (p *Plan) BytesToRecover() int64 {
	var total int64
	for _, f := range p.SnapshotFilesToRecover.Files {
		total += f.Size
	}
	for _, f := range p.SourceFilesToRecover {
		total += f.Size
	}
	return total
}
