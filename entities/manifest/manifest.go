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

package manifest

import (
	"sort"
)

// FileMetadata describes one on-disk file of a shard: its name relative to
// the shard folder, its size and its checksum.
type FileMetadata struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	CRC32 uint32 `json:"crc32"`
}

// Same reports whether two files have identical content, judged by size and
// checksum.
func (f FileMetadata) Same(other FileMetadata) bool {
	return f.Size == other.Size && f.CRC32 == other.CRC32
}

// Manifest is the per-file metadata snapshot of a shard's on-disk content.
// It is the unit of comparison when deciding which files a recovering shard
// copy still needs.
type Manifest struct {
	files map[string]FileMetadata
}

// New builds a manifest from the given file descriptors. Later entries with
// the same name overwrite earlier ones.
func New(files ...FileMetadata) Manifest {
	m := Manifest{files: make(map[string]FileMetadata, len(files))}
	for _, f := range files {
		m.files[f.Name] = f
	}
	return m
}

func (m Manifest) Len() int {
	return len(m.files)
}

func (m Manifest) Get(name string) (FileMetadata, bool) {
	f, ok := m.files[name]
	return f, ok
}

// Files returns all file descriptors sorted by name.
func (m Manifest) Files() []FileMetadata {
	out := make([]FileMetadata, 0, len(m.files))
	for _, f := range m.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns all file names sorted.
func (m Manifest) Names() []string {
	out := make([]string, 0, len(m.files))
	for name := range m.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Subset returns a manifest containing only the named files. Names without a
// matching entry are skipped.
func (m Manifest) Subset(files []FileMetadata) Manifest {
	sub := Manifest{files: make(map[string]FileMetadata, len(files))}
	for _, f := range files {
		if existing, ok := m.files[f.Name]; ok {
			sub.files[f.Name] = existing
		}
	}
	return sub
}

// DiffResult partitions the files of a source manifest relative to a target:
// Missing files exist only in the source, Different files exist on both sides
// with diverging content, Identical files need no transfer. All three slices
// carry the source-side metadata and are sorted by name.
type DiffResult struct {
	Missing   []FileMetadata
	Different []FileMetadata
	Identical []FileMetadata
}

// Diff compares the receiver (acting as the source of truth) against a target
// manifest. Files present only in the target are not reported; bringing the
// target in line with the source is the caller's concern, and superfluous
// target files are handled by the transfer engine, not the diff.
func (m Manifest) Diff(target Manifest) DiffResult {
	var res DiffResult
	for _, f := range m.Files() {
		tf, ok := target.Get(f.Name)
		switch {
		case !ok:
			res.Missing = append(res.Missing, f)
		case f.Same(tf):
			res.Identical = append(res.Identical, f)
		default:
			res.Different = append(res.Different, f)
		}
	}
	return res
}
