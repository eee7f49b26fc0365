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
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	enterrors "github.com/weaviate/allocator/entities/errors"
	"github.com/weaviate/allocator/usecases/integrity"
)

const checksumConcurrency = 8

// FromDisk walks the shard folder rooted at basePath and builds a manifest of
// every regular file below it, checksumming files concurrently. File names are
// recorded relative to basePath.
func FromDisk(basePath string, logger logrus.FieldLogger) (Manifest, error) {
	var relPaths []string

	err := filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking shard folder: %w", err)
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(basePath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		relPaths = append(relPaths, rel)
		return nil
	})
	if err != nil {
		return Manifest{}, err
	}

	var mu sync.Mutex
	files := make([]FileMetadata, 0, len(relPaths))

	eg := enterrors.NewErrorGroupWrapper(logger)
	eg.SetLimit(checksumConcurrency)
	for _, rel := range relPaths {
		rel := rel
		eg.Go(func() error {
			size, checksum, err := integrity.CRC32(filepath.Join(basePath, rel))
			if err != nil {
				return fmt.Errorf("checksum file %q: %w", rel, err)
			}

			mu.Lock()
			files = append(files, FileMetadata{Name: rel, Size: size, CRC32: checksum})
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Manifest{}, err
	}

	return New(files...), nil
}
