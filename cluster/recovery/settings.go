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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/weaviate/allocator/usecases/config/runtime"
)

// Dynamic setting keys as they appear in the runtime config file.
const (
	MaxBytesPerSecKey                     = "recovery_max_bytes_per_sec"
	MaxConcurrentFileChunksKey            = "recovery_max_concurrent_file_chunks"
	MaxConcurrentOperationsKey            = "recovery_max_concurrent_operations"
	RetryDelayStateSyncKey                = "recovery_retry_delay_state_sync"
	RetryDelayNetworkKey                  = "recovery_retry_delay_network"
	InternalActionTimeoutKey              = "recovery_internal_action_timeout"
	InternalActionRetryTimeoutKey         = "recovery_internal_action_retry_timeout"
	ActivityTimeoutKey                    = "recovery_activity_timeout"
	UseSnapshotsKey                       = "recovery_use_snapshots"
	MaxConcurrentSnapshotFileDownloadsKey = "recovery_max_concurrent_snapshot_file_downloads"
)

const (
	DefaultMaxBytesPerSec                     = 40 * 1024 * 1024 // 40 MiB/s
	DefaultMaxConcurrentFileChunks            = 2
	DefaultMaxConcurrentOperations            = 1
	DefaultRetryDelayStateSync                = 500 * time.Millisecond
	DefaultRetryDelayNetwork                  = 5 * time.Second
	DefaultInternalActionTimeout              = 15 * time.Minute
	DefaultInternalActionRetryTimeout         = time.Minute
	DefaultUseSnapshots                       = true
	DefaultMaxConcurrentSnapshotFileDownloads = 5

	// DefaultChunkSize is the file chunk size used by the transfer engine.
	// It is not dynamic; SetChunkSize exists for tests only.
	DefaultChunkSize = 512 * 1024
)

// Settings is the process-wide bag of operational recovery knobs. It is
// constructed once at node startup and mutated only through the runtime
// config manager's callback plumbing; all business logic is read-only with
// respect to it. Reads are lock-free, updates are administrator-driven and
// rare.
type Settings struct {
	logger logrus.FieldLogger

	maxBytesPerSec *runtime.DynamicValue[int]
	// rateLimiter is nil while throttling is disabled
	rateLimiter atomic.Pointer[rate.Limiter]

	maxConcurrentFileChunks            *runtime.DynamicValue[int]
	maxConcurrentOperations            *runtime.DynamicValue[int]
	retryDelayStateSync                *runtime.DynamicValue[time.Duration]
	retryDelayNetwork                  *runtime.DynamicValue[time.Duration]
	internalActionTimeout              *runtime.DynamicValue[time.Duration]
	internalActionRetryTimeout         *runtime.DynamicValue[time.Duration]
	activityTimeout                    *runtime.DynamicValue[time.Duration]
	useSnapshots                       *runtime.DynamicValue[bool]
	maxConcurrentSnapshotFileDownloads *runtime.DynamicValue[int]

	chunkSize atomic.Int64
}

func NewSettings(logger logrus.FieldLogger) *Settings {
	s := &Settings{
		logger:                     logger.WithField("action", "recovery_settings"),
		maxBytesPerSec:             runtime.NewDynamicValue(DefaultMaxBytesPerSec),
		maxConcurrentFileChunks:    mustRange(DefaultMaxConcurrentFileChunks, 1, 5),
		maxConcurrentOperations:    mustRange(DefaultMaxConcurrentOperations, 1, 4),
		retryDelayStateSync:        mustPositive(DefaultRetryDelayStateSync),
		retryDelayNetwork:          mustPositive(DefaultRetryDelayNetwork),
		internalActionTimeout:      mustPositive(DefaultInternalActionTimeout),
		internalActionRetryTimeout: mustPositive(DefaultInternalActionRetryTimeout),
		// zero means "derive from the long timeout"
		activityTimeout:                    runtime.NewDynamicValue(time.Duration(0)),
		useSnapshots:                       runtime.NewDynamicValue(DefaultUseSnapshots),
		maxConcurrentSnapshotFileDownloads: mustRange(DefaultMaxConcurrentSnapshotFileDownloads, 1, 20),
	}
	s.chunkSize.Store(DefaultChunkSize)

	s.maxBytesPerSec.OnChange(s.updateRateLimiter)
	s.updateRateLimiter(s.maxBytesPerSec.Get())

	return s
}

// ConfigValues exposes every dynamic setting for registration with the
// runtime config manager. The chunk size is deliberately absent.
func (s *Settings) ConfigValues() runtime.ConfigValues {
	return runtime.ConfigValues{
		MaxBytesPerSecKey:                     s.maxBytesPerSec,
		MaxConcurrentFileChunksKey:            s.maxConcurrentFileChunks,
		MaxConcurrentOperationsKey:            s.maxConcurrentOperations,
		RetryDelayStateSyncKey:                s.retryDelayStateSync,
		RetryDelayNetworkKey:                  s.retryDelayNetwork,
		InternalActionTimeoutKey:              s.internalActionTimeout,
		InternalActionRetryTimeoutKey:         s.internalActionRetryTimeout,
		ActivityTimeoutKey:                    s.activityTimeout,
		UseSnapshotsKey:                       s.useSnapshots,
		MaxConcurrentSnapshotFileDownloadsKey: s.maxConcurrentSnapshotFileDownloads,
	}
}

// updateRateLimiter reacts to max_bytes_per_sec changes. A non-positive rate
// tears the limiter down entirely. A positive rate adjusts an existing
// limiter in place: replacing it would reset the token bucket and allow a
// short burst above the new rate right after the change.
func (s *Settings) updateRateLimiter(bytesPerSec int) {
	if bytesPerSec <= 0 {
		s.rateLimiter.Store(nil)
		s.logger.Info("recovery throttling disabled")
		return
	}

	if limiter := s.rateLimiter.Load(); limiter != nil {
		limiter.SetLimit(rate.Limit(bytesPerSec))
		limiter.SetBurst(bytesPerSec)
		return
	}

	s.rateLimiter.Store(rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec))
}

// RateLimiter returns the current byte-rate limiter, or nil if throttling is
// disabled. Callers must re-fetch it per use rather than caching it.
func (s *Settings) RateLimiter() *rate.Limiter {
	return s.rateLimiter.Load()
}

func (s *Settings) MaxBytesPerSec() int {
	return s.maxBytesPerSec.Get()
}

// MaxConcurrentFileChunks caps in-flight file-chunk requests per recovery.
func (s *Settings) MaxConcurrentFileChunks() int {
	return s.maxConcurrentFileChunks.Get()
}

// MaxConcurrentOperations caps in-flight operation-chunk requests per
// recovery.
func (s *Settings) MaxConcurrentOperations() int {
	return s.maxConcurrentOperations.Get()
}

// RetryDelayStateSync is how long to wait before retrying after a
// cluster-state race.
func (s *Settings) RetryDelayStateSync() time.Duration {
	return s.retryDelayStateSync.Get()
}

// RetryDelayNetwork is how long to wait before retrying after a network
// error.
func (s *Settings) RetryDelayNetwork() time.Duration {
	return s.retryDelayNetwork.Get()
}

func (s *Settings) InternalActionTimeout() time.Duration {
	return s.internalActionTimeout.Get()
}

func (s *Settings) InternalActionRetryTimeout() time.Duration {
	return s.internalActionRetryTimeout.Get()
}

// InternalActionLongTimeout is a computed view over the current internal
// action timeout, used for especially slow sub-operations. It always re-reads
// the base value so that changing the base consistently changes this one.
func (s *Settings) InternalActionLongTimeout() time.Duration {
	return 2 * s.internalActionTimeout.Get()
}

// ActivityTimeout is the window within which a recovery must show progress
// before it is failed. Unless configured explicitly it follows the long
// timeout.
func (s *Settings) ActivityTimeout() time.Duration {
	if v := s.activityTimeout.Get(); v > 0 {
		return v
	}
	return s.InternalActionLongTimeout()
}

// UseSnapshots reports whether recovery may source files from the snapshot
// store instead of the peer node.
func (s *Settings) UseSnapshots() bool {
	return s.useSnapshots.Get()
}

// MaxConcurrentSnapshotFileDownloads caps parallel snapshot blob downloads
// per recovery.
func (s *Settings) MaxConcurrentSnapshotFileDownloads() int {
	return s.maxConcurrentSnapshotFileDownloads.Get()
}

func (s *Settings) ChunkSize() int64 {
	return s.chunkSize.Load()
}

// SetChunkSize overrides the file chunk size. Only for tests.
func (s *Settings) SetChunkSize(size int64) {
	s.chunkSize.Store(size)
}

func mustRange(def, min, max int) *runtime.DynamicValue[int] {
	v, err := runtime.NewDynamicValueWithValidation(def, func(val int) error {
		if val < min || val > max {
			return fmt.Errorf("value %d out of range [%d, %d]", val, min, max)
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
	return v
}

func mustPositive(def time.Duration) *runtime.DynamicValue[time.Duration] {
	v, err := runtime.NewDynamicValueWithValidation(def, func(val time.Duration) error {
		if val <= 0 {
			return fmt.Errorf("duration %s must be positive", val)
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
	return v
}
