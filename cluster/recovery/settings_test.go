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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/weaviate/allocator/usecases/config/runtime"
)

func newTestSettings(t *testing.T) *Settings {
	t.Helper()
	logger, _ := logrustest.NewNullLogger()
	return NewSettings(logger)
}

func TestSettingsDefaults(t *testing.T) {
	s := newTestSettings(t)

	assert.Equal(t, 40*1024*1024, s.MaxBytesPerSec())
	assert.Equal(t, 2, s.MaxConcurrentFileChunks())
	assert.Equal(t, 1, s.MaxConcurrentOperations())
	assert.Equal(t, 500*time.Millisecond, s.RetryDelayStateSync())
	assert.Equal(t, 5*time.Second, s.RetryDelayNetwork())
	assert.Equal(t, 15*time.Minute, s.InternalActionTimeout())
	assert.Equal(t, time.Minute, s.InternalActionRetryTimeout())
	assert.True(t, s.UseSnapshots())
	assert.Equal(t, 5, s.MaxConcurrentSnapshotFileDownloads())
	assert.Equal(t, int64(512*1024), s.ChunkSize())

	limiter := s.RateLimiter()
	require.NotNil(t, limiter)
	assert.Equal(t, rate.Limit(40*1024*1024), limiter.Limit())
}

func TestSettingsRateLimiterTeardownAndRecreate(t *testing.T) {
	s := newTestSettings(t)

	require.NoError(t, s.maxBytesPerSec.SetValue(0))
	assert.Nil(t, s.RateLimiter(), "non-positive rate disables throttling")

	require.NoError(t, s.maxBytesPerSec.SetValue(16*1024*1024))
	limiter := s.RateLimiter()
	require.NotNil(t, limiter)
	assert.Equal(t, rate.Limit(16*1024*1024), limiter.Limit())
}

func TestSettingsRateLimiterAdjustsInPlace(t *testing.T) {
	s := newTestSettings(t)

	before := s.RateLimiter()
	require.NotNil(t, before)

	require.NoError(t, s.maxBytesPerSec.SetValue(80*1024*1024))

	after := s.RateLimiter()
	assert.Same(t, before, after, "adjusting the rate must not reset the token bucket")
	assert.Equal(t, rate.Limit(80*1024*1024), after.Limit())
	assert.Equal(t, 80*1024*1024, after.Burst())
}

func TestSettingsDerivedTimeouts(t *testing.T) {
	s := newTestSettings(t)

	assert.Equal(t, 30*time.Minute, s.InternalActionLongTimeout())
	assert.Equal(t, 30*time.Minute, s.ActivityTimeout(),
		"unset activity timeout falls back to the long action timeout")

	require.NoError(t, s.internalActionTimeout.SetValue(10*time.Minute))
	assert.Equal(t, 20*time.Minute, s.InternalActionLongTimeout())
	assert.Equal(t, 20*time.Minute, s.ActivityTimeout())

	require.NoError(t, s.activityTimeout.SetValue(5*time.Minute))
	assert.Equal(t, 5*time.Minute, s.ActivityTimeout())
}

func TestSettingsValidatorsKeepOldValue(t *testing.T) {
	s := newTestSettings(t)

	assert.Error(t, s.maxConcurrentFileChunks.SetValue(9))
	assert.Equal(t, 2, s.MaxConcurrentFileChunks())

	assert.Error(t, s.maxConcurrentOperations.SetValue(0))
	assert.Equal(t, 1, s.MaxConcurrentOperations())

	assert.Error(t, s.maxConcurrentSnapshotFileDownloads.SetValue(21))
	assert.Equal(t, 5, s.MaxConcurrentSnapshotFileDownloads())

	assert.Error(t, s.retryDelayNetwork.SetValue(-time.Second))
	assert.Equal(t, 5*time.Second, s.RetryDelayNetwork())
}

func TestSettingsConfigValues(t *testing.T) {
	s := newTestSettings(t)
	values := s.ConfigValues()

	for _, key := range []string{
		MaxBytesPerSecKey,
		MaxConcurrentFileChunksKey,
		MaxConcurrentOperationsKey,
		RetryDelayStateSyncKey,
		RetryDelayNetworkKey,
		InternalActionTimeoutKey,
		InternalActionRetryTimeoutKey,
		ActivityTimeoutKey,
		UseSnapshotsKey,
		MaxConcurrentSnapshotFileDownloadsKey,
	} {
		assert.Contains(t, values, key)
	}
	assert.Len(t, values, 10, "chunk size is not a dynamic setting")
}

func TestSettingsAppliedThroughConfigManager(t *testing.T) {
	s := newTestSettings(t)
	logger, _ := logrustest.NewNullLogger()

	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
recovery_max_bytes_per_sec: 10485760
recovery_use_snapshots: false
recovery_internal_action_timeout: 20m
`), 0o644))

	_, err := runtime.NewConfigManager(path, s.ConfigValues(), time.Minute,
		logger, prometheus.NewPedanticRegistry())
	require.NoError(t, err)

	assert.Equal(t, 10*1024*1024, s.MaxBytesPerSec())
	assert.Equal(t, rate.Limit(10*1024*1024), s.RateLimiter().Limit())
	assert.False(t, s.UseSnapshots())
	assert.Equal(t, 40*time.Minute, s.InternalActionLongTimeout())
	assert.Equal(t, 500*time.Millisecond, s.RetryDelayStateSync(),
		"settings absent from the file keep their defaults")
}
