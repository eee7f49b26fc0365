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

package runtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDynamicValueUnmarshalYAML(t *testing.T) {
	cfg := struct {
		MaxBytesPerSec *DynamicValue[int]           `yaml:"recovery_max_bytes_per_sec"`
		BalanceFactor  *DynamicValue[float64]       `yaml:"balance_factor"`
		UseSnapshots   *DynamicValue[bool]          `yaml:"recovery_use_snapshots"`
		RetryDelay     *DynamicValue[time.Duration] `yaml:"recovery_retry_delay_network"`
		Phase          *DynamicValue[string]        `yaml:"phase"`
		ExcludedNodes  *DynamicValue[[]string]      `yaml:"excluded_nodes"`
	}{}

	buf := `
recovery_max_bytes_per_sec: 20971520
balance_factor: 1.5
recovery_use_snapshots: false
recovery_retry_delay_network: 2s
phase: translog
excluded_nodes: ["node1", "node2"]
`
	dec := yaml.NewDecoder(strings.NewReader(buf))
	dec.KnownFields(true)
	require.NoError(t, dec.Decode(&cfg))

	// unmarshalling a config file sets defaults, not overrides
	assert.Equal(t, 20*1024*1024, cfg.MaxBytesPerSec.def)
	assert.Nil(t, cfg.MaxBytesPerSec.val)

	assert.Equal(t, 20*1024*1024, cfg.MaxBytesPerSec.Get())
	assert.Equal(t, 1.5, cfg.BalanceFactor.Get())
	assert.Equal(t, false, cfg.UseSnapshots.Get())
	assert.Equal(t, 2*time.Second, cfg.RetryDelay.Get())
	assert.Equal(t, "translog", cfg.Phase.Get())
	assert.Equal(t, []string{"node1", "node2"}, cfg.ExcludedNodes.Get())
}

func TestDynamicValueUnmarshalJSON(t *testing.T) {
	cfg := struct {
		MaxBytesPerSec *DynamicValue[int]           `json:"recovery_max_bytes_per_sec"`
		RetryDelay     *DynamicValue[time.Duration] `json:"recovery_retry_delay_network"`
		ExcludedNodes  *DynamicValue[[]string]      `json:"excluded_nodes"`
	}{}

	buf := `{
		"recovery_max_bytes_per_sec": 20971520,
		"recovery_retry_delay_network": "2s",
		"excluded_nodes": ["node1"]
	}`
	require.NoError(t, json.Unmarshal([]byte(buf), &cfg))

	assert.Equal(t, 20*1024*1024, cfg.MaxBytesPerSec.Get())
	assert.Equal(t, 2*time.Second, cfg.RetryDelay.Get())
	assert.Equal(t, []string{"node1"}, cfg.ExcludedNodes.Get())

	t.Run("durations are also accepted as integer nanoseconds", func(t *testing.T) {
		cfg := struct {
			RetryDelay *DynamicValue[time.Duration] `json:"recovery_retry_delay_network"`
		}{}
		require.NoError(t, json.Unmarshal([]byte(`{"recovery_retry_delay_network": 2000000000}`), &cfg))
		assert.Equal(t, 2*time.Second, cfg.RetryDelay.Get())
	})
}

func TestDynamicValueZeroValueIsUsable(t *testing.T) {
	var (
		limit DynamicValue[int]
		delay DynamicValue[time.Duration]
		nodes DynamicValue[[]string]
	)

	assert.Equal(t, 0, limit.Get())
	assert.Equal(t, time.Duration(0), delay.Get())
	assert.Equal(t, []string(nil), nodes.Get())

	// nil receivers too, optional settings need no nil checks at call sites
	var useSnapshots *DynamicValue[bool]
	assert.Equal(t, false, useSnapshots.Get())
}

func TestDynamicValueOverrideAndReset(t *testing.T) {
	limit := NewDynamicValue(40 * 1024 * 1024)
	assert.Equal(t, 40*1024*1024, limit.Get())

	require.NoError(t, limit.SetValue(10*1024*1024))
	assert.Equal(t, 10*1024*1024, limit.Get())

	limit.Reset()
	assert.Nil(t, limit.val, "reset drops the override, never the default")
	assert.Equal(t, 40*1024*1024, limit.Get())
}

func TestDynamicValueString(t *testing.T) {
	assert.Equal(t, "41943040", fmt.Sprintf("%v", NewDynamicValue(40*1024*1024)))
	assert.Equal(t, "5s", fmt.Sprintf("%v", NewDynamicValue(5*time.Second)))
	assert.Equal(t, "true", NewDynamicValue(true).String())
	assert.Equal(t, "shard-a", NewDynamicValue("shard-a").String())
}

func TestDynamicValueValidation(t *testing.T) {
	positive := func(val int) error {
		if val <= 0 {
			return fmt.Errorf("value must be positive")
		}
		return nil
	}

	t.Run("default must pass validation", func(t *testing.T) {
		dv, err := NewDynamicValueWithValidation(2, positive)
		require.NoError(t, err)
		assert.Equal(t, 2, dv.Get())

		dv, err = NewDynamicValueWithValidation(-1, positive)
		assert.Error(t, err)
		assert.Nil(t, dv)
	})

	t.Run("rejected override keeps the active value", func(t *testing.T) {
		dv, err := NewDynamicValueWithValidation(2, positive)
		require.NoError(t, err)

		assert.Error(t, dv.SetValue(0))
		assert.Equal(t, 2, dv.Get())

		require.NoError(t, dv.SetValue(4))
		assert.Equal(t, 4, dv.Get())
	})

	t.Run("durations validate the same way", func(t *testing.T) {
		nonNegative := func(val time.Duration) error {
			if val < 0 {
				return fmt.Errorf("duration must not be negative")
			}
			return nil
		}
		dv, err := NewDynamicValueWithValidation(time.Second, nonNegative)
		require.NoError(t, err)

		assert.Error(t, dv.SetValue(-time.Second))
		assert.Equal(t, time.Second, dv.Get())
	})
}

func TestDynamicValueOnChange(t *testing.T) {
	positive := func(val int) error {
		if val <= 0 {
			return fmt.Errorf("value must be positive")
		}
		return nil
	}
	dv, err := NewDynamicValueWithValidation(2, positive)
	require.NoError(t, err)

	var seen []int
	dv.OnChange(func(val int) { seen = append(seen, val) })

	require.NoError(t, dv.SetValue(4))
	dv.Reset()
	assert.Error(t, dv.SetValue(-1))

	// hooks fire for applied updates and resets, never for rejected values
	assert.Equal(t, []int{4, 2}, seen)
}
