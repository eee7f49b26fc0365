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
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// DynamicValueType lists the primitive types a dynamic setting can carry.
type DynamicValueType interface {
	int | float64 | bool | time.Duration | string | []string
}

// DynamicValue[T] holds a default plus an optional runtime override for one
// setting. The zero value is usable and returns T's zero value. Reads are
// lock-cheap and safe for concurrent use with updates.
type DynamicValue[T DynamicValueType] struct {
	def T
	val *T

	validate func(T) error
	hooks    []func(T)

	mu sync.RWMutex
}

// NewDynamicValue returns a DynamicValue with a custom default.
func NewDynamicValue[T DynamicValueType](def T) *DynamicValue[T] {
	return &DynamicValue[T]{def: def}
}

// NewDynamicValueWithValidation returns a DynamicValue whose default and any
// later override must pass the given validation function.
func NewDynamicValueWithValidation[T DynamicValueType](def T, validate func(T) error) (*DynamicValue[T], error) {
	if err := validate(def); err != nil {
		return nil, fmt.Errorf("invalid default value %v: %w", def, err)
	}
	return &DynamicValue[T]{def: def, validate: validate}, nil
}

// Get returns the override if one was set, the default otherwise. A nil
// receiver returns T's zero value so that optional settings need no nil
// checks at the call site.
func (d *DynamicValue[T]) Get() T {
	if d == nil {
		var zero T
		return zero
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.val != nil {
		return *d.val
	}
	return d.def
}

// SetValue installs a runtime override. If a validation function is attached
// and rejects the value, the previously active value stays in effect.
func (d *DynamicValue[T]) SetValue(val T) error {
	if d.validate != nil {
		if err := d.validate(val); err != nil {
			return fmt.Errorf("invalid value %v: %w", val, err)
		}
	}

	d.mu.Lock()
	d.val = &val
	hooks := d.hooks
	d.mu.Unlock()

	for _, hook := range hooks {
		hook(val)
	}
	return nil
}

// Reset removes the override, falling back to the default.
func (d *DynamicValue[T]) Reset() {
	d.mu.Lock()
	d.val = nil
	def := d.def
	hooks := d.hooks
	d.mu.Unlock()

	for _, hook := range hooks {
		hook(def)
	}
}

// OnChange registers a hook invoked with the new effective value after every
// applied update or reset. Hooks run on the updating goroutine and must be
// fast and non-blocking.
func (d *DynamicValue[T]) OnChange(hook func(T)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.hooks = append(d.hooks, hook)
}

// parse implements ConfigValue for the config manager: validate now, apply
// later, so an invalid file never applies partially.
func (d *DynamicValue[T]) parse(node *yaml.Node) (func(), error) {
	val, err := decodeNode[T](node)
	if err != nil {
		return nil, err
	}
	if d.validate != nil {
		if err := d.validate(val); err != nil {
			return nil, fmt.Errorf("invalid value %v: %w", val, err)
		}
	}

	return func() {
		d.mu.Lock()
		d.val = &val
		hooks := d.hooks
		d.mu.Unlock()

		for _, hook := range hooks {
			hook(val)
		}
	}, nil
}

// reset implements ConfigValue for the config manager.
func (d *DynamicValue[T]) reset() {
	d.Reset()
}

func decodeNode[T DynamicValueType](node *yaml.Node) (T, error) {
	var val T
	switch ptr := any(&val).(type) {
	case *time.Duration:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return val, err
		}
		dur, err := time.ParseDuration(raw)
		if err != nil {
			return val, fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		*ptr = dur
	default:
		if err := node.Decode(&val); err != nil {
			return val, err
		}
	}
	return val, nil
}

func (d *DynamicValue[T]) String() string {
	return fmt.Sprintf("%v", d.Get())
}

// UnmarshalYAML sets the default from a config file. Durations are accepted
// in time.ParseDuration notation ("500ms", "15m").
func (d *DynamicValue[T]) UnmarshalYAML(value *yaml.Node) error {
	def, err := decodeNode[T](value)
	if err != nil {
		return err
	}
	d.def = def

	if d.validate != nil {
		return d.validate(d.def)
	}
	return nil
}

// UnmarshalJSON sets the default from a JSON config. Durations are accepted
// either as strings in time.ParseDuration notation or as integer nanoseconds.
func (d *DynamicValue[T]) UnmarshalJSON(b []byte) error {
	switch ptr := any(&d.def).(type) {
	case *time.Duration:
		var raw string
		if err := json.Unmarshal(b, &raw); err == nil {
			dur, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", raw, err)
			}
			*ptr = dur
			break
		}
		var nanos int64
		if err := json.Unmarshal(b, &nanos); err != nil {
			return fmt.Errorf("invalid duration %s", b)
		}
		*ptr = time.Duration(nanos)
	default:
		if err := json.Unmarshal(b, &d.def); err != nil {
			return err
		}
	}

	if d.validate != nil {
		return d.validate(d.def)
	}
	return nil
}
