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
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	ErrFailedToOpenConfig      = errors.New("failed to open runtime config")
	ErrFailedToReadConfig      = errors.New("failed to read runtime config")
	ErrFailedToParseConfig     = errors.New("failed to parse runtime config")
	ErrUnregisteredConfigFound = errors.New("unregistered config found")
)

// ConfigValue is one registered dynamic setting. Implemented by
// *DynamicValue[T]; the manager stays unaware of the concrete value type.
type ConfigValue interface {
	// parse validates the raw YAML node and returns a closure that applies
	// the parsed value. Splitting validation from application lets the
	// manager reject a whole config file without partially applying it.
	parse(node *yaml.Node) (apply func(), err error)
	// reset restores the registered default, used when a key disappears from
	// the config file.
	reset()
}

// ConfigValues maps setting keys to their registered dynamic values.
type ConfigValues map[string]ConfigValue

// ConfigManager takes care of periodically loading the config from the given
// filepath for every interval period (and on SIGHUP). Each registered
// ConfigValue is updated in place on successful loads; this is how
// dynamically updatable settings receive administrator-driven changes
// without a restart.
type ConfigManager struct {
	// path is file path of config to load and unmarshal from
	path string
	// interval is how often config manager trigger loading the config file.
	interval time.Duration
	// registered holds every known setting; keys in the file that are not
	// registered fail the load.
	registered ConfigValues

	// currentHash is the checksum of the last successfully loaded file,
	// used to skip no-op reloads.
	currentHash string

	log             logrus.FieldLogger
	lastLoadSuccess prometheus.Gauge
	configHash      *prometheus.GaugeVec
}

func NewConfigManager(
	filepath string,
	registered ConfigValues,
	interval time.Duration,
	log logrus.FieldLogger,
	r prometheus.Registerer,
) (*ConfigManager, error) {
	// catch empty filepath early
	if len(strings.TrimSpace(filepath)) == 0 {
		return nil, errors.New("filepath to load runtimeconfig is empty")
	}

	cm := &ConfigManager{
		path:       filepath,
		registered: registered,
		interval:   interval,
		log:        log,
		lastLoadSuccess: promauto.With(r).NewGauge(prometheus.GaugeOpts{
			Name: "weaviate_runtime_config_last_load_success",
			Help: "Whether the last loading attempt of runtime config was success",
		}),
		configHash: promauto.With(r).NewGaugeVec(prometheus.GaugeOpts{
			Name: "weaviate_runtime_config_hash",
			Help: "Hash value of the currently active runtime configuration",
		}, []string{"sha256"}), // sha256 is type of checksum and hard-coded for now
	}

	// try to load it once to fail early if configs are invalid
	if err := cm.loadConfig(); err != nil {
		return nil, err
	}

	return cm, nil
}

// Run is a blocking call that starts the configmanager actor. Consumer probably want to
// call it in different groutine. It also respects the passed in `ctx`.
// Meaning, cancelling the passed `ctx` stops the actor.
func (cm *ConfigManager) Run(ctx context.Context) error {
	return cm.loop(ctx)
}

// loadConfig reads the file, validates every value against the registered
// settings and applies the batch only if the whole file is valid. A load
// failure of any kind leaves all currently active values untouched.
func (cm *ConfigManager) loadConfig() error {
	f, err := os.Open(cm.path)
	if err != nil {
		cm.lastLoadSuccess.Set(0)
		return errors.Join(ErrFailedToOpenConfig, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		cm.lastLoadSuccess.Set(0)
		return errors.Join(ErrFailedToReadConfig, err)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256(b))
	if hash == cm.currentHash {
		cm.lastLoadSuccess.Set(1)
		return nil // same file. no change
	}

	if err := cm.applyConfig(b); err != nil {
		cm.lastLoadSuccess.Set(0)
		return err
	}
	cm.currentHash = hash

	cm.lastLoadSuccess.Set(1)
	cm.configHash.Reset()
	cm.configHash.WithLabelValues(hash).Set(1)

	return nil
}

// applyConfig validates first, applies second. Keys missing from the file are
// reset to their registered defaults.
func (cm *ConfigManager) applyConfig(b []byte) error {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return errors.Join(ErrFailedToParseConfig, err)
	}

	for key := range raw {
		if _, ok := cm.registered[key]; !ok {
			return fmt.Errorf("%w: %q", ErrUnregisteredConfigFound, key)
		}
	}

	var merr *multierror.Error
	appliers := make([]func(), 0, len(cm.registered))

	for key, val := range cm.registered {
		node, ok := raw[key]
		if !ok {
			appliers = append(appliers, val.reset)
			continue
		}

		apply, err := val.parse(&node)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("config %q: %w", key, err))
			continue
		}
		appliers = append(appliers, apply)
	}

	if err := merr.ErrorOrNil(); err != nil {
		return errors.Join(ErrFailedToParseConfig, err)
	}

	for _, apply := range appliers {
		apply()
	}
	return nil
}

// loop is a actor loop that runs forever till config manager is stopped.
// it orchestrates between "loading" configs and "stopping" the config manager
func (cm *ConfigManager) loop(ctx context.Context) error {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// SIGHUP handler to trigger reload
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)

	for {
		select {
		case <-ticker.C:
			if err := cm.loadConfig(); err != nil {
				cm.log.Errorf("loading runtime config every %s failed, using old config: %v", cm.interval, err)
			}
		case <-sighup:
			if err := cm.loadConfig(); err != nil {
				cm.log.Errorf("loading runtime config through SIGHUP failed, using old config: %v", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
