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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the recovery-planning observables. The "origin" label
// separates files served from a snapshot repository from files served by
// the source peer.
type Metrics struct {
	PlansComputed            prometheus.Counter
	SnapshotAcceleratedPlans prometheus.Counter
	SnapshotFallbacks        prometheus.Counter
	FilesPlanned             *prometheus.CounterVec
	BytesPlanned             *prometheus.CounterVec
}

func NewMetrics(r prometheus.Registerer) *Metrics {
	return &Metrics{
		PlansComputed: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "weaviate_recovery_plans_computed_total",
			Help: "Total number of shard recovery plans computed.",
		}),
		SnapshotAcceleratedPlans: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "weaviate_recovery_plans_snapshot_accelerated_total",
			Help: "Recovery plans that source at least one file from a snapshot.",
		}),
		SnapshotFallbacks: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "weaviate_recovery_snapshot_fallbacks_total",
			Help: "Snapshot lookups that failed and degraded to peer-only recovery.",
		}),
		FilesPlanned: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "weaviate_recovery_files_planned_total",
			Help: "Files scheduled for transfer, by origin.",
		}, []string{"origin"}),
		BytesPlanned: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "weaviate_recovery_bytes_planned_total",
			Help: "Bytes scheduled for transfer, by origin.",
		}, []string{"origin"}),
	}
}
