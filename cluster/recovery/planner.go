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
	"context"
	"sort"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"

	enterrors "github.com/weaviate/allocator/entities/errors"
	"github.com/weaviate/allocator/entities/manifest"
	"github.com/weaviate/allocator/entities/snapshots"
)

// MinSnapshotRecoveryVersion is the lowest node version that understands
// snapshot-sourced recovery. Older targets always recover from the peer, so a
// mixed-version cluster can still downgrade safely.
const MinSnapshotRecoveryVersion = "v1.25.0"

const snapshotLookupRetries = 2

// ErrSnapshotNotFound is returned by a SnapshotLookup when no snapshot exists
// for the shard. It is an expected condition, not a failure.
var ErrSnapshotNotFound = errors.New("no snapshot found for shard")

// SnapshotLookup resolves the most recent snapshot of one shard from the
// snapshot repository. Implementations live with the repository subsystem;
// the planner only consumes them.
type SnapshotLookup interface {
	LatestSnapshotForShard(ctx context.Context, collection, shard string) (*snapshots.ShardSnapshot, error)
}

// PlanRequest carries everything needed to plan one shard recovery.
type PlanRequest struct {
	Collection string
	Shard      string

	SourceManifest manifest.Manifest
	TargetManifest manifest.Manifest

	StartingSeqNo int64
	TranslogOps   int

	// TargetNodeVersion is the version reported by the node the shard copy
	// is recovering onto, e.g. "1.27.3".
	TargetNodeVersion string
	// UseSnapshots is the caller's explicit opt-in; the dynamic setting of
	// the same name must also be on for snapshot planning to happen.
	UseSnapshots bool
}

// PlanResult delivers either a plan or the error that prevented computing
// one. Snapshot unavailability is never such an error.
type PlanResult struct {
	Plan *Plan
	Err  error
}

// Planner computes recovery plans asynchronously: planning may need a
// repository round trip, and many shards recover concurrently.
type Planner interface {
	// ComputeRecoveryPlan returns a buffered channel that receives exactly
	// one result. Abandoning the channel is the only cancellation; the
	// computation itself respects ctx.
	ComputeRecoveryPlan(ctx context.Context, req PlanRequest) <-chan PlanResult
}

// SnapshotsPlanner plans recoveries with snapshot acceleration: files already
// captured in a recent snapshot are fetched from the blob store instead of
// the live peer, which offloads the primary when many replicas recover at
// once.
type SnapshotsPlanner struct {
	lookup   SnapshotLookup
	settings *Settings
	metrics  *Metrics
	logger   logrus.FieldLogger
}

var _ Planner = (*SnapshotsPlanner)(nil)

func NewSnapshotsPlanner(lookup SnapshotLookup, settings *Settings,
	metrics *Metrics, logger logrus.FieldLogger,
) *SnapshotsPlanner {
	return &SnapshotsPlanner{
		lookup:   lookup,
		settings: settings,
		metrics:  metrics,
		logger:   logger.WithField("action", "recovery_planning"),
	}
}

func (p *SnapshotsPlanner) ComputeRecoveryPlan(ctx context.Context, req PlanRequest) <-chan PlanResult {
	out := make(chan PlanResult, 1)
	enterrors.GoWrapper(func() {
		// the caller blocks on the channel, so even a panic must surface as
		// a result rather than leave the channel silent
		defer func() {
			if r := recover(); r != nil {
				out <- PlanResult{Err: errors.Errorf("recovery planning failed: %v", r)}
			}
		}()
		plan, err := p.computePlan(ctx, req)
		out <- PlanResult{Plan: plan, Err: err}
	}, p.logger)
	return out
}

func (p *SnapshotsPlanner) computePlan(ctx context.Context, req PlanRequest) (*Plan, error) {
	if req.Collection == "" || req.Shard == "" {
		return nil, errors.New("recovery plan request without shard identity")
	}

	var snap *snapshots.ShardSnapshot
	if p.snapshotsEligible(req) {
		snap = p.fetchLatestSnapshot(ctx, req.Collection, req.Shard)
	}

	diff := req.SourceManifest.Diff(req.TargetManifest)
	candidates := concatSorted(diff.Missing, diff.Different)

	plan := &Plan{
		Collection:           req.Collection,
		Shard:                req.Shard,
		FilesPresentInTarget: diff.Identical,
		StartingSeqNo:        req.StartingSeqNo,
		TranslogOps:          req.TranslogOps,
		SourceManifest:       req.SourceManifest,
	}

	if snap == nil {
		// fully peer-sourced plan
		plan.SourceFilesToRecover = candidates
	} else {
		// second diff of the cascade: of the files that must move at all,
		// those identical in the snapshot can come from the blob store
		candidateManifest := req.SourceManifest.Subset(candidates)
		snapDiff := candidateManifest.Diff(snap.Files)

		if len(snapDiff.Identical) > 0 {
			plan.SnapshotFilesToRecover = SnapshotFiles{
				Repository: snap.Repository,
				IndexID:    snap.IndexID,
				Files:      snapDiff.Identical,
			}
		}
		plan.SourceFilesToRecover = concatSorted(snapDiff.Missing, snapDiff.Different)
	}

	p.observePlan(plan)
	return plan, nil
}

// snapshotsEligible gates snapshot planning on the caller's flag, the dynamic
// setting and the target node's version.
func (p *SnapshotsPlanner) snapshotsEligible(req PlanRequest) bool {
	if !req.UseSnapshots || !p.settings.UseSnapshots() {
		return false
	}

	version := canonicalVersion(req.TargetNodeVersion)
	if !semver.IsValid(version) {
		p.logger.WithField("targetNodeVersion", req.TargetNodeVersion).
			Debug("unparsable target node version, skipping snapshot planning")
		return false
	}
	return semver.Compare(version, MinSnapshotRecoveryVersion) >= 0
}

// fetchLatestSnapshot resolves the latest usable snapshot, or nil. Every
// failure mode degrades to nil: recovery must never fail just because
// snapshot acceleration was unavailable.
func (p *SnapshotsPlanner) fetchLatestSnapshot(ctx context.Context, collection, shard string) *snapshots.ShardSnapshot {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.settings.RetryDelayNetwork()

	var snap *snapshots.ShardSnapshot
	err := backoff.Retry(func() error {
		s, err := p.lookup.LatestSnapshotForShard(ctx, collection, shard)
		if err != nil {
			if errors.Is(err, ErrSnapshotNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		snap = s
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, snapshotLookupRetries), ctx))
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			p.logger.WithFields(logrus.Fields{
				"collection": collection,
				"shard":      shard,
			}).Debug("no snapshot available, recovering everything from the peer")
		} else {
			p.metrics.SnapshotFallbacks.Inc()
			p.logger.WithFields(logrus.Fields{
				"collection": collection,
				"shard":      shard,
			}).WithError(err).Warn("snapshot lookup failed, recovering everything from the peer")
		}
		return nil
	}

	if snap == nil || !snap.Valid() {
		return nil
	}
	return snap
}

func (p *SnapshotsPlanner) observePlan(plan *Plan) {
	p.metrics.PlansComputed.Inc()
	if !plan.SnapshotFilesToRecover.Empty() {
		p.metrics.SnapshotAcceleratedPlans.Inc()
	}

	var snapshotBytes, peerBytes int64
	for _, f := range plan.SnapshotFilesToRecover.Files {
		snapshotBytes += f.Size
	}
	for _, f := range plan.SourceFilesToRecover {
		peerBytes += f.Size
	}

	p.metrics.FilesPlanned.WithLabelValues("snapshot").Add(float64(len(plan.SnapshotFilesToRecover.Files)))
	p.metrics.FilesPlanned.WithLabelValues("peer").Add(float64(len(plan.SourceFilesToRecover)))
	p.metrics.BytesPlanned.WithLabelValues("snapshot").Add(float64(snapshotBytes))
	p.metrics.BytesPlanned.WithLabelValues("peer").Add(float64(peerBytes))
}

func concatSorted(a, b []manifest.FileMetadata) []manifest.FileMetadata {
	out := make([]manifest.FileMetadata, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func canonicalVersion(v string) string {
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
