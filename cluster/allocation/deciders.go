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

package allocation

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Deciders combines an ordered collection of policy rules into one verdict
// per query. Without debug mode the first NO wins and evaluation stops there;
// with debug mode every rule is consulted so the full reasoning can be shown.
type Deciders struct {
	deciders []Decider
	logger   logrus.FieldLogger
}

func NewDeciders(logger logrus.FieldLogger, deciders ...Decider) *Deciders {
	return &Deciders{
		deciders: deciders,
		logger:   logger.WithField("action", "allocation"),
	}
}

// CanAllocate decides whether the shard copy may be placed on the node.
func (ds *Deciders) CanAllocate(shard ShardRouting, node string, alloc *Context) Decision {
	if alloc.ShouldIgnoreShardForNode(shard, node) {
		return ds.ignoredDecision(shard, node)
	}
	return ds.aggregate(alloc, func(d Decider) Decision {
		return d.CanAllocate(shard, node, alloc)
	})
}

// CanAllocateShard decides whether the shard may be allocated at all,
// independent of any particular node.
func (ds *Deciders) CanAllocateShard(shard ShardRouting, alloc *Context) Decision {
	return ds.aggregate(alloc, func(d Decider) Decision {
		return d.CanAllocate(shard, "", alloc)
	})
}

// CanRemain decides whether an assigned shard copy may stay on the node it is
// currently allocated to.
func (ds *Deciders) CanRemain(shard ShardRouting, node string, alloc *Context) Decision {
	if shard.Node != node {
		panic(fmt.Sprintf("shard %s is not allocated on node %q", shard, node))
	}
	if alloc.ShouldIgnoreShardForNode(shard, node) {
		return ds.ignoredDecision(shard, node)
	}
	return ds.aggregate(alloc, func(d Decider) Decision {
		return d.CanRemain(shard, node, alloc)
	})
}

// CanRebalance decides whether the shard copy may be moved to a different
// node purely to improve balance.
func (ds *Deciders) CanRebalance(shard ShardRouting, alloc *Context) Decision {
	return ds.aggregate(alloc, func(d Decider) Decision {
		return d.CanRebalance(shard, alloc)
	})
}

// CanRebalanceCluster decides whether any rebalancing may currently happen at
// all, before looking at individual shards.
func (ds *Deciders) CanRebalanceCluster(alloc *Context) Decision {
	return ds.aggregate(alloc, func(d Decider) Decision {
		return d.CanRebalance(ShardRouting{}, alloc)
	})
}

// CanAutoExpandToNode decides whether an auto-expanding collection may grow a
// replica onto the node. The query carries no shard context, so it consults
// collection-level ignores, not the per-shard ones.
func (ds *Deciders) CanAutoExpandToNode(collection string, node string, alloc *Context) Decision {
	if alloc.ShouldIgnoreCollectionForNode(collection, node) {
		return NewDecision(TypeNo, "ignored",
			"collection %q is temporarily ignored on node %q", collection, node)
	}
	return ds.aggregate(alloc, func(d Decider) Decision {
		return d.CanAutoExpandToNode(collection, node, alloc)
	})
}

// CanForceAllocatePrimary decides whether an unassigned primary with an
// on-disk copy on the candidate node may be assigned there even though the
// ordinary allocation verdict says NO. Calling it for anything but an
// unassigned primary is a programming error.
func (ds *Deciders) CanForceAllocatePrimary(shard ShardRouting, node string, alloc *Context) Decision {
	if !shard.Primary || shard.Assigned() {
		panic(fmt.Sprintf("only unassigned primaries can be force-allocated, got %s on node %q", shard, shard.Node))
	}
	if alloc.ShouldIgnoreShardForNode(shard, node) {
		return ds.ignoredDecision(shard, node)
	}
	return ds.aggregate(alloc, func(d Decider) Decision {
		if fd, ok := d.(ForcePrimaryDecider); ok {
			return fd.CanForceAllocatePrimary(shard, node, alloc)
		}
		return defaultForceAllocatePrimary(d, shard, node, alloc)
	})
}

// aggregate runs one query against every rule in registration order. Without
// debug mode it returns the bare No singleton on the first NO: this loop runs
// once per shard-candidate pair on every reconciliation pass, so not
// evaluating the remaining rules once the answer is certain matters.
func (ds *Deciders) aggregate(alloc *Context, eval func(Decider) Decision) Decision {
	ret := &Multi{}
	for _, d := range ds.deciders {
		decision := eval(d)
		if decision.Type() == TypeNo {
			if !alloc.DebugDecision() {
				return No
			}
			ret.Add(decision)
		} else {
			addDecision(ret, decision, alloc)
		}
	}
	return ret
}

// addDecision never records the Always singleton and records plain YES
// decisions only at the strongest debug level, since an empty Multi already
// means YES.
func addDecision(ret *Multi, decision Decision, alloc *Context) {
	if decision != Always && (alloc.Debug() == DebugOn || decision.Type() != TypeYes) {
		ret.Add(decision)
	}
}

func (ds *Deciders) ignoredDecision(shard ShardRouting, node string) Decision {
	ds.logger.WithFields(logrus.Fields{
		"shard": shard.String(),
		"node":  node,
	}).Debug("shard is temporarily ignored on node")
	return NewDecision(TypeNo, "ignored",
		"shard %s is temporarily ignored on node %q", shard, node)
}
