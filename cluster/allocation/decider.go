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

// Decider is one named allocation policy rule. Implementations must be
// stateless per call, must not block or perform I/O, and may read but never
// mutate the context: a single reconciliation pass evaluates every rule for
// every shard-node pair.
//
// An empty node argument means the query is cluster-wide and carries no node
// context. Rules that only constrain specific nodes should return Always for
// such queries.
//
// Embed AlwaysAllow to only override the queries a rule cares about.
type Decider interface {
	// Name identifies the rule in decision labels and logs.
	Name() string
	// CanAllocate decides whether the shard copy may be placed on the node.
	CanAllocate(shard ShardRouting, node string, alloc *Context) Decision
	// CanRemain decides whether an assigned shard copy may stay on its node.
	CanRemain(shard ShardRouting, node string, alloc *Context) Decision
	// CanRebalance decides whether the shard copy may be moved purely to
	// improve balance. A zero-value shard asks whether rebalancing is
	// permitted at all, cluster-wide.
	CanRebalance(shard ShardRouting, alloc *Context) Decision
	// CanAutoExpandToNode decides whether an auto-expanding collection may
	// grow a replica onto the node.
	CanAutoExpandToNode(collection string, node string, alloc *Context) Decision
}

// ForcePrimaryDecider is implemented by rules that want their own judgment on
// force-allocating an unassigned primary. Rules that do not implement it get
// the default behavior: a NO from CanAllocate is overridden to YES so that a
// primary whose data would otherwise be lost can still be placed somewhere.
type ForcePrimaryDecider interface {
	Decider
	CanForceAllocatePrimary(shard ShardRouting, node string, alloc *Context) Decision
}

// AlwaysAllow is the neutral base rule: every query it answers is Always.
// Embed it and override selectively.
type AlwaysAllow struct{}

func (AlwaysAllow) CanAllocate(ShardRouting, string, *Context) Decision {
	return Always
}

func (AlwaysAllow) CanRemain(ShardRouting, string, *Context) Decision {
	return Always
}

func (AlwaysAllow) CanRebalance(ShardRouting, *Context) Decision {
	return Always
}

func (AlwaysAllow) CanAutoExpandToNode(string, string, *Context) Decision {
	return Always
}

// defaultForceAllocatePrimary derives a rule's force-allocation judgment from
// its ordinary CanAllocate verdict: NO is overridden to YES, anything else is
// passed through unchanged. Force-allocation is never stronger than an
// already permissive or throttled verdict.
func defaultForceAllocatePrimary(d Decider, shard ShardRouting, node string, alloc *Context) Decision {
	decision := d.CanAllocate(shard, node, alloc)
	if decision.Type() == TypeNo {
		return NewDecision(TypeYes, d.Name(),
			"primary shard %s cannot be allocated anywhere, forcing allocation on node %q to avoid data loss",
			shard, node)
	}
	return decision
}
