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

import "fmt"

// DebugMode controls how much reasoning an allocation query retains. The
// ordinary mode short-circuits on the first NO for speed; the debug modes keep
// evaluating so an operator can see every reason an action is (dis)allowed.
type DebugMode int

const (
	// DebugOff is the default production mode: bare verdicts, first NO wins.
	DebugOff DebugMode = iota
	// DebugOn retains every child decision, including YES ones.
	DebugOn
	// DebugExcludeYes retains NO and THROTTLE decisions but drops plain YES
	// ones, which are noise in the common case.
	DebugExcludeYes
)

// ShardRouting describes the assignment state of one shard copy.
type ShardRouting struct {
	Collection string
	Shard      string
	// Node is the node currently holding this copy, empty while unassigned.
	Node    string
	Primary bool
}

func (r ShardRouting) Assigned() bool {
	return r.Node != ""
}

func (r ShardRouting) String() string {
	role := "replica"
	if r.Primary {
		role = "primary"
	}
	return fmt.Sprintf("%s/%s (%s)", r.Collection, r.Shard, role)
}

type ignoreKey struct {
	collection string
	shard      string
	node       string
}

// Context is the shared state of one reconciliation pass that allocation
// queries evaluate against. Rules may read it but never mutate it; the ignore
// set is filled by the reconciliation loop itself as it rules out nodes.
type Context struct {
	debug   DebugMode
	ignored map[ignoreKey]struct{}
}

func NewContext(debug DebugMode) *Context {
	return &Context{
		debug:   debug,
		ignored: make(map[ignoreKey]struct{}),
	}
}

func (c *Context) Debug() DebugMode {
	return c.debug
}

// DebugDecision reports whether any debug mode is active, i.e. whether NO
// decisions should be collected instead of short-circuiting.
func (c *Context) DebugDecision() bool {
	return c.debug != DebugOff
}

// Ignore excludes the given (shard, node) pair for the remainder of this
// reconciliation pass.
func (c *Context) Ignore(shard ShardRouting, node string) {
	c.ignored[ignoreKey{shard.Collection, shard.Shard, node}] = struct{}{}
}

// ShouldIgnoreShardForNode reports whether the pair was excluded earlier in
// the same pass.
func (c *Context) ShouldIgnoreShardForNode(shard ShardRouting, node string) bool {
	_, ok := c.ignored[ignoreKey{shard.Collection, shard.Shard, node}]
	return ok
}

// IgnoreCollection excludes the whole collection on the node for the
// remainder of this pass. Collection-level ignores are a separate namespace
// from per-shard ones; they drive the auto-expand query, which carries no
// shard context.
func (c *Context) IgnoreCollection(collection, node string) {
	c.ignored[ignoreKey{collection: collection, node: node}] = struct{}{}
}

// ShouldIgnoreCollectionForNode reports whether the collection was excluded
// on the node earlier in the same pass.
func (c *Context) ShouldIgnoreCollectionForNode(collection, node string) bool {
	_, ok := c.ignored[ignoreKey{collection: collection, node: node}]
	return ok
}
