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
	"strings"
)

// Type is the tri-state verdict of an allocation query.
type Type int

const (
	// TypeYes allows the action.
	TypeYes Type = iota
	// TypeThrottle allows the action in principle but asks the caller to
	// retry later, typically because too many similar actions are already in
	// flight.
	TypeThrottle
	// TypeNo forbids the action.
	TypeNo
)

func (t Type) String() string {
	switch t {
	case TypeYes:
		return "YES"
	case TypeThrottle:
		return "THROTTLE"
	case TypeNo:
		return "NO"
	default:
		return fmt.Sprintf("TYPE(%d)", int(t))
	}
}

// Decision is the immutable verdict produced by a single policy rule or by
// aggregating several of them. A query never returns nil; the absence of a
// constraint is expressed as Yes or Always.
type Decision interface {
	Type() Type
	// Label identifies the rule that produced the decision, for diagnostics.
	Label() string
	// Explanation is a human-readable reason, empty unless one was attached.
	Explanation() string
}

type single struct {
	typ    Type
	label  string
	format string
	args   []interface{}
}

// Type-only singletons. Always behaves as Yes but is additionally excluded
// from aggregation output, so mandatory no-op verdicts do not clutter explain
// results.
var (
	Yes      Decision = &single{typ: TypeYes}
	Throttle Decision = &single{typ: TypeThrottle}
	No       Decision = &single{typ: TypeNo}
	Always   Decision = &single{typ: TypeYes}
)

// NewDecision creates a decision with an explanation. The explanation is
// formatted lazily from the template and args, so building a decision stays
// cheap when nobody asks for the reason.
func NewDecision(typ Type, label, format string, args ...interface{}) Decision {
	return &single{typ: typ, label: label, format: format, args: args}
}

func (d *single) Type() Type    { return d.typ }
func (d *single) Label() string { return d.label }

func (d *single) Explanation() string {
	if d.format == "" {
		return ""
	}
	if len(d.args) == 0 {
		return d.format
	}
	return fmt.Sprintf(d.format, d.args...)
}

func (d *single) String() string {
	if expl := d.Explanation(); expl != "" {
		return fmt.Sprintf("%s(%s)", d.typ, expl)
	}
	return d.typ.String()
}

// Multi aggregates the decisions of several rules. Children are kept in rule
// evaluation order so that explain output is deterministic.
type Multi struct {
	decisions []Decision
}

// Add appends a child decision and returns the receiver for chaining.
func (m *Multi) Add(d Decision) *Multi {
	m.decisions = append(m.decisions, d)
	return m
}

// Type reduces the children with the precedence NO > THROTTLE > YES. An empty
// Multi is YES.
func (m *Multi) Type() Type {
	ret := TypeYes
	for _, d := range m.decisions {
		switch d.Type() {
		case TypeNo:
			return TypeNo
		case TypeThrottle:
			ret = TypeThrottle
		}
	}
	return ret
}

func (m *Multi) Label() string { return "" }

func (m *Multi) Explanation() string {
	parts := make([]string, 0, len(m.decisions))
	for _, d := range m.decisions {
		if expl := d.Explanation(); expl != "" {
			parts = append(parts, fmt.Sprintf("[%s: %s: %s]", d.Label(), d.Type(), expl))
		}
	}
	return strings.Join(parts, " ")
}

// Decisions returns the child decisions in evaluation order.
func (m *Multi) Decisions() []Decision {
	return m.decisions
}
