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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiTypePrecedence(t *testing.T) {
	type testCase struct {
		name     string
		children []Decision
		expected Type
	}

	for _, tc := range []testCase{
		{
			name:     "empty multi is yes",
			children: nil,
			expected: TypeYes,
		},
		{
			name:     "all yes",
			children: []Decision{Yes, Yes, Yes},
			expected: TypeYes,
		},
		{
			name:     "throttle beats yes",
			children: []Decision{Yes, Throttle, Yes},
			expected: TypeThrottle,
		},
		{
			name:     "no beats throttle",
			children: []Decision{Yes, Throttle, No},
			expected: TypeNo,
		},
		{
			name:     "no first",
			children: []Decision{No, Throttle, Yes},
			expected: TypeNo,
		},
		{
			name:     "single throttle",
			children: []Decision{Throttle},
			expected: TypeThrottle,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := &Multi{}
			for _, c := range tc.children {
				m.Add(c)
			}
			assert.Equal(t, tc.expected, m.Type())
		})
	}
}

func TestMultiPreservesChildOrder(t *testing.T) {
	first := NewDecision(TypeYes, "first", "ok")
	second := NewDecision(TypeThrottle, "second", "slow down")
	third := NewDecision(TypeNo, "third", "not here")

	m := (&Multi{}).Add(first).Add(second).Add(third)

	children := m.Decisions()
	require.Len(t, children, 3)
	assert.Equal(t, "first", children[0].Label())
	assert.Equal(t, "second", children[1].Label())
	assert.Equal(t, "third", children[2].Label())
}

func TestDecisionExplanationFormatting(t *testing.T) {
	d := NewDecision(TypeNo, "disk", "node %q has only %d bytes free", "node1", 1024)
	assert.Equal(t, "disk", d.Label())
	assert.Equal(t, `node "node1" has only 1024 bytes free`, d.Explanation())
}

func TestSingletonsHaveNoExplanation(t *testing.T) {
	for _, d := range []Decision{Yes, No, Throttle, Always} {
		assert.Empty(t, d.Explanation())
	}
	assert.Equal(t, TypeYes, Always.Type())
	assert.Equal(t, TypeYes, Yes.Type())
	assert.Equal(t, TypeThrottle, Throttle.Type())
	assert.Equal(t, TypeNo, No.Type())
}

func TestAlwaysIsDistinctFromYes(t *testing.T) {
	// both behave as YES, but only Always is filtered from aggregation output
	assert.False(t, Always == Yes)
}

func TestMultiExplanationJoinsChildren(t *testing.T) {
	m := (&Multi{}).
		Add(NewDecision(TypeThrottle, "throttler", "too many recoveries")).
		Add(NewDecision(TypeNo, "filter", "node excluded"))

	expl := m.Explanation()
	assert.Contains(t, expl, "throttler")
	assert.Contains(t, expl, "too many recoveries")
	assert.Contains(t, expl, "filter")
	assert.Contains(t, expl, "node excluded")
}
