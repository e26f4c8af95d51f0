/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package debuggee

import (
	"github.com/google/go-cmp/cmp"

	"github.com/microsoft/dapmirror/pkg/immutable"
)

// reconciler merges a freshly fetched list of server payloads (R) into the previously loaded
// list of domain entities (E), matching them by key (K).
type reconciler[E comparable, R any, K comparable] struct {
	key func(R) K

	// remote returns the server payload the entity was built from.
	remote func(E) R

	// fresh wraps a payload that has no previous entity.
	fresh func(R) E

	// carry wraps a changed payload, keeping the nested state of the previous entity.
	carry func(prev E, r R) E
}

// merge returns one entity per payload, in payload order. A previous entity whose payload is
// deeply equal to the new one is reused as is. Keys may repeat (e.g. shadowed variables);
// repeated keys are matched to previous entities in order of appearance.
// If the result is element-wise identical to prev, prev itself is returned.
func (rc reconciler[E, R, K]) merge(prev []E, remotes []R) []E {
	previous := make(map[K][]E, len(prev))
	for _, p := range prev {
		k := rc.key(rc.remote(p))
		previous[k] = append(previous[k], p)
	}

	merged := make([]E, 0, len(remotes))
	for _, r := range remotes {
		k := rc.key(r)
		candidates := previous[k]
		if len(candidates) == 0 {
			merged = append(merged, rc.fresh(r))
			continue
		}

		p := candidates[0]
		previous[k] = candidates[1:]

		if cmp.Equal(rc.remote(p), r) {
			merged = append(merged, p)
		} else {
			merged = append(merged, rc.carry(p, r))
		}
	}

	return immutable.ReuseIfEqual(prev, merged)
}
