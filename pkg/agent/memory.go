package agent

import (
	"maps"
	"reflect"

	"github.com/hbbio/nanoagent/pkg/errmodel"
)

// ComposePatches merges patch functions against a base memory snapshot. Each
// patch runs against its own copy of the base; a key of its result counts as
// written when it is new or its value differs from the base. A key written by
// more than one patch in the same composition is a conflict regardless of
// order, and even when both wrote the same value: two tools invoked in the
// same step would silently clobber each other, which is a programming error
// in tool design, not a transient fault. A patch that leaves a key at its
// base value records no write.
//
// The base value is never mutated.
func ComposePatches[M Memory](base M, patches ...Patch[M]) (M, error) {
	out := cloneMemory(base)
	written := map[string]int{}
	for i, p := range patches {
		if p == nil {
			continue
		}
		scratch := make(M, len(base))
		maps.Copy(scratch, base)
		res := p(scratch)
		for k, v := range res {
			orig, inBase := base[k]
			if inBase && reflect.DeepEqual(orig, v) {
				continue
			}
			if first, dup := written[k]; dup {
				return base, errmodel.Memory("patch_conflict",
					"memory key written by more than one patch",
					map[string]any{"key": k, "patches": []int{first, i}})
			}
			written[k] = i
			if out == nil {
				out = make(M, 1)
			}
			out[k] = v
		}
	}
	return out, nil
}

// cloneMemory shallow-copies a memory snapshot. Nil stays nil so empty
// memories round-trip unchanged.
func cloneMemory[M Memory](m M) M {
	if m == nil {
		var zero M
		return zero
	}
	return maps.Clone(m)
}
