package props

// DeepMerge recursively merges b into a and returns a new map; neither
// input is modified. The result's key set is the union of both. For a key
// present in both, map values merge recursively and anything else takes
// b's value. Merging a map against a non-map replaces wholesale with the
// right-hand value; this is policy, not an error.
//
// DeepMerge satisfies merge(x, {}) == x, merge({}, x) == x, and
// associativity over nested-map triples.
func DeepMerge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, bv := range b {
		if av, ok := out[k]; ok {
			out[k] = mergeValue(av, bv)
			continue
		}
		out[k] = bv
	}
	return out
}

// mergeValue merges two values, recursing only when both are maps.
func mergeValue(a, b any) any {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if aok && bok {
		return DeepMerge(am, bm)
	}
	return b
}
