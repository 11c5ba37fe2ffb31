package job

// maxDepth bounds both wrapper unwrapping and container descent.
const maxDepth = 32

// Normalizer is implemented by call-time wrapper objects, such as a bound
// parameters object, that stand for a plainer value. Matching and recording
// always operate on the normalized value.
type Normalizer interface {
	Normalize() any
}

// Normalize unwraps Normalizer values and descends into []any and
// map[string]any containers. The result never aliases v's containers.
// Wrappers that keep returning wrappers stop unwrapping after maxDepth levels.
func Normalize(v any) any { return normalize(v, 0) }

func normalize(v any, depth int) any {
	for range maxDepth {
		n, ok := v.(Normalizer)
		if !ok {
			break
		}

		v = n.Normalize()
	}

	if depth >= maxDepth {
		return v
	}

	switch t := v.(type) {
	case []any:
		return normalizeSlice(t, depth+1)
	case map[string]any:
		return normalizeMap(t, depth+1)
	default:
		return v
	}
}

func normalizeSlice(in []any, depth int) []any {
	if in == nil {
		return nil
	}

	out := make([]any, len(in))
	for i, v := range in {
		out[i] = normalize(v, depth)
	}

	return out
}

func normalizeMap(in map[string]any, depth int) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = normalize(v, depth)
	}

	return out
}

func cloneSlice(in []any) []any { return normalizeSlice(in, 0) }

func cloneMap(in map[string]any) map[string]any { return normalizeMap(in, 0) }
