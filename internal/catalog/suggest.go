package catalog

import "strings"

// SuggestObject returns the closest known object type to input, matched on
// value or label, or "" when nothing is close enough.
func (c *Catalog) SuggestObject(input string) string {
	candidates := make(map[string]string, len(c.objects)*2)
	for _, o := range c.objects {
		candidates[o.Value] = o.Value
		candidates[o.Label] = o.Value
	}
	return closest(input, candidates)
}

// SuggestState returns the closest lifecycle state of objectType to input.
func (c *Catalog) SuggestState(objectType, input string) string {
	obj, ok := c.Object(objectType)
	if !ok {
		return ""
	}
	candidates := make(map[string]string, len(obj.States)*2)
	for _, s := range obj.States {
		candidates[s.Value] = s.Value
		candidates[s.Label] = s.Value
	}
	return closest(input, candidates)
}

// ResolveObject maps an exact value or case-insensitive label to an object type.
func (c *Catalog) ResolveObject(input string) (string, bool) {
	if _, ok := c.index[input]; ok {
		return input, true
	}
	for _, o := range c.objects {
		if strings.EqualFold(o.Label, input) {
			return o.Value, true
		}
	}
	return "", false
}

// ResolveState maps an exact value or case-insensitive label to a state of objectType.
func (c *Catalog) ResolveState(objectType, input string) (string, bool) {
	if c.HasState(objectType, input) {
		return input, true
	}
	for _, s := range c.States(objectType) {
		if strings.EqualFold(s.Label, input) {
			return s.Value, true
		}
	}
	return "", false
}

// closest picks the candidate key with the smallest edit distance to input,
// within a third of the input length (at least 2). Keys map to the value
// that is returned.
func closest(input string, candidates map[string]string) string {
	needle := strings.ToLower(input)
	threshold := len(needle) / 3
	if threshold < 2 {
		threshold = 2
	}

	best := ""
	bestKey := ""
	bestDist := threshold + 1
	for key, value := range candidates {
		dist := levenshtein(needle, strings.ToLower(key))
		if dist == 0 {
			return value
		}
		// ties resolve to the lexically smallest key so results are stable
		if dist < bestDist || (dist == bestDist && best != "" && key < bestKey) {
			bestDist = dist
			best = value
			bestKey = key
		}
	}
	return best
}

// levenshtein computes the Levenshtein edit distance between two strings.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr := make([]int, len(b)+1)
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev = curr
	}
	return prev[len(b)]
}
