package version

import (
	"sort"
	"strings"
)

// Label classifies a pull request and selects which version component to bump.
type Label string

const (
	LabelBreaking Label = "breaking"
	LabelFeature  Label = "feature"
	LabelRevision Label = "revision"
	LabelRelease  Label = "release"
)

// precedence orders labels for LabelSet.Select. Lower index wins.
var precedence = []Label{LabelBreaking, LabelFeature, LabelRevision, LabelRelease}

// ParseLabel maps a remote label name to a Label. Matching is exact after
// trimming whitespace and ignoring case; anything else is not a
// classification label.
func ParseLabel(name string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range precedence {
		if l == known {
			return l, true
		}
	}
	return "", false
}

// LabelSet is the set of classification labels applied to a request.
type LabelSet map[Label]struct{}

// NewLabelSet builds a set from raw label names, dropping unrecognized ones.
func NewLabelSet(names ...string) LabelSet {
	set := make(LabelSet, len(names))
	for _, name := range names {
		if l, ok := ParseLabel(name); ok {
			set[l] = struct{}{}
		}
	}
	return set
}

// Has reports whether l is in the set.
func (s LabelSet) Has(l Label) bool {
	_, ok := s[l]
	return ok
}

// Len returns the number of recognized labels.
func (s LabelSet) Len() int {
	return len(s)
}

// Labels returns the members in precedence order.
func (s LabelSet) Labels() []Label {
	out := make([]Label, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return rank(out[i]) < rank(out[j])
	})
	return out
}

// Select returns the single actionable label. When several classification
// labels are present the highest in precedence wins:
// breaking > feature > revision > release.
func (s LabelSet) Select() (Label, error) {
	for _, l := range precedence {
		if s.Has(l) {
			return l, nil
		}
	}
	return "", &PolicyError{Kind: MissingLabel}
}

func rank(l Label) int {
	for i, known := range precedence {
		if l == known {
			return i
		}
	}
	return len(precedence)
}
