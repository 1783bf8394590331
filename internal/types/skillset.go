package types

import "strings"

// SkillSet is an ordered list of skill labels. Equality is case-insensitive;
// the first-seen spelling is kept.
type SkillSet []string

func skillKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Contains reports whether s is in the set, ignoring case.
func (set SkillSet) Contains(s string) bool {
	key := skillKey(s)
	for _, have := range set {
		if skillKey(have) == key {
			return true
		}
	}
	return false
}

// Merge returns set followed by the skills of others not already present.
// Blank labels are dropped and labels are trimmed.
func (set SkillSet) Merge(others ...string) SkillSet {
	out := make(SkillSet, 0, len(set)+len(others))
	seen := make(map[string]bool, len(set)+len(others))
	for _, s := range append(append([]string{}, set...), others...) {
		key := skillKey(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// Difference returns the skills of set missing from other, in set order.
func (set SkillSet) Difference(other SkillSet) SkillSet {
	var out SkillSet
	for _, s := range set.Merge() {
		if !other.Contains(s) {
			out = append(out, s)
		}
	}
	return out
}

// Intersect counts the distinct skills of set that other also has.
func (set SkillSet) Intersect(other SkillSet) int {
	n := 0
	for _, s := range set.Merge() {
		if other.Contains(s) {
			n++
		}
	}
	return n
}
