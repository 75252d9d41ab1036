package prompt

import (
	"strconv"
	"strings"
)

// UnifiedDiff renders a minimal line diff between two bodies under the given
// header labels. Lines are compared positionally; trailing surplus on either
// side shows up as pure deletions or additions. Empty result means the bodies
// are equal.
func UnifiedDiff(labelA, labelB, a, b string) string {
	if a == b {
		return ""
	}
	al := strings.Split(a, "\n")
	bl := strings.Split(b, "\n")

	var sb strings.Builder
	sb.WriteString("--- " + labelA + "\n")
	sb.WriteString("+++ " + labelB + "\n")
	n := len(al)
	if len(bl) > n {
		n = len(bl)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(al):
			sb.WriteString("+" + bl[i] + "\n")
		case i >= len(bl):
			sb.WriteString("-" + al[i] + "\n")
		case al[i] != bl[i]:
			sb.WriteString("-" + al[i] + "\n")
			sb.WriteString("+" + bl[i] + "\n")
		}
	}
	return sb.String()
}

// Diff compares two stored versions of a guideline and labels the headers
// with name@version. Missing versions yield an empty diff.
func (s *Store) Diff(name string, v1, v2 int) string {
	g1, ok1 := s.Get(name, v1)
	g2, ok2 := s.Get(name, v2)
	if !ok1 || !ok2 {
		return ""
	}
	return UnifiedDiff(
		name+"@"+strconv.Itoa(g1.Version),
		name+"@"+strconv.Itoa(g2.Version),
		g1.Body, g2.Body)
}
