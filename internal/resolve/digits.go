package resolve

import (
	"regexp"
	"sort"
	"strings"
)

var digitRunRe = regexp.MustCompile(`\d+`)

// DigitRuns returns the maximal runs of ASCII digits in s, in order of
// appearance. Duplicates are kept.
func DigitRuns(s string) []string {
	return digitRunRe.FindAllString(s, -1)
}

// SameDigitRuns reports whether a and b contain the same set of digit runs.
// Order and multiplicity are ignored; two empty sets are equal.
func SameDigitRuns(a, b []string) bool {
	return digitKey(a) == digitKey(b)
}

// digitKey renders a digit-run set as a canonical string so that set
// comparison becomes string equality.
func digitKey(runs []string) string {
	if len(runs) == 0 {
		return ""
	}
	set := make(map[string]struct{}, len(runs))
	for _, r := range runs {
		set[r] = struct{}{}
	}
	uniq := make([]string, 0, len(set))
	for r := range set {
		uniq = append(uniq, r)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ",")
}
