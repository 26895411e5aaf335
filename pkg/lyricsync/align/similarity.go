package align

import (
	"github.com/pmezard/go-difflib/difflib"
)

// Ratio scores how similar a and b are on a 0..1 scale using the
// Ratcliff/Obershelp measure: twice the number of characters covered by the
// recursively found longest common blocks, divided by the combined length.
//
// Characters are Unicode code points. b is the side subject to difflib's
// automatic junk heuristic (elements occurring in more than 1% of a sequence
// of 200 or more), so callers pass the lyric line as a and the transcript
// text as b. Two empty strings score 1.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(symbols(a), symbols(b)).Ratio()
}

func symbols(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
