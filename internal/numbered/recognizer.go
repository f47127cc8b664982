package numbered

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Reference is a facility identified by category and number.
type Reference struct {
	Category string
	Number   string
}

// String renders the reference as "<category> № <number>".
func (r Reference) String() string {
	return r.Category + " № " + r.Number
}

type pattern struct {
	category string
	re       *regexp.Regexp
}

// Recognizer finds numbered facility references in text. It is immutable
// after construction and safe for concurrent use.
type Recognizer struct {
	patterns []pattern
}

// NewRecognizer compiles one pattern per surface form in dict.
//
// Go's \b only knows ASCII word characters, so the leading word boundary is
// spelled out as "start of text or a non-letter, non-digit rune".
func NewRecognizer(dict Dictionary) (*Recognizer, error) {
	if len(dict) == 0 {
		return nil, eris.New("numbered: empty dictionary")
	}

	lower := cases.Lower(language.Russian)
	var patterns []pattern
	for _, cat := range dict.Categories() {
		forms := append([]string(nil), dict[cat]...)
		sort.Strings(forms)
		for _, form := range forms {
			form = strings.TrimSpace(lower.String(form))
			if form == "" {
				continue
			}
			expr := `(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(form) + `[\s\p{Zs}]+№?[\s\p{Zs}]*(\d+)`
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, eris.Wrapf(err, "numbered: compile form %q", form)
			}
			patterns = append(patterns, pattern{category: cat, re: re})
		}
	}

	return &Recognizer{patterns: patterns}, nil
}

// Find returns the numbered references in text, one per distinct number.
// When several categories share a number the longest category label wins;
// equal lengths fall back to the lexicographically smaller label. Results
// are ordered by number.
func (r *Recognizer) Find(text string) []Reference {
	// cases.Caser keeps state, so a fresh one is needed per call.
	text = cases.Lower(language.Russian).String(text)

	byNumber := make(map[string]string)
	for _, p := range r.patterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			num := m[1]
			cur, ok := byNumber[num]
			if !ok || preferLabel(p.category, cur) {
				byNumber[num] = p.category
			}
		}
	}

	out := make([]Reference, 0, len(byNumber))
	for num, cat := range byNumber {
		out = append(out, Reference{Category: cat, Number: num})
	}
	sort.Slice(out, func(i, j int) bool {
		return lessNumber(out[i].Number, out[j].Number)
	})
	return out
}

// Phrases returns Find's references rendered as strings.
func (r *Recognizer) Phrases(text string) []string {
	refs := r.Find(text)
	out := make([]string, len(refs))
	for i, ref := range refs {
		out[i] = ref.String()
	}
	return out
}

// preferLabel reports whether candidate should replace current.
func preferLabel(candidate, current string) bool {
	cl, ol := utf8.RuneCountInString(candidate), utf8.RuneCountInString(current)
	if cl != ol {
		return cl > ol
	}
	return candidate < current
}

// lessNumber orders digit strings numerically without parsing, so arbitrarily
// long numbers are fine. Leading zeros sort after the bare number.
func lessNumber(a, b string) bool {
	ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		return len(ta) < len(tb)
	}
	if ta != tb {
		return ta < tb
	}
	return a < b
}
