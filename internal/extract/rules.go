package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// defaultTypes maps inflected object-type words to their canonical form.
var defaultTypes = map[string][]string{
	"парк":       {"парк", "парка", "парке", "парку", "парком"},
	"сад":        {"сад", "сада", "саду", "садом"},
	"сквер":      {"сквер", "сквера", "сквере", "скверу", "сквером"},
	"площадь":    {"площадь", "площади", "площадью"},
	"музей":      {"музей", "музея", "музее", "музею", "музеем"},
	"памятник":   {"памятник", "памятника", "памятнике", "памятнику"},
	"монумент":   {"монумент", "монумента", "монументе"},
	"мемориал":   {"мемориал", "мемориала", "мемориале"},
	"кладбище":   {"кладбище", "кладбища", "кладбищем"},
	"пляж":       {"пляж", "пляжа", "пляже", "пляжу"},
	"озеро":      {"озеро", "озера", "озере", "озеру"},
	"пруд":       {"пруд", "пруда", "пруду"},
	"станция":    {"станция", "станции", "станцию"},
	"вокзал":     {"вокзал", "вокзала", "вокзале"},
	"метро":      {"метро"},
	"больница":   {"больница", "больницы", "больнице", "больницу"},
	"театр":      {"театр", "театра", "театре"},
	"собор":      {"собор", "собора", "соборе"},
	"набережная": {"набережная", "набережной", "набережную"},
}

// tokenRe matches a quoted name or a single word.
var tokenRe = regexp.MustCompile(`«[^»]+»|"[^"]+"|“[^”]+”|[\p{L}\p{N}][\p{L}\p{N}-]*`)

// maxNameWords bounds how many capitalized words after a type word are
// taken as the name.
const maxNameWords = 3

type token struct {
	text   string
	quoted bool
}

func (t token) capitalized() bool {
	r, _ := utf8.DecodeRuneInString(t.text)
	return unicode.IsUpper(r)
}

// RuleExtractor finds facts by locating object-type words and the proper
// name next to them: a quoted name or capitalized words right after the
// type word, otherwise a capitalized word right before it.
type RuleExtractor struct {
	types map[string]string // surface form -> canonical type
}

// NewRuleExtractor returns an extractor over the built-in Russian type words.
func NewRuleExtractor() *RuleExtractor {
	types := make(map[string]string)
	for canon, forms := range defaultTypes {
		for _, f := range forms {
			types[f] = canon
		}
	}
	return &RuleExtractor{types: types}
}

// Extract implements FactExtractor. It never fails.
func (e *RuleExtractor) Extract(_ context.Context, text string) ([]Fact, error) {
	toks := tokenize(text)
	lower := cases.Lower(language.Russian)

	var facts []Fact
	for i := 0; i < len(toks); i++ {
		if toks[i].quoted {
			continue
		}
		canon, ok := e.types[lower.String(toks[i].text)]
		if !ok {
			continue
		}

		fact := Fact{Type: canon}
		next := i + 1
		switch {
		case next < len(toks) && toks[next].quoted:
			fact.Value = toks[next].text
			i = next
		case next < len(toks) && e.nameWord(toks[next], lower):
			var words []string
			for j := next; j < len(toks) && len(words) < maxNameWords && e.nameWord(toks[j], lower); j++ {
				words = append(words, toks[j].text)
			}
			fact.Value = strings.Join(words, " ")
			i = next + len(words) - 1
		case i > 0 && e.nameWord(toks[i-1], lower):
			fact.Value = toks[i-1].text
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

// nameWord reports whether t can be part of a proper name.
func (e *RuleExtractor) nameWord(t token, lower cases.Caser) bool {
	if t.quoted || !t.capitalized() {
		return false
	}
	_, isType := e.types[lower.String(t.text)]
	return !isType
}

func tokenize(text string) []token {
	matches := tokenRe.FindAllString(text, -1)
	out := make([]token, 0, len(matches))
	for _, m := range matches {
		if r, size := utf8.DecodeRuneInString(m); r == '«' || r == '"' || r == '“' {
			_, tail := utf8.DecodeLastRuneInString(m)
			inner := strings.TrimSpace(m[size : len(m)-tail])
			if inner != "" {
				out = append(out, token{text: inner, quoted: true})
			}
			continue
		}
		out = append(out, token{text: m})
	}
	return out
}
