// Package extract turns free-form text into candidate object phrases using a
// pluggable fact extractor.
package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Fact is a (name, object type) pair found in text. Either part may be empty.
type Fact struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Phrase renders the fact as a candidate phrase: "value type", or whichever
// part is present. It returns "" when both are empty.
func (f Fact) Phrase() string {
	v, t := strings.TrimSpace(f.Value), strings.TrimSpace(f.Type)
	switch {
	case v != "" && t != "":
		return v + " " + t
	case v != "":
		return v
	default:
		return t
	}
}

// FactExtractor finds facts in text. On failure it may return the facts
// found before the error alongside it.
type FactExtractor interface {
	Extract(ctx context.Context, text string) ([]Fact, error)
}

// Candidates runs ex over text and returns one phrase per usable fact.
//
// A nil text yields nil. Any other input yields a non-nil slice, possibly
// empty. Extractor errors and panics are logged and swallowed; phrases built
// from facts returned before the failure are kept.
func Candidates(ctx context.Context, ex FactExtractor, text *string) (out []string) {
	if text == nil {
		return nil
	}
	out = []string{}

	log := zap.L().With(zap.String("component", "extract"))
	defer func() {
		if r := recover(); r != nil {
			log.Debug("extract: extractor panicked", zap.String("panic", fmt.Sprint(r)))
		}
	}()

	facts, err := ex.Extract(ctx, *text)
	for _, f := range facts {
		if p := f.Phrase(); p != "" {
			out = append(out, p)
		}
	}
	if err != nil {
		log.Debug("extract: extraction failed",
			zap.Error(err),
			zap.Int("kept", len(out)),
		)
	}
	return out
}
