package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cityobj/pkg/anthropic"
)

const llmSystemPrompt = `You extract references to urban objects (parks, gardens, squares, museums, monuments, cemeteries, beaches, stations, schools, hospitals) from Russian text.
Return only a JSON array. Each element is an object {"value": <proper name or "">, "type": <object type word in Russian, nominative case, or "">}.
Keep names exactly as written. Return [] when there are none.`

// LLMExtractor asks an Anthropic model for facts.
type LLMExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewLLMExtractor creates an extractor that calls model through client.
func NewLLMExtractor(client anthropic.Client, model string, maxTokens int64) *LLMExtractor {
	return &LLMExtractor{client: client, model: model, maxTokens: maxTokens}
}

// Extract implements FactExtractor.
func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]Fact, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	temp := 0.0
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		System:      llmSystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: text}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: llm request")
	}
	resp.Usage.LogUsage(e.model, "extract")

	return parseFacts(resp.Text())
}

// parseFacts decodes the first JSON array in s, tolerating prose or code
// fences around it.
func parseFacts(s string) ([]Fact, error) {
	start, end := strings.Index(s, "["), strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return nil, eris.Errorf("extract: no JSON array in model output %q", truncate(s, 80))
	}

	var facts []Fact
	if err := json.Unmarshal([]byte(s[start:end+1]), &facts); err != nil {
		return nil, eris.Wrap(err, "extract: decode model output")
	}
	return facts, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
