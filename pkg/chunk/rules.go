package chunk

import "strings"

// Outcome is the result of applying one Rule to a payload.
type Outcome int

const (
	// Continue means the rule did not recognize the payload; the next rule
	// is tried.
	Continue Outcome = iota

	// Emit means the rule produced a Body.
	Emit

	// Discard means the rule recognized the payload as carrying nothing to
	// render (for example an echo of the user's own message). No later rule
	// is tried.
	Discard
)

// Rule recognizes one payload shape.
type Rule struct {
	Name  string
	apply func(payload any) (Body, Outcome)
}

// Apply runs the rule against a parsed payload.
func (r Rule) Apply(payload any) (Body, Outcome) {
	return r.apply(payload)
}

// Rules returns the shape rules in priority order. The first rule that emits
// or discards wins.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// rules is ordered from most specific to most generic so envelope metadata
// is never mistaken for message text.
var rules = []Rule{
	{Name: "string", apply: bareString},
	{Name: "choices", apply: choicesDelta},
	{Name: "delta", apply: deltaField},
	{Name: "token", apply: stringField("token")},
	{Name: "chunk", apply: stringField("chunk")},
	{Name: "user_role", apply: userRole},
	{Name: "message", apply: messageField},
	{Name: "assistant_message", apply: assistantMessage},
	{Name: "output_text", apply: textField("output_text", ModeReplace)},
	{Name: "content", apply: textField("content", ModeAppend)},
	{Name: "text", apply: textField("text", ModeAppend)},
}

func bareString(payload any) (Body, Outcome) {
	s, ok := payload.(string)
	if !ok || s == "" {
		return Body{}, Continue
	}
	return Body{Text: s, Mode: ModeAppend}, Emit
}

// choicesDelta handles OpenAI-compatible chunks: choices[0].delta, or the
// legacy completions choices[0].text.
func choicesDelta(payload any) (Body, Outcome) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return Body{}, Continue
	}

	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return Body{}, Continue
	}

	choice, ok := choices[0].(map[string]any)
	if !ok {
		return Body{}, Continue
	}

	if delta, ok := choice["delta"].(map[string]any); ok {
		return emitIfText(extractText(delta), ModeAppend)
	}

	if text, ok := choice["text"]; ok {
		return emitIfText(extractText(text), ModeAppend)
	}

	return Body{}, Continue
}

func deltaField(payload any) (Body, Outcome) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return Body{}, Continue
	}

	switch delta := obj["delta"].(type) {
	case string:
		return emitIfText(delta, ModeAppend)
	case map[string]any, []any:
		return emitIfText(extractText(delta), ModeAppend)
	default:
		return Body{}, Continue
	}
}

func stringField(key string) func(any) (Body, Outcome) {
	return func(payload any) (Body, Outcome) {
		obj, ok := payload.(map[string]any)
		if !ok {
			return Body{}, Continue
		}

		s, _ := obj[key].(string)
		return emitIfText(s, ModeAppend)
	}
}

func userRole(payload any) (Body, Outcome) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return Body{}, Continue
	}

	if role, _ := obj["role"].(string); role == "user" {
		return Body{}, Discard
	}
	return Body{}, Continue
}

// messageField handles full-message replacement payloads, suppressing echoes
// of the caller's own message.
func messageField(payload any) (Body, Outcome) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return Body{}, Continue
	}

	msg, ok := obj["message"].(map[string]any)
	if !ok {
		return Body{}, Continue
	}

	if role, _ := msg["role"].(string); role == "user" {
		return Body{}, Discard
	}

	return emitIfText(extractText(msg["content"]), ModeReplace)
}

func assistantMessage(payload any) (Body, Outcome) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return Body{}, Continue
	}

	msg, ok := obj["assistant_message"].(map[string]any)
	if !ok {
		return Body{}, Continue
	}

	return emitIfText(extractText(msg["content"]), ModeReplace)
}

func textField(key string, mode Mode) func(any) (Body, Outcome) {
	return func(payload any) (Body, Outcome) {
		obj, ok := payload.(map[string]any)
		if !ok {
			return Body{}, Continue
		}

		v, ok := obj[key]
		if !ok {
			return Body{}, Continue
		}

		return emitIfText(extractText(v), mode)
	}
}

func emitIfText(text string, mode Mode) (Body, Outcome) {
	if text == "" {
		return Body{}, Continue
	}
	return Body{Text: text, Mode: mode}, Emit
}

// extractText pulls human-readable text out of a field of unknown shape.
func extractText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case []any:
		var sb strings.Builder
		for _, item := range t {
			switch el := item.(type) {
			case string:
				sb.WriteString(el)
			case map[string]any:
				if s, ok := el["text"].(string); ok {
					sb.WriteString(s)
				} else if s, ok := el["content"].(string); ok {
					sb.WriteString(s)
				}
			}
		}
		return sb.String()
	case map[string]any:
		if s, ok := t["text"].(string); ok {
			return s
		}
		switch content := t["content"].(type) {
		case string:
			return content
		case []any:
			return extractText(content)
		}
		return ""
	default:
		return ""
	}
}
