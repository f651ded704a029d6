package sentiment

import (
	"encoding/json"
	"errors"
	"strings"
)

var fenceReplacer = strings.NewReplacer("```json", "", "```", "")

// Clean removes Markdown code fences and ASCII control characters (0x00-0x1F)
// and trims the surrounding whitespace.
func Clean(text string) string {
	text = fenceReplacer.Replace(text)
	text = strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}

// Normalize flattens and cleans model content and parses it as JSON.
// Unparseable output fails with a KindMalformedResponse error.
func Normalize(c Content) (json.RawMessage, error) {
	cleaned := Clean(Flatten(c))
	if cleaned == "" {
		return nil, NewMalformedResponseError(errors.New("model returned no JSON"))
	}

	var parsed json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, NewMalformedResponseError(err)
	}
	return parsed, nil
}
