package pipeline

import "strings"

// cleanJSON extracts the JSON object or array from model output that may
// contain markdown code fences or surrounding prose. Whichever opening
// delimiter appears first decides which form is extracted.
func cleanJSON(text string) string {
	text = stripFences(text)

	obj := strings.Index(text, "{")
	arr := strings.Index(text, "[")
	if arr >= 0 && (obj < 0 || arr < obj) {
		return cleanDelimited(text, "[", "]")
	}
	return cleanDelimited(text, "{", "}")
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// cleanDelimited slices from the first opening to the last closing
// delimiter, leaving the text untouched when neither is present.
func cleanDelimited(text, open, close string) string {
	start := strings.Index(text, open)
	end := strings.LastIndex(text, close)
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
