package patch

import (
	"regexp"
	"strings"
)

var (
	fenceRe         = regexp.MustCompile("(?i)```json")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	escapedKeyRe    = regexp.MustCompile(`\\"(\w+)\\"`)
	plusNumberRe    = regexp.MustCompile(`:(\s*)\+(\d)`)
	greedyBlockRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// extractBlock pulls the first balanced-brace block out of arbitrary text.
// Brace counting is string-aware: braces inside quoted text are skipped,
// escape sequences handled. Returns "" when no balanced block exists.
func extractBlock(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// ExtractJSON locates the structured record inside raw generator output:
// decorative fencing is stripped, then a string-aware balanced-brace scan
// runs, with a greedy first-to-last-brace match as fallback for truncated
// responses.
func ExtractJSON(raw string) (string, error) {
	cleaned := fenceRe.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	block := extractBlock(cleaned)
	if block == "" {
		block = greedyBlockRe.FindString(strings.ReplaceAll(cleaned, "\r", ""))
	}
	if block == "" {
		return "", &ParseError{Reason: "no structured block in response"}
	}

	// Repair common generator defects: trailing separators, stray escaped
	// quotes around keys, a leading + before digits.
	block = trailingCommaRe.ReplaceAllString(block, "$1")
	block = escapedKeyRe.ReplaceAllString(block, `"$1"`)
	block = plusNumberRe.ReplaceAllString(block, ":$1$2")
	return strings.TrimSpace(block), nil
}
