// Package parsers holds the free-text parsing glue that sits in front of the
// conversation flow. The flow machine only ever sees a plain candidate name
// string produced here.
package parsers

import (
	"regexp"
	"strings"
)

// basic safety limits to avoid pathological inputs
const (
	maxInputLen = 4 * 1024 // 4KB of free text is more than enough for a name
	maxNameLen  = 50
)

// Common patterns for name introductions like "My name is John" or "I'm Sarah".
// Heuristic by nature: multi-clause input ("it's cold but my name is John")
// may match on the wrong clause.
var introPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)my name is\s+([a-zA-Z]+(?:\s+[a-zA-Z]+)*)`),
	regexp.MustCompile(`(?i)i'm\s+([a-zA-Z]+(?:\s+[a-zA-Z]+)*)`),
	regexp.MustCompile(`(?i)i am\s+([a-zA-Z]+(?:\s+[a-zA-Z]+)*)`),
	regexp.MustCompile(`(?i)call me\s+([a-zA-Z]+(?:\s+[a-zA-Z]+)*)`),
	regexp.MustCompile(`(?i)name:\s*([a-zA-Z]+(?:\s+[a-zA-Z]+)*)`),
	regexp.MustCompile(`(?i)it's\s+([a-zA-Z]+(?:\s+[a-zA-Z]+)*)`),
}

var (
	fillerWords = regexp.MustCompile(`(?i)\b(the|a|an|is|am|are|my|me|call|name)\b`)
	punctuation = regexp.MustCompile(`[^\w\s]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// ExtractName pulls an actual name out of natural language input. When no
// introduction pattern matches, the whole input is treated as the name after
// stripping filler words and punctuation.
func ExtractName(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > maxInputLen {
		text = text[:maxInputLen]
	}

	for _, p := range introPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	cleaned := fillerWords.ReplaceAllString(text, "")
	cleaned = punctuation.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))

	if cleaned == "" || len(cleaned) > maxNameLen {
		if len(text) > maxNameLen {
			text = text[:maxNameLen]
		}
		return strings.TrimSpace(text)
	}

	return cleaned
}
