// Package segment splits generated text into ordered text and fenced-code
// segments.
package segment

import (
	"regexp"
	"strings"
)

// Kind distinguishes prose from code
type Kind string

const (
	KindText Kind = "text"
	KindCode Kind = "code"
)

// DefaultLanguage tags fences that carry no language
const DefaultLanguage = "text"

// Segment is one contiguous run of text or fenced code
type Segment struct {
	Kind     Kind   `json:"kind"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// CodeBlock is a fenced code segment reduced to what diffing needs
type CodeBlock struct {
	Language string
	Code     string
}

// fencePattern matches ```lang\n body ```. A word after the opening fence is
// only a language tag when a newline follows it; otherwise the second
// alternative keeps the whole run as untagged code (```return a+b```).
var fencePattern = regexp.MustCompile("(?s)```(?:([\\w+#.-]*)[ \\t]*\\r?\\n(.*?)|(.*?))```")

// Split segments raw in left-to-right order. Without fences it returns a
// single text segment holding the trimmed input, even when that is empty.
func Split(raw string) []Segment {
	matches := fencePattern.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return []Segment{{Kind: KindText, Content: strings.TrimSpace(raw)}}
	}

	segments := make([]Segment, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if text := strings.TrimSpace(raw[last:m[0]]); text != "" {
			segments = append(segments, Segment{Kind: KindText, Content: text})
		}

		language, body := DefaultLanguage, ""
		if m[4] >= 0 {
			if tag := raw[m[2]:m[3]]; tag != "" {
				language = tag
			}
			body = raw[m[4]:m[5]]
		} else {
			body = raw[m[6]:m[7]]
		}
		segments = append(segments, Segment{
			Kind:     KindCode,
			Content:  strings.TrimSpace(body),
			Language: language,
		})
		last = m[1]
	}

	if text := strings.TrimSpace(raw[last:]); text != "" {
		segments = append(segments, Segment{Kind: KindText, Content: text})
	}
	return segments
}

// Code returns the code segments in order
func Code(segments []Segment) []CodeBlock {
	var blocks []CodeBlock
	for _, s := range segments {
		if s.Kind == KindCode {
			blocks = append(blocks, CodeBlock{Language: s.Language, Code: s.Content})
		}
	}
	return blocks
}

// Reconstruct renders segments back to markdown: text as is, code fenced
// with its language tag, separated by blank lines.
func Reconstruct(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.Kind == KindCode {
			parts = append(parts, "```"+s.Language+"\n"+s.Content+"\n```")
			continue
		}
		parts = append(parts, s.Content)
	}
	return strings.Join(parts, "\n\n")
}
