package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []Segment
	}{
		{
			name: "text code text",
			raw:  "before\n```js\ncode\n```\nafter",
			expected: []Segment{
				{Kind: KindText, Content: "before"},
				{Kind: KindCode, Content: "code", Language: "js"},
				{Kind: KindText, Content: "after"},
			},
		},
		{
			name:     "no fences",
			raw:      "  just prose\nover lines  ",
			expected: []Segment{{Kind: KindText, Content: "just prose\nover lines"}},
		},
		{
			name:     "empty input",
			raw:      "   \n ",
			expected: []Segment{{Kind: KindText, Content: ""}},
		},
		{
			name:     "untagged fence",
			raw:      "```\nreturn 1\n```",
			expected: []Segment{{Kind: KindCode, Content: "return 1", Language: DefaultLanguage}},
		},
		{
			name: "two fences without prose between",
			raw:  "```python\nprint(1)\n```\n\n```ts\nconst a = 1\n```",
			expected: []Segment{
				{Kind: KindCode, Content: "print(1)", Language: "python"},
				{Kind: KindCode, Content: "const a = 1", Language: "ts"},
			},
		},
		{
			name: "crlf and multi-line body",
			raw:  "Try this:\r\n```javascript\r\nconst x = 1;\r\nreturn x;\r\n```",
			expected: []Segment{
				{Kind: KindText, Content: "Try this:"},
				{Kind: KindCode, Content: "const x = 1;\r\nreturn x;", Language: "javascript"},
			},
		},
		{
			name:     "single-line fence keeps every word",
			raw:      "```return a+b```",
			expected: []Segment{{Kind: KindCode, Content: "return a+b", Language: DefaultLanguage}},
		},
		{
			name: "inline fence between prose",
			raw:  "Use ```const x = 1``` here",
			expected: []Segment{
				{Kind: KindText, Content: "Use"},
				{Kind: KindCode, Content: "const x = 1", Language: DefaultLanguage},
				{Kind: KindText, Content: "here"},
			},
		},
		{
			name:     "first line without newline is code",
			raw:      "```return a\n+ b```",
			expected: []Segment{{Kind: KindCode, Content: "return a\n+ b", Language: DefaultLanguage}},
		},
		{
			name:     "tag followed by spaces",
			raw:      "```js  \nreturn 1\n```",
			expected: []Segment{{Kind: KindCode, Content: "return 1", Language: "js"}},
		},
		{
			name:     "unterminated fence is text",
			raw:      "```js\nreturn 1",
			expected: []Segment{{Kind: KindText, Content: "```js\nreturn 1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Split(tt.raw))
		})
	}
}

func TestSplit_NoFencesProperty(t *testing.T) {
	inputs := []string{"", "a", "  a b  ", "\n\nline\n", "`single` and ``double`` ticks"}
	for _, raw := range inputs {
		segments := Split(raw)
		if assert.Len(t, segments, 1, raw) {
			assert.Equal(t, KindText, segments[0].Kind)
		}
	}
}

func TestCode(t *testing.T) {
	segments := Split("a\n```js\none\n```\nb\n```py\ntwo\n```")
	assert.Equal(t, []CodeBlock{
		{Language: "js", Code: "one"},
		{Language: "py", Code: "two"},
	}, Code(segments))

	assert.Empty(t, Code(Split("no code")))
}

func TestReconstruct(t *testing.T) {
	raw := "before\n\n```js\ncode\n```\n\nafter"
	assert.Equal(t, raw, Reconstruct(Split(raw)))

	// Reconstruction is stable under re-segmentation
	once := Reconstruct(Split("x ```go\nfmt.Println()``` y"))
	assert.Equal(t, once, Reconstruct(Split(once)))
}
