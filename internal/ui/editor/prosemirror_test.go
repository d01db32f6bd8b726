package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"null", `null`, ""},
		{"empty doc", `{"type":"doc"}`, ""},
		{"string content", `"just text"`, "just text"},
		{"invalid", `{`, ""},
		{
			"paragraphs with marks",
			`{"type":"doc","content":[
				{"type":"paragraph","content":[{"type":"text","text":"Hello "},{"type":"text","text":"world","marks":[{"type":"bold"}]}]},
				{"type":"paragraph"}
			]}`,
			"Hello world\n",
		},
		{
			"heading and list",
			`{"type":"doc","content":[
				{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Plan"}]},
				{"type":"bulletList","content":[
					{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"one"}]}]},
					{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"two"}]}]}
				]}
			]}`,
			"## Plan\n- one\n- two",
		},
		{
			"hard break",
			`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"a"},{"type":"hardBreak"},{"type":"text","text":"b"}]}]}`,
			"a\nb",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText([]byte(tt.doc)))
		})
	}
}

func TestFromTextKeepsStructure(t *testing.T) {
	text := "# Title\nintro\n- a\n- b\n---\nend"
	doc := FromText(text)
	assert.Equal(t, text, PlainText(doc))
	assert.Contains(t, string(doc), `"type":"bulletList"`)
	assert.Contains(t, string(doc), `"type":"heading"`)
}

func TestEmpty(t *testing.T) {
	assert.True(t, Empty(nil))
	assert.True(t, Empty(FromText("  ")))
	assert.False(t, Empty(FromText("x")))
}
