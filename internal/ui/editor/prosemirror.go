// Package editor converts note content between the stored ProseMirror JSON
// document and the plain text shown in the terminal editor.
package editor

import (
	"encoding/json"
	"strings"

	"github.com/bytedance/sonic"
)

// Node represents a node in the ProseMirror document tree
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark represents a text mark (formatting)
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// PlainText renders a document as plain text. Blocks are separated by new
// lines, headings keep their '#' prefix and list items a "- " prefix.
// Content that is not a document is returned as found when it is a string.
func PlainText(content []byte) string {
	if len(content) == 0 || string(content) == "null" {
		return ""
	}
	var doc Node
	if err := sonic.Unmarshal(content, &doc); err != nil || doc.Type == "" {
		var s string
		if sonic.Unmarshal(content, &s) == nil {
			return s
		}
		return ""
	}
	var lines []string
	renderBlock(doc, "", &lines)
	return strings.Join(lines, "\n")
}

func renderBlock(n Node, prefix string, lines *[]string) {
	switch n.Type {
	case "doc", "blockquote":
		for _, c := range n.Content {
			renderBlock(c, prefix, lines)
		}
	case "bulletList", "orderedList", "taskList":
		for _, c := range n.Content {
			renderBlock(c, prefix, lines)
		}
	case "listItem", "taskItem":
		for i, c := range n.Content {
			if i == 0 {
				renderBlock(c, prefix+"- ", lines)
				continue
			}
			renderBlock(c, prefix+"  ", lines)
		}
	case "heading":
		level := 1
		if l, ok := n.Attrs["level"].(float64); ok && l >= 1 {
			level = int(l)
		}
		*lines = append(*lines, prefix+strings.Repeat("#", level)+" "+inline(n.Content))
	case "horizontalRule":
		*lines = append(*lines, prefix+"---")
	case "codeBlock":
		for _, l := range strings.Split(inline(n.Content), "\n") {
			*lines = append(*lines, prefix+l)
		}
	default:
		*lines = append(*lines, prefix+inline(n.Content))
	}
}

func inline(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Type {
		case "text":
			b.WriteString(n.Text)
		case "hardBreak":
			b.WriteString("\n")
		default:
			b.WriteString(inline(n.Content))
		}
	}
	return b.String()
}

// FromText builds a document from plain text written in the shape that
// PlainText produces: "# " headings, "- " bullet items and paragraphs.
func FromText(text string) json.RawMessage {
	doc := Node{Type: "doc"}
	var list *Node
	flush := func() {
		if list != nil {
			doc.Content = append(doc.Content, *list)
			list = nil
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "- "):
			if list == nil {
				list = &Node{Type: "bulletList"}
			}
			list.Content = append(list.Content, Node{
				Type:    "listItem",
				Content: []Node{paragraph(strings.TrimPrefix(line, "- "))},
			})
			continue
		case isHeading(line):
			flush()
			level := strings.IndexByte(line, ' ')
			doc.Content = append(doc.Content, Node{
				Type:    "heading",
				Attrs:   map[string]any{"level": level},
				Content: textNodes(line[level+1:]),
			})
		case line == "---":
			flush()
			doc.Content = append(doc.Content, Node{Type: "horizontalRule"})
		default:
			flush()
			doc.Content = append(doc.Content, paragraph(line))
		}
	}
	flush()

	b, err := sonic.Marshal(doc)
	if err != nil {
		return nil
	}
	return b
}

func isHeading(line string) bool {
	i := 0
	for i < len(line) && line[i] == '#' {
		i++
	}
	return i >= 1 && i <= 6 && i < len(line) && line[i] == ' '
}

func paragraph(text string) Node {
	return Node{Type: "paragraph", Content: textNodes(text)}
}

func textNodes(text string) []Node {
	if text == "" {
		return nil
	}
	return []Node{{Type: "text", Text: text}}
}

// Empty reports whether the document has no visible text
func Empty(content []byte) bool {
	return strings.TrimSpace(PlainText(content)) == ""
}
