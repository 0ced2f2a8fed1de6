// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"strings"
)

// Block names that iterate a list instead of testing a field. PROJECTS is
// the root project list; TAGS is the per-project tag list.
const (
	ListProjects = "PROJECTS"
	ListTags     = "TAGS"
)

var loopNames = map[string]bool{
	ListProjects: true,
	ListTags:     true,
}

type markerKind int

const (
	markerScalar markerKind = iota
	markerOpen
	markerClose
)

type marker struct {
	kind markerKind
	name string
	end  int // offset just past the closing braces
}

// parser is a small recursive scanner over the template source. Each call
// to parseNodes consumes text until the close marker of the block it was
// started for, so nested blocks of any depth pair up correctly.
type parser struct {
	src string
	pos int
}

// Parse scans source into a node tree. Text between braces that is not a
// well-formed marker (for example inline CSS or JS) is kept as literal text.
func Parse(source string) (*Tree, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &RenderError{Kind: KindMissingSource, Pos: -1, Msg: "template source is empty"}
	}

	p := &parser{src: source}
	nodes, err := p.parseNodes("", -1)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: nodes}, nil
}

// parseNodes collects nodes until the close marker for open (or EOF when
// open is empty).
func (p *parser) parseNodes(open string, openPos int) ([]Node, error) {
	var nodes []Node
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, &TextNode{Text: text.String()})
			text.Reset()
		}
	}

	for p.pos < len(p.src) {
		idx := strings.Index(p.src[p.pos:], "{{")
		if idx < 0 {
			text.WriteString(p.src[p.pos:])
			p.pos = len(p.src)
			break
		}

		start := p.pos + idx
		text.WriteString(p.src[p.pos:start])

		m, ok := scanMarker(p.src, start)
		if !ok {
			text.WriteString("{{")
			p.pos = start + 2
			continue
		}
		p.pos = m.end

		switch m.kind {
		case markerScalar:
			flush()
			nodes = append(nodes, &ScalarNode{Name: m.name, Pos: start})

		case markerOpen:
			flush()
			children, err := p.parseNodes(m.name, start)
			if err != nil {
				return nil, err
			}
			if loopNames[m.name] {
				nodes = append(nodes, &LoopNode{List: m.name, Pos: start, Children: children})
			} else {
				nodes = append(nodes, &ConditionalNode{Key: m.name, Pos: start, Children: children})
			}

		case markerClose:
			if open == "" {
				return nil, &RenderError{Kind: KindSyntax, Field: m.name, Pos: start, Msg: "close marker without open block"}
			}
			if m.name != open {
				return nil, &RenderError{Kind: KindSyntax, Field: m.name, Pos: start, Msg: "close marker does not match open block " + open}
			}
			flush()
			return nodes, nil
		}
	}

	if open != "" {
		return nil, &RenderError{Kind: KindSyntax, Field: open, Pos: openPos, Msg: "unclosed block"}
	}
	flush()
	return nodes, nil
}

// scanMarker recognizes {{NAME}}, {{#NAME}} and {{/NAME}} starting at
// src[start:]. Surrounding spaces inside the braces are allowed.
func scanMarker(src string, start int) (marker, bool) {
	rest := src[start+2:]
	closeIdx := strings.Index(rest, "}}")
	if closeIdx < 0 {
		return marker{}, false
	}

	inner := strings.TrimSpace(rest[:closeIdx])
	m := marker{kind: markerScalar, end: start + 2 + closeIdx + 2}

	if inner != "" {
		switch inner[0] {
		case '#':
			m.kind = markerOpen
			inner = strings.TrimSpace(inner[1:])
		case '/':
			m.kind = markerClose
			inner = strings.TrimSpace(inner[1:])
		}
	}

	if !isIdent(inner) {
		return marker{}, false
	}
	m.name = inner
	return m, true
}

// isIdent reports whether s is a non-empty [A-Za-z0-9_] identifier.
func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
