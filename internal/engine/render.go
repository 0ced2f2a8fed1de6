// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
)

// Options tunes execution. The zero value is the permissive production
// behaviour: unknown markers render as empty strings.
type Options struct {
	// Strict makes unknown placeholders and block keys fail with
	// ErrUnknownField instead of rendering as empty.
	Strict bool
}

// Render parses and executes source against rc with permissive options.
// It is a pure function: identical inputs always give identical output.
func Render(source string, rc RenderContext) (string, error) {
	tree, err := Parse(source)
	if err != nil {
		return "", err
	}
	return tree.Execute(rc, Options{})
}

// Execute renders the tree. An output that is empty after trimming
// whitespace fails with ErrEmptyOutput so callers never persist a blank
// artifact.
func (t *Tree) Execute(rc RenderContext, opts Options) (string, error) {
	w := &walker{opts: opts}
	if err := w.walk(t.Root, rootScope(rc)); err != nil {
		return "", err
	}

	out := w.buf.String()
	if strings.TrimSpace(out) == "" {
		return "", &RenderError{Kind: KindEmptyOutput, Pos: -1, Msg: "template rendered to an empty document"}
	}
	return out, nil
}

type walker struct {
	buf  strings.Builder
	opts Options
}

func (w *walker) walk(nodes []Node, s *scope) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *TextNode:
			w.buf.WriteString(n.Text)

		case *ScalarNode:
			v, ok := s.lookup(n.Name)
			if !ok {
				if w.opts.Strict {
					return &RenderError{Kind: KindUnknownField, Field: n.Name, Pos: n.Pos, Msg: "no field for placeholder"}
				}
				continue
			}
			w.buf.WriteString(formatValue(v))

		case *ConditionalNode:
			// An absent key is falsy in both modes.
			if v, ok := s.lookup(n.Key); ok && truthy(v) {
				if err := w.walk(n.Children, s); err != nil {
					return err
				}
			}

		case *LoopNode:
			v, ok := s.lookup(n.List)
			if !ok {
				if w.opts.Strict {
					return &RenderError{Kind: KindUnknownField, Field: n.List, Pos: n.Pos, Msg: "no list for loop block"}
				}
				continue
			}
			items, _ := v.([]item)
			for _, it := range items {
				if err := w.walk(n.Children, s.child(it)); err != nil {
					return err
				}
			}

		default:
			return fmt.Errorf("engine: unknown node type %T", n)
		}
	}
	return nil
}

// formatValue returns the output form of a field value. Strings are
// escaped; integers print in plain decimal without grouping; nil and nil
// pointers print as nothing.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case HTML:
		return string(v)
	case string:
		return html.EscapeString(v)
	case *string:
		if v == nil {
			return ""
		}
		return html.EscapeString(*v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	case []item:
		return ""
	case fmt.Stringer:
		return html.EscapeString(v.String())
	default:
		return html.EscapeString(fmt.Sprint(v))
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// truthy follows the usual template rules: empty strings, false, zero,
// nil and empty lists are falsy.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case HTML:
		return v != ""
	case *string:
		return v != nil && *v != ""
	case bool:
		return v
	case int:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case uint:
		return v != 0
	case uint32:
		return v != 0
	case uint64:
		return v != 0
	case float32:
		return v != 0 && !math.IsNaN(float64(v))
	case float64:
		return v != 0 && !math.IsNaN(v)
	case []item:
		return len(v) > 0
	case []string:
		return len(v) > 0
	default:
		return true
	}
}
