// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

// Node is one element of a parsed template tree.
type Node interface {
	node()
}

// TextNode is literal template text copied to the output unchanged.
type TextNode struct {
	Text string
}

// ScalarNode is a {{NAME}} placeholder.
type ScalarNode struct {
	Name string
	Pos  int
}

// ConditionalNode is a {{#KEY}}...{{/KEY}} block rendered only when KEY
// resolves to a truthy value.
type ConditionalNode struct {
	Key      string
	Pos      int
	Children []Node
}

// LoopNode is a {{#LIST}}...{{/LIST}} block rendered once per element of
// a list in scope, each pass seeing only that element's fields.
type LoopNode struct {
	List     string
	Pos      int
	Children []Node
}

func (*TextNode) node()        {}
func (*ScalarNode) node()      {}
func (*ConditionalNode) node() {}
func (*LoopNode) node()        {}

// Tree is a parsed template, safe to execute concurrently.
type Tree struct {
	Root []Node
}
