// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import "fmt"

// ErrorKind classifies a RenderError.
type ErrorKind string

const (
	KindMissingSource ErrorKind = "missing_source"
	KindEmptyOutput   ErrorKind = "empty_output"
	KindSyntax        ErrorKind = "syntax"
	KindUnknownField  ErrorKind = "unknown_field"
)

// RenderError is returned for every engine failure. Callers match a kind
// with errors.Is against the Err* sentinels below.
type RenderError struct {
	Kind  ErrorKind
	Field string // marker name, for syntax and unknown-field errors
	Pos   int    // byte offset in the source, -1 when not applicable
	Msg   string
}

// Sentinels for errors.Is. Only Kind is compared.
var (
	ErrMissingSource = &RenderError{Kind: KindMissingSource}
	ErrEmptyOutput   = &RenderError{Kind: KindEmptyOutput}
	ErrSyntax        = &RenderError{Kind: KindSyntax}
	ErrUnknownField  = &RenderError{Kind: KindUnknownField}
)

func (e *RenderError) Error() string {
	switch {
	case e.Msg != "" && e.Field != "":
		return fmt.Sprintf("render %s: %s %q at offset %d", e.Kind, e.Msg, e.Field, e.Pos)
	case e.Msg != "":
		return fmt.Sprintf("render %s: %s", e.Kind, e.Msg)
	default:
		return fmt.Sprintf("render %s", e.Kind)
	}
}

// Is matches any RenderError of the same kind.
func (e *RenderError) Is(target error) bool {
	t, ok := target.(*RenderError)
	return ok && t.Kind == e.Kind
}
