// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generate

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamData matches every *UpstreamError.
	ErrUpstreamData = errors.New("upstream data unavailable")

	ErrInvalidSelection = errors.New("invalid selection")
	ErrNotFound         = errors.New("portfolio not found")
	ErrOwnership        = errors.New("portfolio belongs to another owner")
	ErrNoTemplate       = errors.New("no template given and no default template configured")
	// ErrTemplateForbidden is returned when generating with a template
	// another owner created.
	ErrTemplateForbidden = errors.New("template belongs to another owner")
)

// UpstreamError wraps a failed or timed-out provider fetch. Generation
// stops before rendering; no partial data is used.
type UpstreamError struct {
	Account string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("fetch source data for %q: %v", e.Account, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamData }
