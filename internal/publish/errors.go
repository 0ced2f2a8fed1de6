// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package publish

import (
	"errors"
	"fmt"
	"time"

	"devfolio/internal/slug"
)

var (
	// ErrInvalidSlug and ErrReservedSlug are the slug package sentinels,
	// so validation errors pass through with their detail intact.
	ErrInvalidSlug  = slug.ErrInvalid
	ErrReservedSlug = slug.ErrReserved

	ErrSlugConflict      = errors.New("slug is already in use")
	ErrCooldownActive    = errors.New("slug change cooldown active")
	ErrNothingToPublish  = errors.New("portfolio has no generated artifact")
	ErrNotPublished      = errors.New("portfolio is not published")
	ErrNotFound          = errors.New("portfolio not found")
	ErrOwnership         = errors.New("portfolio belongs to another owner")
	ErrConcurrentUpdate  = errors.New("portfolio changed concurrently, retry")
	ErrInvalidVisibility = errors.New("invalid visibility")
)

// CooldownError reports a slug change attempted inside the cooldown
// window. It matches ErrCooldownActive.
type CooldownError struct {
	// Until is when a different slug may next be assigned.
	Until time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("slug change cooldown active until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// RetryAfter returns the remaining wait relative to now, rounded up to
// whole seconds.
func (e *CooldownError) RetryAfter(now time.Time) time.Duration {
	d := e.Until.Sub(now)
	if d <= 0 {
		return 0
	}
	return (d + time.Second - 1).Truncate(time.Second)
}

// outcome maps an error to a short metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidSlug):
		return "invalid_slug"
	case errors.Is(err, ErrReservedSlug):
		return "reserved_slug"
	case errors.Is(err, ErrSlugConflict):
		return "slug_conflict"
	case errors.Is(err, ErrCooldownActive):
		return "cooldown"
	case errors.Is(err, ErrNothingToPublish):
		return "nothing_to_publish"
	case errors.Is(err, ErrNotPublished):
		return "not_published"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrOwnership):
		return "ownership"
	case errors.Is(err, ErrConcurrentUpdate):
		return "concurrent_update"
	case errors.Is(err, ErrInvalidVisibility):
		return "invalid_visibility"
	default:
		return "error"
	}
}
