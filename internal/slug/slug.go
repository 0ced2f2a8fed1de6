// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug normalizes and validates public portfolio slugs.
package slug

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	MinLength = 3
	MaxLength = 30
)

var (
	// ErrInvalid is returned when a slug fails the length or charset rule.
	ErrInvalid = errors.New("invalid slug")
	// ErrReserved is returned when a slug is in the reserved word set.
	ErrReserved = errors.New("reserved slug")
)

var (
	// disallowed matches any run of characters that may not appear in a slug.
	disallowed = regexp.MustCompile(`[^a-z0-9]+`)
	// valid is the full format rule applied after normalization.
	valid = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// reserved holds words that collide with routes or could be mistaken for
// official pages. Stored lowercase.
var reserved = map[string]struct{}{
	"about": {}, "account": {}, "admin": {}, "administrator": {}, "api": {},
	"app": {}, "assets": {}, "auth": {}, "billing": {}, "blog": {},
	"cdn": {}, "contact": {}, "dashboard": {}, "devfolio": {}, "docs": {},
	"edit": {}, "explore": {}, "favicon": {}, "health": {}, "help": {},
	"home": {}, "index": {}, "login": {}, "logout": {}, "mail": {},
	"metrics": {}, "new": {}, "null": {}, "official": {}, "portfolio": {},
	"portfolios": {}, "pricing": {}, "privacy": {}, "profile": {}, "public": {},
	"register": {}, "root": {}, "robots": {}, "security": {}, "settings": {},
	"signin": {}, "signup": {}, "sitemap": {}, "staff": {}, "static": {},
	"status": {}, "support": {}, "system": {}, "terms": {}, "undefined": {},
	"user": {}, "users": {}, "www": {},
}

// stripMarks decomposes accented characters and drops the combining marks,
// so "café" becomes "cafe" instead of "caf-".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize turns arbitrary user input into slug form: diacritics folded,
// lowercased, trimmed, every run of characters outside [a-z0-9] collapsed
// into a single hyphen, leading and trailing hyphens stripped.
// Example: "  My Cool Portfolio! " → "my-cool-portfolio"
func Normalize(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	result := strings.ToLower(strings.TrimSpace(folded))
	result = disallowed.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Validate checks an already-normalized slug against the format rule and
// the reserved word set. Errors wrap ErrInvalid or ErrReserved.
func Validate(s string) error {
	n := len(s)
	if n < MinLength || n > MaxLength {
		return fmt.Errorf("%w: length must be between %d and %d characters", ErrInvalid, MinLength, MaxLength)
	}
	if !valid.MatchString(s) {
		return fmt.Errorf("%w: only lowercase letters, digits and hyphens are allowed", ErrInvalid)
	}
	if IsReserved(s) {
		return fmt.Errorf("%w: %q is reserved", ErrReserved, s)
	}
	return nil
}

// NormalizeAndValidate is the usual entry point for user-supplied slugs.
func NormalizeAndValidate(s string) (string, error) {
	n := Normalize(s)
	if err := Validate(n); err != nil {
		return n, err
	}
	return n, nil
}

// IsReserved reports whether s is reserved, ignoring case.
func IsReserved(s string) bool {
	_, ok := reserved[strings.ToLower(s)]
	return ok
}

// Reserved returns the reserved word set, sorted.
func Reserved() []string {
	return slices.Sorted(maps.Keys(reserved))
}
