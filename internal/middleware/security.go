// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import "net/http"

// artifactCSP locks published portfolios down to static content. Generated
// pages never need scripts; styles and fonts may be inline or remote, and
// images come from avatars and project screenshots on other hosts.
const artifactCSP = "default-src 'none'; " +
	"style-src 'self' 'unsafe-inline' https:; " +
	"font-src 'self' https: data:; " +
	"img-src 'self' https: data:; " +
	"base-uri 'none'; form-action 'none'; frame-ancestors 'none'"

// SecureHeaders adds security-related HTTP headers to every response.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-site")

		next.ServeHTTP(w, r)
	})
}

// ArtifactHeaders applies the Content-Security-Policy for served portfolio
// pages. Portfolio HTML embeds user-controlled text, so scripts are
// refused even if escaping were bypassed.
func ArtifactHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", artifactCSP)
		w.Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
		next.ServeHTTP(w, r)
	})
}
