// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// OperatorHeader carries the operator token for routes that change state
// shared by every owner.
const OperatorHeader = "X-Operator-Token"

// RequireOperator admits requests whose OperatorHeader matches the bcrypt
// hash. With an empty hash every request is refused.
func RequireOperator(hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hash) == 0 {
				forbidden(w, "operator routes are disabled")
				return
			}
			token := r.Header.Get(OperatorHeader)
			if token == "" {
				forbidden(w, "missing "+OperatorHeader+" header")
				return
			}
			if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
				slog.Warn("operator token rejected", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				forbidden(w, "invalid "+OperatorHeader+" header")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
