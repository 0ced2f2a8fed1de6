// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// OwnerHeader carries the authenticated owner's ID. It is set by the
// gateway in front of the API after authentication.
const OwnerHeader = "X-Owner-ID"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const ownerKey contextKey = "owner_id"

// RequireOwner reads the owner ID from OwnerHeader and stores it in the
// request context. Requests without a valid UUID get 401.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(OwnerHeader)
		if raw == "" {
			unauthorized(w, "missing "+OwnerHeader+" header")
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			unauthorized(w, "invalid "+OwnerHeader+" header")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), id)))
	})
}

// WithOwnerID returns a copy of ctx carrying the owner ID.
func WithOwnerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerKey, id)
}

// OwnerID extracts the owner ID from the request context.
func OwnerID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ownerKey).(uuid.UUID)
	return id, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
